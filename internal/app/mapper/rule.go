package mapper

import (
	"fmt"

	"github.com/osa030/playlog/internal/domain/logsheet"
	"github.com/osa030/playlog/internal/domain/track"
)

// Rule reports data the catalog could not supply for a track.
type Rule interface {
	// Name returns the rule name.
	Name() string
	// AppliesTo returns true if the rule is relevant for the given format.
	AppliesTo(f logsheet.Format) bool
	// Check returns zero or more warnings for the track at index.
	Check(t track.Track, index int) []string
}

// defaultRules run in order; their order fixes warning order within a track.
var defaultRules = []Rule{
	localFileRule{},
	composerRule{},
}

// localFileRule flags local files that arrived without any metadata.
type localFileRule struct{}

func (localFileRule) Name() string {
	return "local_file"
}

func (localFileRule) AppliesTo(logsheet.Format) bool {
	return true
}

func (localFileRule) Check(t track.Track, index int) []string {
	if t.HasMetadata() {
		return nil
	}
	return []string{fmt.Sprintf("Track %d: local file metadata unavailable", index)}
}

// composerRule flags the missing composer. Spotify never reports composers,
// so this fires for every track of an old editor log.
type composerRule struct{}

func (composerRule) Name() string {
	return "composer"
}

func (composerRule) AppliesTo(f logsheet.Format) bool {
	return f == logsheet.OldEditor
}

func (composerRule) Check(_ track.Track, index int) []string {
	return []string{fmt.Sprintf("Track %d: composer unknown", index)}
}
