// Package main provides the CLI client entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/charmbracelet/huh/spinner"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/playlog/internal/api/connect"
	"github.com/osa030/playlog/internal/api/dto"
)

var (
	app     = kingpin.New("playlog", "Convert a Spotify playlist into a radio log sheet CSV")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("PLAYLOG_SERVER").String()
	output  = app.Flag("output", "Path of the CSV file to write").Short('o').Default("playlist.csv").String()
	timeout = app.Flag("timeout", "Give up waiting after this long").Default("90s").Duration()
	quiet   = app.Flag("quiet", "Do not show a spinner").Short('q').Bool()

	// new command
	newCmd = app.Command("new", "Convert for the new playlist editor")
	newURL = newCmd.Arg("playlist-url", "Spotify playlist URL").Required().String()

	// old command
	oldCmd       = app.Command("old", "Convert for the old playlist editor")
	oldURL       = oldCmd.Arg("playlist-url", "Spotify playlist URL").Required().String()
	oldShowTitle = oldCmd.Flag("show-title", "Show title").Required().String()
	oldShowDate  = oldCmd.Flag("show-date", "Show date (YYYY-MM-DD)").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewConverterClient(http.DefaultClient, *server)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var convert func(ctx context.Context) (*dto.ConvertResponse, error)
	switch command {
	case newCmd.FullCommand():
		req := &dto.ConvertRequest{PlaylistURL: *newURL}
		convert = func(ctx context.Context) (*dto.ConvertResponse, error) {
			return client.ConvertNew(ctx, req)
		}
	case oldCmd.FullCommand():
		req := &dto.ConvertRequest{
			PlaylistURL: *oldURL,
			ShowTitle:   *oldShowTitle,
			ShowDate:    *oldShowDate,
		}
		convert = func(ctx context.Context) (*dto.ConvertResponse, error) {
			return client.ConvertOld(ctx, req)
		}
	}

	resp, err := run(ctx, convert)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, []byte(resp.Body), 0o644); err != nil {
		fmt.Printf("Error: failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}

	printResult(resp)
}

// run performs the conversion, showing a spinner while it waits.
func run(ctx context.Context, convert func(ctx context.Context) (*dto.ConvertResponse, error)) (*dto.ConvertResponse, error) {
	if *quiet {
		return convert(ctx)
	}

	var resp *dto.ConvertResponse
	action := func(ctx context.Context) error {
		var err error
		resp, err = convert(ctx)
		return err
	}
	start := time.Now()
	err := spinner.New().Title("Converting playlist...").Context(ctx).ActionWithErr(action).Run()
	if err != nil {
		return nil, err
	}
	fmt.Printf("Converted in %s\n", time.Since(start).Round(time.Millisecond))
	return resp, nil
}

func printResult(resp *dto.ConvertResponse) {
	if resp.PlaylistName != "" {
		fmt.Printf("Playlist: %s\n", resp.PlaylistName)
	}
	fmt.Printf("Wrote %s\n", *output)

	if len(resp.Warnings) == 0 {
		return
	}
	fmt.Printf("\nWarnings (%d):\n", len(resp.Warnings))
	for _, w := range resp.Warnings {
		fmt.Printf("  - %s\n", w)
	}
}
