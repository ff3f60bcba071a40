// Package dto defines the request and response messages shared by the
// HTTP adapters and the CLI client.
package dto

// ConvertRequest is the body of a conversion request. Format is only read
// by the endpoint that does not name the format in its path.
type ConvertRequest struct {
	PlaylistURL string `json:"playlist_url" mapstructure:"playlist_url"`
	Format      string `json:"format,omitempty" mapstructure:"format"`
	ShowTitle   string `json:"show_title,omitempty" mapstructure:"show_title"`
	ShowDate    string `json:"show_date,omitempty" mapstructure:"show_date"`
}

// ConvertResponse is the body of a successful conversion. Warnings is
// always present, empty when there is nothing to report.
type ConvertResponse struct {
	PlaylistName string   `json:"playlistName"`
	Warnings     []string `json:"warnings"`
	Body         string   `json:"body"`
}

// ErrorResponse is the body of a failed conversion.
type ErrorResponse struct {
	Error string `json:"error"`
}
