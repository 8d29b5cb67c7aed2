package dto

import "time"

// FeedResponse carries a signed calendar subscription URL.
type FeedResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportFormat selects the agenda rendering.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered agenda ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
