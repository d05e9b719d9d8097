package models

import "time"

// Run describes one stored conversion
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Frequency string    `json:"frequency"`
	Strategy  string    `json:"strategy"`
	Files     int       `json:"files"`
	Records   int       `json:"records"`
}
