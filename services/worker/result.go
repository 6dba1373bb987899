package worker

import (
	"fmt"
	"time"

	"github.com/dealmungchi/freegameworker/internal/offer"
)

// SourceReport describes how one storefront adapter fared in a run
type SourceReport struct {
	Name     string      `json:"name"`
	Store    offer.Store `json:"store"`
	Offers   int         `json:"offers"`
	Error    string      `json:"error,omitempty"`
	TimedOut bool        `json:"timed_out,omitempty"`
}

// Result summarizes one run
type Result struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
	Sources       []SourceReport `json:"sources"`
	FailedSources []string       `json:"failed_sources,omitempty"`
	Fetched       int            `json:"fetched"`
	Normalized    int            `json:"normalized"`
	New           int            `json:"new"`
	Announced     int            `json:"announced"`
	Failed        int            `json:"failed"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// Message is the human summary given to whoever triggered the run
func (r Result) Message() string {
	if r.New == 0 {
		return "No new free games found right now."
	}
	return fmt.Sprintf("Done! Posted %d new games.", r.Announced)
}
