// Package domain contains the core data structures and domain logic for the application.
package domain

import "encoding/json"

// Sentinel values used for the languages field when genuine data is unavailable.
const (
	LanguagesUnavailable = "N/A"
	LanguagesParseFailed = "N/A (Failed to parse languages)"
)

// RepositorySummary holds the aggregated activity of a single repository.
// It is the core domain entity of this application.
type RepositorySummary struct {
	Repo      string `json:"repo"`
	Commits   int    `json:"commits"`
	Languages string `json:"languages"`
	Stars     int    `json:"stars"`
	Forks     int    `json:"forks"`
}

// ErrorPayload is returned in place of the summaries when the repository
// listing call fails or has an unexpected shape.
//
// Message carries the upstream error body (parsed JSON when possible, raw text
// otherwise); Data carries a listing body that was valid JSON but not an array.
type ErrorPayload struct {
	Error   string          `json:"error"`
	Message any             `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ActivityReport is the result of one aggregation run: either the ordered
// summaries, or a Failure describing why the listing could not be used.
type ActivityReport struct {
	Repositories []RepositorySummary
	Failure      *ErrorPayload
}

// Failed reports whether the listing call failed.
func (r ActivityReport) Failed() bool {
	return r.Failure != nil
}

// MarshalJSON renders the report as the bare summary array, or as the error
// object when the listing failed.
func (r ActivityReport) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	if r.Repositories == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Repositories)
}

// ActivityTotals is the account-wide overview derived from a report.
type ActivityTotals struct {
	TotalRepos      int      `json:"total_repos"`
	TotalCommits    int      `json:"total_commits"`
	TotalStars      int      `json:"total_stars"`
	TotalForks      int      `json:"total_forks"`
	ActiveLanguages int      `json:"active_languages"`
	Languages       []string `json:"languages"`
	MeanCommits     float64  `json:"mean_commits"`
	MedianCommits   float64  `json:"median_commits"`
	MostStarred     string   `json:"most_starred,omitempty"`
}
