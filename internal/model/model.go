// Package model defines the domain types used across the application.
package model

import "time"

// SearchFilters narrows a procurement query. Each field is optional;
// an empty or whitespace-only value imposes no constraint. Supplied
// fields combine conjunctively and match case-insensitively by
// substring.
type SearchFilters struct {
	Keyword      string
	Department   string
	Municipality string
	Modality     string
	ContractType string
	Phase        string
}

// IsEmpty reports whether no filter field is set.
func (f SearchFilters) IsEmpty() bool {
	return f == SearchFilters{}
}

// AllowedFrequencies are the valid check intervals, in hours.
var AllowedFrequencies = []int{1, 3, 6, 12, 24}

// ValidFrequency reports whether h is an allowed check interval.
func ValidFrequency(h int) bool {
	for _, v := range AllowedFrequencies {
		if v == h {
			return true
		}
	}
	return false
}

// Alert is a user-saved search evaluated periodically for new
// procurement processes.
type Alert struct {
	ID               string
	UserID           string
	Name             string
	Filters          SearchFilters
	FrequencyHours   int
	IsActive         bool
	LastCheckAt      *time.Time
	LastResultsCount int
	LastResultsIDs   []string
	CreatedAt        time.Time
}

// NeverChecked reports whether the alert has no recorded evaluation yet.
// The first evaluation takes a baseline snapshot and must not notify.
func (a *Alert) NeverChecked() bool {
	return a.LastCheckAt == nil && len(a.LastResultsIDs) == 0
}

// CheckState is the per-alert evaluation outcome persisted after a cycle.
type CheckState struct {
	LastCheckAt  time.Time
	ResultsCount int
	ResultIDs    []string
}

// ProcurementItem is one contracting process returned by the open-data
// API. Only ID is interpreted by the check pipeline; the remaining
// fields are carried for display.
type ProcurementItem struct {
	ID           string
	Name         string
	Entity       string
	Department   string
	Municipality string
	Modality     string
	ContractType string
	Phase        string
	BasePrice    string
	PublishedAt  string
	URL          string
}

// Favorite is a procurement process saved by a user.
type Favorite struct {
	UserID    string
	ProcessID string
	Name      string
	URL       string
	CreatedAt time.Time
}
