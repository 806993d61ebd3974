package sbscan

import (
	"sort"
	"time"
)

// Rank sorts results by score, highest first. Equal scores keep their input order.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Omission instrument left out of a batch and why.
type Omission struct {
	Symbol string `json:"ticker"`
	Reason string `json:"reason"`
}

// Batch one scan over the whole universe.
type Batch struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Results    []Result   `json:"results"`
	Omitted    []Omission `json:"omitted,omitempty"`
}

// Top returns at most limit results.
func (b Batch) Top(limit int) []Result {
	if limit < 0 || limit >= len(b.Results) {
		return b.Results
	}
	return b.Results[:limit]
}
