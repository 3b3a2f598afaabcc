// Package feed fetches remote RSS/Atom documents, normalizes their entries
// into canonical items and runs the per-feed poll cycle.
package feed

import "time"

// Item is the normalized, format-agnostic representation of one feed entry.
// Instances are created fresh on every poll and discarded when the cycle
// completes; persistence is the store's responsibility.
type Item struct {
	FeedID      string
	ExternalID  string
	PublishedAt time.Time // zero when the entry carries no parsable timestamp
	Variables   map[string]string
}
