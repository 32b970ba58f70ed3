package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Item is a playable media entry as delivered by the source service.
type Item struct {
	ID         string
	URI        string // Canonical identifier used for collection writes
	Name       string
	Artists    []string
	IsLocal    bool
	IsPlayable *bool // nil means playable
}

// Playable reports whether the item may be written to a collection.
func (i *Item) Playable() bool {
	return i.IsPlayable == nil || *i.IsPlayable
}

// LikedItem is one entry of the user's liked-items listing.
type LikedItem struct {
	AddedAt time.Time
	Item    *Item // nil when the item was removed or is unavailable upstream
}

// CandidateSet is the ordered, deduplicated sequence of URIs to mirror.
type CandidateSet struct {
	URIs         []string
	LikedCount   int // Number of listing records, regardless of outcome
	SkippedCount int // Records excluded as unplayable or unaddressable
}

// DuplicateCount returns the number of records dropped as repeats of an earlier URI.
func (c CandidateSet) DuplicateCount() int {
	return c.LikedCount - len(c.URIs) - c.SkippedCount
}

// Fingerprint returns a stable digest of the URI sequence.
//
// Two passes that write the same ordering have the same fingerprint.
func (c CandidateSet) Fingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join(c.URIs, "\n")))
	return hex.EncodeToString(sum[:8])
}
