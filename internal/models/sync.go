package models

// MirrorRef identifies the remote collection that mirrors the liked items.
type MirrorRef struct {
	ID      string
	Name    string
	Created bool // Created during this pass
}

// SyncSummary reports the outcome of one reconciliation pass.
type SyncSummary struct {
	CollectionID   string `json:"collection_id"`
	CollectionName string `json:"collection_name,omitempty"`
	Created        bool   `json:"created"`
	DryRun         bool   `json:"dry_run,omitempty"`
	LikedCount     int    `json:"liked_count"`
	CandidateCount int    `json:"candidate_count"`
	WrittenCount   int    `json:"written_count"`
	SkippedCount   int    `json:"skipped_count"`
	RejectedCount  int    `json:"rejected_count,omitempty"` // Dropped by the per-item fallback
	Fingerprint    string `json:"fingerprint"`
}
