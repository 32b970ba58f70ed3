// Package models defines domain entities and persistence interfaces for the liked-songs mirror.
//
// The package contains two categories of types:
//
// 1. Reconciliation values: plain structs passed between the fetcher, selector, writer and engine
//   - [LikedItem] : One record of the liked-items listing, with an optional [Item]
//   - [CandidateSet] : Ordered, deduplicated URIs plus liked/skipped counts
//   - [MirrorRef] : The remote collection being kept in sync
//   - [SyncSummary] : Counts reported at the end of a pass
//
// 2. Persistent entities: database-backed models
//   - [SyncRun] : History record of one pass with status, summary and timing
//
// Persistent entities implement [Model] and are stored through [Repository].
package models
