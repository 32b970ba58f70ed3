// Package tasks runs the liked-songs reconciliation pass with real-time progress reporting.
//
// # Pass
//
// [MirrorEngine.Run] moves strictly through the states listed in [Phases]:
//
//  1. Refresh the access token
//  2. Resolve the user's identity
//  3. Resolve the mirror playlist
//     - Look up the stored playlist id; a 404 falls through to creation
//     - Create "<name>'s Liked Songs" or the fallback title
//  4. Fetch the full liked listing with [services.FetchLiked]
//  5. Select candidates with [SelectCandidates]
//  6. Clear the playlist with [CollectionWriter.Clear]
//  7. Append candidates in batches with [CollectionWriter.Append]
//
// Any failure aborts the pass. The playlist may be left cleared; the next pass re-converges.
// A dry run stops after step 5.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Per-item Fallback
//
// [WriterOpts.ItemFallback] enables retrying a batch one URI at a time when the service rejects it with
// a 400 naming an unavailable item. Rejected URIs are reported in [WriteResult.Rejected].
package tasks
