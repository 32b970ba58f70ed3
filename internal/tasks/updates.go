package tasks

import (
	"fmt"

	"github.com/desertthunder/likesync/internal/models"
)

// ProgressUpdate represents a progress event during a reconciliation pass.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pass state reached
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the states of a pass, in the order they are reached.
type Phase int

const (
	Start Phase = iota
	TokenRefreshed
	IdentityResolved
	CollectionResolved
	ListingFetched
	CandidatesSelected
	CollectionCleared
	WritingItems
	ItemsWritten
	Done
)

func (p Phase) String() string {
	switch p {
	case Start:
		return "start"
	case TokenRefreshed:
		return "token_refreshed"
	case IdentityResolved:
		return "identity_resolved"
	case CollectionResolved:
		return "collection_resolved"
	case ListingFetched:
		return "listing_fetched"
	case CandidatesSelected:
		return "candidates_selected"
	case CollectionCleared:
		return "collection_cleared"
	case WritingItems:
		return "writing_items"
	case ItemsWritten:
		return "items_written"
	case Done:
		return "done"
	default:
		return ""
	}
}

// Phases lists the states a complete pass moves through.
var Phases = []Phase{
	Start, TokenRefreshed, IdentityResolved, CollectionResolved, ListingFetched,
	CandidatesSelected, CollectionCleared, ItemsWritten, Done,
}

func startUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Start, Message: "Refreshing access token..."}
}

func tokenRefreshedUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: TokenRefreshed, Message: "Access token refreshed"}
}

func identityUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   IdentityResolved,
		Message: fmt.Sprintf("Signed in as %s", user),
	}
}

func collectionUpdate(ref models.MirrorRef) ProgressUpdate {
	msg := fmt.Sprintf("Using playlist: %s (ID: %s)", ref.Name, ref.ID)
	switch {
	case ref.Created:
		msg = fmt.Sprintf("Playlist created: %s (ID: %s)", ref.Name, ref.ID)
	case ref.ID == "":
		msg = fmt.Sprintf("Would create playlist: %s", ref.Name)
	}

	return ProgressUpdate{Phase: CollectionResolved, Message: msg, Data: ref}
}

func listingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListingFetched,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Fetched %d liked songs", count),
	}
}

func candidatesUpdate(set models.CandidateSet) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CandidatesSelected,
		Step:    len(set.URIs),
		Total:   set.LikedCount,
		Message: fmt.Sprintf("Selected %d of %d liked songs (%d skipped)", len(set.URIs), set.LikedCount, set.SkippedCount),
		Data:    set,
	}
}

func clearedUpdate(ref models.MirrorRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectionCleared,
		Message: fmt.Sprintf("Cleared playlist %s", ref.Name),
	}
}

func writingUpdate(written, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WritingItems,
		Step:    written,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing songs...", written, total),
	}
}

func writtenUpdate(result WriteResult) ProgressUpdate {
	msg := fmt.Sprintf("Wrote %d songs", result.Written)
	if len(result.Rejected) > 0 {
		msg = fmt.Sprintf("Wrote %d songs (%d rejected)", result.Written, len(result.Rejected))
	}
	return ProgressUpdate{Phase: ItemsWritten, Step: result.Written, Total: result.Written, Message: msg}
}

func doneUpdate(summary *models.SyncSummary) ProgressUpdate {
	msg := "✓ Mirror up to date"
	if summary.DryRun {
		msg = "✓ Dry run complete, nothing written"
	}
	return ProgressUpdate{Phase: Done, Message: msg, Data: summary}
}
