package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/oauth2"
)

// BatchSize is the largest number of URIs sent in one write.
const BatchSize = 100

// availabilityPatterns identify a 400 caused by individual items the service refuses to add.
var availabilityPatterns = []string{
	"not available",
	"unavailable",
	"invalid track uri",
	"invalid base62 id",
	"non existing id",
}

// CollectionAPI writes playlist contents.
type CollectionAPI interface {
	ReplacePlaylistItems(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error
	AddPlaylistItems(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error
}

// WriteResult reports what a write pass added.
type WriteResult struct {
	Written  int
	Rejected []string // URIs dropped by the per-item fallback
}

// WriterOpts configures a [CollectionWriter].
type WriterOpts struct {
	ItemFallback bool // Retry a rejected batch one URI at a time
	BatchSize    int
	Logger       *log.Logger
}

// WriteHooks are optional callbacks fired while [CollectionWriter.ReplaceAll] runs.
type WriteHooks struct {
	Cleared func()                   // After the clear succeeds
	Batch   func(written, total int) // After every appended batch
}

// CollectionWriter replaces a playlist's contents with an ordered URI list.
type CollectionWriter struct {
	api          CollectionAPI
	itemFallback bool
	batchSize    int
	logger       *log.Logger
}

// NewCollectionWriter creates a [CollectionWriter] over api.
func NewCollectionWriter(api CollectionAPI, opts WriterOpts) *CollectionWriter {
	w := &CollectionWriter{
		api:          api,
		itemFallback: opts.ItemFallback,
		batchSize:    opts.BatchSize,
		logger:       opts.Logger,
	}
	if w.batchSize <= 0 || w.batchSize > BatchSize {
		w.batchSize = BatchSize
	}
	if w.logger == nil {
		w.logger = shared.NewLogger(io.Discard)
	}
	return w
}

// ReplaceAll clears the collection and appends uris in order.
//
// Any failure aborts the operation. No partial result is reported.
func (w *CollectionWriter) ReplaceAll(ctx context.Context, collectionID string, uris []string, token *oauth2.Token, hooks WriteHooks) (WriteResult, error) {
	if err := w.Clear(ctx, collectionID, token); err != nil {
		return WriteResult{}, err
	}
	if hooks.Cleared != nil {
		hooks.Cleared()
	}
	return w.Append(ctx, collectionID, uris, token, hooks.Batch)
}

// Clear empties the collection. A 403 means it is already empty.
func (w *CollectionWriter) Clear(ctx context.Context, collectionID string, token *oauth2.Token) error {
	err := w.api.ReplacePlaylistItems(ctx, token, collectionID, []string{})
	if services.IsStatus(err, http.StatusForbidden) {
		w.logger.Debug("clear rejected with 403, treating as empty", "collection", collectionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}
	return nil
}

// Append adds uris in batches, each completing before the next is sent.
// onBatch, when non-nil, is called after every batch with the running total.
func (w *CollectionWriter) Append(ctx context.Context, collectionID string, uris []string, token *oauth2.Token, onBatch func(written, total int)) (WriteResult, error) {
	var result WriteResult
	batches := (len(uris) + w.batchSize - 1) / w.batchSize

	for i := 0; i < len(uris); i += w.batchSize {
		batch := uris[i:min(i+w.batchSize, len(uris))]
		n := i/w.batchSize + 1

		err := w.api.AddPlaylistItems(ctx, token, collectionID, batch)
		switch {
		case err == nil:
			result.Written += len(batch)
		case w.itemFallback && isAvailabilityRejection(err):
			w.logger.Warn("batch rejected, retrying items individually", "batch", n, "size", len(batch), "error", err)

			written, rejected, ferr := w.appendEach(ctx, collectionID, batch, token)
			if ferr != nil {
				return WriteResult{}, fmt.Errorf("failed to write batch %d/%d: %w", n, batches, ferr)
			}
			result.Written += written
			result.Rejected = append(result.Rejected, rejected...)
		default:
			return WriteResult{}, fmt.Errorf("failed to write batch %d/%d: %w", n, batches, err)
		}

		w.logger.Debug("batch written", "batch", n, "batches", batches, "written", result.Written)
		if onBatch != nil {
			onBatch(result.Written, len(uris))
		}
	}

	return result, nil
}

func (w *CollectionWriter) appendEach(ctx context.Context, collectionID string, batch []string, token *oauth2.Token) (int, []string, error) {
	written := 0
	var rejected []string

	for _, uri := range batch {
		err := w.api.AddPlaylistItems(ctx, token, collectionID, []string{uri})
		switch {
		case err == nil:
			written++
		case isAvailabilityRejection(err):
			w.logger.Warn("item rejected", "uri", uri, "error", err)
			rejected = append(rejected, uri)
		default:
			return 0, nil, err
		}
	}
	return written, rejected, nil
}

// isAvailabilityRejection reports whether err is a 400 whose message names an unavailable item.
func isAvailabilityRejection(err error) bool {
	var apiErr *services.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return false
	}

	msg := strings.ToLower(apiErr.Message)
	for _, pattern := range availabilityPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
