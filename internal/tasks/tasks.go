package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultFallbackTitle names the mirror when the profile has no display name.
const DefaultFallbackTitle = "Liked Songs Mirror"

// LibraryAPI is the remote surface a pass needs.
type LibraryAPI interface {
	RefreshToken(ctx context.Context) (*oauth2.Token, error)
	CurrentUser(ctx context.Context, token *oauth2.Token) (*services.SpotifyUser, error)
	Playlist(ctx context.Context, token *oauth2.Token, playlistID string) (*services.SpotifyPlaylist, error)
	CreatePlaylist(ctx context.Context, token *oauth2.Token, userID, name, description string) (*services.SpotifyPlaylist, error)
	services.SavedTracksPager
	CollectionAPI
}

// SyncOpts controls one pass.
type SyncOpts struct {
	PriorCollectionID string // From persisted state; empty on first run
	FallbackTitle     string
	Description       string
	DryRun            bool // Stop after selecting candidates
}

// EngineOpts configures a [MirrorEngine].
type EngineOpts struct {
	ItemFallback bool
	Logger       *log.Logger
}

// MirrorEngine runs reconciliation passes against a [LibraryAPI].
type MirrorEngine struct {
	api            LibraryAPI
	writer         *CollectionWriter
	logger         *log.Logger
	onTokenRefresh func(*oauth2.Token)
}

// NewMirrorEngine creates a new MirrorEngine over api.
func NewMirrorEngine(api LibraryAPI, opts EngineOpts) *MirrorEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &MirrorEngine{
		api:    api,
		writer: NewCollectionWriter(api, WriterOpts{ItemFallback: opts.ItemFallback, Logger: logger}),
		logger: logger,
	}
}

// SetTokenRefreshCallback registers fn to receive the token obtained at the start of every pass.
func (e *MirrorEngine) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	e.onTokenRefresh = fn
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MirrorEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	e.logger.Info(update.Message, "phase", update.Phase)

	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run performs one reconciliation pass.
//
// On failure the returned summary holds whatever was learned before the error, so callers can record it.
func (e *MirrorEngine) Run(ctx context.Context, opts SyncOpts, progress chan<- ProgressUpdate) (*models.SyncSummary, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: Spotify client not initialized", shared.ErrServiceUnavailable)
	}

	summary := &models.SyncSummary{DryRun: opts.DryRun}
	e.sendProgress(progress, startUpdate())

	token, err := e.api.RefreshToken(ctx)
	if err != nil {
		return summary, err
	}
	if e.onTokenRefresh != nil {
		e.onTokenRefresh(token)
	}
	e.sendProgress(progress, tokenRefreshedUpdate())

	user, err := e.api.CurrentUser(ctx, token)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve identity: %w", err)
	}
	e.sendProgress(progress, identityUpdate(displayName(user)))

	ref, err := e.resolveCollection(ctx, token, user, opts)
	if err != nil {
		return summary, err
	}
	summary.CollectionID = ref.ID
	summary.CollectionName = ref.Name
	summary.Created = ref.Created
	e.sendProgress(progress, collectionUpdate(ref))

	listing, err := services.FetchLiked(ctx, e.api, token)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch liked songs: %w", err)
	}
	e.sendProgress(progress, listingUpdate(len(listing)))

	set := SelectCandidates(listing)
	summary.LikedCount = set.LikedCount
	summary.CandidateCount = len(set.URIs)
	summary.SkippedCount = set.SkippedCount
	summary.Fingerprint = set.Fingerprint()
	e.sendProgress(progress, candidatesUpdate(set))

	if opts.DryRun {
		e.sendProgress(progress, doneUpdate(summary))
		return summary, nil
	}

	result, err := e.writer.ReplaceAll(ctx, ref.ID, set.URIs, token, WriteHooks{
		Cleared: func() { e.sendProgress(progress, clearedUpdate(ref)) },
		Batch: func(written, total int) {
			e.sendProgress(progress, writingUpdate(written, total))
		},
	})
	if err != nil {
		return summary, err
	}
	summary.WrittenCount = result.Written
	summary.RejectedCount = len(result.Rejected)
	e.sendProgress(progress, writtenUpdate(result))

	e.sendProgress(progress, doneUpdate(summary))
	return summary, nil
}

// resolveCollection looks up the prior playlist and creates a new one when it is gone or unknown.
func (e *MirrorEngine) resolveCollection(ctx context.Context, token *oauth2.Token, user *services.SpotifyUser, opts SyncOpts) (models.MirrorRef, error) {
	if opts.PriorCollectionID != "" {
		pl, err := e.api.Playlist(ctx, token, opts.PriorCollectionID)
		switch {
		case err == nil:
			return models.MirrorRef{ID: pl.ID, Name: pl.Name}, nil
		case errors.Is(err, shared.ErrNotFound):
			e.logger.Warn("stored playlist no longer exists, creating a new one", "collection", opts.PriorCollectionID)
		default:
			return models.MirrorRef{}, fmt.Errorf("failed to look up playlist %s: %w", opts.PriorCollectionID, err)
		}
	}

	title := CollectionTitle(user.DisplayName, opts.FallbackTitle)
	if opts.DryRun {
		return models.MirrorRef{Name: title}, nil
	}

	pl, err := e.api.CreatePlaylist(ctx, token, user.ID, title, opts.Description)
	if err != nil {
		return models.MirrorRef{}, fmt.Errorf("failed to create playlist: %w", err)
	}
	return models.MirrorRef{ID: pl.ID, Name: title, Created: true}, nil
}

// CollectionTitle returns "<name>'s Liked Songs", or fallback when the trimmed name is empty.
func CollectionTitle(displayName, fallback string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name + "'s Liked Songs"
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return DefaultFallbackTitle
}

func displayName(user *services.SpotifyUser) string {
	if name := strings.TrimSpace(user.DisplayName); name != "" {
		return name
	}
	return user.ID
}
