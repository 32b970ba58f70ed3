package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"testing"

	"github.com/desertthunder/likesync/internal/services"
	"github.com/desertthunder/likesync/internal/shared"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

// fakeRemote is an in-memory Spotify account.
type fakeRemote struct {
	userID      string
	displayName string
	liked       []*services.SpotifyTrack
	playlists   map[string][]string
	names       map[string]string

	created     int
	nextID      int
	refreshErr  error
	lookupErr   error
	createErr   error
	savedCalls  int
	writeCalls  int
	lastCreated string
}

func newFakeRemote(uris ...string) *fakeRemote {
	r := &fakeRemote{
		userID:      "user-1",
		displayName: "Ada",
		playlists:   map[string][]string{},
		names:       map[string]string{},
	}
	for _, uri := range uris {
		r.liked = append(r.liked, &services.SpotifyTrack{ID: uri, URI: uri})
	}
	return r
}

func (r *fakeRemote) RefreshToken(context.Context) (*oauth2.Token, error) {
	if r.refreshErr != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, r.refreshErr)
	}
	return &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (r *fakeRemote) CurrentUser(context.Context, *oauth2.Token) (*services.SpotifyUser, error) {
	return &services.SpotifyUser{ID: r.userID, DisplayName: r.displayName}, nil
}

func (r *fakeRemote) Playlist(_ context.Context, _ *oauth2.Token, id string) (*services.SpotifyPlaylist, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	if _, ok := r.playlists[id]; !ok {
		return nil, services.NewAPIError(http.StatusNotFound, "Not found.")
	}
	return &services.SpotifyPlaylist{ID: id, Name: r.names[id]}, nil
}

func (r *fakeRemote) CreatePlaylist(_ context.Context, _ *oauth2.Token, userID, name, _ string) (*services.SpotifyPlaylist, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if userID != r.userID {
		return nil, services.NewAPIError(http.StatusForbidden, "wrong owner")
	}

	r.created++
	r.nextID++
	id := fmt.Sprintf("pl-%d", r.nextID)
	r.playlists[id] = []string{}
	r.names[id] = name
	r.lastCreated = name
	return &services.SpotifyPlaylist{ID: id, Name: name}, nil
}

func (r *fakeRemote) SavedTracks(_ context.Context, _ *oauth2.Token, limit, offset int) (*services.SpotifyPaginatedTracks, error) {
	r.savedCalls++
	page := &services.SpotifyPaginatedTracks{Total: len(r.liked), Limit: limit, Offset: offset}
	for i := offset; i < len(r.liked) && i < offset+limit; i++ {
		page.Items = append(page.Items, services.SpotifySavedTrack{Track: r.liked[i]})
	}
	return page, nil
}

func (r *fakeRemote) ReplacePlaylistItems(_ context.Context, _ *oauth2.Token, id string, uris []string) error {
	r.writeCalls++
	if _, ok := r.playlists[id]; !ok {
		return services.NewAPIError(http.StatusNotFound, "Not found.")
	}
	r.playlists[id] = slices.Clone(uris)
	return nil
}

func (r *fakeRemote) AddPlaylistItems(_ context.Context, _ *oauth2.Token, id string, uris []string) error {
	r.writeCalls++
	if _, ok := r.playlists[id]; !ok {
		return services.NewAPIError(http.StatusNotFound, "Not found.")
	}
	r.playlists[id] = append(r.playlists[id], uris...)
	return nil
}

func TestMirrorEngine_Run(t *testing.T) {
	ctx := context.Background()
	opts := SyncOpts{FallbackTitle: "Fallback Mirror", Description: "mirror"}

	t.Run("first run creates playlist", func(t *testing.T) {
		remote := newFakeRemote("c", "b", "a", "b")
		engine := NewMirrorEngine(remote, EngineOpts{})

		summary, err := engine.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !summary.Created || summary.CollectionID != "pl-1" {
			t.Errorf("expected created playlist pl-1, got %+v", summary)
		}
		if remote.lastCreated != "Ada's Liked Songs" {
			t.Errorf("unexpected playlist title %q", remote.lastCreated)
		}
		if summary.LikedCount != 4 || summary.CandidateCount != 3 || summary.WrittenCount != 3 || summary.SkippedCount != 0 {
			t.Errorf("unexpected counts: %+v", summary)
		}
		if summary.Fingerprint == "" {
			t.Error("expected fingerprint")
		}
		if diff := cmp.Diff([]string{"c", "b", "a"}, remote.playlists["pl-1"]); diff != "" {
			t.Errorf("playlist mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("running twice is idempotent", func(t *testing.T) {
		uris := make([]string, 230)
		for i := range uris {
			uris[i] = fmt.Sprintf("spotify:track:%03d", i)
		}
		remote := newFakeRemote(uris...)
		engine := NewMirrorEngine(remote, EngineOpts{})

		first, err := engine.Run(ctx, opts, nil)
		if err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		after := slices.Clone(remote.playlists[first.CollectionID])

		second, err := engine.Run(ctx, SyncOpts{PriorCollectionID: first.CollectionID}, nil)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if second.Created {
			t.Error("expected existing playlist to be reused")
		}
		if second.CollectionID != first.CollectionID {
			t.Errorf("expected same playlist, got %s and %s", first.CollectionID, second.CollectionID)
		}
		if remote.created != 1 {
			t.Errorf("expected one playlist created, got %d", remote.created)
		}
		if diff := cmp.Diff(after, remote.playlists[second.CollectionID]); diff != "" {
			t.Errorf("ordering changed between runs (-first +second):\n%s", diff)
		}
		if diff := cmp.Diff(uris, after); diff != "" {
			t.Errorf("playlist mismatch (-want +got):\n%s", diff)
		}
		if first.Fingerprint != second.Fingerprint {
			t.Error("expected identical fingerprints")
		}
	})

	t.Run("deleted playlist is recreated", func(t *testing.T) {
		remote := newFakeRemote("a")
		engine := NewMirrorEngine(remote, EngineOpts{})

		summary, err := engine.Run(ctx, SyncOpts{PriorCollectionID: "gone"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !summary.Created || summary.CollectionID == "gone" {
			t.Errorf("expected a new playlist, got %+v", summary)
		}
	})

	t.Run("playlist lookup failure aborts", func(t *testing.T) {
		remote := newFakeRemote("a")
		remote.lookupErr = services.NewAPIError(http.StatusBadGateway, "bad gateway")
		engine := NewMirrorEngine(remote, EngineOpts{})

		_, err := engine.Run(ctx, SyncOpts{PriorCollectionID: "pl-9"}, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if remote.created != 0 || remote.savedCalls != 0 {
			t.Error("expected pass to stop before creating or fetching")
		}
	})

	t.Run("blank display name uses fallback title", func(t *testing.T) {
		remote := newFakeRemote("a")
		remote.displayName = "   "
		engine := NewMirrorEngine(remote, EngineOpts{})

		if _, err := engine.Run(ctx, opts, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if remote.lastCreated != "Fallback Mirror" {
			t.Errorf("expected fallback title, got %q", remote.lastCreated)
		}
	})

	t.Run("refresh failure aborts before any other call", func(t *testing.T) {
		remote := newFakeRemote("a")
		remote.refreshErr = errors.New("invalid_grant")
		engine := NewMirrorEngine(remote, EngineOpts{})

		_, err := engine.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if remote.savedCalls != 0 || remote.created != 0 {
			t.Error("expected no further calls")
		}
	})

	t.Run("create failure aborts", func(t *testing.T) {
		remote := newFakeRemote("a")
		remote.createErr = services.NewAPIError(http.StatusForbidden, "Insufficient client scope")
		engine := NewMirrorEngine(remote, EngineOpts{})

		_, err := engine.Run(ctx, opts, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		remote := newFakeRemote("a", "b")
		engine := NewMirrorEngine(remote, EngineOpts{})

		summary, err := engine.Run(ctx, SyncOpts{DryRun: true}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if remote.created != 0 || remote.writeCalls != 0 {
			t.Errorf("expected no writes, got created=%d writes=%d", remote.created, remote.writeCalls)
		}
		if summary.WrittenCount != 0 || summary.CandidateCount != 2 || !summary.DryRun {
			t.Errorf("unexpected summary %+v", summary)
		}
		if summary.CollectionName != "Ada's Liked Songs" {
			t.Errorf("expected planned title, got %q", summary.CollectionName)
		}
	})

	t.Run("progress follows state order", func(t *testing.T) {
		remote := newFakeRemote("a", "b")
		engine := NewMirrorEngine(remote, EngineOpts{})
		progress := make(chan ProgressUpdate, 32)

		if _, err := engine.Run(ctx, opts, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		for update := range progress {
			if update.Phase != WritingItems {
				phases = append(phases, update.Phase)
			}
		}
		if diff := cmp.Diff(Phases, phases); diff != "" {
			t.Errorf("phases mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("full progress channel does not block", func(t *testing.T) {
		remote := newFakeRemote("a")
		engine := NewMirrorEngine(remote, EngineOpts{})
		progress := make(chan ProgressUpdate)

		if _, err := engine.Run(ctx, opts, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("token callback receives refreshed token", func(t *testing.T) {
		remote := newFakeRemote("a")
		engine := NewMirrorEngine(remote, EngineOpts{})

		var got *oauth2.Token
		engine.SetTokenRefreshCallback(func(tok *oauth2.Token) { got = tok })

		if _, err := engine.Run(ctx, opts, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == nil || got.AccessToken != "access" {
			t.Errorf("expected callback with token, got %+v", got)
		}
	})

	t.Run("nil api", func(t *testing.T) {
		engine := &MirrorEngine{}
		if _, err := engine.Run(ctx, opts, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestCollectionTitle(t *testing.T) {
	tt := []struct {
		name, display, fallback, want string
	}{
		{name: "display name", display: "Ada", fallback: "F", want: "Ada's Liked Songs"},
		{name: "trimmed", display: "  Ada  ", fallback: "F", want: "Ada's Liked Songs"},
		{name: "blank uses fallback", display: " ", fallback: "F", want: "F"},
		{name: "no fallback", display: "", fallback: "", want: DefaultFallbackTitle},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := CollectionTitle(tc.display, tc.fallback); got != tc.want {
				t.Errorf("CollectionTitle(%q, %q) = %q, want %q", tc.display, tc.fallback, got, tc.want)
			}
		})
	}
}

func TestPhaseString(t *testing.T) {
	for _, p := range append(slices.Clone(Phases), WritingItems) {
		if p.String() == "" {
			t.Errorf("phase %d has no name", p)
		}
	}
	if Phase(99).String() != "" {
		t.Error("expected empty name for unknown phase")
	}
}
