package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/likesync/internal/shared"
	tu "github.com/desertthunder/likesync/internal/testing"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, handler http.Handler) *SpotifyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewSpotifyClient(SpotifyClientOpts{
		Transport:    newTestTransport(&tu.Sleeper{}, srv.Client()),
		APIBaseURL:   srv.URL + "/v1",
		TokenURL:     srv.URL + "/api/token",
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RefreshToken: "test_refresh_token",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestSpotifyClient(t *testing.T) {
	ctx := context.Background()
	token := &oauth2.Token{AccessToken: "access"}

	t.Run("NewSpotifyClient", func(t *testing.T) {
		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyClient(SpotifyClientOpts{ClientSecret: "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyClient(SpotifyClientOpts{ClientID: "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			c, err := NewSpotifyClient(SpotifyClientOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if c.apiBaseURL != spotifyBaseURL || c.tokenURL != spotifyTokenURL {
				t.Errorf("unexpected default URLs: %s %s", c.apiBaseURL, c.tokenURL)
			}
			if c.transport == nil {
				t.Error("expected default transport")
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer access" {
				t.Errorf("missing bearer header")
			}
			fmt.Fprint(w, `{"id":"user-1","display_name":"Ada"}`)
		}))

		user, err := c.CurrentUser(ctx, token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "user-1" || user.DisplayName != "Ada" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("CurrentUser without id", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))

		if _, err := c.CurrentUser(ctx, token); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Playlist", func(t *testing.T) {
		t.Run("found", func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/playlists/pl-1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("fields") != "id,name" {
					t.Errorf("expected fields=id,name, got %q", r.URL.RawQuery)
				}
				fmt.Fprint(w, `{"id":"pl-1","name":"Mirror"}`)
			}))

			pl, err := c.Playlist(ctx, token, "pl-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if pl.ID != "pl-1" || pl.Name != "Mirror" {
				t.Errorf("unexpected playlist %+v", pl)
			}
		})

		t.Run("missing", func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":{"status":404,"message":"Not found."}}`)
			}))

			_, err := c.Playlist(ctx, token, "gone")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/users/user-1/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var body createPlaylistBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			want := createPlaylistBody{Name: "Ada's Liked Songs", Public: true, Description: "mirror"}
			if diff := cmp.Diff(want, body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}

			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"new-pl","name":"Ada's Liked Songs"}`)
		}))

		pl, err := c.CreatePlaylist(ctx, token, "user-1", "Ada's Liked Songs", "mirror")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != "new-pl" {
			t.Errorf("expected new-pl, got %s", pl.ID)
		}
	})

	t.Run("SavedTracks", func(t *testing.T) {
		tt := []struct {
			name  string
			limit int
			want  string
		}{
			{name: "default limit", limit: 0, want: "20"},
			{name: "clamped limit", limit: 500, want: "50"},
			{name: "explicit limit", limit: 10, want: "10"},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if got := r.URL.Query().Get("limit"); got != tc.want {
						t.Errorf("expected limit %s, got %s", tc.want, got)
					}
					if got := r.URL.Query().Get("offset"); got != "5" {
						t.Errorf("expected offset 5, got %s", got)
					}
					fmt.Fprint(w, `{"items":[],"total":0,"limit":50,"offset":5}`)
				}))

				if _, err := c.SavedTracks(ctx, token, tc.limit, 5); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			})
		}
	})

	t.Run("Replace and Add", func(t *testing.T) {
		type call struct {
			Method string
			URIs   []string
		}
		var calls []call

		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/playlists/pl-1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body urisBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			calls = append(calls, call{Method: r.Method, URIs: body.URIs})
			fmt.Fprint(w, `{"snapshot_id":"abc"}`)
		}))

		if err := c.ReplacePlaylistItems(ctx, token, "pl-1", nil); err != nil {
			t.Fatalf("replace failed: %v", err)
		}
		if err := c.AddPlaylistItems(ctx, token, "pl-1", []string{"a", "b"}); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		want := []call{
			{Method: http.MethodPut, URIs: []string{}},
			{Method: http.MethodPost, URIs: []string{"a", "b"}},
		}
		if diff := cmp.Diff(want, calls); diff != "" {
			t.Errorf("calls mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("NewAuthConfig", func(t *testing.T) {
		cfg := NewAuthConfig(shared.SpotifyConfig{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
			RedirectURI:  "http://127.0.0.1:3000/callback",
		})

		authURL := cfg.AuthCodeURL("test_state", oauth2.AccessTypeOffline)
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "playlist-modify-public") {
			t.Error("auth URL should request playlist-modify-public")
		}
	})
}

func TestSpotifySavedTrackLikedItem(t *testing.T) {
	t.Run("maps track fields", func(t *testing.T) {
		playable := false
		saved := SpotifySavedTrack{
			AddedAt: "2026-10-01T10:00:00Z",
			Track: &SpotifyTrack{
				ID:         "t1",
				Name:       "Song",
				URI:        "spotify:track:t1",
				Artists:    []SpotifyArtist{{Name: "A"}, {Name: "B"}},
				IsLocal:    true,
				IsPlayable: &playable,
			},
		}

		item := saved.LikedItem()
		if item.AddedAt.IsZero() {
			t.Error("expected AddedAt to be parsed")
		}
		if item.Item == nil {
			t.Fatal("expected item")
		}
		if diff := cmp.Diff([]string{"A", "B"}, item.Item.Artists); diff != "" {
			t.Errorf("artists mismatch (-want +got):\n%s", diff)
		}
		if !item.Item.IsLocal || item.Item.Playable() {
			t.Errorf("expected local unplayable item, got %+v", item.Item)
		}
	})

	t.Run("null track", func(t *testing.T) {
		item := SpotifySavedTrack{AddedAt: "bad date"}.LikedItem()
		if item.Item != nil {
			t.Error("expected nil item")
		}
		if !item.AddedAt.IsZero() {
			t.Error("expected zero AddedAt for unparseable date")
		}
	})

	t.Run("decodes null track from JSON", func(t *testing.T) {
		var page SpotifyPaginatedTracks
		data := `{"items":[{"added_at":"2026-10-01T10:00:00Z","track":null}],"total":1}`
		if err := json.Unmarshal([]byte(data), &page); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if page.Items[0].Track != nil {
			t.Error("expected nil track")
		}
	})
}
