// Spotify Web API endpoints used by the mirror
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxPageSize is the largest page the saved-tracks endpoint accepts.
	MaxPageSize = 50
)

// Scopes required by the auth flow: read the library, manage public and private playlists.
var Scopes = []string{
	"user-read-private",
	"user-library-read",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
//
// IsPlayable is only present when the request is market-relinked, so nil means playable.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
	IsPlayable *bool           `json:"is_playable,omitempty"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       Owner  `json:"owner"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifySavedTrack represents a track saved in the user's library.
//
// Track is null for entries removed from the catalog.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// LikedItem converts the saved track into a [models.LikedItem].
func (s SpotifySavedTrack) LikedItem() models.LikedItem {
	var addedAt time.Time
	if s.AddedAt != "" {
		if t, err := time.Parse(time.RFC3339, s.AddedAt); err == nil {
			addedAt = t
		}
	}

	if s.Track == nil {
		return models.LikedItem{AddedAt: addedAt}
	}

	artists := make([]string, 0, len(s.Track.Artists))
	for _, a := range s.Track.Artists {
		artists = append(artists, a.Name)
	}

	return models.LikedItem{
		AddedAt: addedAt,
		Item: &models.Item{
			ID:         s.Track.ID,
			URI:        s.Track.URI,
			Name:       s.Track.Name,
			Artists:    artists,
			IsLocal:    s.Track.IsLocal,
			IsPlayable: s.Track.IsPlayable,
		},
	}
}

type createPlaylistBody struct {
	Name        string `json:"name"`
	Public      bool   `json:"public"`
	Description string `json:"description,omitempty"`
}

type urisBody struct {
	URIs []string `json:"uris"`
}

// SpotifyClientOpts configures a [SpotifyClient].
type SpotifyClientOpts struct {
	Transport    *Transport
	APIBaseURL   string // Defaults to https://api.spotify.com/v1
	TokenURL     string // Defaults to https://accounts.spotify.com/api/token
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// SpotifyClient exposes the Spotify endpoints the mirror needs.
//
// The client holds configuration only. Every endpoint takes the access token explicitly.
type SpotifyClient struct {
	transport    *Transport
	apiBaseURL   string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
}

// NewSpotifyClient creates a [SpotifyClient] with the given options.
func NewSpotifyClient(opts SpotifyClientOpts) (*SpotifyClient, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	c := &SpotifyClient{
		transport:    opts.Transport,
		apiBaseURL:   strings.TrimRight(opts.APIBaseURL, "/"),
		tokenURL:     opts.TokenURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		refreshToken: opts.RefreshToken,
	}

	if c.transport == nil {
		c.transport = NewTransport(TransportOpts{})
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = spotifyBaseURL
	}
	if c.tokenURL == "" {
		c.tokenURL = spotifyTokenURL
	}
	return c, nil
}

// NewAuthConfig returns the [oauth2.Config] used by the one-time authorization-code flow.
func NewAuthConfig(creds shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (c *SpotifyClient) endpoint(format string, args ...any) string {
	return c.apiBaseURL + fmt.Sprintf(format, args...)
}

func bearer(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	return token.AccessToken
}

// CurrentUser retrieves the profile of the user the token belongs to.
func (c *SpotifyClient) CurrentUser(ctx context.Context, token *oauth2.Token) (*SpotifyUser, error) {
	var user SpotifyUser
	req := Request{Method: http.MethodGet, URL: c.endpoint("/me"), Bearer: bearer(token)}
	if err := c.transport.Do(ctx, req, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile response has no id", shared.ErrAPIRequest)
	}
	return &user, nil
}

// Playlist retrieves a playlist's id and name. A missing playlist yields an error matching [shared.ErrNotFound].
func (c *SpotifyClient) Playlist(ctx context.Context, token *oauth2.Token, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	req := Request{
		Method: http.MethodGet,
		URL:    c.endpoint("/playlists/%s?fields=id,name", url.PathEscape(playlistID)),
		Bearer: bearer(token),
	}
	if err := c.transport.Do(ctx, req, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// CreatePlaylist creates a public playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, token *oauth2.Token, userID, name, description string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	req := Request{
		Method: http.MethodPost,
		URL:    c.endpoint("/users/%s/playlists", url.PathEscape(userID)),
		Bearer: bearer(token),
		Body:   createPlaylistBody{Name: name, Public: true, Description: description},
	}
	if err := c.transport.Do(ctx, req, &playlist); err != nil {
		return nil, err
	}
	if playlist.ID == "" {
		return nil, fmt.Errorf("%w: create playlist response has no id", shared.ErrAPIRequest)
	}
	return &playlist, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (c *SpotifyClient) SavedTracks(ctx context.Context, token *oauth2.Token, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	var response SpotifyPaginatedTracks
	req := Request{
		Method: http.MethodGet,
		URL:    c.endpoint("/me/tracks?limit=%d&offset=%d", limit, offset),
		Bearer: bearer(token),
	}
	if err := c.transport.Do(ctx, req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ReplacePlaylistItems replaces the playlist's contents with uris. An empty slice clears it.
func (c *SpotifyClient) ReplacePlaylistItems(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error {
	if uris == nil {
		uris = []string{}
	}
	req := Request{
		Method: http.MethodPut,
		URL:    c.endpoint("/playlists/%s/tracks", url.PathEscape(playlistID)),
		Bearer: bearer(token),
		Body:   urisBody{URIs: uris},
	}
	return c.transport.Do(ctx, req, nil)
}

// AddPlaylistItems appends uris to the end of the playlist.
func (c *SpotifyClient) AddPlaylistItems(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error {
	req := Request{
		Method: http.MethodPost,
		URL:    c.endpoint("/playlists/%s/tracks", url.PathEscape(playlistID)),
		Bearer: bearer(token),
		Body:   urisBody{URIs: uris},
	}
	return c.transport.Do(ctx, req, nil)
}
