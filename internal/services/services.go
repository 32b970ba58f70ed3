// package services talks to the Spotify Web API through a retrying [Transport]
package services

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/shared"
)

var _ SavedTracksPager = (*SpotifyClient)(nil)

// NewSpotifyClientFromConfig wires a [SpotifyClient] and its [Transport] from the loaded configuration.
func NewSpotifyClientFromConfig(cfg *shared.Config, client *http.Client, logger *log.Logger) (*SpotifyClient, error) {
	creds := cfg.Credentials.Spotify
	return NewSpotifyClient(SpotifyClientOpts{
		Transport:    NewTransportFromConfig(cfg.HTTP, client, logger),
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RefreshToken: creds.RefreshToken,
	})
}
