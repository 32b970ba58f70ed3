// Package services implements the remote side of the liked-songs mirror: a resilient request engine and
// the Spotify Web API endpoints built on it.
//
// # Request Engine
//
// [Transport] performs one logical HTTP call. Each attempt runs under its own timeout and waits on a
// client-side [rate.Limiter]. Status 429, status >= 500, per-attempt timeouts and connection failures
// are retried up to four times. A Retry-After header is honored exactly; otherwise the delay doubles
// from the base delay.
//
// # Spotify Endpoints
//
// [SpotifyClient] holds configuration only. The access token is passed to every endpoint:
//   - [SpotifyClient.RefreshToken] : refresh_token grant against the accounts service
//   - [SpotifyClient.CurrentUser] : GET /me
//   - [SpotifyClient.Playlist] : GET /playlists/{id}
//   - [SpotifyClient.CreatePlaylist] : POST /users/{id}/playlists
//   - [SpotifyClient.SavedTracks] : GET /me/tracks
//   - [SpotifyClient.ReplacePlaylistItems] : PUT /playlists/{id}/tracks
//   - [SpotifyClient.AddPlaylistItems] : POST /playlists/{id}/tracks
//
// [FetchLiked] pages through the saved tracks and converts them to [models.LikedItem].
//
// # Error Handling
//
// Terminal failures are returned as [*APIError], which unwraps to sentinels from the shared package:
//   - [shared.ErrRateLimited] : 429
//   - [shared.ErrServiceUnavailable] : >= 500
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrTokenExpired] : 401
//   - [shared.ErrTimeout] : per-attempt deadline on the final attempt
//   - [shared.ErrAPIRequest] : any other failure
package services
