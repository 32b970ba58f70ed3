// Package server provides the local HTTP callback used by "likesync auth".
//
// # Router Infrastructure
//
// [BasicRouter] implements [Router] on [http.ServeMux] method patterns with a [Middleware] stack.
// [RequestLogger] and [Recoverer] are the middleware the auth command installs.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the authorization-code flow: it validates the state parameter,
// exchanges the code for tokens and publishes the result once. Later callbacks are rejected.
//
// # Lifecycle
//
// [Listen] binds the configured address and [Server.Serve] runs until its context is canceled,
// which the auth command does as soon as [OAuthHandler.Wait] returns.
package server
