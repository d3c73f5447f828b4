// Package server runs the short-lived local HTTP listener used by `marquee auth login`.
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux] with method filtering and a [Middleware]
// stack. Middleware added last wraps first. [Logging] records each request on a
// charmbracelet logger.
//
// # OAuth callback
//
// [OAuthHandler] serves /callback for the authorization code flow. It checks the
// state parameter, exchanges the code (with the PKCE verifier) for a token and
// delivers exactly one [OAuthResult]. Later callbacks are rejected.
//
// [CallbackServer] binds the handler to the configured host and port, builds the
// authorization URL and waits for the result, then shuts the listener down.
package server
