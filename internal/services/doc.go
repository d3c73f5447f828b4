// Package services implements the HTTP clients for the marketplace backend.
//
// # API Service
//
// [APIService] wraps an [http.Client] whose transport is an oauth2 static token
// source, so every request carries "Authorization: Bearer <token>". It also
// stamps an X-Request-ID header and waits on a [rate.Limiter] when the config
// sets api.rate_limit.
//
// # Submission Client
//
// [SubmissionClient] implements [wizard.Submitter]. Multipart payloads are
// flattened (credits.director -> credits[director], tags.0 -> tags[0]),
// measured exactly, then streamed through an [io.Pipe]. Progress is read off
// the bytes the transport consumes. With upload.progress_mode = "simulated"
// progress instead climbs toward a ceiling and snaps to 100 on completion.
//
// Each submit makes exactly one request. Nothing is retried.
//
// # Catalog Service
//
// [CatalogService] fetches /api/{kind} pages and merges flags from
// /api/{kind}/status onto each item.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [*FieldErrors] : structured 4xx rejection with per-field messages (wraps [shared.ErrSubmissionFailed])
//   - [shared.ErrSubmissionFailed] : any other rejected submission
//   - [shared.ErrAPIRequest] : transport failure or unexpected status
//   - [shared.ErrNotAuthenticated] : 401/403
//   - [shared.ErrItemNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 502/503/504
package services
