// Package tasks runs the long-lived operations behind the CLI and TUI with real-time progress reporting.
//
// # Core Operations
//
//  1. [SubmitEngine] : submits a wizard through a [services.Uploader]
//     - Records every attempt in the local ledger (pending, then succeeded or failed)
//     - Translates transport progress into [ProgressUpdate] values
//     - Counts server field errors so the ledger shows why a submit was rejected
//
//  2. [Browser] : catalog list state (idle, loading, loaded, empty, error)
//     - Load, LoadMore (append) and GoToPage (replace)
//     - Stale responses from a superseded query are dropped
//
//  3. [ExportCatalog] : fetches every page of a query with a worker pool
//     - Requests are paced by a token bucket limiter
//     - Pages are reassembled in order and written through the formatter
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// Updates use select with default so a slow reader never stalls an upload.
//
// # Item Caching
//
// The optional [ItemCacher] interface persists browsed items (repositories.ItemCacheAdapter).
// Cache failures are logged and never fail a browse.
package tasks
