// Package repositories implements SQLite persistence for the local submission ledger and catalog cache.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Both repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SubmissionRepository] : one row per submit attempt with status and transfer stats
//   - [CatalogItemRepository] : catalog listings keyed by kind + remote id
//   - [ItemCacheAdapter] : deduplicating writer used while browsing and exporting
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
