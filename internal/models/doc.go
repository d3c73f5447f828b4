// Package models defines domain entities and persistence interfaces for the marquee marketplace client.
//
// The package contains three categories of types:
//
// 1. Form state: the in-memory record a wizard edits
//   - [FormState] : field name to value, with nested groups and lists
//   - [FileHandle] : local file attached to a form field
//   - [ValidationErrors] : field name to human-readable message
//   - [StepValidity] : step index to validated flag
//   - [UploadProgress] : progress of an in-flight submission
//
// 2. Data Transfer Objects (DTOs): catalog data returned by the marketplace API
//   - [Item] : a sound, clip, artist, competition or event listing
//   - [Query] : search, filter, sort and pagination parameters
//   - [Page] : one page of items plus pagination metadata
//   - [StatusFlags] : liked/following/purchased flags for the current user
//
// 3. Persistent Entities: database-backed models with full lifecycle management
//   - [Submission] : one submit attempt recorded in the local ledger
//   - [CachedItem] : a catalog item cached for offline listing
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
