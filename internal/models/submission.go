package models

import (
	"fmt"
	"time"
)

// SubmissionStatus is the lifecycle state of a recorded submit attempt.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSucceeded SubmissionStatus = "succeeded"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission records one submit attempt in the local ledger.
type Submission struct {
	entity

	form         string
	endpoint     string
	status       SubmissionStatus
	remoteID     string
	errorMessage string
	fieldErrors  int
	bytesSent    int64
	startedAt    time.Time
	completedAt  *time.Time
}

// NewSubmission creates a pending submission for form posting to endpoint.
func NewSubmission(sequence int, form, endpoint string) *Submission {
	s := &Submission{
		entity:   newEntity(sequence),
		form:     form,
		endpoint: endpoint,
		status:   SubmissionPending,
	}
	s.startedAt = s.createdAt
	return s
}

func (s *Submission) Form() string { return s.form }
func (s *Submission) Endpoint() string { return s.endpoint }
func (s *Submission) Status() SubmissionStatus { return s.status }
func (s *Submission) RemoteID() string { return s.remoteID }
func (s *Submission) ErrorMessage() string { return s.errorMessage }
func (s *Submission) FieldErrors() int { return s.fieldErrors }
func (s *Submission) BytesSent() int64 { return s.bytesSent }
func (s *Submission) StartedAt() time.Time { return s.startedAt }
func (s *Submission) CompletedAt() *time.Time { return s.completedAt }

func (s *Submission) SetStatus(status SubmissionStatus) { s.status = status }
func (s *Submission) SetRemoteID(id string) { s.remoteID = id }
func (s *Submission) SetErrorMessage(msg string) { s.errorMessage = msg }
func (s *Submission) SetFieldErrors(n int) { s.fieldErrors = n }
func (s *Submission) SetBytesSent(n int64) { s.bytesSent = n }
func (s *Submission) SetStartedAt(t time.Time) { s.startedAt = t }
func (s *Submission) SetCompletedAt(t *time.Time) { s.completedAt = t }

// Succeed marks the submission succeeded with the id the server assigned.
func (s *Submission) Succeed(remoteID string, bytesSent int64) {
	now := time.Now()
	s.status = SubmissionSucceeded
	s.remoteID = remoteID
	s.bytesSent = bytesSent
	s.completedAt = &now
}

// Fail marks the submission failed. fieldErrors counts server-reported field messages.
func (s *Submission) Fail(err error, fieldErrors int, bytesSent int64) {
	now := time.Now()
	s.status = SubmissionFailed
	s.fieldErrors = fieldErrors
	s.bytesSent = bytesSent
	s.completedAt = &now
	if err != nil {
		s.errorMessage = err.Error()
	}
}

// Elapsed returns how long the attempt took, or zero while pending.
func (s *Submission) Elapsed() time.Duration {
	if s.completedAt == nil {
		return 0
	}
	return s.completedAt.Sub(s.startedAt)
}

// Validate checks required fields and status consistency.
func (s *Submission) Validate() error {
	if s.form == "" {
		return fmt.Errorf("submission form is required")
	}
	if s.endpoint == "" {
		return fmt.Errorf("submission endpoint is required")
	}
	switch s.status {
	case SubmissionPending, SubmissionSucceeded, SubmissionFailed:
	default:
		return fmt.Errorf("invalid submission status %q", s.status)
	}
	if s.status == SubmissionSucceeded && s.completedAt == nil {
		return fmt.Errorf("succeeded submission must have a completion time")
	}
	return nil
}

// CachedItem is a catalog [Item] persisted for offline listing.
type CachedItem struct {
	entity
	item Item
}

// NewCachedItem wraps item for persistence.
func NewCachedItem(sequence int, item Item) *CachedItem {
	return &CachedItem{entity: newEntity(sequence), item: item}
}

func (c *CachedItem) Item() Item { return c.item }
func (c *CachedItem) Kind() Kind { return c.item.Kind }
func (c *CachedItem) RemoteID() string { return string(c.item.ID) }
func (c *CachedItem) SetItem(item Item) { c.item = item }

// Validate checks that the cached item can be keyed by kind and remote id.
func (c *CachedItem) Validate() error {
	if c.item.Kind == "" {
		return fmt.Errorf("cached item kind is required")
	}
	if c.item.ID == "" {
		return fmt.Errorf("cached item remote id is required")
	}
	if c.item.Title == "" {
		return fmt.Errorf("cached item title is required")
	}
	return nil
}
