package models

import (
	"maps"
	"slices"
	"strings"
)

// ValidationErrors maps a field name to a human-readable message.
// Only the first message per field is kept.
type ValidationErrors map[string]string

// Add records msg for field unless the field already has a message.
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; ok {
		return
	}
	v[field] = msg
}

// Has reports whether field has a message.
func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// ClearField removes the message for field and any nested field under it
// ("credits" also clears "credits.director").
func (v ValidationErrors) ClearField(field string) {
	prefix := field + "."
	for k := range v {
		if k == field || strings.HasPrefix(k, prefix) {
			delete(v, k)
		}
	}
}

// Reset removes every message.
func (v ValidationErrors) Reset() {
	clear(v)
}

// Merge adds every entry of other, keeping existing messages.
func (v ValidationErrors) Merge(other map[string]string) {
	for field, msg := range other {
		v.Add(field, msg)
	}
}

// Fields returns the fields with messages in sorted order.
func (v ValidationErrors) Fields() []string {
	return slices.Sorted(maps.Keys(v))
}

// Empty reports whether there are no messages.
func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// Error joins every message as "field: message", sorted by field.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, field := range v.Fields() {
		parts = append(parts, field+": "+v[field])
	}
	return strings.Join(parts, "; ")
}

// StepValidity maps a step index to whether it last validated successfully.
type StepValidity map[int]bool

// Reachable reports whether every step before step has validated.
func (s StepValidity) Reachable(step int) bool {
	for i := 0; i < step; i++ {
		if !s[i] {
			return false
		}
	}
	return true
}

// FirstInvalid returns the first step below n that has not validated, or n.
func (s StepValidity) FirstInvalid(n int) int {
	for i := 0; i < n; i++ {
		if !s[i] {
			return i
		}
	}
	return n
}

// Reset forgets every result.
func (s StepValidity) Reset() {
	clear(s)
}
