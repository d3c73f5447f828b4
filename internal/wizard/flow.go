package wizard

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// Encoding selects how a flow's payload goes over the wire.
type Encoding int

const (
	EncodingMultipart Encoding = iota
	EncodingJSON
)

func (e Encoding) String() string {
	if e == EncodingJSON {
		return "json"
	}
	return "multipart"
}

// Step is one page of a wizard.
type Step struct {
	Name   string
	Title  string
	Fields []string
	Rules  []Rule
}

// Check runs the step's rules whose scope is in scopes and returns the failures.
func (s Step) Check(f models.FormState, scopes ...Scope) models.ValidationErrors {
	errs := models.ValidationErrors{}
	for _, r := range s.Rules {
		for _, scope := range scopes {
			if r.Scope == scope {
				r.Check(f, errs)
				break
			}
		}
	}
	return errs
}

// Flow is an ordered list of steps plus where and how the result is submitted.
type Flow struct {
	Kind     string
	Title    string
	Method   string
	Endpoint string
	Encoding Encoding
	Steps    []Step

	// Flags are boolean fields. The payload always carries them as bools, false when unset,
	// so "true", "yes" or "on" typed on a command line still encode as 1.
	Flags []string
	// Omit lists fields dropped from the payload for the given state, e.g. price when free.
	Omit func(f models.FormState) []string
	// Prepare fills derived fields on the payload copy before encoding.
	Prepare func(f models.FormState)
}

// Terminal returns the index of the last step.
func (fl *Flow) Terminal() int {
	return len(fl.Steps) - 1
}

// Payload returns a copy of f with derived fields applied and omitted fields removed.
func (fl *Flow) Payload(f models.FormState) models.FormState {
	payload := f.Clone()
	for _, field := range fl.Flags {
		payload.Set(field, payload.Bool(field))
	}
	if fl.Prepare != nil {
		fl.Prepare(payload)
	}
	if fl.Omit != nil {
		for _, field := range fl.Omit(payload) {
			payload.Delete(field)
		}
	}
	return payload
}

var placeholderRe = regexp.MustCompile(`\{([a-z0-9_.]+)\}`)

// PathFields returns the fields substituted into the endpoint, e.g. event_id.
func (fl *Flow) PathFields() []string {
	var fields []string
	for _, m := range placeholderRe.FindAllStringSubmatch(fl.Endpoint, -1) {
		fields = append(fields, m[1])
	}
	return fields
}

// ResolveEndpoint substitutes {field} placeholders in the endpoint with escaped form values.
func (fl *Flow) ResolveEndpoint(f models.FormState) (string, error) {
	var missing string
	resolved := placeholderRe.ReplaceAllStringFunc(fl.Endpoint, func(m string) string {
		field := placeholderRe.FindStringSubmatch(m)[1]
		v := f.String(field)
		if v == "" && missing == "" {
			missing = field
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w: endpoint %s needs %s", shared.ErrMissingArgument, fl.Endpoint, missing)
	}
	return resolved, nil
}

// Request resolves the endpoint from payload and returns the body without the path fields.
func (fl *Flow) Request(payload models.FormState) (string, models.FormState, error) {
	endpoint, err := fl.ResolveEndpoint(payload)
	if err != nil {
		return "", nil, err
	}
	body := payload.Clone()
	for _, field := range fl.PathFields() {
		body.Delete(field)
	}
	return endpoint, body, nil
}

// Result is what a successful submission resolves to.
type Result struct {
	RemoteID string `json:"id"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Submitter sends a flow's payload. Implementations make exactly one request and never retry.
type Submitter interface {
	Submit(ctx context.Context, flow *Flow, payload models.FormState) (*Result, error)
}

// SubmitterFunc adapts a function to [Submitter].
type SubmitterFunc func(ctx context.Context, flow *Flow, payload models.FormState) (*Result, error)

func (fn SubmitterFunc) Submit(ctx context.Context, flow *Flow, payload models.FormState) (*Result, error) {
	return fn(ctx, flow, payload)
}

// FieldErrorer is implemented by server errors that carry per-field messages.
type FieldErrorer interface {
	error
	FieldMessages() map[string]string
}
