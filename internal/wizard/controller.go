package wizard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// Controller walks a user through a [Flow], gating forward navigation on step validity.
//
// All methods are safe for concurrent use. Submit releases the lock while the
// request is in flight; a second Submit in that window fails with
// [shared.ErrSubmissionInFlight].
type Controller struct {
	mu sync.Mutex

	flow      *Flow
	submitter Submitter
	logger    *log.Logger

	state      models.FormState
	errs       models.ValidationErrors
	validity   models.StepValidity
	current    int
	reached    int
	submitting bool
}

// NewController creates a controller at step 0 with an empty form.
func NewController(flow *Flow, submitter Submitter, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Controller{
		flow:      flow,
		submitter: submitter,
		logger:    logger.With("form", flow.Kind),
		state:     models.NewFormState(),
		errs:      models.ValidationErrors{},
		validity:  models.StepValidity{},
	}
}

func (c *Controller) Flow() *Flow { return c.flow }

// Step returns the current step index.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentStep returns the current step definition.
func (c *Controller) CurrentStep() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Steps[c.current]
}

// IsTerminal reports whether the current step is the last one.
func (c *Controller) IsTerminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == c.flow.Terminal()
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// State returns a copy of the form.
func (c *Controller) State() models.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Errors returns a copy of the current validation errors.
func (c *Controller) Errors() models.ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.errs)
}

// Validity returns a copy of the step validity map.
func (c *Controller) Validity() models.StepValidity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.validity)
}

// Set stores a field value (dotted paths allowed), clears that field's error and
// recomputes validity.
func (c *Controller) Set(field string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Set(field, v)
	c.errs.ClearField(field)
	if root, _, nested := strings.Cut(field, "."); nested {
		delete(c.errs, root)
	}
	c.recompute()
}

// Load merges every field of f into the form, as if each were Set.
func (c *Controller) Load(f models.FormState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range f.Clone() {
		c.state[k] = v
		c.errs.ClearField(k)
	}
	c.recompute()
}

// recompute re-checks every step reached so far without touching errors.
// Caller must hold mu.
func (c *Controller) recompute() {
	for i := 0; i <= c.reached && i < len(c.flow.Steps); i++ {
		c.validity[i] = c.flow.Steps[i].Check(c.state, ScopeStep).Empty()
	}
}

// GoNext validates the current step and advances when it passes.
//
// On failure the step's errors are recorded and the error wraps [shared.ErrValidation].
func (c *Controller) GoNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current >= c.flow.Terminal() {
		return shared.ErrTerminalStep
	}

	step := c.flow.Steps[c.current]
	errs := step.Check(c.state, ScopeStep)
	if !errs.Empty() {
		c.validity[c.current] = false
		c.errs = errs
		c.logger.Debug("step invalid", "step", step.Name, "fields", errs.Fields())
		return fmt.Errorf("%w: %s", shared.ErrValidation, errs.Error())
	}

	c.validity[c.current] = true
	c.current++
	c.reached = max(c.reached, c.current)
	c.errs = models.ValidationErrors{}
	c.recompute()

	c.logger.Debug("advanced", "step", c.flow.Steps[c.current].Name, "index", c.current)
	return nil
}

// GoBack moves to the previous step and clears errors. It never validates and is a no-op at step 0.
func (c *Controller) GoBack() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current > 0 {
		c.current--
	}
	c.errs = models.ValidationErrors{}
}

// GoTo jumps to step. Backward jumps are always allowed; forward jumps need
// every earlier step validated.
func (c *Controller) GoTo(step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if step < 0 || step > c.flow.Terminal() {
		return fmt.Errorf("%w: %d (form has %d steps)", shared.ErrStepOutOfRange, step, len(c.flow.Steps))
	}
	if step > c.current && !c.validity.Reachable(step) {
		first := c.validity.FirstInvalid(step)
		return fmt.Errorf("%w: finish %q first", shared.ErrStepLocked, c.flow.Steps[first].Name)
	}

	c.current = step
	c.reached = max(c.reached, step)
	c.errs = models.ValidationErrors{}
	c.recompute()
	return nil
}

// Advisories runs the non-blocking rules of every step.
func (c *Controller) Advisories() models.ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := models.ValidationErrors{}
	for _, s := range c.flow.Steps {
		out.Merge(s.Check(c.state, ScopeAdvisory))
	}
	return out
}

// Tally reports the running sum of key across list against target.
func (c *Controller) Tally(list, key string, target float64) Tally {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Tally{Sum: SumOf(c.state, list, key), Target: target}
}

// validateAll runs every blocking rule across all steps and records per-step validity.
// Caller must hold mu.
func (c *Controller) validateAll() models.ValidationErrors {
	all := models.ValidationErrors{}
	for i, s := range c.flow.Steps {
		errs := s.Check(c.state, ScopeStep, ScopeSubmit)
		c.validity[i] = s.Check(c.state, ScopeStep).Empty()
		all.Merge(errs)
	}
	return all
}

// Submit validates the whole form and hands the payload to the submitter.
//
// It is only allowed from the terminal step and never while another submission
// is pending. Validation failures issue no request. Server field errors are
// merged into Errors. On success the form is cleared and the result returned.
func (c *Controller) Submit(ctx context.Context) (*Result, error) {
	c.mu.Lock()

	if c.submitting {
		c.mu.Unlock()
		return nil, shared.ErrSubmissionInFlight
	}
	if c.current != c.flow.Terminal() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: on step %d of %d", shared.ErrNotTerminal, c.current+1, len(c.flow.Steps))
	}

	if errs := c.validateAll(); !errs.Empty() {
		c.errs = errs
		c.mu.Unlock()
		c.logger.Debug("submit blocked", "fields", errs.Fields())
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, errs.Error())
	}

	if c.submitter == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no submitter configured", shared.ErrNotImplemented)
	}

	c.submitting = true
	payload := c.flow.Payload(c.state)
	c.mu.Unlock()

	c.logger.Info("submitting", "fields", len(payload))
	result, err := c.submitter.Submit(ctx, c.flow, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if err != nil {
		var fe FieldErrorer
		if errors.As(err, &fe) {
			c.errs = models.ValidationErrors{}
			c.errs.Merge(fe.FieldMessages())
		}
		c.logger.Warn("submission failed", "error", err)
		return nil, err
	}

	c.state.Clear()
	c.errs = models.ValidationErrors{}
	c.validity.Reset()
	c.current = 0
	c.reached = 0

	if result == nil {
		result = &Result{}
	}
	c.logger.Info("submitted", "id", result.RemoteID)
	return result, nil
}
