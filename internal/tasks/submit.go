package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/wizard"
)

// Recorder persists submit attempts (repositories.SubmissionRepository).
type Recorder interface {
	Create(s *models.Submission) error
	Update(s *models.Submission) error
}

// SubmitEngine sends wizard payloads through an uploader and records each attempt.
//
// It implements [wizard.Submitter], so it is handed to [wizard.NewController] directly.
type SubmitEngine struct {
	uploader services.Uploader
	ledger   Recorder
	logger   *log.Logger
	progress chan<- ProgressUpdate

	mu   sync.Mutex
	last *models.Submission
	out  *services.Outcome
}

// NewSubmitEngine creates an engine. ledger may be nil to skip recording.
func NewSubmitEngine(uploader services.Uploader, ledger Recorder, logger *log.Logger) *SubmitEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SubmitEngine{uploader: uploader, ledger: ledger, logger: logger}
}

// WithProgress routes progress updates to ch. Sends never block.
func (e *SubmitEngine) WithProgress(ch chan<- ProgressUpdate) *SubmitEngine {
	e.progress = ch
	return e
}

// Controller starts a wizard for flow that submits through e.
func (e *SubmitEngine) Controller(flow *wizard.Flow) *wizard.Controller {
	return wizard.NewController(flow, e, e.logger)
}

// Last returns the most recent ledger entry and transfer outcome, or nils before the first submit.
func (e *SubmitEngine) Last() (*models.Submission, *services.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.out
}

// Submit implements [wizard.Submitter]. It makes exactly one upload attempt.
func (e *SubmitEngine) Submit(ctx context.Context, flow *wizard.Flow, payload models.FormState) (*wizard.Result, error) {
	if e.uploader == nil {
		return nil, fmt.Errorf("%w: uploader not initialized", shared.ErrServiceUnavailable)
	}

	endpoint, err := flow.ResolveEndpoint(payload)
	if err != nil {
		return nil, err
	}

	sub := models.NewSubmission(0, flow.Kind, endpoint)
	e.record(sub, true)
	sendProgress(e.progress, recordUpdate(flow.Kind, endpoint))

	out, err := e.uploader.Send(ctx, flow, payload, func(p models.UploadProgress) {
		sendProgress(e.progress, uploadUpdate(p))
	})

	var sent int64
	if out != nil {
		sent = out.BytesSent
	}

	if err != nil {
		fieldErrors := 0
		var fe wizard.FieldErrorer
		if errors.As(err, &fe) {
			fieldErrors = len(fe.FieldMessages())
		}
		sub.Fail(err, fieldErrors, sent)
		e.record(sub, false)
		e.remember(sub, out)
		sendProgress(e.progress, completeUpdate("", err))
		return nil, err
	}

	res := out.Result
	if res == nil {
		res = &wizard.Result{}
	}
	sub.Succeed(res.RemoteID, sent)
	e.record(sub, false)
	e.remember(sub, out)
	sendProgress(e.progress, completeUpdate(fmt.Sprintf("%s %s", flow.Kind, res.RemoteID), nil))
	return res, nil
}

func (e *SubmitEngine) remember(sub *models.Submission, out *services.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last, e.out = sub, out
}

// record writes sub to the ledger. Ledger failures are logged, never returned.
func (e *SubmitEngine) record(sub *models.Submission, create bool) {
	if e.ledger == nil {
		return
	}
	var err error
	if create {
		err = e.ledger.Create(sub)
	} else if sub.ID() != "" {
		err = e.ledger.Update(sub)
	}
	if err != nil {
		e.logger.Warn("failed to record submission", "form", sub.Form(), "error", err)
	}
}
