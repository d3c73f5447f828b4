package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/wizard"
)

// submissionRecord is the JSON form of a ledger row.
type submissionRecord struct {
	Sequence    int        `json:"sequence"`
	Form        string     `json:"form"`
	Endpoint    string     `json:"endpoint"`
	Status      string     `json:"status"`
	RemoteID    string     `json:"remote_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	FieldErrors int        `json:"field_errors,omitempty"`
	BytesSent   int64      `json:"bytes_sent"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newSubmissionRecord(s *models.Submission) submissionRecord {
	return submissionRecord{
		Sequence:    s.Sequence(),
		Form:        s.Form(),
		Endpoint:    s.Endpoint(),
		Status:      string(s.Status()),
		RemoteID:    s.RemoteID(),
		Error:       s.ErrorMessage(),
		FieldErrors: s.FieldErrors(),
		BytesSent:   s.BytesSent(),
		StartedAt:   s.StartedAt(),
		CompletedAt: s.CompletedAt(),
	}
}

// HistoryList prints recorded submit attempts, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	if r.ledger == nil {
		return fmt.Errorf("%w: local database unavailable, run 'marquee setup database'", shared.ErrServiceUnavailable)
	}

	form := cmd.String("form")
	if form != "" {
		if _, err := wizard.Lookup(form); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}
	status := cmd.String("status")
	switch models.SubmissionStatus(status) {
	case "", models.SubmissionPending, models.SubmissionSucceeded, models.SubmissionFailed:
	default:
		return fmt.Errorf("%w: --status %q (want pending, succeeded or failed)", shared.ErrInvalidFlag, status)
	}

	subs, err := r.ledger.List(map[string]any{
		"form":   form,
		"status": status,
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]submissionRecord, 0, len(subs))
		for _, s := range subs {
			records = append(records, newSubmissionRecord(s))
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(subs) == 0 {
		return r.writePlain("No submissions recorded.\n")
	}
	return r.writePlain("%s\n", formatter.RenderSubmissions(subs))
}
