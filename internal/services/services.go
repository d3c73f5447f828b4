// package services defines the clients used to talk to the marketplace REST API
package services

import (
	"context"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/wizard"
)

// Catalog is the read side of the marketplace: paginated listings with status flags merged in.
type Catalog interface {
	// Browse fetches one page for q with liked/following/purchased flags applied.
	Browse(ctx context.Context, q models.Query) (*models.Page, error)
}

// Uploader sends a wizard payload while reporting progress.
type Uploader interface {
	wizard.Submitter

	// Send submits payload once and returns transfer statistics with the result.
	Send(ctx context.Context, flow *wizard.Flow, payload models.FormState, fn ProgressFunc) (*Outcome, error)
}

var (
	_ Catalog          = (*CatalogService)(nil)
	_ Uploader         = (*SubmissionClient)(nil)
	_ wizard.Submitter = (*SubmissionClient)(nil)
)
