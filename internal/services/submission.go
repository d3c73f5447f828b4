package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/wizard"
)

// SubmissionClient sends a wizard's payload as a single request.
//
// Multipart bodies are measured up front so progress is exact; nothing is retried.
// It implements [wizard.Submitter].
type SubmissionClient struct {
	api     *APIService
	mode    ProgressMode
	ceiling float64
	tick    time.Duration
	logger  *log.Logger

	progress ProgressFunc
}

// NewSubmissionClient creates a client using the upload settings from config.
func NewSubmissionClient(api *APIService, cfg shared.UploadConfig, logger *log.Logger) *SubmissionClient {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SubmissionClient{
		api:     api,
		mode:    ParseProgressMode(cfg.ProgressMode),
		ceiling: cfg.SimulatedCeiling,
		tick:    time.Duration(cfg.TickMS) * time.Millisecond,
		logger:  logger,
	}
}

// OnProgress sets the default progress callback used by Submit.
func (c *SubmissionClient) OnProgress(fn ProgressFunc) *SubmissionClient {
	c.progress = fn
	return c
}

// Submit implements [wizard.Submitter].
func (c *SubmissionClient) Submit(ctx context.Context, flow *wizard.Flow, payload models.FormState) (*wizard.Result, error) {
	return c.SubmitWithProgress(ctx, flow, payload, c.progress)
}

// Outcome carries the transfer statistics of the last submission alongside the result.
type Outcome struct {
	Result     *wizard.Result
	BytesSent  int64
	TotalBytes int64
	Status     int
}

// SubmitWithProgress sends payload and reports progress to fn.
func (c *SubmissionClient) SubmitWithProgress(ctx context.Context, flow *wizard.Flow, payload models.FormState, fn ProgressFunc) (*wizard.Result, error) {
	out, err := c.Send(ctx, flow, payload, fn)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Send is SubmitWithProgress returning transfer statistics. The Outcome is
// non-nil whenever the request was attempted, including on failure.
func (c *SubmissionClient) Send(ctx context.Context, flow *wizard.Flow, payload models.FormState, fn ProgressFunc) (*Outcome, error) {
	endpoint, payload, err := flow.Request(payload)
	if err != nil {
		return nil, err
	}

	body, length, contentType, err := c.body(ctx, flow, payload)
	if err != nil {
		return nil, err
	}

	t := newTracker(c.mode, c.ceiling, c.tick, fn)
	reader := t.wrap(body, length)

	req, err := http.NewRequestWithContext(ctx, flow.Method, c.api.URL(endpoint, nil), reader)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)

	logger := c.logger.With("form", flow.Kind, "endpoint", endpoint)
	logger.Info("sending", "bytes", shared.FormatBytes(length), "encoding", flow.Encoding)

	out := &Outcome{TotalBytes: length}
	t.start(reader.Sent)
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		t.halt()
		out.BytesSent = reader.Sent()
		logger.Error("request failed", "error", err)
		return out, err
	}
	defer resp.Body.Close()

	out.BytesSent = reader.Sent()
	out.Status = resp.StatusCode
	t.finish(out.BytesSent, length)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := ParseErrorResponse(resp.StatusCode, data)
		logger.Warn("rejected", "status", resp.StatusCode, "error", err)
		return out, err
	}

	out.Result = decodeResult(data)
	logger.Info("accepted", "status", resp.StatusCode, "id", out.Result.RemoteID)
	return out, nil
}

func (c *SubmissionClient) body(ctx context.Context, flow *wizard.Flow, payload models.FormState) (io.ReadCloser, int64, string, error) {
	switch flow.Encoding {
	case wizard.EncodingJSON:
		data, err := EncodeJSON(payload)
		if err != nil {
			return nil, 0, "", fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		return io.NopCloser(bytes.NewReader(data)), int64(len(data)), "application/json", nil
	default:
		mb, err := NewMultipartBody(payload)
		if err != nil {
			return nil, 0, "", err
		}
		return mb.Reader(ctx), mb.ContentLength(), mb.ContentType(), nil
	}
}

// decodeResult reads {"id", "redirect", "message"} either at the top level or under "data".
func decodeResult(data []byte) *wizard.Result {
	var body struct {
		ID       models.ID `json:"id"`
		Redirect string    `json:"redirect"`
		Message  string    `json:"message"`
		Data     *struct {
			ID models.ID `json:"id"`
		} `json:"data"`
	}

	res := &wizard.Result{}
	if err := json.Unmarshal(data, &body); err != nil {
		return res
	}

	res.RemoteID = string(body.ID)
	if res.RemoteID == "" && body.Data != nil {
		res.RemoteID = string(body.Data.ID)
	}
	res.Redirect = body.Redirect
	res.Message = body.Message
	return res
}
