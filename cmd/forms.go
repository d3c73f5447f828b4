package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
	"github.com/desertthunder/marquee/internal/wizard"
)

// fileRefPrefix marks a value as a path to attach, as in curl -F field=@path.
const fileRefPrefix = "@"

// loadFormFile reads field values from a YAML document. JSON is accepted as a YAML subset.
func loadFormFile(path string) (models.FormState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: form file %s: %v", shared.ErrInvalidInput, path, err)
	}

	f := models.NewFormState()
	for k, v := range raw {
		resolved, err := resolveFileRefs(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		f[k] = resolved
	}
	return f, nil
}

// resolveFileRefs replaces "@path" strings, at any depth, with opened file handles.
func resolveFileRefs(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if path, ok := strings.CutPrefix(val, fileRefPrefix); ok && path != "" {
			return models.NewFileHandle(path)
		}
		return val, nil
	case map[string]any:
		for k, inner := range val {
			resolved, err := resolveFileRefs(inner)
			if err != nil {
				return nil, err
			}
			val[k] = resolved
		}
		return val, nil
	case []any:
		for i, inner := range val {
			resolved, err := resolveFileRefs(inner)
			if err != nil {
				return nil, err
			}
			val[i] = resolved
		}
		return val, nil
	}
	return v, nil
}

// formValues merges --form, then --set, then --file; later sources win.
func formValues(cmd *cli.Command) (models.FormState, error) {
	f := models.NewFormState()
	if path := cmd.String("form"); path != "" {
		loaded, err := loadFormFile(path)
		if err != nil {
			return nil, err
		}
		f = loaded
	}

	sets, err := parseOrdered("set", cmd.StringSlice("set"))
	if err != nil {
		return nil, err
	}
	for _, kv := range sets {
		v, err := resolveFileRefs(kv[1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", kv[0], err)
		}
		f.Set(kv[0], v)
	}

	files, err := parseOrdered("file", cmd.StringSlice("file"))
	if err != nil {
		return nil, err
	}
	for _, kv := range files {
		h, err := models.NewFileHandle(kv[1])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", kv[0], err)
		}
		f.Set(kv[0], h)
	}
	return f, nil
}

// parseOrdered is parseAssignments keeping flag order, so list indexes fill predictably.
func parseOrdered(flag string, values []string) ([][2]string, error) {
	out := make([][2]string, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --%s %q (want key=value)", shared.ErrInvalidFlag, flag, v)
		}
		out = append(out, [2]string{key, value})
	}
	return out, nil
}

func (r *Runner) formAction(kind string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.runForm(ctx, cmd, kind)
	}
}

// submitSummary is the --json output of a form command.
type submitSummary struct {
	Form       string `json:"form"`
	RemoteID   string `json:"id,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	Message    string `json:"message,omitempty"`
	BytesSent  int64  `json:"bytes_sent"`
	Submission int    `json:"submission,omitempty"`
}

// runForm walks a wizard non-interactively: every step is validated in order,
// advisories are printed, the payload previewed and, unless --dry-run, submitted once.
func (r *Runner) runForm(ctx context.Context, cmd *cli.Command, kind string) error {
	flow, err := wizard.Lookup(kind)
	if err != nil {
		return err
	}

	values, err := formValues(cmd)
	if err != nil {
		return err
	}

	var ledger tasks.Recorder
	if r.ledger != nil {
		ledger = r.ledger
	}

	engine := tasks.NewSubmitEngine(r.uploader, ledger, r.logger)
	ctrl := engine.Controller(flow)
	ctrl.Load(values)

	for !ctrl.IsTerminal() {
		step := ctrl.CurrentStep()
		if err := ctrl.GoNext(); err != nil {
			r.writePlain("✗ %s: step %q is incomplete\n", flow.Title, step.Title)
			formatter.RenderErrors(r.output, ctrl.Errors())
			return err
		}
	}

	if advisories := ctrl.Advisories(); !advisories.Empty() {
		for _, field := range advisories.Fields() {
			r.writePlain("  ⚠ %s: %s\n", field, advisories[field])
		}
	}

	if cmd.Bool("dry-run") {
		return r.previewForm(flow, ctrl.State())
	}

	if !cmd.Bool("json") {
		if err := formatter.RenderPayload(r.output, flow.Title, flow.Payload(ctrl.State())); err != nil {
			return err
		}
	}

	var result *wizard.Result
	if cmd.Bool("json") {
		result, err = ctrl.Submit(ctx)
	} else {
		updates := make(chan tasks.ProgressUpdate, 64)
		engine.WithProgress(updates)
		done := r.watch(updates)
		result, err = ctrl.Submit(ctx)
		close(updates)
		<-done
	}

	if err != nil {
		if errs := ctrl.Errors(); !errs.Empty() {
			formatter.RenderErrors(r.output, errs)
		}
		if errors.Is(err, shared.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrSubmissionFailed, err)
	}

	summary := submitSummary{Form: flow.Kind, RemoteID: result.RemoteID, Redirect: result.Redirect, Message: result.Message}
	if sub, out := engine.Last(); sub != nil {
		summary.Submission = sub.Sequence()
		if out != nil {
			summary.BytesSent = out.BytesSent
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}
	if result.Message != "" {
		r.writePlain("%s\n", result.Message)
	}
	if result.Redirect != "" {
		r.writePlain("→ %s\n", result.Redirect)
	}
	return nil
}

// previewForm runs every blocking rule and renders the payload without sending it.
func (r *Runner) previewForm(flow *wizard.Flow, state models.FormState) error {
	errs := models.ValidationErrors{}
	for _, step := range flow.Steps {
		errs.Merge(step.Check(state, wizard.ScopeStep, wizard.ScopeSubmit))
	}

	if err := formatter.RenderPayload(r.output, flow.Title+" (dry run)", flow.Payload(state)); err != nil {
		return err
	}

	endpoint, err := flow.ResolveEndpoint(flow.Payload(state))
	if err != nil {
		errs.Add("endpoint", err.Error())
	} else {
		r.writePlain("Would %s %s\n", flow.Method, endpoint)
	}

	if !errs.Empty() {
		r.writePlainln("✗ Not ready to submit:")
		formatter.RenderErrors(r.output, errs)
		return fmt.Errorf("%w: %s", shared.ErrValidation, errs.Error())
	}
	return r.writePlain("✓ Ready to submit\n")
}
