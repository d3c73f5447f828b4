package formatter

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// PreviewLine is one dotted field path and its display value.
type PreviewLine struct {
	Field string
	Value string
}

// PreviewPayload lists payload values by dotted path in key order. Empty values are skipped.
func PreviewPayload(f models.FormState) []PreviewLine {
	var lines []PreviewLine
	for _, key := range f.Keys() {
		lines = previewValue(lines, key, f[key])
	}
	return lines
}

func previewValue(lines []PreviewLine, path string, v any) []PreviewLine {
	switch val := v.(type) {
	case nil:
		return lines
	case *models.FileHandle:
		if val == nil {
			return lines
		}
		return append(lines, PreviewLine{path, fmt.Sprintf("%s (%s, %s)", val.Name, val.MIMEType, shared.FormatBytes(val.Size))})
	case string:
		if strings.TrimSpace(val) == "" {
			return lines
		}
		return append(lines, PreviewLine{path, val})
	case bool:
		if val {
			return append(lines, PreviewLine{path, "yes"})
		}
		return append(lines, PreviewLine{path, "no"})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			lines = previewValue(lines, path+"."+k, val[k])
		}
		return lines
	case []any:
		for i, item := range val {
			lines = previewValue(lines, path+"."+strconv.Itoa(i), item)
		}
		return lines
	case []string:
		if len(val) > 0 {
			lines = append(lines, PreviewLine{path, strings.Join(val, ", ")})
		}
		return lines
	}
	return append(lines, PreviewLine{path, models.ScalarString(v)})
}

// RenderPayload writes a titled field/value table for a payload about to be submitted.
func RenderPayload(w io.Writer, title string, f models.FormState) error {
	lines := PreviewPayload(f)
	rows := make([][]string, 0, len(lines))
	var total int64
	for _, l := range lines {
		rows = append(rows, []string{l.Field, l.Value})
	}
	for _, key := range f.Keys() {
		if h := f.File(key); h != nil {
			total += h.Size
		}
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n", title, renderTable([]string{"Field", "Value"}, rows, nil)); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	if total > 0 {
		if _, err := fmt.Fprintf(w, "Attachments: %s\n", shared.FormatBytes(total)); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}
	return nil
}

// RenderErrors writes one "field: message" line per validation error in field order.
func RenderErrors(w io.Writer, errs models.ValidationErrors) error {
	for _, field := range errs.Fields() {
		if _, err := fmt.Fprintf(w, "  ✗ %s: %s\n", field, errs[field]); err != nil {
			return fmt.Errorf("failed to write errors: %w", err)
		}
	}
	return nil
}

// RenderPage renders a catalog page as a table with a pagination footer.
func RenderPage(page *models.Page) string {
	rows := make([][]string, 0, len(page.Items))
	for _, item := range page.Items {
		var marks []string
		if item.Liked {
			marks = append(marks, "liked")
		}
		if item.Following {
			marks = append(marks, "following")
		}
		if item.Purchased {
			marks = append(marks, "owned")
		}
		duration := ""
		if item.Duration > 0 {
			duration = shared.FormatDuration(item.Duration)
		}
		rows = append(rows, []string{
			string(item.ID),
			item.Title,
			item.Artist,
			duration,
			shared.FormatPrice(item.Price, item.IsFree),
			strings.Join(marks, ", "),
		})
	}

	headers := []string{"ID", "Title", "Artist", "Length", "Price", "Status"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	footer := fmt.Sprintf("Page %d of %d · %s items", page.Page, max(page.LastPage, 1), humanize.Comma(int64(page.Total)))
	return renderTable(headers, rows, aligns) + "\n" + footer
}

// RenderSubmissions renders ledger rows newest first.
func RenderSubmissions(subs []*models.Submission) string {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		detail := s.RemoteID()
		if s.Status() == models.SubmissionFailed {
			detail = s.ErrorMessage()
		}
		took := ""
		if d := s.Elapsed(); d > 0 {
			took = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Sequence()),
			s.Form(),
			string(s.Status()),
			shared.FormatBytes(s.BytesSent()),
			took,
			humanize.Time(s.StartedAt()),
			detail,
		})
	}

	headers := []string{"#", "Form", "Status", "Sent", "Took", "Started", "Result"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
	return renderTable(headers, rows, aligns)
}
