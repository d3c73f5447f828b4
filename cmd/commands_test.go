package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	tu "github.com/desertthunder/marquee/internal/testing"
	"github.com/desertthunder/marquee/internal/wizard"
)

func runCLI(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:      "marquee",
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,

		DisableSliceFlagSeparator: true,
	}
	return app.Run(context.Background(), append([]string{"marquee"}, args...))
}

type stubUploader struct {
	result *wizard.Result
	err    error

	mu       sync.Mutex
	payloads []models.FormState
}

func (s *stubUploader) Submit(ctx context.Context, flow *wizard.Flow, payload models.FormState) (*wizard.Result, error) {
	out, err := s.Send(ctx, flow, payload, nil)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (s *stubUploader) Send(ctx context.Context, flow *wizard.Flow, payload models.FormState, fn services.ProgressFunc) (*services.Outcome, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	s.mu.Unlock()

	if fn != nil {
		fn(models.ExactProgress(50, 100))
		fn(models.CompleteProgress(100, 100))
	}
	out := &services.Outcome{BytesSent: 100, TotalBytes: 100, Status: http.StatusCreated}
	if s.err != nil {
		out.Status = http.StatusInternalServerError
		return out, s.err
	}
	out.Result = s.result
	return out, nil
}

type memLedger struct {
	mu   sync.Mutex
	subs []*models.Submission
}

func (l *memLedger) Create(s *models.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.SetSequence(len(l.subs) + 1)
	s.SetID("sub-" + strconv.Itoa(s.Sequence()))
	l.subs = append(l.subs, s)
	return nil
}

func (l *memLedger) Update(s *models.Submission) error { return nil }

func (l *memLedger) List(criteria map[string]any) ([]*models.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	form, _ := criteria["form"].(string)
	status, _ := criteria["status"].(string)
	limit, _ := criteria["limit"].(int)

	var out []*models.Submission
	for i := len(l.subs) - 1; i >= 0; i-- {
		s := l.subs[i]
		if form != "" && s.Form() != form {
			continue
		}
		if status != "" && string(s.Status()) != status {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string]models.Item
	order []string
}

func (c *memCache) CacheItems(items []models.Item) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string]models.Item{}
	}
	for _, item := range items {
		if _, ok := c.items[string(item.ID)]; !ok {
			c.order = append(c.order, string(item.ID))
		}
		c.items[string(item.ID)] = item
	}
	return len(items), nil
}

func (c *memCache) List(criteria map[string]any) ([]*models.CachedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kind, _ := criteria["kind"].(models.Kind)
	var out []*models.CachedItem
	for i, id := range c.order {
		item := c.items[id]
		if kind != "" && item.Kind != kind {
			continue
		}
		row := models.NewCachedItem(i+1, item)
		row.SetID(id)
		out = append(out, row)
	}
	return out, nil
}

func (c *memCache) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func soundArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	audio := tu.WriteTempFile(t, t.TempDir(), "rain.mp3", 2048)
	args := []string{
		"upload", "sound",
		"--set", "title=Rain on tin",
		"--set", "category_id=3",
		"--set", "copyright_owner=Field Notes",
		"--set", "composer=A. Walker",
		"--set", "is_free=true",
		"--file", "audio_file=" + audio,
	}
	return append(args, extra...)
}

func TestFormCommands(t *testing.T) {
	t.Run("loadFormFile", func(t *testing.T) {
		dir := t.TempDir()
		audio := tu.WriteTempFile(t, dir, "take.mp3", 512)

		t.Run("reads YAML with nested values and file refs", func(t *testing.T) {
			path := filepath.Join(dir, "sound.yaml")
			doc := "title: Rain\ncategory_id: 4\ntags: [ambient, field]\naudio_file: \"@" + audio + "\"\n" +
				"credits:\n  - role: mixing\n    name: Ann\n"
			if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
				t.Fatalf("failed to write form file: %v", err)
			}

			f, err := loadFormFile(path)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if f.String("title") != "Rain" {
				t.Errorf("expected title Rain, got %q", f.String("title"))
			}
			if n, ok := f.Number("category_id"); !ok || n != 4 {
				t.Errorf("expected category_id 4, got %v", n)
			}
			if len(f.List("tags")) != 2 {
				t.Errorf("expected 2 tags, got %v", f.List("tags"))
			}
			h := f.File("audio_file")
			if h == nil {
				t.Fatal("expected audio_file to resolve to a file handle")
			}
			if h.MIMEType != "audio/mpeg" {
				t.Errorf("expected audio/mpeg, got %s", h.MIMEType)
			}
			if len(f.List("credits")) != 1 {
				t.Errorf("expected one credit, got %v", f.List("credits"))
			}
		})

		t.Run("accepts JSON", func(t *testing.T) {
			path := filepath.Join(dir, "profile.json")
			if err := os.WriteFile(path, []byte(`{"display_name": "Ann", "bio": "hi"}`), 0644); err != nil {
				t.Fatalf("failed to write form file: %v", err)
			}
			f, err := loadFormFile(path)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if f.String("display_name") != "Ann" {
				t.Errorf("expected display_name Ann, got %q", f.String("display_name"))
			}
		})

		t.Run("rejects malformed documents", func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			if err := os.WriteFile(path, []byte("title: [unclosed"), 0644); err != nil {
				t.Fatalf("failed to write form file: %v", err)
			}
			if _, err := loadFormFile(path); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("reports missing file refs", func(t *testing.T) {
			path := filepath.Join(dir, "missing.yaml")
			if err := os.WriteFile(path, []byte("audio_file: \"@"+filepath.Join(dir, "nope.mp3")+"\"\n"), 0644); err != nil {
				t.Fatalf("failed to write form file: %v", err)
			}
			_, err := loadFormFile(path)
			if err == nil || !strings.Contains(err.Error(), "audio_file") {
				t.Errorf("expected error naming the field, got %v", err)
			}
		})
	})

	t.Run("dry run validates without sending", func(t *testing.T) {
		var buf bytes.Buffer
		uploader := &stubUploader{}
		runner := NewRunner(RunnerOpts{Output: &buf, Uploader: uploader, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, soundArgs(t, "--dry-run")...); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Would POST /api/sounds") {
			t.Errorf("expected endpoint preview, got %q", out)
		}
		if !strings.Contains(out, "✓ Ready to submit") {
			t.Errorf("expected ready message, got %q", out)
		}
		if len(uploader.payloads) != 0 {
			t.Error("expected dry run not to send")
		}
	})

	t.Run("incomplete step returns validation error", func(t *testing.T) {
		var buf bytes.Buffer
		uploader := &stubUploader{}
		runner := NewRunner(RunnerOpts{Output: &buf, Uploader: uploader, Logger: shared.DiscardLogger()})

		err := runCLI(t, runner, "upload", "sound", "--set", "category_id=3")
		if !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(buf.String(), "✗ title:") {
			t.Errorf("expected title error to be rendered, got %q", buf.String())
		}
		if len(uploader.payloads) != 0 {
			t.Error("expected nothing to be sent")
		}
	})

	t.Run("rejects malformed --set", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Uploader: &stubUploader{}, Logger: shared.DiscardLogger()})
		err := runCLI(t, runner, "upload", "sound", "--set", "no-equals")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("submits and records success", func(t *testing.T) {
		var buf bytes.Buffer
		uploader := &stubUploader{result: &wizard.Result{RemoteID: "77", Message: "Sound uploaded"}}
		ledger := &memLedger{}
		runner := NewRunner(RunnerOpts{Output: &buf, Uploader: uploader, Ledger: ledger, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, soundArgs(t, "--json")...); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var summary submitSummary
		if err := json.Unmarshal(buf.Bytes(), &summary); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if summary.RemoteID != "77" {
			t.Errorf("expected id 77, got %q", summary.RemoteID)
		}
		if summary.Form != wizard.FlowSoundUpload {
			t.Errorf("expected form %s, got %s", wizard.FlowSoundUpload, summary.Form)
		}
		if summary.BytesSent != 100 {
			t.Errorf("expected 100 bytes sent, got %d", summary.BytesSent)
		}

		if len(ledger.subs) != 1 {
			t.Fatalf("expected one ledger row, got %d", len(ledger.subs))
		}
		if ledger.subs[0].Status() != models.SubmissionSucceeded {
			t.Errorf("expected succeeded, got %s", ledger.subs[0].Status())
		}

		if len(uploader.payloads) != 1 {
			t.Fatalf("expected one send, got %d", len(uploader.payloads))
		}
		if _, ok := uploader.payloads[0].Get("price"); ok {
			t.Error("expected price to be omitted for a free sound")
		}
		var isFree string
		for _, field := range services.Flatten(uploader.payloads[0]) {
			if field.Name == "is_free" {
				isFree = field.Value
			}
		}
		if isFree != "1" {
			t.Errorf("expected is_free=1 on the wire, got %q", isFree)
		}
	})

	t.Run("values keep their commas", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "takes, vol 1")
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		cover := tu.WriteTempFile(t, dir, "rain, slow.mp3", 1024)

		uploader := &stubUploader{result: &wizard.Result{RemoteID: "79"}}
		runner := NewRunner(RunnerOpts{Output: io.Discard, Uploader: uploader, Logger: shared.DiscardLogger()})

		args := soundArgs(t, "--set", "description=Rain, softly", "--file", "audio_file="+cover, "--json")
		if err := runCLI(t, runner, args...); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(uploader.payloads) != 1 {
			t.Fatalf("expected one send, got %d", len(uploader.payloads))
		}
		payload := uploader.payloads[0]
		if payload.String("description") != "Rain, softly" {
			t.Errorf("expected description with comma, got %q", payload.String("description"))
		}
		if h := payload.File("audio_file"); h == nil || h.Path != cover {
			t.Errorf("expected audio_file %s, got %+v", cover, h)
		}
	})

	t.Run("plain output shows progress and message", func(t *testing.T) {
		var buf bytes.Buffer
		uploader := &stubUploader{result: &wizard.Result{RemoteID: "78", Message: "Sound uploaded", Redirect: "/sounds/78"}}
		runner := NewRunner(RunnerOpts{Output: &buf, Uploader: uploader, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, soundArgs(t)...); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Upload a sound", "Sound uploaded", "→ /sounds/78"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("upload failure is wrapped", func(t *testing.T) {
		uploader := &stubUploader{err: errors.New("connection reset")}
		ledger := &memLedger{}
		runner := NewRunner(RunnerOpts{Output: io.Discard, Uploader: uploader, Ledger: ledger, Logger: shared.DiscardLogger()})

		err := runCLI(t, runner, soundArgs(t)...)
		if !errors.Is(err, shared.ErrSubmissionFailed) {
			t.Fatalf("expected ErrSubmissionFailed, got %v", err)
		}
		if len(ledger.subs) != 1 || ledger.subs[0].Status() != models.SubmissionFailed {
			t.Error("expected a failed ledger row")
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("browse prints a page and caches it", func(t *testing.T) {
		var buf bytes.Buffer
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(2, 3)}
		cache := &memCache{}
		runner := NewRunner(RunnerOpts{Output: &buf, Catalog: catalog, Cache: cache, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, "catalog", "browse", "--kind", "sounds"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := buf.String()
		for _, want := range []string{"Sound 1", "Page 1 of 2", "Next page: marquee catalog browse --kind sounds --page 2"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
		if cache.len() != 3 {
			t.Errorf("expected 3 cached items, got %d", cache.len())
		}
	})

	t.Run("browse JSON", func(t *testing.T) {
		var buf bytes.Buffer
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(2, 3)}
		runner := NewRunner(RunnerOpts{Output: &buf, Catalog: catalog, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, "cat", "browse", "--page", "2", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var page models.Page
		if err := json.Unmarshal(buf.Bytes(), &page); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if page.Page != 2 || len(page.Items) != 3 {
			t.Errorf("expected page 2 with 3 items, got page %d with %d", page.Page, len(page.Items))
		}
		if page.Items[0].Title != "Sound 4" {
			t.Errorf("expected Sound 4 first, got %s", page.Items[0].Title)
		}
	})

	t.Run("browse passes filters through", func(t *testing.T) {
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(1, 1)}
		runner := NewRunner(RunnerOpts{Output: io.Discard, Catalog: catalog, Logger: shared.DiscardLogger()})

		err := runCLI(t, runner, "catalog", "browse", "-q", "rain", "-f", "category=4", "-f", "genre=a,b")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		calls := catalog.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected one call, got %d", len(calls))
		}
		if calls[0].Search != "rain" {
			t.Errorf("expected search rain, got %q", calls[0].Search)
		}
		if calls[0].Filters["category"] != "4" || calls[0].Filters["genre"] != "a,b" {
			t.Errorf("unexpected filters %v", calls[0].Filters)
		}
	})

	t.Run("browse rejects unknown kinds", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Catalog: &tu.FakeCatalog{}, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "catalog", "browse", "--kind", "widgets"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("browse without a catalog", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "catalog", "browse"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("show needs a catalog that can fetch items", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Catalog: &tu.FakeCatalog{}, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "catalog", "show", "sounds", "1"); !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
		if err := runCLI(t, runner, "catalog", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export writes a CSV file", func(t *testing.T) {
		var buf bytes.Buffer
		dir := t.TempDir()
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(2, 3)}
		cache := &memCache{}
		runner := NewRunner(RunnerOpts{Output: &buf, Catalog: catalog, Cache: cache, Logger: shared.DiscardLogger()})

		err := runCLI(t, runner, "catalog", "export", "--format", "csv", "--output", dir, "--rate", "50")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		matches, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
		if len(matches) != 1 {
			t.Fatalf("expected one CSV file, got %v", matches)
		}
		content := tu.MustReadFile(t, matches[0])
		if !strings.Contains(content, "Sound 6") {
			t.Errorf("expected every item in export, got %q", content)
		}

		out := buf.String()
		if !strings.Contains(out, "✓ Export complete") || !strings.Contains(out, "Items:    6 of 6") {
			t.Errorf("unexpected summary %q", out)
		}
		if cache.len() != 6 {
			t.Errorf("expected 6 cached items, got %d", cache.len())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Catalog: &tu.FakeCatalog{}, Logger: shared.DiscardLogger()})
		err := runCLI(t, runner, "catalog", "export", "--format", "xlsx", "--output", t.TempDir())
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestParseAssignments(t *testing.T) {
	t.Run("splits on the first equals sign", func(t *testing.T) {
		got, err := parseAssignments("filter", []string{"a=1", " b = x=y "})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got["a"] != "1" || got["b"] != "x=y" {
			t.Errorf("unexpected result %v", got)
		}
	})

	for _, bad := range []string{"novalue", "=empty-key", " =x"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			if _, err := parseAssignments("filter", []string{bad}); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})
	}
}

func TestHistoryCommands(t *testing.T) {
	newLedger := func() *memLedger {
		l := &memLedger{}
		ok := models.NewSubmission(0, wizard.FlowSoundUpload, "/api/sounds")
		ok.Succeed("41", 2048)
		failed := models.NewSubmission(0, wizard.FlowArtistProfile, "/api/artists/me")
		failed.Fail(errors.New("display_name is taken"), 1, 0)
		_ = l.Create(ok)
		_ = l.Create(failed)
		return l
	}

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf, Ledger: newLedger(), Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), wizard.FlowSoundUpload) {
			t.Errorf("expected sound upload row, got %q", buf.String())
		}
	})

	t.Run("JSON filtered by status", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf, Ledger: newLedger(), Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "history", "list", "--status", "failed", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var records []submissionRecord
		if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if len(records) != 1 || records[0].Form != wizard.FlowArtistProfile {
			t.Fatalf("expected the failed profile row, got %+v", records)
		}
		if records[0].Error == "" || records[0].FieldErrors != 1 {
			t.Errorf("expected failure details, got %+v", records[0])
		}
	})

	t.Run("empty ledger", func(t *testing.T) {
		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf, Ledger: &memLedger{}, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "No submissions recorded.") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("invalid filters", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Ledger: newLedger(), Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "history", "list", "--status", "lost"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for status, got %v", err)
		}
		if err := runCLI(t, runner, "history", "list", "--form", "poetry"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for form, got %v", err)
		}
	})

	t.Run("without a database", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "history", "list"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	seeded := func() *memCache {
		c := &memCache{}
		_, _ = c.CacheItems([]models.Item{
			{Kind: models.KindSounds, ID: "1", Title: "Sound 1"},
			{Kind: models.KindSounds, ID: "2", Title: "Sound 2"},
		})
		return c
	}

	t.Run("list", func(t *testing.T) {
		var buf bytes.Buffer
		cache := seeded()
		runner := NewRunner(RunnerOpts{Output: &buf, Cache: cache, CatalogItems: cache, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "cache", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "Sound 2") {
			t.Errorf("expected cached items, got %q", buf.String())
		}
	})

	t.Run("clear", func(t *testing.T) {
		var buf bytes.Buffer
		cache := seeded()
		runner := NewRunner(RunnerOpts{Output: &buf, Cache: cache, CatalogItems: cache, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "cache", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "✓ Removed 2 cached items") {
			t.Errorf("unexpected output %q", buf.String())
		}
		if cache.len() != 0 {
			t.Errorf("expected empty cache, got %d", cache.len())
		}

		buf.Reset()
		if err := runCLI(t, runner, "cache", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), "Cache is empty.") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("without a database", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "cache", "list"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	newConfigFile := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := shared.CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config: %v", err)
		}
		return path
	}

	t.Run("token from a cURL command", func(t *testing.T) {
		var buf bytes.Buffer
		path := newConfigFile(t)
		runner := NewRunner(RunnerOpts{Output: &buf, Logger: shared.DiscardLogger()})

		curl := `curl 'https://market.example/api/user' -H 'Accept: application/json' -H 'Authorization: Bearer tok-123'`
		if err := runCLI(t, runner, "auth", "token", "--config", path, "--curl", curl); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		loaded, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.API.Token != "tok-123" {
			t.Errorf("expected tok-123, got %q", loaded.API.Token)
		}
		if !strings.Contains(buf.String(), "✓ Token saved to "+path) {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("token requires exactly one source", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "auth", "token"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		err := runCLI(t, runner, "auth", "token", "--token", "a", "--curl", "curl -H 'Authorization: Bearer b'")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("token without a config file stays in memory", func(t *testing.T) {
		var buf bytes.Buffer
		config := shared.DefaultConfig()
		runner := NewRunner(RunnerOpts{Config: config, Output: &buf, Logger: shared.DiscardLogger()})

		missing := filepath.Join(t.TempDir(), "config.toml")
		if err := runCLI(t, runner, "auth", "token", "--config", missing, "--token", "mem"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.API.Token != "mem" {
			t.Errorf("expected token in memory, got %q", config.API.Token)
		}
		if !strings.Contains(buf.String(), "marquee setup config") {
			t.Errorf("expected setup hint, got %q", buf.String())
		}
	})

	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/user" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"data":{"id":7,"name":"Ann Walker","email":"ann@example.com","role":"artist"}}`)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		config := shared.DefaultConfig()
		config.API.Token = "tok"
		runner := NewRunner(RunnerOpts{
			Config: config,
			API:    services.NewAPIService(srv.URL, srv.Client()),
			Output: &buf,
			Logger: shared.DiscardLogger(),
		})

		if err := runCLI(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := buf.String()
		for _, want := range []string{"✓ Authenticated", "Account: Ann Walker <ann@example.com>", "Role: artist"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("status without a token", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.DiscardLogger()})
		if err := runCLI(t, runner, "auth", "status"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config refuses to overwrite", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "conf", "config.toml")
		runner := NewRunner(RunnerOpts{Output: &buf, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertDirExists(t, filepath.Dir(path))
		tu.AssertFileExists(t, path)
		if !strings.Contains(buf.String(), "✓ Config written to "+path) {
			t.Errorf("unexpected output %q", buf.String())
		}

		if err := runCLI(t, runner, "setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("database creates config and runs migrations", func(t *testing.T) {
		dir := t.TempDir()
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		t.Cleanup(func() { tu.MustChdir(t, wd) })

		var buf bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &buf, Logger: shared.DiscardLogger()})

		if err := runCLI(t, runner, "setup", "database", "--config", "config.toml"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "marquee.db"))
		if !strings.Contains(buf.String(), "✓ Database ready at ./marquee.db") {
			t.Errorf("unexpected output %q", buf.String())
		}

		buf.Reset()
		if err := runCLI(t, runner, "setup", "database", "--config", "config.toml"); err != nil {
			t.Fatalf("expected rerun to succeed, got %v", err)
		}
	})
}

func TestAPICommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/sounds":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"data":[{"id":1,"title":"Rain"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/likes":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, "missing")
		}
	}))
	defer srv.Close()

	newRunner := func(buf *bytes.Buffer) *Runner {
		return NewRunner(RunnerOpts{
			API:    services.NewAPIService(srv.URL, srv.Client()),
			Output: buf,
			Logger: shared.DiscardLogger(),
		})
	}

	t.Run("get adds the leading slash", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runCLI(t, newRunner(&buf), "api", "get", "--json", "api/sounds"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), `"title":"Rain"`) {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("get reports non-2xx", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runCLI(t, newRunner(&buf), "api", "get", "/api/nothing"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("post validates the body", func(t *testing.T) {
		var buf bytes.Buffer
		runner := newRunner(&buf)
		if err := runCLI(t, runner, "api", "post", "-d", "{not json", "/api/likes"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := runCLI(t, runner, "api", "post", "-d", `{"id":"9"}`, "/api/likes"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(buf.String(), `"id": "9"`) {
			t.Errorf("expected echoed body, got %q", buf.String())
		}
	})

	t.Run("path is required", func(t *testing.T) {
		var buf bytes.Buffer
		if err := runCLI(t, newRunner(&buf), "api", "get"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
