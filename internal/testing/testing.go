// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/marquee/internal/models"
)

// FakeCatalog serves canned pages keyed by page number. It satisfies services.Catalog.
type FakeCatalog struct {
	Pages map[int]*models.Page
	Err   error

	mu    sync.Mutex
	calls []models.Query
}

func (f *FakeCatalog) Browse(ctx context.Context, q models.Query) (*models.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	page, ok := f.Pages[max(q.Page, 1)]
	if !ok {
		return &models.Page{Page: q.Page, LastPage: len(f.Pages)}, nil
	}
	cp := *page
	cp.Items = append([]models.Item(nil), page.Items...)
	return &cp, nil
}

// Calls returns the queries received so far.
func (f *FakeCatalog) Calls() []models.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Query(nil), f.calls...)
}

// NewFakePages builds lastPage pages of perPage sound items with sequential ids.
func NewFakePages(lastPage, perPage int) map[int]*models.Page {
	pages := make(map[int]*models.Page, lastPage)
	id := 1
	for p := 1; p <= lastPage; p++ {
		page := &models.Page{Page: p, PerPage: perPage, LastPage: lastPage, Total: lastPage * perPage}
		for range perPage {
			page.Items = append(page.Items, models.Item{
				Kind:  models.KindSounds,
				ID:    models.ID(strconv.Itoa(id)),
				Title: "Sound " + strconv.Itoa(id),
			})
			id++
		}
		pages[p] = page
	}
	return pages
}

// WriteTempFile writes size bytes to dir/name and returns the path.
func WriteTempFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
