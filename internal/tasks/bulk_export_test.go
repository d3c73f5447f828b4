package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	tu "github.com/desertthunder/marquee/internal/testing"
)

// flakyCatalog fails the listed pages and serves the rest from inner.
type flakyCatalog struct {
	inner *tu.FakeCatalog
	fail  map[int]bool
}

func (f *flakyCatalog) Browse(ctx context.Context, q models.Query) (*models.Page, error) {
	if f.fail[q.Page] {
		return nil, shared.ErrServiceUnavailable
	}
	return f.inner.Browse(ctx, q)
}

func collect(ch chan ProgressUpdate) (func() []ProgressUpdate, *sync.WaitGroup) {
	var (
		mu      sync.Mutex
		updates []ProgressUpdate
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range ch {
			mu.Lock()
			updates = append(updates, u)
			mu.Unlock()
		}
	}()
	return func() []ProgressUpdate {
		mu.Lock()
		defer mu.Unlock()
		return updates
	}, &wg
}

func TestExportCatalog(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		pages     int
		maxPages  int
		wantPages int
		wantItems int
		ext       string
	}{
		{name: "single page json", format: "json", pages: 1, wantPages: 1, wantItems: 3, ext: ".json"},
		{name: "all pages csv", format: "csv", pages: 5, wantPages: 5, wantItems: 15, ext: ".csv"},
		{name: "capped markdown", format: "markdown", pages: 5, maxPages: 2, wantPages: 2, wantItems: 6, ext: ".md"},
		{name: "text", format: "txt", pages: 2, wantPages: 2, wantItems: 6, ext: ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(tt.pages, 3)}
			progress := make(chan ProgressUpdate, 100)
			updates, wg := collect(progress)

			result, err := ExportCatalog(context.Background(), progress, catalog,
				models.Query{Kind: models.KindSounds, Search: "rain", PerPage: 3},
				ExportOpts{Format: tt.format, OutputDir: dir, NumWorkers: 3, RateLimit: 1000, MaxPages: tt.maxPages})
			close(progress)
			wg.Wait()

			if err != nil {
				t.Fatalf("ExportCatalog() error = %v", err)
			}
			if result.Pages != tt.wantPages || result.Items != tt.wantItems {
				t.Errorf("expected %d pages/%d items, got %d/%d", tt.wantPages, tt.wantItems, result.Pages, result.Items)
			}
			if len(result.FailedPages) != 0 {
				t.Errorf("unexpected failures %+v", result.FailedPages)
			}
			if filepath.Ext(result.Path) != tt.ext || filepath.Dir(result.Path) != dir {
				t.Errorf("unexpected output path %s", result.Path)
			}
			tu.AssertFileExists(t, result.Path)

			if len(catalog.Calls()) != tt.wantPages {
				t.Errorf("expected %d requests, got %d", tt.wantPages, len(catalog.Calls()))
			}

			got := updates()
			if len(got) == 0 || got[len(got)-1].Phase != ExportWritten {
				t.Error("expected the last update to report the written file")
			}
		})
	}

	t.Run("items stay in page order", func(t *testing.T) {
		dir := t.TempDir()
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(6, 2)}

		result, err := ExportCatalog(context.Background(), nil, catalog,
			models.Query{Kind: models.KindSounds, PerPage: 2},
			ExportOpts{Format: "json", OutputDir: dir, NumWorkers: 4, RateLimit: 1000})
		if err != nil {
			t.Fatalf("ExportCatalog() error = %v", err)
		}

		var export struct {
			Pages int `json:"pages"`
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		}
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.Path)), &export); err != nil {
			t.Fatalf("invalid JSON export: %v", err)
		}
		if export.Pages != 6 || len(export.Items) != 12 {
			t.Fatalf("expected 6 pages and 12 items, got %d/%d", export.Pages, len(export.Items))
		}
		for i, item := range export.Items {
			if want := i + 1; item.ID != strconv.Itoa(want) {
				t.Errorf("item %d: expected id %d, got %s", i, want, item.ID)
			}
		}
	})

	t.Run("items are cached", func(t *testing.T) {
		cache := &countingCache{}
		progress := make(chan ProgressUpdate, 100)
		updates, wg := collect(progress)

		_, err := ExportCatalog(context.Background(), progress, &tu.FakeCatalog{Pages: tu.NewFakePages(2, 2)},
			models.Query{Kind: models.KindSounds, PerPage: 2},
			ExportOpts{Format: "json", OutputDir: t.TempDir(), RateLimit: 1000, Cache: cache})
		close(progress)
		wg.Wait()

		if err != nil {
			t.Fatalf("ExportCatalog() error = %v", err)
		}
		if cache.items != 4 {
			t.Errorf("expected 4 cached items, got %d", cache.items)
		}
		var sawCache bool
		for _, u := range updates() {
			sawCache = sawCache || u.Phase == CacheItems
		}
		if !sawCache {
			t.Error("expected a cache progress update")
		}
	})

	t.Run("cache failure does not fail export", func(t *testing.T) {
		_, err := ExportCatalog(context.Background(), nil, &tu.FakeCatalog{Pages: tu.NewFakePages(1, 2)},
			models.Query{Kind: models.KindSounds},
			ExportOpts{OutputDir: t.TempDir(), Cache: &countingCache{err: errors.New("locked")}})
		if err != nil {
			t.Errorf("expected export to succeed, got %v", err)
		}
	})

	t.Run("failed pages are skipped", func(t *testing.T) {
		dir := t.TempDir()
		catalog := &flakyCatalog{
			inner: &tu.FakeCatalog{Pages: tu.NewFakePages(4, 2)},
			fail:  map[int]bool{2: true, 4: true},
		}

		result, err := ExportCatalog(context.Background(), nil, catalog,
			models.Query{Kind: models.KindSounds, PerPage: 2},
			ExportOpts{Format: "csv", OutputDir: dir, NumWorkers: 2, RateLimit: 1000})
		if err != nil {
			t.Fatalf("ExportCatalog() error = %v", err)
		}
		if result.Pages != 2 || result.Items != 4 {
			t.Errorf("expected 2 pages/4 items, got %d/%d", result.Pages, result.Items)
		}
		if len(result.FailedPages) != 2 || result.FailedPages[0].Page != 2 || result.FailedPages[1].Page != 4 {
			t.Errorf("expected failed pages 2 and 4, got %+v", result.FailedPages)
		}
	})

	t.Run("first page failure aborts", func(t *testing.T) {
		catalog := &tu.FakeCatalog{Err: shared.ErrNotAuthenticated}

		_, err := ExportCatalog(context.Background(), nil, catalog,
			models.Query{Kind: models.KindSounds}, ExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("nil catalog", func(t *testing.T) {
		_, err := ExportCatalog(context.Background(), nil, nil, models.Query{}, ExportOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("unwritable output", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		catalog := &tu.FakeCatalog{Pages: tu.NewFakePages(1, 1)}

		result, err := ExportCatalog(context.Background(), nil, catalog,
			models.Query{Kind: models.KindSounds}, ExportOpts{OutputDir: filepath.Join(blocker, "out")})
		if err == nil {
			t.Fatal("expected write error")
		}
		if result == nil || result.Pages != 1 {
			t.Errorf("expected partial result alongside the error, got %+v", result)
		}
	})
}
