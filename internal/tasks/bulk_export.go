package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

// ExportOpts contains configuration for catalog exports.
type ExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Output directory (default: marquee_export_{epoch})
	NumWorkers int     // Concurrent page fetchers (default: 4, max 10)
	RateLimit  float64 // Requests per second (default: 5)
	MaxPages   int     // Stop after this many pages; 0 fetches all

	Cache ItemCacher // Optional; exported items are also cached locally
}

// PageError records a page that could not be fetched.
type PageError struct {
	Page int
	Err  error
}

// ExportResult summarizes an export.
type ExportResult struct {
	Path        string
	Pages       int
	FailedPages []PageError
	Items       int
	Total       int
	Duration    time.Duration
}

type pageResult struct {
	page  int
	items []models.Item
	err   error
}

// ExportCatalog fetches every page of q and writes them, in page order, as one export file.
//
// Page 1 is fetched first to learn the page count; the rest are fetched by a worker
// pool paced by a token bucket limiter. Pages that fail are skipped and listed in the result.
func ExportCatalog(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	catalog services.Catalog,
	q models.Query,
	opts ExportOpts,
) (*ExportResult, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("marquee_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	started := time.Now()
	q = q.Normalize()
	q.Page = 1

	sendProgress(prog, fetchPageUpdate(1, 1, q.Kind))
	first, err := catalog.Browse(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	lastPage := max(first.LastPage, 1)
	if opts.MaxPages > 0 && lastPage > opts.MaxPages {
		lastPage = opts.MaxPages
	}

	result := &ExportResult{Pages: 1, Total: first.Total}
	collected := map[int][]models.Item{1: first.Items}

	if lastPage > 1 {
		limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		jobs := make(chan int, lastPage-1)
		results := make(chan pageResult, lastPage-1)

		var wg sync.WaitGroup
		for range opts.NumWorkers {
			wg.Add(1)
			go exportWorker(ctx, &wg, catalog, q, limiter, jobs, results)
		}

		for p := 2; p <= lastPage; p++ {
			jobs <- p
		}
		close(jobs)

		go func() {
			wg.Wait()
			close(results)
		}()

		completed := 1
		for res := range results {
			completed++
			if res.err != nil {
				result.FailedPages = append(result.FailedPages, PageError{Page: res.page, Err: res.err})
				sendProgress(prog, pageFailedUpdate(completed, lastPage, res.page, res.err))
				continue
			}
			collected[res.page] = res.items
			result.Pages++
			sendProgress(prog, fetchPageUpdate(completed, lastPage, q.Kind))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}

	export := formatter.NewCatalogExport(q)
	export.Total = first.Total
	export.Pages = result.Pages

	pages := make([]int, 0, len(collected))
	for p := range collected {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	for _, p := range pages {
		export.Items = append(export.Items, collected[p]...)
	}
	sort.Slice(result.FailedPages, func(i, j int) bool { return result.FailedPages[i].Page < result.FailedPages[j].Page })

	if opts.Cache != nil && len(export.Items) > 0 {
		// a cache failure never fails the export
		if n, err := opts.Cache.CacheItems(export.Items); err == nil {
			sendProgress(prog, cacheItemsUpdate(n, q.Kind))
		}
	}

	path, err := formatter.WriteExport(export, opts.Format, opts.OutputDir)
	if err != nil {
		return result, fmt.Errorf("export fetched but failed to write: %w", err)
	}

	result.Path = path
	result.Items = len(export.Items)
	result.Duration = time.Since(started)
	sendProgress(prog, exportWrittenUpdate(path, result.Items))
	return result, nil
}

// exportWorker fetches pages from jobs until the channel closes or ctx is done.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	catalog services.Catalog,
	q models.Query,
	limiter *rate.Limiter,
	jobs <-chan int,
	results chan<- pageResult,
) {
	defer wg.Done()

	for page := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- pageResult{page: page, err: err}
			continue
		}

		pq := q
		pq.Page = page
		res, err := catalog.Browse(ctx, pq)
		if err != nil {
			results <- pageResult{page: page, err: err}
			continue
		}
		results <- pageResult{page: page, items: res.Items}
	}
}
