package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

// ItemCacher persists browsed items (repositories.ItemCacheAdapter).
type ItemCacher interface {
	CacheItems(items []models.Item) (int, error)
}

// BrowserState is where a catalog list is in its load cycle.
type BrowserState int

const (
	StateIdle BrowserState = iota
	StateLoading
	StateLoaded
	StateEmpty
	StateError
)

func (s BrowserState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	default:
		return ""
	}
}

// BrowserView is a snapshot of a [Browser] for rendering.
type BrowserView struct {
	State    BrowserState
	Query    models.Query
	Items    []models.Item
	Page     int
	LastPage int
	Total    int
	Err      error
}

// HasMore reports whether LoadMore would fetch another page.
func (v BrowserView) HasMore() bool {
	return v.Page > 0 && v.Page < v.LastPage
}

// Browser holds the list state for one catalog query.
//
// Load and GoToPage replace the items; LoadMore appends the next page. A response
// that arrives after SetQuery or a newer Load is discarded.
type Browser struct {
	catalog services.Catalog
	cache   ItemCacher
	logger  *log.Logger

	mu       sync.Mutex
	gen      int
	query    models.Query
	state    BrowserState
	items    []models.Item
	page     int
	lastPage int
	total    int
	err      error
}

// NewBrowser creates an idle browser. cache may be nil.
func NewBrowser(catalog services.Catalog, cache ItemCacher, logger *log.Logger) *Browser {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Browser{catalog: catalog, cache: cache, logger: logger}
}

// SetQuery replaces the query and resets to idle. The page in q is ignored.
func (b *Browser) SetQuery(q models.Query) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q.Page = 0
	b.gen++
	b.query = q
	b.state = StateIdle
	b.items = nil
	b.page, b.lastPage, b.total = 0, 0, 0
	b.err = nil
}

// View returns a snapshot of the current state.
func (b *Browser) View() BrowserView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BrowserView{
		State:    b.state,
		Query:    b.query,
		Items:    append([]models.Item(nil), b.items...),
		Page:     b.page,
		LastPage: b.lastPage,
		Total:    b.total,
		Err:      b.err,
	}
}

// Load fetches the first page, replacing any items.
func (b *Browser) Load(ctx context.Context) (BrowserView, error) {
	return b.fetch(ctx, 1, false)
}

// LoadMore appends the next page. It is a no-op on the last page or while a load is running.
func (b *Browser) LoadMore(ctx context.Context) (BrowserView, error) {
	b.mu.Lock()
	if b.state == StateLoading || b.page == 0 || b.page >= b.lastPage {
		b.mu.Unlock()
		return b.View(), nil
	}
	next := b.page + 1
	b.mu.Unlock()

	return b.fetch(ctx, next, true)
}

// GoToPage replaces the items with page n. n must be within the known page range.
func (b *Browser) GoToPage(ctx context.Context, n int) (BrowserView, error) {
	b.mu.Lock()
	last := b.lastPage
	b.mu.Unlock()

	if n < 1 || (last > 0 && n > last) {
		return b.View(), fmt.Errorf("%w: page %d is outside 1..%d", shared.ErrInvalidArgument, n, max(last, 1))
	}
	return b.fetch(ctx, n, false)
}

func (b *Browser) fetch(ctx context.Context, page int, appendItems bool) (BrowserView, error) {
	if b.catalog == nil {
		return b.View(), fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	b.mu.Lock()
	b.gen++
	gen := b.gen
	q := b.query
	q.Page = page
	b.state = StateLoading
	b.err = nil
	b.mu.Unlock()

	result, err := b.catalog.Browse(ctx, q)

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		b.logger.Debug("dropping stale page", "kind", q.Kind, "page", page)
		return b.View(), nil
	}

	if err != nil {
		b.state = StateError
		b.err = err
		b.mu.Unlock()
		b.logger.Error("catalog load failed", "kind", q.Kind, "page", page, "error", err)
		return b.View(), err
	}

	if appendItems {
		b.items = append(b.items, result.Items...)
	} else {
		b.items = append([]models.Item(nil), result.Items...)
	}
	b.page = result.Page
	if b.page == 0 {
		b.page = page
	}
	b.lastPage = max(result.LastPage, b.page)
	b.total = result.Total
	if len(b.items) == 0 {
		b.state = StateEmpty
	} else {
		b.state = StateLoaded
	}
	b.mu.Unlock()

	b.cacheItems(q.Kind, result.Items)
	return b.View(), nil
}

func (b *Browser) cacheItems(kind models.Kind, items []models.Item) {
	if b.cache == nil || len(items) == 0 {
		return
	}
	if _, err := b.cache.CacheItems(items); err != nil {
		b.logger.Warn("failed to cache items", "kind", kind, "error", err)
	}
}
