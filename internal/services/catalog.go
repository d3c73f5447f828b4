package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// CatalogService reads catalog listings and the current user's status flags.
type CatalogService struct {
	api    *APIService
	logger *log.Logger
}

// NewCatalogService creates a catalog reader over api.
func NewCatalogService(api *APIService, logger *log.Logger) *CatalogService {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &CatalogService{api: api, logger: logger}
}

// Browse fetches one page for q and merges liked/following/purchased flags onto
// each item. A failed status lookup is logged and the page returned without flags.
func (s *CatalogService) Browse(ctx context.Context, q models.Query) (*models.Page, error) {
	page, err := s.Page(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return page, nil
	}

	flags, err := s.Statuses(ctx, q.Kind, page.IDs())
	if err != nil {
		s.logger.Warn("status lookup failed; showing items without flags", "kind", q.Kind, "error", err)
		return page, nil
	}

	for i := range page.Items {
		if f, ok := flags[string(page.Items[i].ID)]; ok {
			page.Items[i].ApplyStatus(f)
		}
	}
	return page, nil
}

// Page fetches one page of items without status flags.
func (s *CatalogService) Page(ctx context.Context, q models.Query) (*models.Page, error) {
	if q.Kind == "" {
		return nil, fmt.Errorf("%w: catalog kind is required", shared.ErrMissingArgument)
	}
	q = q.Normalize()

	var page models.Page
	if err := s.api.GetJSON(ctx, "/api/"+string(q.Kind), q.Values(), &page); err != nil {
		return nil, fmt.Errorf("failed to fetch %s page %d: %w", q.Kind, q.Page, err)
	}

	for i := range page.Items {
		page.Items[i].Kind = q.Kind
	}
	if page.Page == 0 {
		page.Page = q.Page
	}
	if page.PerPage == 0 {
		page.PerPage = q.PerPage
	}
	if page.LastPage == 0 {
		page.LastPage = page.Page
	}

	s.logger.Debug("page fetched", "kind", q.Kind, "page", page.Page, "last_page", page.LastPage, "items", len(page.Items))
	return &page, nil
}

// Statuses fetches flags for ids from /api/{kind}/status?ids=1,2,3.
// The response maps each id to its flags under "data".
func (s *CatalogService) Statuses(ctx context.Context, kind models.Kind, ids []string) (map[string]models.StatusFlags, error) {
	if len(ids) == 0 {
		return map[string]models.StatusFlags{}, nil
	}

	query := url.Values{"ids": {strings.Join(ids, ",")}}
	var body struct {
		Data map[string]models.StatusFlags `json:"data"`
	}
	if err := s.api.GetJSON(ctx, "/api/"+string(kind)+"/status", query, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		body.Data = map[string]models.StatusFlags{}
	}
	return body.Data, nil
}

// Item fetches a single listing by id.
func (s *CatalogService) Item(ctx context.Context, kind models.Kind, id string) (*models.Item, error) {
	var body struct {
		Data *models.Item `json:"data"`
	}
	if err := s.api.GetJSON(ctx, "/api/"+string(kind)+"/"+url.PathEscape(id), nil, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrItemNotFound, kind, id)
	}
	body.Data.Kind = kind
	return body.Data, nil
}
