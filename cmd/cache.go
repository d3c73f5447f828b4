package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

func (r *Runner) cacheCriteria(cmd *cli.Command) (map[string]any, error) {
	criteria := map[string]any{}
	if k := cmd.String("kind"); k != "" {
		kind, err := models.ParseKind(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		criteria["kind"] = kind
	}
	if cmd.IsSet("search") {
		criteria["search"] = cmd.String("search")
	}
	return criteria, nil
}

// CacheList prints catalog items cached by browse, show and export.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if r.cached == nil {
		return fmt.Errorf("%w: local database unavailable, run 'marquee setup database'", shared.ErrServiceUnavailable)
	}

	criteria, err := r.cacheCriteria(cmd)
	if err != nil {
		return err
	}
	rows, err := r.cached.List(criteria)
	if err != nil {
		return err
	}

	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Item())
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}
	if len(items) == 0 {
		return r.writePlain("Cache is empty.\n")
	}

	page := &models.Page{Items: items, Page: 1, LastPage: 1, Total: len(items), PerPage: len(items)}
	return r.writePlain("%s\n", formatter.RenderPage(page))
}

// CacheClear evicts cached catalog items.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.cached == nil {
		return fmt.Errorf("%w: local database unavailable, run 'marquee setup database'", shared.ErrServiceUnavailable)
	}

	criteria, err := r.cacheCriteria(cmd)
	if err != nil {
		return err
	}
	rows, err := r.cached.List(criteria)
	if err != nil {
		return err
	}

	removed := 0
	for _, row := range rows {
		if err := r.cached.Delete(row.ID()); err != nil {
			r.logger.Warn("failed to evict cached item", "id", row.ID(), "error", err)
			continue
		}
		removed++
	}

	r.logger.Info("cache cleared", "removed", removed, "failed", len(rows)-removed)
	return r.writePlain("✓ Removed %d cached items\n", removed)
}
