package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/formatter"
	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/tasks"
)

// itemFinder is implemented by catalogs that can fetch a single listing.
type itemFinder interface {
	Item(ctx context.Context, kind models.Kind, id string) (*models.Item, error)
}

// parseAssignments splits key=value flag values.
func parseAssignments(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --%s %q (want key=value)", shared.ErrInvalidFlag, flag, v)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func queryFromFlags(cmd *cli.Command) (models.Query, error) {
	kind, err := models.ParseKind(cmd.String("kind"))
	if err != nil {
		return models.Query{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	filters, err := parseAssignments("filter", cmd.StringSlice("filter"))
	if err != nil {
		return models.Query{}, err
	}
	return models.Query{
		Kind:    kind,
		Search:  cmd.String("search"),
		Filters: filters,
		Sort:    cmd.String("sort"),
		PerPage: cmd.Int("per-page"),
	}.Normalize(), nil
}

// CatalogBrowse prints one page of the catalog.
func (r *Runner) CatalogBrowse(ctx context.Context, cmd *cli.Command) error {
	if r.catalog == nil {
		return fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	q.Page = max(cmd.Int("page"), 1)

	r.logger.Debug("browsing catalog", "kind", q.Kind, "search", q.Search, "page", q.Page)

	browser := tasks.NewBrowser(r.catalog, r.cache, r.logger)
	browser.SetQuery(q)
	view, err := browser.GoToPage(ctx, q.Page)
	if err != nil {
		return err
	}
	page := &models.Page{
		Items:    view.Items,
		Page:     view.Page,
		PerPage:  q.PerPage,
		Total:    view.Total,
		LastPage: view.LastPage,
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	if len(page.Items) == 0 {
		return r.writePlain("No %s found.\n", q.Kind)
	}
	r.writePlain("%s\n", formatter.RenderPage(page))
	if page.HasMore() {
		r.writePlain("Next page: marquee catalog browse --kind %s --page %d\n", q.Kind, page.Page+1)
	}
	return nil
}

// CatalogShow prints a single item.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	kindArg := cmd.StringArg("kind")
	id := strings.TrimSpace(cmd.StringArg("id"))
	if kindArg == "" || id == "" {
		return fmt.Errorf("%w: usage: marquee catalog show <kind> <id>", shared.ErrMissingArgument)
	}
	kind, err := models.ParseKind(kindArg)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	finder, ok := r.catalog.(itemFinder)
	if !ok {
		return fmt.Errorf("%w: catalog cannot fetch single items", shared.ErrNotImplemented)
	}

	item, err := finder.Item(ctx, kind, id)
	if err != nil {
		return err
	}
	if r.cache != nil {
		if _, err := r.cache.CacheItems([]models.Item{*item}); err != nil {
			r.logger.Warn("failed to cache item", "id", id, "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(item, cmd.Bool("pretty"))
	}

	r.writePlainHeader(item.Title)
	if item.Artist != "" {
		r.writePlain("Artist:    %s\n", item.Artist)
	}
	if item.Category != "" {
		r.writePlain("Category:  %s\n", item.Category)
	}
	if item.Duration > 0 {
		r.writePlain("Duration:  %s\n", shared.FormatDuration(item.Duration))
	}
	r.writePlain("Price:     %s\n", shared.FormatPrice(item.Price, item.IsFree))
	if len(item.Tags) > 0 {
		r.writePlain("Tags:      %s\n", strings.Join(item.Tags, ", "))
	}

	var flags []string
	if item.Liked {
		flags = append(flags, "liked")
	}
	if item.Following {
		flags = append(flags, "following")
	}
	if item.Purchased {
		flags = append(flags, "purchased")
	}
	if len(flags) > 0 {
		r.writePlain("You:       %s\n", strings.Join(flags, ", "))
	}
	return nil
}

// CatalogExport fetches every page of a query and writes one export file.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "json", "csv", "markdown", "md", "txt", "text":
	default:
		return fmt.Errorf("%w: --format %q (want json, csv, markdown or txt)", shared.ErrInvalidFlag, format)
	}

	opts := tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		MaxPages:   cmd.Int("max-pages"),
		Cache:      r.cache,
	}

	r.logger.Info("exporting catalog", "kind", q.Kind, "format", format, "workers", opts.NumWorkers)

	updates := make(chan tasks.ProgressUpdate, 32)
	done := r.watch(updates)
	result, err := tasks.ExportCatalog(ctx, updates, r.catalog, q, opts)
	close(updates)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Export complete")
	r.writePlain("File:     %s\n", result.Path)
	r.writePlain("Items:    %s of %s\n", humanize.Comma(int64(result.Items)), humanize.Comma(int64(result.Total)))
	r.writePlain("Pages:    %d\n", result.Pages)
	r.writePlain("Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.FailedPages) > 0 {
		r.writePlainln("⚠ %d pages failed:", len(result.FailedPages))
		for _, pe := range result.FailedPages {
			r.writePlain("  page %d: %v\n", pe.Page, pe.Err)
		}
	}
	return nil
}
