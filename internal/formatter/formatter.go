// package formatter renders catalog pages and wizard payloads for files and terminals (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// Formats lists the export formats accepted by [WriteExport].
var Formats = []string{"json", "csv", "markdown", "txt"}

// CatalogExport is a set of catalog items collected for one query.
type CatalogExport struct {
	Kind       models.Kind       `json:"kind"`
	Search     string            `json:"search,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Sort       string            `json:"sort,omitempty"`
	Total      int               `json:"total"`
	Pages      int               `json:"pages"`
	ExportedAt time.Time         `json:"exported_at"`
	Items      []models.Item     `json:"items"`
}

// NewCatalogExport starts an export for q.
func NewCatalogExport(q models.Query) *CatalogExport {
	return &CatalogExport{
		Kind:       q.Kind,
		Search:     q.Search,
		Filters:    q.Filters,
		Sort:       q.Sort,
		ExportedAt: time.Now().UTC(),
	}
}

// Title is a heading such as `Sounds matching "rain"`.
func (e *CatalogExport) Title() string {
	title := cases.Title(language.English).String(string(e.Kind))
	if e.Search != "" {
		title += fmt.Sprintf(" matching %q", e.Search)
	}
	return title
}

// Basename is a filesystem-safe name derived from the kind and search.
func (e *CatalogExport) Basename() string {
	return shared.Slugify(strings.TrimSpace(string(e.Kind)+" "+e.Search), "catalog")
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// ExportToCSV renders one row per item with columns: ID, Title, Artist, Category, Price, Free, Duration, Tags, Liked, Following, Purchased
func ExportToCSV(export *CatalogExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Category", "Price", "Free", "Duration", "Tags", "Liked", "Following", "Purchased"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			string(item.ID),
			item.Title,
			item.Artist,
			item.Category,
			strconv.FormatFloat(item.Price, 'f', 2, 64),
			flag(item.IsFree),
			strconv.Itoa(item.Duration),
			strings.Join(item.Tags, ";"),
			flag(item.Liked),
			flag(item.Following),
			flag(item.Purchased),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// itemLine renders "Artist - Title (Category) [m:ss] $1.50".
func itemLine(item models.Item) string {
	var b strings.Builder
	if item.Artist != "" {
		b.WriteString(item.Artist + " - ")
	}
	b.WriteString(item.Title)
	if item.Category != "" {
		fmt.Fprintf(&b, " (%s)", item.Category)
	}
	if item.Duration > 0 {
		fmt.Fprintf(&b, " [%s]", shared.FormatDuration(item.Duration))
	}
	fmt.Fprintf(&b, " %s", shared.FormatPrice(item.Price, item.IsFree))
	return b.String()
}

// ExportToMarkdown renders a heading, the query and a numbered item list.
func ExportToMarkdown(export *CatalogExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title())

	if len(export.Filters) > 0 {
		keys := make([]string, 0, len(export.Filters))
		for k := range export.Filters {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, export.Filters[k]))
		}
		fmt.Fprintf(&buf, "**Filters**: %s\n", strings.Join(parts, ", "))
	}
	if export.Sort != "" {
		fmt.Fprintf(&buf, "**Sort**: %s\n", export.Sort)
	}
	fmt.Fprintf(&buf, "**Items**: %d of %d\n", len(export.Items), export.Total)
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	buf.WriteString("## Items\n\n")
	for i, item := range export.Items {
		marks := ""
		if item.Liked {
			marks += " ♥"
		}
		if item.Purchased {
			marks += " ✓"
		}
		fmt.Fprintf(&buf, "%d. %s%s\n", i+1, itemLine(item), marks)
	}
	return buf.Bytes(), nil
}

// ExportToText renders a plain list.
func ExportToText(export *CatalogExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title())
	fmt.Fprintf(&buf, "Items: %d\n\n", len(export.Items))
	for i, item := range export.Items {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, itemLine(item))
	}
	return buf.Bytes(), nil
}

// ExportToJSON renders the export with its query metadata.
func ExportToJSON(export *CatalogExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// WriteExport writes export to dir as {basename}.{ext} and returns the path.
//
// Unknown formats fall back to JSON.
func WriteExport(export *CatalogExport, format, dir string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case "csv":
		data, err = ExportToCSV(export)
		ext = "csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(export)
		ext = "md"
	case "txt", "text":
		data, err = ExportToText(export)
		ext = "txt"
	default:
		data, err = ExportToJSON(export)
		ext = "json"
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s export: %w", ext, err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, export.Basename()+"."+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
