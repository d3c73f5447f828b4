package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// CatalogItemRepository implements models.Repository[*models.CachedItem].
//
// Rows are unique per (kind, remote_id); status flags and tags are not cached.
type CatalogItemRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.CachedItem] = (*CatalogItemRepository)(nil)

// NewCatalogItemRepository creates a new CatalogItemRepository with the given database connection
func NewCatalogItemRepository(db *sql.DB) *CatalogItemRepository {
	return &CatalogItemRepository{db: db}
}

const catalogItemColumns = `id, sequence, kind, remote_id, title, artist, category, price, is_free, duration,
	created_at, updated_at, deleted_at`

// Create inserts a cached item with generated ID and sequence
func (r *CatalogItemRepository) Create(c *models.CachedItem) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "catalog_items")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	c.SetID(id)
	c.SetSequence(sequence)

	item := c.Item()
	query := `
		INSERT INTO catalog_items (` + catalogItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		string(item.Kind),
		string(item.ID),
		item.Title,
		nullString(item.Artist),
		nullString(item.Category),
		item.Price,
		item.IsFree,
		item.Duration,
		c.CreatedAt(),
		c.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert catalog item: %w", err)
	}
	return nil
}

// Get retrieves a cached item by local ID
func (r *CatalogItemRepository) Get(id string) (*models.CachedItem, error) {
	query := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE id = ? AND deleted_at IS NULL`
	c, err := scanCatalogItem(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog item %s: %w", id, errNotFound)
	}
	return c, err
}

// GetByRemoteID retrieves a cached item by kind and server id
func (r *CatalogItemRepository) GetByRemoteID(kind models.Kind, remoteID string) (*models.CachedItem, error) {
	query := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE kind = ? AND remote_id = ? AND deleted_at IS NULL`
	c, err := scanCatalogItem(r.db.QueryRow(query, string(kind), remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, remoteID, errNotFound)
	}
	return c, err
}

// Update overwrites the listing fields of a cached item
func (r *CatalogItemRepository) Update(c *models.CachedItem) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	c.SetUpdatedAt(now)
	item := c.Item()

	query := `
		UPDATE catalog_items
		SET title = ?, artist = ?, category = ?, price = ?, is_free = ?, duration = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		item.Title,
		nullString(item.Artist),
		nullString(item.Category),
		item.Price,
		item.IsFree,
		item.Duration,
		now,
		c.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update catalog item: %w", err)
	}
	return checkAffected(result, "catalog item", c.ID())
}

// Delete soft-deletes a cached item by ID
func (r *CatalogItemRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE catalog_items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog item: %w", err)
	}
	return checkAffected(result, "catalog item", id)
}

// List retrieves cached items in insertion order.
//
// Criteria: "kind" (models.Kind or string) and "search" (title substring).
func (r *CatalogItemRepository) List(criteria map[string]any) ([]*models.CachedItem, error) {
	query := `SELECT ` + catalogItemColumns + ` FROM catalog_items WHERE deleted_at IS NULL`
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.Kind:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, string(kind))
		}
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND title LIKE ?"
		args = append(args, "%"+search+"%")
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer rows.Close()

	var out []*models.CachedItem
	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func scanCatalogItem(row rowScanner) (*models.CachedItem, error) {
	var (
		id        string
		sequence  int
		kind      string
		remoteID  string
		title     string
		artist    sql.NullString
		category  sql.NullString
		price     float64
		isFree    bool
		duration  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &remoteID, &title, &artist, &category, &price, &isFree, &duration,
		&createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan catalog item: %w", err)
	}

	c := models.NewCachedItem(sequence, models.Item{
		Kind:     models.Kind(kind),
		ID:       models.ID(remoteID),
		Title:    title,
		Artist:   artist.String,
		Category: category.String,
		Price:    price,
		IsFree:   isFree,
		Duration: duration,
	})
	c.SetID(id)
	c.SetCreatedAt(createdAt)
	c.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		c.SetDeletedAt(&deletedAt.Time)
	}
	return c, nil
}
