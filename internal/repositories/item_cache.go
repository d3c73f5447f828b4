package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/marquee/internal/models"
)

// ItemCacheAdapter writes browsed items into [CatalogItemRepository].
//
// Existing (kind, remote_id) rows are refreshed in place; UNIQUE constraint races are ignored.
type ItemCacheAdapter struct {
	repo *CatalogItemRepository
}

// NewItemCacheAdapter creates a new ItemCacheAdapter with the given repository
func NewItemCacheAdapter(repo *CatalogItemRepository) *ItemCacheAdapter {
	return &ItemCacheAdapter{repo: repo}
}

// CacheItem inserts item or refreshes the cached copy.
func (a *ItemCacheAdapter) CacheItem(item models.Item) error {
	existing, err := a.repo.GetByRemoteID(item.Kind, string(item.ID))
	if err == nil {
		existing.SetItem(item)
		return a.repo.Update(existing)
	}
	if !errors.Is(err, errNotFound) {
		return fmt.Errorf("failed to look up cached item: %w", err)
	}

	if err := a.repo.Create(models.NewCachedItem(0, item)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache item: %w", err)
	}
	return nil
}

// CacheItems caches each item and returns how many were written. It stops at the first failure.
func (a *ItemCacheAdapter) CacheItems(items []models.Item) (int, error) {
	for i, item := range items {
		if err := a.CacheItem(item); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
