package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

var _ list.DefaultItem = catalogItem{}

// catalogItem wraps [models.Item] to implement [list.DefaultItem].
type catalogItem struct {
	item models.Item
}

func (i catalogItem) FilterValue() string { return i.item.Title }

func (i catalogItem) Title() string {
	title := i.item.Title
	if i.item.Liked {
		title += " ♥"
	}
	return title
}

func (i catalogItem) Description() string {
	parts := make([]string, 0, 4)
	if i.item.Artist != "" {
		parts = append(parts, i.item.Artist)
	}
	if i.item.Category != "" {
		parts = append(parts, i.item.Category)
	}
	if i.item.Duration > 0 {
		parts = append(parts, shared.FormatDuration(i.item.Duration))
	}
	price := shared.FormatPrice(i.item.Price, i.item.IsFree)
	if i.item.Purchased {
		price = "owned"
	}
	parts = append(parts, price)
	return strings.Join(parts, " • ")
}

func toListItems(items []models.Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		out[i] = catalogItem{item: item}
	}
	return out
}

// playable reports whether kind has audio or video previews.
func playable(kind models.Kind) bool {
	return kind == models.KindSounds || kind == models.KindClips
}
