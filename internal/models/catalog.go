package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Kind names a catalog collection; it is also the API path segment.
type Kind string

const (
	KindSounds       Kind = "sounds"
	KindClips        Kind = "clips"
	KindArtists      Kind = "artists"
	KindCompetitions Kind = "competitions"
	KindEvents       Kind = "events"
)

// Kinds lists every browsable collection.
var Kinds = []Kind{KindSounds, KindClips, KindArtists, KindCompetitions, KindEvents}

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown catalog kind %q", s)
}

// ID is a remote identifier. The API sends numbers for most resources and
// strings for some, so both decode into the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// StatusFlags are the current user's relationship to an item.
type StatusFlags struct {
	Liked     bool `json:"liked"`
	Following bool `json:"following"`
	Purchased bool `json:"purchased"`
}

// Item is a single catalog listing.
type Item struct {
	Kind     Kind     `json:"kind,omitempty"`
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist,omitempty"`
	Category string   `json:"category,omitempty"`
	Price    float64  `json:"price"`
	IsFree   bool     `json:"is_free"`
	Tags     []string `json:"tags,omitempty"`
	Duration int      `json:"duration,omitempty"`

	StatusFlags
}

// ApplyStatus copies flags onto the item.
func (i *Item) ApplyStatus(flags StatusFlags) {
	i.StatusFlags = flags
}

// Query describes one catalog request.
type Query struct {
	Kind    Kind
	Search  string
	Filters map[string]string
	Sort    string
	Page    int
	PerPage int
}

// DefaultPerPage is used when a Query leaves PerPage unset.
const DefaultPerPage = 20

// Normalize fills in page defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	return q
}

// Values encodes the query string: search, sort, filter[key], page, per_page.
func (q Query) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	for key, value := range q.Filters {
		if value != "" {
			v.Set("filter["+key+"]", value)
		}
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	return v
}

// Page is one page of catalog results.
type Page struct {
	Items    []Item `json:"data"`
	Page     int    `json:"current_page"`
	PerPage  int    `json:"per_page"`
	Total    int    `json:"total"`
	LastPage int    `json:"last_page"`
}

// HasMore reports whether a later page exists.
func (p Page) HasMore() bool {
	return p.Page < p.LastPage
}

// IDs returns the item ids in page order.
func (p Page) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, string(item.ID))
	}
	return ids
}
