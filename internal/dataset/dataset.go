package dataset

import (
	"strings"
	"time"
)

// Interaction is one user-item event from a ratings file.
type Interaction struct {
	UserID    string
	ItemID    string
	Rating    float64
	Timestamp time.Time
}

// Item is a catalog entry. Description is optional; most MovieLens-style
// catalogs only carry title and genres.
type Item struct {
	ID          string
	Title       string
	Genres      []string
	Description string
}

// Text joins the item's textual fields into the string that gets indexed.
func (it Item) Text() string {
	parts := make([]string, 0, 3)
	if it.Title != "" {
		parts = append(parts, it.Title)
	}
	if len(it.Genres) > 0 {
		parts = append(parts, strings.Join(it.Genres, " "))
	}
	if it.Description != "" {
		parts = append(parts, it.Description)
	}
	return strings.Join(parts, " ")
}

// Dataset bundles the loaded interactions and catalog.
type Dataset struct {
	Interactions []Interaction
	Items        map[string]Item
}

// ByUser groups interactions by user id, preserving file order.
func ByUser(interactions []Interaction) map[string][]Interaction {
	users := make(map[string][]Interaction)
	for _, in := range interactions {
		users[in.UserID] = append(users[in.UserID], in)
	}
	return users
}
