package domain

import "strings"

// AlbumRecord is a themed vocabulary album generated for a category.
// Cache identity is the category string verbatim (case-sensitive).
type AlbumRecord struct {
	Category string      `json:"category"`
	Items    []AlbumItem `json:"items"`
}

// AlbumItem is one entry of an album. IsVisual marks items the view renders
// with an illustration.
type AlbumItem struct {
	Word     string `json:"word"`
	Article  string `json:"article"`
	Gloss    string `json:"zh"`
	IsVisual bool   `json:"isVisual"`
}

// Valid reports whether the album carries a category and at least one item.
// The requested item count is not checked; the model may return fewer.
func (a *AlbumRecord) Valid() bool {
	return a != nil && strings.TrimSpace(a.Category) != "" && len(a.Items) > 0
}
