package domain

import (
	"testing"
	"time"
)

func ts(minute int) *time.Time {
	t := time.Date(2025, 3, 1, 12, minute, 0, 0, time.UTC)
	return &t
}

func TestSortFavoriteWordsNewestFirst(t *testing.T) {
	favs := []FavoriteWord{
		{ID: "a", CreatedAt: ts(1)},
		{ID: "c", CreatedAt: ts(3)},
		{ID: "b", CreatedAt: ts(2)},
	}

	SortFavoriteWords(favs)

	want := []string{"c", "b", "a"}
	for i, id := range want {
		if favs[i].ID != id {
			t.Errorf("favs[%d] = %q, want %q", i, favs[i].ID, id)
		}
	}
}

func TestSortFavoriteWordsNilTimestampSortsOldest(t *testing.T) {
	favs := []FavoriteWord{
		{ID: "none"},
		{ID: "new", CreatedAt: ts(5)},
	}

	SortFavoriteWords(favs)

	if favs[0].ID != "new" || favs[1].ID != "none" {
		t.Errorf("order = %q, %q", favs[0].ID, favs[1].ID)
	}
}

func TestSortFavoriteWordsTiesAreStable(t *testing.T) {
	favs := []FavoriteWord{
		{ID: "first", CreatedAt: ts(1)},
		{ID: "second", CreatedAt: ts(1)},
		{ID: "third", CreatedAt: ts(1)},
	}

	SortFavoriteWords(favs)

	want := []string{"first", "second", "third"}
	for i, id := range want {
		if favs[i].ID != id {
			t.Errorf("favs[%d] = %q, want %q", i, favs[i].ID, id)
		}
	}
}

func TestSortFavoriteAlbums(t *testing.T) {
	favs := []FavoriteAlbum{
		{ID: "old", CreatedAt: ts(1)},
		{ID: "new", CreatedAt: ts(9)},
	}

	SortFavoriteAlbums(favs)

	if favs[0].ID != "new" {
		t.Errorf("favs[0] = %q, want new", favs[0].ID)
	}
}

func TestWordRecordCanonicalKey(t *testing.T) {
	w := WordRecord{Word: "Bonjour"}
	if w.CanonicalKey() != "bonjour" {
		t.Errorf("canonical key = %q", w.CanonicalKey())
	}
}
