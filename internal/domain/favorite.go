package domain

import "time"

// FavoriteWord is a WordRecord owned by the remote store: the ID and
// CreatedAt are server-assigned and local copies are read-only projections
// refreshed by the subscription.
type FavoriteWord struct {
	ID        string     `json:"id"`
	CreatedAt *time.Time `json:"timestamp,omitempty"`
	WordRecord
}

// FavoriteAlbum is an AlbumRecord owned by the remote store.
type FavoriteAlbum struct {
	ID        string     `json:"id"`
	CreatedAt *time.Time `json:"timestamp,omitempty"`
	AlbumRecord
}

// SortFavoriteWords orders a projection by descending creation timestamp.
// A missing timestamp sorts as oldest; ties keep their stable order.
func SortFavoriteWords(favs []FavoriteWord) {
	stableSortByCreatedAt(len(favs),
		func(i int) *time.Time { return favs[i].CreatedAt },
		func(i, j int) { favs[i], favs[j] = favs[j], favs[i] })
}

// SortFavoriteAlbums orders a projection by descending creation timestamp.
func SortFavoriteAlbums(favs []FavoriteAlbum) {
	stableSortByCreatedAt(len(favs),
		func(i int) *time.Time { return favs[i].CreatedAt },
		func(i, j int) { favs[i], favs[j] = favs[j], favs[i] })
}

// stableSortByCreatedAt is an insertion sort: projections are small and the
// stable tie order matters more than asymptotics.
func stableSortByCreatedAt(n int, at func(int) *time.Time, swap func(i, j int)) {
	for i := 1; i < n; i++ {
		for j := i; j > 0 && newer(at(j), at(j-1)); j-- {
			swap(j, j-1)
		}
	}
}

func newer(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
