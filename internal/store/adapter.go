package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/internal/domain"
)

// Backend is the persistence surface the adapter writes through.
type Backend interface {
	ListWords(ctx context.Context, userID string) ([]domain.FavoriteWord, error)
	ListAlbums(ctx context.Context, userID string) ([]domain.FavoriteAlbum, error)
	HasWord(ctx context.Context, userID, wordID string) (bool, error)
	HasAlbum(ctx context.Context, userID, albumID string) (bool, error)
	UpsertWord(ctx context.Context, userID, wordID string, record *domain.WordRecord) error
	DeleteWord(ctx context.Context, userID, wordID string) error
	UpsertAlbum(ctx context.Context, userID, albumID string, record *domain.AlbumRecord) error
	DeleteAlbum(ctx context.Context, userID, albumID string) error
}

// Notifier delivers change events for the adapter to resync on.
type Notifier interface {
	Events() <-chan ChangeEvent
}

// FavoritesAdapter keeps an in-memory projection of one user's favorites.
// Writes go straight to the backend; the projection never mutates
// optimistically and only moves when a change event arrives, so the
// adapter's own writes and foreign writes take the identical path. A
// single goroutine owns all projection updates.
type FavoritesAdapter struct {
	backend  Backend
	notifier Notifier
	logger   *zap.Logger

	mu          sync.RWMutex
	userID      string
	words       []domain.FavoriteWord
	albums      []domain.FavoriteAlbum
	subscribers map[int]func()
	nextSubID   int

	stop chan struct{}
	done chan struct{}
}

func NewFavoritesAdapter(backend Backend, notifier Notifier, logger *zap.Logger) *FavoritesAdapter {
	return &FavoritesAdapter{
		backend:     backend,
		notifier:    notifier,
		logger:      logger,
		subscribers: make(map[int]func()),
	}
}

// Attach binds the adapter to a user, loads the initial projection and
// starts consuming change events. Attaching while already attached
// detaches first.
func (a *FavoritesAdapter) Attach(ctx context.Context, userID string) error {
	a.Detach()

	a.mu.Lock()
	a.userID = userID
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	stop, done := a.stop, a.done
	a.mu.Unlock()

	a.reloadWords(ctx, userID)
	a.reloadAlbums(ctx, userID)

	go a.run(userID, stop, done)

	a.logger.Info("Favorites adapter attached", zap.String("user_id", userID))
	return nil
}

// Detach stops event consumption and clears the projection.
func (a *FavoritesAdapter) Detach() {
	a.mu.Lock()
	if a.userID == "" {
		a.mu.Unlock()
		return
	}
	userID := a.userID
	a.userID = ""
	a.words = nil
	a.albums = nil
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.mu.Unlock()

	close(stop)
	<-done

	a.logger.Info("Favorites adapter detached", zap.String("user_id", userID))
	a.broadcast()
}

// run is the projection's single writer.
func (a *FavoritesAdapter) run(userID string, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case event, ok := <-a.notifier.Events():
			if !ok {
				return
			}
			// Events for other users carry their id in the payload; an
			// empty payload is a resync request covering everyone.
			if event.Payload != "" && event.Payload != userID {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			switch event.Channel {
			case constants.StoreConfig.WordsChannel:
				a.reloadWords(ctx, userID)
			case constants.StoreConfig.AlbumsChannel:
				a.reloadAlbums(ctx, userID)
			default:
				a.logger.Warn("Ignoring event on unknown channel",
					zap.String("channel", event.Channel),
				)
			}
			cancel()
		}
	}
}

func (a *FavoritesAdapter) reloadWords(ctx context.Context, userID string) {
	words, err := a.backend.ListWords(ctx, userID)
	if err != nil {
		a.logger.Warn("Favorite words reload failed, keeping previous projection",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	domain.SortFavoriteWords(words)

	a.mu.Lock()
	if a.userID != userID {
		a.mu.Unlock()
		return
	}
	a.words = words
	a.mu.Unlock()

	a.broadcast()
}

func (a *FavoritesAdapter) reloadAlbums(ctx context.Context, userID string) {
	albums, err := a.backend.ListAlbums(ctx, userID)
	if err != nil {
		a.logger.Warn("Favorite albums reload failed, keeping previous projection",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	domain.SortFavoriteAlbums(albums)

	a.mu.Lock()
	if a.userID != userID {
		a.mu.Unlock()
		return
	}
	a.albums = albums
	a.mu.Unlock()

	a.broadcast()
}

// ToggleWord adds the word to favorites, or removes it when already
// present. Without an attached user this is a logged no-op, and backend
// failures are logged rather than surfaced; the projection simply stays
// where it was.
func (a *FavoritesAdapter) ToggleWord(ctx context.Context, record *domain.WordRecord) {
	userID := a.currentUser()
	if userID == "" {
		a.logger.Debug("Toggle ignored, no user attached", zap.String("word", record.Word))
		return
	}

	wordID := record.CanonicalKey()
	has, err := a.backend.HasWord(ctx, userID, wordID)
	if err != nil {
		a.logger.Warn("Favorite word toggle failed",
			zap.String("word_id", wordID),
			zap.Error(err),
		)
		return
	}

	if has {
		err = a.backend.DeleteWord(ctx, userID, wordID)
	} else {
		err = a.backend.UpsertWord(ctx, userID, wordID, record)
	}
	if err != nil {
		a.logger.Warn("Favorite word toggle failed",
			zap.String("word_id", wordID),
			zap.Bool("was_favorite", has),
			zap.Error(err),
		)
	}
}

// ToggleAlbum mirrors ToggleWord for albums. Album identity is the
// category verbatim.
func (a *FavoritesAdapter) ToggleAlbum(ctx context.Context, record *domain.AlbumRecord) {
	userID := a.currentUser()
	if userID == "" {
		a.logger.Debug("Toggle ignored, no user attached", zap.String("category", record.Category))
		return
	}

	albumID := record.Category
	has, err := a.backend.HasAlbum(ctx, userID, albumID)
	if err != nil {
		a.logger.Warn("Favorite album toggle failed",
			zap.String("album_id", albumID),
			zap.Error(err),
		)
		return
	}

	if has {
		err = a.backend.DeleteAlbum(ctx, userID, albumID)
	} else {
		err = a.backend.UpsertAlbum(ctx, userID, albumID, record)
	}
	if err != nil {
		a.logger.Warn("Favorite album toggle failed",
			zap.String("album_id", albumID),
			zap.Bool("was_favorite", has),
			zap.Error(err),
		)
	}
}

// Words returns a copy of the current projection, newest first.
func (a *FavoritesAdapter) Words() []domain.FavoriteWord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.FavoriteWord, len(a.words))
	copy(out, a.words)
	return out
}

// Albums returns a copy of the current projection, newest first.
func (a *FavoritesAdapter) Albums() []domain.FavoriteAlbum {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.FavoriteAlbum, len(a.albums))
	copy(out, a.albums)
	return out
}

// IsFavoriteWord reports whether the projection currently holds the word.
func (a *FavoritesAdapter) IsFavoriteWord(wordID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, w := range a.words {
		if w.ID == wordID {
			return true
		}
	}
	return false
}

// IsFavoriteAlbum reports whether the projection currently holds the album.
func (a *FavoritesAdapter) IsFavoriteAlbum(albumID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, al := range a.albums {
		if al.ID == albumID {
			return true
		}
	}
	return false
}

// Subscribe registers a callback fired after every projection change.
// The returned function removes the subscription.
func (a *FavoritesAdapter) Subscribe(fn func()) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

func (a *FavoritesAdapter) broadcast() {
	a.mu.RLock()
	callbacks := make([]func(), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		callbacks = append(callbacks, fn)
	}
	a.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (a *FavoritesAdapter) currentUser() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}
