package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/internal/domain"
)

// memoryBackend mimics the repository: writes emit change events on the
// attached notifier the way pg_notify does in production.
type memoryBackend struct {
	mu       sync.Mutex
	words    map[string]map[string]domain.FavoriteWord
	albums   map[string]map[string]domain.FavoriteAlbum
	notifier *manualNotifier
	clock    time.Time
	failAll  bool
}

func newMemoryBackend(notifier *manualNotifier) *memoryBackend {
	return &memoryBackend{
		words:    make(map[string]map[string]domain.FavoriteWord),
		albums:   make(map[string]map[string]domain.FavoriteAlbum),
		notifier: notifier,
		clock:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (b *memoryBackend) tick() *time.Time {
	b.clock = b.clock.Add(time.Minute)
	t := b.clock
	return &t
}

var errBackendDown = errors.New("backend down")

func (b *memoryBackend) ListWords(ctx context.Context, userID string) ([]domain.FavoriteWord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return nil, errBackendDown
	}
	var out []domain.FavoriteWord
	for _, w := range b.words[userID] {
		out = append(out, w)
	}
	return out, nil
}

func (b *memoryBackend) ListAlbums(ctx context.Context, userID string) ([]domain.FavoriteAlbum, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return nil, errBackendDown
	}
	var out []domain.FavoriteAlbum
	for _, a := range b.albums[userID] {
		out = append(out, a)
	}
	return out, nil
}

func (b *memoryBackend) HasWord(ctx context.Context, userID, wordID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return false, errBackendDown
	}
	_, ok := b.words[userID][wordID]
	return ok, nil
}

func (b *memoryBackend) HasAlbum(ctx context.Context, userID, albumID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAll {
		return false, errBackendDown
	}
	_, ok := b.albums[userID][albumID]
	return ok, nil
}

func (b *memoryBackend) UpsertWord(ctx context.Context, userID, wordID string, record *domain.WordRecord) error {
	b.mu.Lock()
	if b.failAll {
		b.mu.Unlock()
		return errBackendDown
	}
	if b.words[userID] == nil {
		b.words[userID] = make(map[string]domain.FavoriteWord)
	}
	b.words[userID][wordID] = domain.FavoriteWord{ID: wordID, CreatedAt: b.tick(), WordRecord: *record}
	b.mu.Unlock()
	b.notifier.emit(constants.StoreConfig.WordsChannel, userID)
	return nil
}

func (b *memoryBackend) DeleteWord(ctx context.Context, userID, wordID string) error {
	b.mu.Lock()
	if b.failAll {
		b.mu.Unlock()
		return errBackendDown
	}
	delete(b.words[userID], wordID)
	b.mu.Unlock()
	b.notifier.emit(constants.StoreConfig.WordsChannel, userID)
	return nil
}

func (b *memoryBackend) UpsertAlbum(ctx context.Context, userID, albumID string, record *domain.AlbumRecord) error {
	b.mu.Lock()
	if b.failAll {
		b.mu.Unlock()
		return errBackendDown
	}
	if b.albums[userID] == nil {
		b.albums[userID] = make(map[string]domain.FavoriteAlbum)
	}
	b.albums[userID][albumID] = domain.FavoriteAlbum{ID: albumID, CreatedAt: b.tick(), AlbumRecord: *record}
	b.mu.Unlock()
	b.notifier.emit(constants.StoreConfig.AlbumsChannel, userID)
	return nil
}

func (b *memoryBackend) DeleteAlbum(ctx context.Context, userID, albumID string) error {
	b.mu.Lock()
	if b.failAll {
		b.mu.Unlock()
		return errBackendDown
	}
	delete(b.albums[userID], albumID)
	b.mu.Unlock()
	b.notifier.emit(constants.StoreConfig.AlbumsChannel, userID)
	return nil
}

type manualNotifier struct {
	events chan ChangeEvent
}

func newManualNotifier() *manualNotifier {
	return &manualNotifier{events: make(chan ChangeEvent, 32)}
}

func (n *manualNotifier) Events() <-chan ChangeEvent { return n.events }

func (n *manualNotifier) emit(channel, payload string) {
	n.events <- ChangeEvent{Channel: channel, Payload: payload}
}

func word(name string) *domain.WordRecord {
	return &domain.WordRecord{
		Word:         name,
		Definitions:  map[string]string{"en": "def", "zh": "释义"},
		PartOfSpeech: "noun",
		Collection:   "Test",
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newTestAdapter(t *testing.T) (*FavoritesAdapter, *memoryBackend) {
	t.Helper()
	notifier := newManualNotifier()
	backend := newMemoryBackend(notifier)
	adapter := NewFavoritesAdapter(backend, notifier, zap.NewNop())
	t.Cleanup(adapter.Detach)
	return adapter, backend
}

func TestToggleWordRoundTripsThroughSubscription(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	adapter.ToggleWord(context.Background(), word("Bonjour"))
	waitFor(t, func() bool { return adapter.IsFavoriteWord("bonjour") })

	// Toggling again removes it.
	adapter.ToggleWord(context.Background(), word("Bonjour"))
	waitFor(t, func() bool { return !adapter.IsFavoriteWord("bonjour") })
}

func TestProjectionOrdersNewestFirst(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	for _, w := range []string{"Amour", "Rêve", "Étoile"} {
		adapter.ToggleWord(context.Background(), word(w))
	}
	waitFor(t, func() bool { return len(adapter.Words()) == 3 })

	words := adapter.Words()
	want := []string{"Étoile", "Rêve", "Amour"}
	for i, w := range want {
		if words[i].Word != w {
			t.Errorf("words[%d] = %q, want %q", i, words[i].Word, w)
		}
	}
}

func TestToggleWithoutAttachIsNoOp(t *testing.T) {
	adapter, backend := newTestAdapter(t)

	adapter.ToggleWord(context.Background(), word("Bonjour"))

	backend.mu.Lock()
	stored := len(backend.words["user-1"])
	backend.mu.Unlock()
	if stored != 0 {
		t.Errorf("unattached toggle wrote %d rows", stored)
	}
	if len(adapter.Words()) != 0 {
		t.Errorf("unattached projection has %d entries", len(adapter.Words()))
	}
}

func TestToggleBackendFailureKeepsProjection(t *testing.T) {
	adapter, backend := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	adapter.ToggleWord(context.Background(), word("Bonjour"))
	waitFor(t, func() bool { return adapter.IsFavoriteWord("bonjour") })

	backend.mu.Lock()
	backend.failAll = true
	backend.mu.Unlock()

	// Failure must not surface and must not move the projection.
	adapter.ToggleWord(context.Background(), word("Rêve"))
	time.Sleep(50 * time.Millisecond)

	if len(adapter.Words()) != 1 || !adapter.IsFavoriteWord("bonjour") {
		t.Errorf("projection changed after failed toggle: %v", adapter.Words())
	}
}

func TestDetachClearsProjection(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	adapter.ToggleWord(context.Background(), word("Bonjour"))
	waitFor(t, func() bool { return len(adapter.Words()) == 1 })

	adapter.Detach()
	if len(adapter.Words()) != 0 || len(adapter.Albums()) != 0 {
		t.Error("projection not cleared on detach")
	}
}

func TestEventsForOtherUsersIgnored(t *testing.T) {
	notifier := newManualNotifier()
	backend := newMemoryBackend(notifier)
	adapter := NewFavoritesAdapter(backend, notifier, zap.NewNop())
	t.Cleanup(adapter.Detach)

	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	// Another process writes for a different user.
	backend.UpsertWord(context.Background(), "user-2", "chat", word("Chat"))
	time.Sleep(50 * time.Millisecond)

	if len(adapter.Words()) != 0 {
		t.Errorf("projection picked up another user's favorites: %v", adapter.Words())
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	var mu sync.Mutex
	fired := 0
	unsubscribe := adapter.Subscribe(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	adapter.ToggleWord(context.Background(), word("Bonjour"))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired > 0
	})

	unsubscribe()
	mu.Lock()
	before := fired
	mu.Unlock()

	adapter.ToggleWord(context.Background(), word("Rêve"))
	waitFor(t, func() bool { return len(adapter.Words()) == 2 })

	mu.Lock()
	after := fired
	mu.Unlock()
	if after != before {
		t.Errorf("callback fired %d times after unsubscribe", after-before)
	}
}

func TestToggleAlbumRoundTrips(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	if err := adapter.Attach(context.Background(), "user-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	album := &domain.AlbumRecord{
		Category: "Animaux",
		Items:    []domain.AlbumItem{{Word: "chat", Article: "le", Gloss: "猫"}},
	}
	adapter.ToggleAlbum(context.Background(), album)
	waitFor(t, func() bool { return adapter.IsFavoriteAlbum("Animaux") })

	adapter.ToggleAlbum(context.Background(), album)
	waitFor(t, func() bool { return !adapter.IsFavoriteAlbum("Animaux") })
}
