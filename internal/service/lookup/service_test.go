package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/domain"
)

type fakeSource struct {
	mu          sync.Mutex
	wordCalls   int
	albumCalls  int
	block       chan struct{}
	wordRecord  *domain.WordRecord
	albumRecord *domain.AlbumRecord
	err         error
}

func (f *fakeSource) LookupWord(ctx context.Context, query string) (*domain.WordRecord, error) {
	f.mu.Lock()
	f.wordCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.wordRecord, nil
}

func (f *fakeSource) ListAlbum(ctx context.Context, category string) (*domain.AlbumRecord, error) {
	f.mu.Lock()
	f.albumCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.albumRecord, nil
}

type fakeShared struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newFakeShared() *fakeShared {
	return &fakeShared{entries: make(map[string][]byte)}
}

func (f *fakeShared) Get(ctx context.Context, key string, dest any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return false, f.getErr
	}
	data, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (f *fakeShared) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = data
	return nil
}

func testWord() *domain.WordRecord {
	return &domain.WordRecord{
		Word:         "Bonjour",
		Definitions:  map[string]string{"en": "Hello", "zh": "你好"},
		PartOfSpeech: "interjection",
		Collection:   "Greetings",
	}
}

func TestLookupWordCachesUnderBothKeys(t *testing.T) {
	source := &fakeSource{wordRecord: testWord()}
	svc := NewService(source, nil, zap.NewNop())

	first, err := svc.LookupWord(context.Background(), "hello")
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if first.Word != "Bonjour" {
		t.Fatalf("word = %q", first.Word)
	}

	// Query key and resolved word both hit without another source call.
	if _, err := svc.LookupWord(context.Background(), "HELLO"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if _, err := svc.LookupWord(context.Background(), "Bonjour"); err != nil {
		t.Fatalf("canonical lookup: %v", err)
	}
	if source.wordCalls != 1 {
		t.Errorf("source calls = %d, want 1", source.wordCalls)
	}
	if svc.CachedWords() != 2 {
		t.Errorf("cached entries = %d, want 2", svc.CachedWords())
	}
}

func TestLookupWordFailureIsNotCached(t *testing.T) {
	source := &fakeSource{err: errors.New("backend down")}
	svc := NewService(source, nil, zap.NewNop())

	if _, err := svc.LookupWord(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if svc.CachedWords() != 0 {
		t.Errorf("failed lookup cached %d entries", svc.CachedWords())
	}

	source.err = nil
	source.wordRecord = testWord()
	if _, err := svc.LookupWord(context.Background(), "hello"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if source.wordCalls != 2 {
		t.Errorf("source calls = %d, want 2", source.wordCalls)
	}
}

func TestLookupWordStaleResultNotWritten(t *testing.T) {
	block := make(chan struct{})
	source := &fakeSource{wordRecord: testWord(), block: block}
	svc := NewService(source, nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.LookupWord(context.Background(), "hello")
	}()

	// A second request for the same key supersedes the first.
	go svc.LookupWord(context.Background(), "hello")

	// Give both goroutines time to register their epochs, then release.
	time.Sleep(50 * time.Millisecond)
	close(block)
	<-done

	// Only the newest epoch writes; the superseded request's result is
	// returned to its caller but never cached over the fresher one.
	if svc.CachedWords() > 2 {
		t.Errorf("cached entries = %d, want at most 2", svc.CachedWords())
	}
}

func TestLookupWordUsesSharedTier(t *testing.T) {
	shared := newFakeShared()
	record := testWord()
	if err := shared.Set(context.Background(), "word:hello", record, time.Hour); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{err: errors.New("should not be called")}
	svc := NewService(source, shared, zap.NewNop())

	got, err := svc.LookupWord(context.Background(), "hello")
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if got.Word != "Bonjour" {
		t.Errorf("word = %q", got.Word)
	}
	if source.wordCalls != 0 {
		t.Errorf("source called %d times with warm shared tier", source.wordCalls)
	}
}

func TestLookupWordSharedTierErrorFallsThrough(t *testing.T) {
	shared := newFakeShared()
	shared.getErr = errors.New("redis: connection refused")

	source := &fakeSource{wordRecord: testWord()}
	svc := NewService(source, shared, zap.NewNop())

	if _, err := svc.LookupWord(context.Background(), "hello"); err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if source.wordCalls != 1 {
		t.Errorf("source calls = %d, want 1", source.wordCalls)
	}
}

func TestListAlbumKeysAreVerbatim(t *testing.T) {
	source := &fakeSource{albumRecord: &domain.AlbumRecord{
		Category: "Animaux",
		Items:    []domain.AlbumItem{{Word: "chat", Article: "le", Gloss: "猫"}},
	}}
	svc := NewService(source, nil, zap.NewNop())

	if _, err := svc.ListAlbum(context.Background(), "Animaux"); err != nil {
		t.Fatalf("ListAlbum: %v", err)
	}
	if _, err := svc.ListAlbum(context.Background(), "animaux"); err != nil {
		t.Fatalf("ListAlbum lowercase: %v", err)
	}
	if source.albumCalls != 2 {
		t.Errorf("source calls = %d, want 2 for case-distinct categories", source.albumCalls)
	}
}

func TestLookupWordRejectsBlankQuery(t *testing.T) {
	svc := NewService(&fakeSource{}, nil, zap.NewNop())
	if _, err := svc.LookupWord(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank query")
	}
}
