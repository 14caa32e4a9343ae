// Package lookup layers caching and request ordering on top of the gateway.
// Word cards are cached under both the raw query key and the resolved word,
// so "hello", "Bonjour" and "bonjour" converge on one entry.
package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/cache"
	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/internal/util"
	"github.com/kapu/french-memo-go/pkg/errors"
)

const (
	wordKeyPrefix  = "word:"
	albumKeyPrefix = "album:"
)

var errEmptyQuery = errors.NewAppError("empty lookup key", errors.CodeAppError, 400, nil)

// Source resolves queries that miss every cache tier.
type Source interface {
	LookupWord(ctx context.Context, query string) (*domain.WordRecord, error)
	ListAlbum(ctx context.Context, category string) (*domain.AlbumRecord, error)
}

// SharedCache is the optional cross-process tier (Redis in production).
type SharedCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Service struct {
	source Source
	shared SharedCache
	logger *zap.Logger

	words  *cache.LookupCache[domain.WordRecord]
	albums *cache.LookupCache[domain.AlbumRecord]

	mu          sync.Mutex
	wordEpochs  map[string]uint64
	albumEpochs map[string]uint64
}

// NewService builds a lookup service. shared may be nil when Redis is
// disabled; the in-memory tier always runs.
func NewService(source Source, shared SharedCache, logger *zap.Logger) *Service {
	return &Service{
		source:      source,
		shared:      shared,
		logger:      logger,
		words:       cache.NewLookupCache[domain.WordRecord](),
		albums:      cache.NewLookupCache[domain.AlbumRecord](),
		wordEpochs:  make(map[string]uint64),
		albumEpochs: make(map[string]uint64),
	}
}

// LookupWord resolves a query to a word card. Tiers are consulted in
// order: in-memory, shared, gateway. A gateway result is written back to
// both tiers under the query key and the resolved word's canonical key,
// but only if no newer request for the same key started in the meantime.
func (s *Service) LookupWord(ctx context.Context, query string) (*domain.WordRecord, error) {
	key := util.Normalize(query)
	if key == "" {
		return nil, errEmptyQuery
	}

	if record, ok := s.words.Get(key); ok {
		s.logger.Debug("Word cache hit", zap.String("key", key))
		return record, nil
	}

	if record := s.sharedGetWord(ctx, key); record != nil {
		s.words.Put(key, record)
		s.words.Put(record.CanonicalKey(), record)
		return record, nil
	}

	epoch := s.nextEpoch(s.wordEpochs, key)

	record, err := s.source.LookupWord(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.isCurrentEpoch(s.wordEpochs, key, epoch) {
		s.words.Put(key, record)
		s.words.Put(record.CanonicalKey(), record)
		s.sharedSet(ctx, wordKeyPrefix+key, record, constants.CacheTTL.WordLookup)
		s.sharedSet(ctx, wordKeyPrefix+record.CanonicalKey(), record, constants.CacheTTL.WordLookup)
	} else {
		s.logger.Debug("Discarding stale lookup result",
			zap.String("key", key),
			zap.Uint64("epoch", epoch),
		)
	}

	return record, nil
}

// ListAlbum resolves a category to an album. Category keys are used
// verbatim; "Animaux" and "animaux" are distinct entries.
func (s *Service) ListAlbum(ctx context.Context, category string) (*domain.AlbumRecord, error) {
	if category == "" {
		return nil, errEmptyQuery
	}

	if record, ok := s.albums.Get(category); ok {
		s.logger.Debug("Album cache hit", zap.String("category", category))
		return record, nil
	}

	if record := s.sharedGetAlbum(ctx, category); record != nil {
		s.albums.Put(category, record)
		return record, nil
	}

	epoch := s.nextEpoch(s.albumEpochs, category)

	record, err := s.source.ListAlbum(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.isCurrentEpoch(s.albumEpochs, category, epoch) {
		s.albums.Put(category, record)
		s.sharedSet(ctx, albumKeyPrefix+category, record, constants.CacheTTL.AlbumListing)
	}

	return record, nil
}

// Warm pre-resolves the discovery words so the first random pick is
// cache-hot. Individual failures are logged and skipped; warm-up never
// blocks startup on a broken backend.
func (s *Service) Warm(ctx context.Context, words []string) {
	if len(words) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(4)
	for _, word := range words {
		p.Go(func() {
			if _, err := s.LookupWord(ctx, word); err != nil {
				s.logger.Warn("Discovery warm-up failed",
					zap.String("word", word),
					zap.Error(err),
				)
			}
		})
	}
	p.Wait()

	s.logger.Info("Discovery warm-up finished",
		zap.Int("requested", len(words)),
		zap.Int("cached", s.words.Len()),
	)
}

// CachedWords reports the in-memory word entry count.
func (s *Service) CachedWords() int {
	return s.words.Len()
}

// CachedAlbums reports the in-memory album entry count.
func (s *Service) CachedAlbums() int {
	return s.albums.Len()
}

func (s *Service) nextEpoch(epochs map[string]uint64, key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	epochs[key]++
	return epochs[key]
}

func (s *Service) isCurrentEpoch(epochs map[string]uint64, key string, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return epochs[key] == epoch
}

func (s *Service) sharedGetWord(ctx context.Context, key string) *domain.WordRecord {
	if s.shared == nil {
		return nil
	}
	var record domain.WordRecord
	found, err := s.shared.Get(ctx, wordKeyPrefix+key, &record)
	if err != nil {
		s.logger.Warn("Shared cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !found || !record.Valid() {
		return nil
	}
	return &record
}

func (s *Service) sharedGetAlbum(ctx context.Context, category string) *domain.AlbumRecord {
	if s.shared == nil {
		return nil
	}
	var record domain.AlbumRecord
	found, err := s.shared.Get(ctx, albumKeyPrefix+category, &record)
	if err != nil {
		s.logger.Warn("Shared cache read failed", zap.String("category", category), zap.Error(err))
		return nil
	}
	if !found || !record.Valid() {
		return nil
	}
	return &record
}

func (s *Service) sharedSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.shared == nil {
		return
	}
	if err := s.shared.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Shared cache write failed", zap.String("key", key), zap.Error(err))
	}
}
