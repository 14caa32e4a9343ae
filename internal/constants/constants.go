package constants

import "time"

var CacheTTL = struct {
	WordLookup   time.Duration
	AlbumListing time.Duration
}{
	WordLookup:   24 * time.Hour, // shared Redis tier; in-memory tier never expires
	AlbumListing: 24 * time.Hour,
}

var AIInputLimits = struct {
	MaxQueryLength   int
	MaxMessageLength int
	MaxHistoryTurns  int
}{
	MaxQueryLength:   200,
	MaxMessageLength: 1000,
	MaxHistoryTurns:  20,
}

var AlbumConfig = struct {
	RequestedItems int
}{
	RequestedItems: 8, // asked of the model, not enforced on the response
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    1 * time.Hour,
	HealthCheckInterval: 10 * time.Minute,
}

var StoreConfig = struct {
	WordsChannel      string
	AlbumsChannel     string
	ListenMinInterval time.Duration
	ListenMaxInterval time.Duration
}{
	WordsChannel:      "favorites_changed",
	AlbumsChannel:     "favorite_albums_changed",
	ListenMinInterval: 1 * time.Second,
	ListenMaxInterval: 30 * time.Second,
}

var SpeechConfig = struct {
	RequestTimeout     time.Duration
	RecognitionTimeout time.Duration
}{
	RequestTimeout:     15 * time.Second,
	RecognitionTimeout: 30 * time.Second,
}
