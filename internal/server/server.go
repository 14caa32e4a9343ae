// Package server exposes the app over HTTP: JSON endpoints for lookups,
// chat, favorites and speech, plus a websocket feed that pushes favorites
// projection changes to the view layer.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/domain"
)

// LookupService resolves words and albums through the cache tiers.
type LookupService interface {
	LookupWord(ctx context.Context, query string) (*domain.WordRecord, error)
	ListAlbum(ctx context.Context, category string) (*domain.AlbumRecord, error)
}

// ChatController drives the tutor conversation.
type ChatController interface {
	Send(ctx context.Context, message string) (*domain.ChatTurn, error)
	Transcript() []domain.ChatTurn
	ToggleTranslation(index int)
}

// Favorites is the projection surface the handlers and the websocket feed
// consume.
type Favorites interface {
	Words() []domain.FavoriteWord
	Albums() []domain.FavoriteAlbum
	ToggleWord(ctx context.Context, record *domain.WordRecord)
	ToggleAlbum(ctx context.Context, record *domain.AlbumRecord)
	IsFavoriteWord(wordID string) bool
	IsFavoriteAlbum(albumID string) bool
	Subscribe(fn func()) func()
}

// SpeechOut voices text.
type SpeechOut interface {
	Speak(ctx context.Context, text string) error
	Stop()
	Available() bool
}

// SpeechIn runs one-shot recognition.
type SpeechIn interface {
	Listen(ctx context.Context) (string, error)
	Available() bool
}

// Config carries the server's own settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	DiscoveryWords  []string
}

type Server struct {
	config      Config
	lookup      LookupService
	chat        ChatController
	favorites   Favorites
	synthesizer SpeechOut
	recognizer  SpeechIn
	logger      *zap.Logger

	engine *gin.Engine
	http   *http.Server
}

func NewServer(
	config Config,
	lookup LookupService,
	chat ChatController,
	favorites Favorites,
	synthesizer SpeechOut,
	recognizer SpeechIn,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:      config,
		lookup:      lookup,
		chat:        chat,
		favorites:   favorites,
		synthesizer: synthesizer,
		recognizer:  recognizer,
		logger:      logger,
		engine:      gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:    config.Addr,
		Handler: s.engine,
	}

	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/search", s.handleSearch)
		api.GET("/discovery", s.handleDiscovery)
		api.GET("/albums/:category", s.handleAlbum)

		api.GET("/chat", s.handleChatTranscript)
		api.POST("/chat", s.handleChatSend)
		api.POST("/chat/:index/translation", s.handleChatToggleTranslation)

		api.GET("/favorites/words", s.handleFavoriteWords)
		api.GET("/favorites/albums", s.handleFavoriteAlbums)
		api.POST("/favorites/words/toggle", s.handleToggleFavoriteWord)
		api.POST("/favorites/albums/toggle", s.handleToggleFavoriteAlbum)

		api.POST("/speech/speak", s.handleSpeak)
		api.POST("/speech/stop", s.handleStopSpeaking)
		api.POST("/speech/listen", s.handleListen)
	}

	s.engine.GET("/ws/favorites", s.handleFavoritesFeed)
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.config.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
