// Package app wires the services together. Construction order follows the
// dependency graph; teardown runs the registered closers in reverse.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/chat"
	"github.com/kapu/french-memo-go/internal/config"
	"github.com/kapu/french-memo-go/internal/gateway"
	"github.com/kapu/french-memo-go/internal/identity"
	"github.com/kapu/french-memo-go/internal/server"
	"github.com/kapu/french-memo-go/internal/service/ai"
	"github.com/kapu/french-memo-go/internal/service/cache"
	"github.com/kapu/french-memo-go/internal/service/lookup"
	"github.com/kapu/french-memo-go/internal/speech"
	"github.com/kapu/french-memo-go/internal/store"
)

type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Identity  *identity.Provider
	Lookup    *lookup.Service
	Favorites *store.FavoritesAdapter
	Chat      *chat.Controller
	Server    *server.Server

	closers []func() error
}

// Build constructs every service. A partially built container is torn down
// before the error returns.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	models, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:       cfg.Gemini.APIKey,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		DefaultGeminiModel: cfg.Gemini.Model,
		DefaultOpenAIModel: cfg.OpenAI.Model,
		EnableFallback:     cfg.OpenAI.EnableFallback,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	gw := gateway.NewGateway(models, logger)

	var shared lookup.SharedCache
	if cfg.Redis.Enabled {
		cacheService, err := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running with in-memory cache only", zap.Error(err))
		} else {
			shared = cacheService
			c.addCloser(cacheService.Close)
		}
	}

	c.Lookup = lookup.NewService(gw, shared, logger)

	postgres, err := store.NewPostgresService(store.PostgresConfig{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c.addCloser(postgres.Close)

	notifier, err := store.NewPGNotifier(postgres.ConnString(), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start favorites listener: %w", err)
	}
	c.addCloser(notifier.Close)

	repository := store.NewFavoritesRepository(postgres, logger)
	c.Favorites = store.NewFavoritesAdapter(repository, notifier, logger)

	c.Identity = identity.NewProvider(cfg.App.Namespace, logger)
	if err := c.Favorites.Attach(ctx, c.Identity.UserID()); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to attach favorites adapter: %w", err)
	}
	c.addCloser(func() error {
		c.Favorites.Detach()
		return nil
	})

	synthesizer := speech.NewSynthesizer(speech.SynthesizerConfig{
		Endpoint: cfg.Speech.TTSEndpoint,
		Language: cfg.Speech.Language,
		Rate:     cfg.Speech.Rate,
	}, logger)
	recognizer := speech.NewRecognizer(speech.RecognizerConfig{
		Endpoint: cfg.Speech.STTEndpoint,
		Language: cfg.Speech.Language,
	}, logger)

	var speaker chat.Speaker
	if synthesizer.Available() {
		speaker = synthesizer
	}
	c.Chat = chat.NewController(gw, speaker, logger)

	c.Server = server.NewServer(server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DiscoveryWords:  cfg.App.DiscoveryWords,
	}, c.Lookup, c.Chat, c.Favorites, synthesizer, recognizer, logger)

	return c, nil
}

// WarmDiscovery pre-resolves the discovery pool. Run it in the background;
// it only fills caches.
func (c *Container) WarmDiscovery(ctx context.Context) {
	c.Lookup.Warm(ctx, c.Config.App.DiscoveryWords)
}

func (c *Container) addCloser(fn func() error) {
	c.closers = append(c.closers, fn)
}

// Close tears down in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("Close failed", zap.Error(err))
		}
	}
	c.closers = nil
}
