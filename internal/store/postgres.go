// Package store persists favorites in PostgreSQL and projects them back
// into memory through LISTEN/NOTIFY, so every consumer sees writes the
// same way regardless of which process made them.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresConfig holds connection settings for the favorites database.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// PostgresService owns the connection pool and the schema.
type PostgresService struct {
	db      *sql.DB
	connStr string
	logger  *zap.Logger
}

func NewPostgresService(cfg PostgresConfig, logger *zap.Logger) (*PostgresService, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	service := &PostgresService{
		db:      db,
		connStr: connStr,
		logger:  logger,
	}

	if err := service.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Postgres connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return service, nil
}

func (s *PostgresService) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS favorite_words (
			user_id    TEXT        NOT NULL,
			word_id    TEXT        NOT NULL,
			payload    JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, word_id)
		)`,
		`CREATE TABLE IF NOT EXISTS favorite_albums (
			user_id    TEXT        NOT NULL,
			album_id   TEXT        NOT NULL,
			payload    JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, album_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_favorite_words_created
			ON favorite_words (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_favorite_albums_created
			ON favorite_albums (user_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}

// DB exposes the pool to the repository layer.
func (s *PostgresService) DB() *sql.DB {
	return s.db
}

// ConnString is needed by pq.Listener, which opens its own connection.
func (s *PostgresService) ConnString() string {
	return s.connStr
}

func (s *PostgresService) Close() error {
	s.logger.Info("Closing postgres connection")
	return s.db.Close()
}
