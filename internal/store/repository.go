package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/pkg/errors"
)

// FavoritesRepository reads and writes favorite rows. Every write fires
// pg_notify in the same transaction, so the projection layer learns about
// its own writes the same way it learns about anyone else's.
type FavoritesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewFavoritesRepository(service *PostgresService, logger *zap.Logger) *FavoritesRepository {
	return &FavoritesRepository{
		db:     service.DB(),
		logger: logger,
	}
}

// ListWords returns a user's favorite words, newest first.
func (r *FavoritesRepository) ListWords(ctx context.Context, userID string) ([]domain.FavoriteWord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT word_id, payload, created_at
		 FROM favorite_words
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.NewStoreError("failed to list favorite words", "favorite_words", "list", err)
	}
	defer rows.Close()

	var favorites []domain.FavoriteWord
	for rows.Next() {
		var (
			id      string
			payload []byte
			created sql.NullTime
		)
		if err := rows.Scan(&id, &payload, &created); err != nil {
			return nil, errors.NewStoreError("failed to scan favorite word", "favorite_words", "list", err)
		}

		var favorite domain.FavoriteWord
		if err := json.Unmarshal(payload, &favorite.WordRecord); err != nil {
			r.logger.Warn("Skipping favorite word with corrupt payload",
				zap.String("word_id", id),
				zap.Error(err),
			)
			continue
		}
		favorite.ID = id
		if created.Valid {
			t := created.Time
			favorite.CreatedAt = &t
		}
		favorites = append(favorites, favorite)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate favorite words", "favorite_words", "list", err)
	}

	return favorites, nil
}

// ListAlbums returns a user's favorite albums, newest first.
func (r *FavoritesRepository) ListAlbums(ctx context.Context, userID string) ([]domain.FavoriteAlbum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT album_id, payload, created_at
		 FROM favorite_albums
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.NewStoreError("failed to list favorite albums", "favorite_albums", "list", err)
	}
	defer rows.Close()

	var favorites []domain.FavoriteAlbum
	for rows.Next() {
		var (
			id      string
			payload []byte
			created sql.NullTime
		)
		if err := rows.Scan(&id, &payload, &created); err != nil {
			return nil, errors.NewStoreError("failed to scan favorite album", "favorite_albums", "list", err)
		}

		var favorite domain.FavoriteAlbum
		if err := json.Unmarshal(payload, &favorite.AlbumRecord); err != nil {
			r.logger.Warn("Skipping favorite album with corrupt payload",
				zap.String("album_id", id),
				zap.Error(err),
			)
			continue
		}
		favorite.ID = id
		if created.Valid {
			t := created.Time
			favorite.CreatedAt = &t
		}
		favorites = append(favorites, favorite)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate favorite albums", "favorite_albums", "list", err)
	}

	return favorites, nil
}

// HasWord reports whether a word is already a favorite.
func (r *FavoritesRepository) HasWord(ctx context.Context, userID, wordID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorite_words WHERE user_id = $1 AND word_id = $2)`,
		userID, wordID,
	).Scan(&exists)
	if err != nil {
		return false, errors.NewStoreError("failed to check favorite word", "favorite_words", "exists", err)
	}
	return exists, nil
}

// HasAlbum reports whether an album is already a favorite.
func (r *FavoritesRepository) HasAlbum(ctx context.Context, userID, albumID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorite_albums WHERE user_id = $1 AND album_id = $2)`,
		userID, albumID,
	).Scan(&exists)
	if err != nil {
		return false, errors.NewStoreError("failed to check favorite album", "favorite_albums", "exists", err)
	}
	return exists, nil
}

// UpsertWord stores a word as a favorite and notifies listeners.
func (r *FavoritesRepository) UpsertWord(ctx context.Context, userID, wordID string, record *domain.WordRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.NewStoreError("failed to encode favorite word", "favorite_words", "upsert", err)
	}
	return r.writeAndNotify(ctx, constants.StoreConfig.WordsChannel, userID,
		`INSERT INTO favorite_words (user_id, word_id, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, word_id) DO UPDATE SET payload = EXCLUDED.payload`,
		userID, wordID, payload,
	)
}

// DeleteWord removes a favorite word and notifies listeners.
func (r *FavoritesRepository) DeleteWord(ctx context.Context, userID, wordID string) error {
	return r.writeAndNotify(ctx, constants.StoreConfig.WordsChannel, userID,
		`DELETE FROM favorite_words WHERE user_id = $1 AND word_id = $2`,
		userID, wordID,
	)
}

// UpsertAlbum stores an album as a favorite and notifies listeners.
func (r *FavoritesRepository) UpsertAlbum(ctx context.Context, userID, albumID string, record *domain.AlbumRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.NewStoreError("failed to encode favorite album", "favorite_albums", "upsert", err)
	}
	return r.writeAndNotify(ctx, constants.StoreConfig.AlbumsChannel, userID,
		`INSERT INTO favorite_albums (user_id, album_id, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, album_id) DO UPDATE SET payload = EXCLUDED.payload`,
		userID, albumID, payload,
	)
}

// DeleteAlbum removes a favorite album and notifies listeners.
func (r *FavoritesRepository) DeleteAlbum(ctx context.Context, userID, albumID string) error {
	return r.writeAndNotify(ctx, constants.StoreConfig.AlbumsChannel, userID,
		`DELETE FROM favorite_albums WHERE user_id = $1 AND album_id = $2`,
		userID, albumID,
	)
}

func (r *FavoritesRepository) writeAndNotify(ctx context.Context, channel, userID, query string, args ...any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("failed to begin transaction", "favorites", "write", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.NewStoreError("failed to write favorite", "favorites", "write", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, userID); err != nil {
		return errors.NewStoreError("failed to notify listeners", "favorites", "notify", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("failed to commit favorite write", "favorites", "write", err)
	}

	return nil
}
