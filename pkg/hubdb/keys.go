package hubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/luminet/hub-api/pkg/schema"
)

// ListKeys returns every API key owned by the user. Read-only.
func (s *Store) ListKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*schema.APIKey)(nil)).
		Column("key").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// CreateKey issues a new API key bound to the user.
func (s *Store) CreateKey(ctx context.Context, userID string) (string, error) {
	key := schema.NewAPIKey()
	_, err := s.db.NewInsert().
		Model(&schema.APIKey{Key: key, UserID: userID}).
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create api key: %w", err)
	}
	return key, nil
}

// GetKeyOwner resolves an API key to its owning user id. Unknown keys
// return ErrKeyNotFound.
func (s *Store) GetKeyOwner(ctx context.Context, key string) (string, error) {
	var userID string
	err := s.db.NewSelect().
		Model((*schema.APIKey)(nil)).
		Column("user_id").
		Where("key = ?", key).
		Scan(ctx, &userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to look up api key: %w", err)
	}
	return userID, nil
}

// RotateKey atomically replaces oldKey with a freshly issued key for the
// same user. The delete and insert commit together or not at all; the
// deleted row's lock serializes concurrent rotations of the same key, so
// the loser of a race observes ErrKeyNotOwned and inserts nothing.
func (s *Store) RotateKey(ctx context.Context, userID, oldKey string) (string, error) {
	newKey := schema.NewAPIKey()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*schema.APIKey)(nil)).
			Where("key = ? AND user_id = ?", oldKey, userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete old api key: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrKeyNotOwned
		}

		_, err = tx.NewInsert().
			Model(&schema.APIKey{Key: newKey, UserID: userID}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert new api key: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return newKey, nil
}
