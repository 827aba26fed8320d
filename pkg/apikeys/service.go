// Package apikeys implements the API key registry: listing, issuing and
// rolling the bearer credentials for programmatic access.
package apikeys

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/hubdb"
)

// Store is the narrow data-access interface for the key registry.
type Store interface {
	ListKeys(ctx context.Context, userID string) ([]string, error)
	CreateKey(ctx context.Context, userID string) (string, error)
	RotateKey(ctx context.Context, userID, oldKey string) (string, error)
}

// Service defines the interface for API key management.
type Service interface {
	List(ctx context.Context, userID string) ([]string, error)
	Create(ctx context.Context, userID string) (string, error)
	Roll(ctx context.Context, userID, oldKey string) (string, error)
}

type keyService struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new API key service.
func NewService(store Store, logger *zap.Logger) Service {
	return &keyService{store: store, logger: logger}
}

// List returns every key the user owns.
func (s *keyService) List(ctx context.Context, userID string) ([]string, error) {
	keys, err := s.store.ListKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Create issues an additional key for the user.
func (s *keyService) Create(ctx context.Context, userID string) (string, error) {
	key, err := s.store.CreateKey(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create key: %w", err)
	}
	return key, nil
}

// Roll revokes oldKey and issues a replacement in one step. Naming a key
// the caller does not own is a named outcome, not a fault: nothing is
// revoked and nothing is issued.
func (s *keyService) Roll(ctx context.Context, userID, oldKey string) (string, error) {
	newKey, err := s.store.RotateKey(ctx, userID, oldKey)
	if err != nil {
		if errors.Is(err, hubdb.ErrKeyNotOwned) {
			return "", apperrors.ForbiddenError(err, "key not owned by caller")
		}
		return "", fmt.Errorf("failed to roll key: %w", err)
	}
	return newKey, nil
}
