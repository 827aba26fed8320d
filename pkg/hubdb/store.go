// Package hubdb is the PostgreSQL store for the hub API. All cross-row
// consistency (credits vs. recorded charge, key rotation, idempotent
// purchase application) is enforced here with transactions scoped to the
// minimal set of rows involved.
package hubdb

import (
	"errors"

	"github.com/uptrace/bun"
)

var (
	// ErrUserNotFound is returned when a user lookup finds no matching record.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when a session lookup finds no matching record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrKeyNotFound is returned when an API key lookup finds no matching record.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrKeyNotOwned is the named outcome for a rotation naming a key the
	// caller does not own. No mutation happens in that case.
	ErrKeyNotOwned = errors.New("api key not owned by caller")
	// ErrModelNotFound is returned when a model lookup finds no matching record.
	ErrModelNotFound = errors.New("model not found")
	// ErrInsufficientCredits is returned when a debit would drive the
	// balance negative. The balance is left untouched.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrCheckoutNotFound is returned when a purchase confirmation references
	// an unknown checkout session.
	ErrCheckoutNotFound = errors.New("checkout session not found")
	// ErrCheckoutAlreadyApplied is returned when a purchase confirmation is
	// replayed. The balance is unchanged by the replay.
	ErrCheckoutAlreadyApplied = errors.New("checkout session already applied")
)

// Store is the PostgreSQL implementation backing every service.
type Store struct {
	db *bun.DB
}

// NewStore creates a new postgres store on the given connection.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying bun connection for migrations and tests.
func (s *Store) DB() *bun.DB {
	return s.db
}
