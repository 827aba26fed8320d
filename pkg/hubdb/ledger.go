package hubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/luminet/hub-api/pkg/schema"
)

// Debit subtracts cost from the user's balance if and only if it covers the
// cost, and returns the new balance. The check and the decrement are one
// conditional UPDATE, so two concurrent debits can never both pass against
// a stale balance: the row lock serializes them and the condition is
// re-evaluated by the loser.
func (s *Store) Debit(ctx context.Context, userID string, cost int64) (int64, error) {
	return s.debit(ctx, s.db, userID, cost)
}

func (s *Store) debit(ctx context.Context, db bun.IDB, userID string, cost int64) (int64, error) {
	if cost < 0 {
		return 0, fmt.Errorf("negative debit: %d", cost)
	}

	var newBalance int64
	err := db.NewUpdate().
		Model((*schema.User)(nil)).
		Set("credits = credits - ?", cost).
		Where("id = ? AND credits >= ?", userID, cost).
		Returning("credits").
		Scan(ctx, &newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to debit user: %w", err)
	}

	// No row updated: either the user is unknown or the balance is short.
	exists, err := db.NewSelect().
		Model((*schema.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check user after declined debit: %w", err)
	}
	if !exists {
		return 0, ErrUserNotFound
	}
	return 0, ErrInsufficientCredits
}

// Credit adds credits to the user's balance and returns the new balance.
func (s *Store) Credit(ctx context.Context, userID string, credits int64) (int64, error) {
	return s.credit(ctx, s.db, userID, credits)
}

func (s *Store) credit(ctx context.Context, db bun.IDB, userID string, credits int64) (int64, error) {
	if credits < 0 {
		return 0, fmt.Errorf("negative credit: %d", credits)
	}

	var newBalance int64
	err := db.NewUpdate().
		Model((*schema.User)(nil)).
		Set("credits = credits + ?", credits).
		Where("id = ?", userID).
		Returning("credits").
		Scan(ctx, &newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit user: %w", err)
	}
	return newBalance, nil
}

// CreateCheckoutSession persists a pending credit purchase under the
// payment provider's session id.
func (s *Store) CreateCheckoutSession(ctx context.Context, cs *schema.CheckoutSession) error {
	_, err := s.db.NewInsert().
		Model(cs).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

// ApplyPurchase grants a checkout session's credits to its owner exactly
// once. The claim (applied_at IS NULL -> now) and the credit are one
// transaction; a replayed confirmation finds the session already claimed
// and returns ErrCheckoutAlreadyApplied without touching the balance.
func (s *Store) ApplyPurchase(ctx context.Context, checkoutID string) (userID string, credits, newBalance int64, err error) {
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		claimErr := tx.NewUpdate().
			Model((*schema.CheckoutSession)(nil)).
			Set("applied_at = ?", time.Now().UTC()).
			Where("id = ? AND applied_at IS NULL", checkoutID).
			Returning("user_id, credits").
			Scan(ctx, &userID, &credits)
		if claimErr != nil {
			if !errors.Is(claimErr, sql.ErrNoRows) {
				return fmt.Errorf("failed to claim checkout session: %w", claimErr)
			}
			exists, existsErr := tx.NewSelect().
				Model((*schema.CheckoutSession)(nil)).
				Where("id = ?", checkoutID).
				Exists(ctx)
			if existsErr != nil {
				return fmt.Errorf("failed to check checkout session: %w", existsErr)
			}
			if !exists {
				return ErrCheckoutNotFound
			}
			return ErrCheckoutAlreadyApplied
		}

		newBalance, claimErr = s.credit(ctx, tx, userID, credits)
		return claimErr
	})
	if err != nil {
		return "", 0, 0, err
	}
	return userID, credits, newBalance, nil
}
