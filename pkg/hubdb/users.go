package hubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/luminet/hub-api/pkg/schema"
)

func (s *Store) CreateUser(ctx context.Context, usr *schema.User) error {
	_, err := s.db.NewInsert().
		Model(usr).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*schema.User, error) {
	return s.getUser(ctx, "u.id = ?", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*schema.User, error) {
	return s.getUser(ctx, "u.email = ?", email)
}

func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*schema.User, error) {
	return s.getUser(ctx, "u.google_id = ?", googleID)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*schema.User, error) {
	usr := new(schema.User)
	err := s.db.NewSelect().
		Model(usr).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return usr, nil
}

// LinkGoogleID attaches an external Google identity to an existing account.
func (s *Store) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	res, err := s.db.NewUpdate().
		Model((*schema.User)(nil)).
		Set("google_id = ?", googleID).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to link google id: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetStripeCustomerID records the payment provider's customer reference.
func (s *Store) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	res, err := s.db.NewUpdate().
		Model((*schema.User)(nil)).
		Set("stripe_customer_id = ?", customerID).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetCredits returns the user's current balance.
func (s *Store) GetCredits(ctx context.Context, userID string) (int64, error) {
	var credits int64
	err := s.db.NewSelect().
		Model((*schema.User)(nil)).
		Column("credits").
		Where("id = ?", userID).
		Scan(ctx, &credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}
	return credits, nil
}
