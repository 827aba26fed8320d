package hubdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/luminet/hub-api/pkg/schema"
)

// ChargeAndRecord debits the user and persists the organic request row in a
// single transaction, with CreditsUsed equal to the debit. Either both
// happen or neither does: a declined charge leaves no row behind.
func (s *Store) ChargeAndRecord(ctx context.Context, cost int64, req *schema.OrganicRequest) (int64, error) {
	var newBalance int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		balance, err := s.debit(ctx, tx, req.UserID, cost)
		if err != nil {
			return err
		}
		newBalance = balance

		req.CreditsUsed = cost
		if _, err := tx.NewInsert().Model(req).Exec(ctx); err != nil {
			return fmt.Errorf("failed to record organic request: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// FinalizeOrganicRequest fills in the outcome of a dispatched request:
// response payload, generated token count and the identity of the serving
// miner.
func (s *Store) FinalizeOrganicRequest(
	ctx context.Context,
	pubID string,
	response *string,
	tokens int64,
	attempt *string,
	uid *int,
	hotkey, coldkey, minerAddress *string,
) error {
	_, err := s.db.NewUpdate().
		Model((*schema.OrganicRequest)(nil)).
		Set("response = ?", response).
		Set("tokens = ?", tokens).
		Set("attempt = ?", attempt).
		Set("uid = ?", uid).
		Set("hotkey = ?", hotkey).
		Set("coldkey = ?", coldkey).
		Set("miner_address = ?", minerAddress).
		Where("pub_id = ?", pubID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finalize organic request: %w", err)
	}
	return nil
}

// RefundOrganicRequest returns a request's charge to its owner and zeroes
// the recorded CreditsUsed, keeping the row's value equal to the net debit.
// One transaction so the ledger and the record never disagree.
func (s *Store) RefundOrganicRequest(ctx context.Context, pubID, userID string, credits int64) (int64, error) {
	var newBalance int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		balance, err := s.credit(ctx, tx, userID, credits)
		if err != nil {
			return err
		}
		newBalance = balance

		_, err = tx.NewUpdate().
			Model((*schema.OrganicRequest)(nil)).
			Set("credits_used = credits_used - ?", credits).
			Where("pub_id = ? AND user_id = ?", pubID, userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to zero refunded request: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetOrganicRequestByPubID returns one recorded request.
func (s *Store) GetOrganicRequestByPubID(ctx context.Context, pubID string) (*schema.OrganicRequest, error) {
	req := new(schema.OrganicRequest)
	err := s.db.NewSelect().
		Model(req).
		Where("pub_id = ?", pubID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get organic request: %w", err)
	}
	return req, nil
}

// ListOrganicRequests returns a user's request history, newest first.
func (s *Store) ListOrganicRequests(ctx context.Context, userID string, limit int) ([]schema.OrganicRequest, error) {
	var reqs []schema.OrganicRequest
	err := s.db.NewSelect().
		Model(&reqs).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organic requests: %w", err)
	}
	return reqs, nil
}
