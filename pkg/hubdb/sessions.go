package hubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminet/hub-api/pkg/schema"
)

func (s *Store) CreateSession(ctx context.Context, sess *schema.Session) error {
	_, err := s.db.NewInsert().
		Model(sess).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session row regardless of expiry; callers decide
// what an expired session means for them.
func (s *Store) GetSession(ctx context.Context, id string) (*schema.Session, error) {
	sess := new(schema.Session)
	err := s.db.NewSelect().
		Model(sess).
		Where("s.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*schema.Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and returns how
// many were removed. Run periodically by the server.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*schema.Session)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}
