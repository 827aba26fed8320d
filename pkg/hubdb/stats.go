package hubdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminet/hub-api/pkg/schema"
)

// ListModels returns the model catalog.
func (s *Store) ListModels(ctx context.Context, enabledOnly bool) ([]schema.Model, error) {
	var models []schema.Model
	q := s.db.NewSelect().Model(&models).Order("id ASC")
	if enabledOnly {
		q = q.Where("enabled")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// GetModel returns one model by id.
func (s *Store) GetModel(ctx context.Context, id string) (*schema.Model, error) {
	model := new(schema.Model)
	err := s.db.NewSelect().
		Model(model).
		Where("m.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return model, nil
}

// UpsertModel inserts or updates a catalog entry. Used by the seeder and
// the ingestion process.
func (s *Store) UpsertModel(ctx context.Context, model *schema.Model) error {
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("miners = EXCLUDED.miners").
		Set("cpt = EXCLUDED.cpt").
		Set("enabled = EXCLUDED.enabled").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert model: %w", err)
	}
	return nil
}

// ListValidators returns all known validator identities.
func (s *Store) ListValidators(ctx context.Context) ([]schema.Validator, error) {
	var validators []schema.Validator
	err := s.db.NewSelect().
		Model(&validators).
		Order("hotkey ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list validators: %w", err)
	}
	return validators, nil
}

// UpsertValidator inserts or updates a validator identity.
func (s *Store) UpsertValidator(ctx context.Context, v *schema.Validator) error {
	_, err := s.db.NewInsert().
		Model(v).
		On("CONFLICT (hotkey) DO UPDATE").
		Set("vali_name = EXCLUDED.vali_name").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert validator: %w", err)
	}
	return nil
}

// InsertValidatorRequest writes one synthetic probe. The stored date column
// is derived from the timestamp here; rows are immutable afterwards.
func (s *Store) InsertValidatorRequest(ctx context.Context, vr *schema.ValidatorRequest) error {
	if vr.Timestamp.IsZero() {
		vr.Timestamp = time.Now().UTC()
	}
	vr.Date = schema.RequestDate(vr.Timestamp)
	_, err := s.db.NewInsert().
		Model(vr).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert validator request: %w", err)
	}
	return nil
}

// InsertMinerResponse writes one miner response with its derived columns
// computed from the stats payload.
func (s *Store) InsertMinerResponse(ctx context.Context, mr *schema.MinerResponse) error {
	mr.WPS, mr.TimeForAllTokens, mr.Verified = schema.DeriveMinerFields(mr.Stats)
	_, err := s.db.NewInsert().
		Model(mr).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert miner response: %w", err)
	}
	return nil
}

// MinerSummary aggregates a miner's recorded responses. Averages are nil
// when no response carries the underlying derived field yet.
type MinerSummary struct {
	Responses           int64    `bun:"responses"`
	Verified            int64    `bun:"verified_count"`
	AvgWPS              *float64 `bun:"avg_wps"`
	AvgTimeForAllTokens *float64 `bun:"avg_time_for_all_tokens"`
}

// GetMinerSummaryByHotkey aggregates responses for one miner hotkey.
// Unscored and partially derived rows count toward Responses but are
// simply absent from the averages.
func (s *Store) GetMinerSummaryByHotkey(ctx context.Context, hotkey string) (*MinerSummary, error) {
	return s.minerSummary(ctx, "hotkey = ?", hotkey)
}

// GetMinerSummaryByUID aggregates responses for one miner uid.
func (s *Store) GetMinerSummaryByUID(ctx context.Context, uid int) (*MinerSummary, error) {
	return s.minerSummary(ctx, "uid = ?", uid)
}

func (s *Store) minerSummary(ctx context.Context, where string, arg any) (*MinerSummary, error) {
	summary := new(MinerSummary)
	err := s.db.NewSelect().
		Model((*schema.MinerResponse)(nil)).
		ColumnExpr("count(*) AS responses").
		ColumnExpr("count(*) FILTER (WHERE verified) AS verified_count").
		ColumnExpr("avg(wps) AS avg_wps").
		ColumnExpr("avg(time_for_all_tokens) AS avg_time_for_all_tokens").
		Where(where, arg).
		Scan(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate miner responses: %w", err)
	}
	return summary, nil
}

// DailyRequestCount is the number of validator probes seen on one date.
type DailyRequestCount struct {
	Date  time.Time `bun:"date"`
	Count int64     `bun:"count"`
}

// DailyValidatorRequestCounts returns probe volume per day over the last
// days days, oldest first.
func (s *Store) DailyValidatorRequestCounts(ctx context.Context, days int) ([]DailyRequestCount, error) {
	since := schema.RequestDate(time.Now().UTC().AddDate(0, 0, -days))
	var counts []DailyRequestCount
	err := s.db.NewSelect().
		Model((*schema.ValidatorRequest)(nil)).
		ColumnExpr("date").
		ColumnExpr("count(*) AS count").
		Where("date >= ?", since).
		GroupExpr("date").
		OrderExpr("date ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count validator requests: %w", err)
	}
	return counts, nil
}
