// Package stats serves the read-only dashboard views: the model catalog,
// validator identities, per-miner response aggregates and daily probe
// volume. Everything here is written by the ingestion process or the
// catalog seeder; this package only reads.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/luminet/hub-api/pkg/app/errors"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/schema"
)

// defaultHistoryDays bounds the daily request-count window.
const defaultHistoryDays = 30

// Store is the narrow data-access interface for the stats views.
type Store interface {
	ListModels(ctx context.Context, enabledOnly bool) ([]schema.Model, error)
	ListValidators(ctx context.Context) ([]schema.Validator, error)
	GetMinerSummaryByHotkey(ctx context.Context, hotkey string) (*hubdb.MinerSummary, error)
	GetMinerSummaryByUID(ctx context.Context, uid int) (*hubdb.MinerSummary, error)
	DailyValidatorRequestCounts(ctx context.Context, days int) ([]hubdb.DailyRequestCount, error)
}

// ModelInfo is one catalog entry as shown to dashboard users.
type ModelInfo struct {
	ID      string `json:"id"`
	Miners  int    `json:"miners"`
	Success int    `json:"success"`
	Failure int    `json:"failure"`
	CPT     int64  `json:"cpt"`
	Enabled bool   `json:"enabled"`
}

// ValidatorInfo is one validator identity.
type ValidatorInfo struct {
	Hotkey string  `json:"hotkey"`
	Name   *string `json:"name"`
}

// MinerStats aggregates one miner's recorded responses. Averages are nil
// until at least one response carries the underlying derived field.
type MinerStats struct {
	Responses           int64    `json:"responses"`
	Verified            int64    `json:"verified"`
	AvgWPS              *float64 `json:"avg_wps"`
	AvgTimeForAllTokens *float64 `json:"avg_time_for_all_tokens"`
}

// DailyCount is the probe volume on one date.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Service defines the interface for the dashboard stats views.
type Service interface {
	Models(ctx context.Context) ([]ModelInfo, error)
	Validators(ctx context.Context) ([]ValidatorInfo, error)
	Miner(ctx context.Context, query string) (*MinerStats, error)
	DailyRequests(ctx context.Context) ([]DailyCount, error)
}

type statsService struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new stats service.
func NewService(store Store, logger *zap.Logger) Service {
	return &statsService{store: store, logger: logger}
}

// Models returns the enabled model catalog.
func (s *statsService) Models(ctx context.Context) ([]ModelInfo, error) {
	models, err := s.store.ListModels(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	infos := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		infos = append(infos, ModelInfo{
			ID:      m.ID,
			Miners:  m.Miners,
			Success: m.Success,
			Failure: m.Failure,
			CPT:     m.CPT,
			Enabled: m.Enabled,
		})
	}
	return infos, nil
}

// Validators returns the known validator identities.
func (s *statsService) Validators(ctx context.Context) ([]ValidatorInfo, error) {
	validators, err := s.store.ListValidators(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list validators: %w", err)
	}
	infos := make([]ValidatorInfo, 0, len(validators))
	for _, v := range validators {
		infos = append(infos, ValidatorInfo{Hotkey: v.Hotkey, Name: v.ValiName})
	}
	return infos, nil
}

// Miner aggregates responses for one miner. A query that parses as an
// integer is treated as a uid, anything else as a hotkey. A miner with no
// recorded responses gets an all-zero summary rather than an error.
func (s *statsService) Miner(ctx context.Context, query string) (*MinerStats, error) {
	if query == "" {
		return nil, apperrors.BadRequestError(nil, "miner query is required")
	}

	var (
		summary *hubdb.MinerSummary
		err     error
	)
	if uid, parseErr := strconv.Atoi(query); parseErr == nil {
		summary, err = s.store.GetMinerSummaryByUID(ctx, uid)
	} else {
		summary, err = s.store.GetMinerSummaryByHotkey(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate miner responses: %w", err)
	}

	return &MinerStats{
		Responses:           summary.Responses,
		Verified:            summary.Verified,
		AvgWPS:              summary.AvgWPS,
		AvgTimeForAllTokens: summary.AvgTimeForAllTokens,
	}, nil
}

// DailyRequests returns validator probe volume per day over the recent
// window, oldest first.
func (s *statsService) DailyRequests(ctx context.Context) ([]DailyCount, error) {
	counts, err := s.store.DailyValidatorRequestCounts(ctx, defaultHistoryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to count daily requests: %w", err)
	}
	out := make([]DailyCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, DailyCount{
			Date:  c.Date.Format(time.DateOnly),
			Count: c.Count,
		})
	}
	return out, nil
}
