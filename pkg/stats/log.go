package stats

import (
	"context"

	"go.uber.org/zap"
)

const serviceName = "StatsService"

// logService wraps Service, logging failures only. Every method here is a
// hot read-only view; successful calls are not worth a line each.
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the stats Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) Models(ctx context.Context) (infos []ModelInfo, err error) {
	defer ls.observe("Models", &err)
	return ls.svc.Models(ctx)
}

func (ls *logService) Validators(ctx context.Context) (infos []ValidatorInfo, err error) {
	defer ls.observe("Validators", &err)
	return ls.svc.Validators(ctx)
}

func (ls *logService) Miner(ctx context.Context, query string) (s *MinerStats, err error) {
	defer ls.observe("Miner", &err)
	return ls.svc.Miner(ctx, query)
}

func (ls *logService) DailyRequests(ctx context.Context) (counts []DailyCount, err error) {
	defer ls.observe("DailyRequests", &err)
	return ls.svc.DailyRequests(ctx)
}

func (ls *logService) observe(method string, err *error) {
	if *err == nil {
		return
	}
	ls.logger.Error(method+" failed",
		zap.String("service", serviceName),
		zap.Error(*err),
	)
}
