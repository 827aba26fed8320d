package billing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const serviceName = "BillingService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the billing Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) Balance(ctx context.Context, userID string) (int64, error) {
	// Read-only and hot; not worth a log line per call.
	return ls.svc.Balance(ctx, userID)
}

func (ls *logService) ChargeForRequest(ctx context.Context, req *ChargeRequest) (result *ChargeResult, err error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Warn("ChargeForRequest did not charge",
				zap.String("service", serviceName),
				zap.String("user_id", req.UserID),
				zap.String("model", req.ModelID),
				zap.Int64("tokens", req.Tokens),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("ChargeForRequest completed",
			zap.String("service", serviceName),
			zap.String("user_id", req.UserID),
			zap.String("model", req.ModelID),
			zap.String("pub_id", result.PubID),
			zap.Int64("cost", result.Cost),
			zap.Int64("new_balance", result.NewBalance),
			zap.Duration("duration", duration),
		)
	}()
	return ls.svc.ChargeForRequest(ctx, req)
}

func (ls *logService) Refund(ctx context.Context, pubID, userID, modelID string, credits int64) (int64, error) {
	// The service itself logs refunds; they are rare and policy-relevant.
	return ls.svc.Refund(ctx, pubID, userID, modelID, credits)
}

func (ls *logService) InitiateCheckout(ctx context.Context, userID string, credits int64) (checkout *Checkout, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("InitiateCheckout failed",
				zap.String("service", serviceName),
				zap.String("user_id", userID),
				zap.Int64("credits", credits),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
	}()
	return ls.svc.InitiateCheckout(ctx, userID, credits)
}

func (ls *logService) ApplyPurchase(ctx context.Context, checkoutID string) (result *PurchaseResult, err error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		if err != nil {
			ls.logger.Error("ApplyPurchase failed",
				zap.String("service", serviceName),
				zap.String("checkout_id", checkoutID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		if result.Replayed {
			ls.logger.Info("ApplyPurchase replay ignored",
				zap.String("service", serviceName),
				zap.String("checkout_id", checkoutID),
				zap.Duration("duration", duration),
			)
			return
		}
		ls.logger.Info("ApplyPurchase completed",
			zap.String("service", serviceName),
			zap.String("checkout_id", checkoutID),
			zap.String("user_id", result.UserID),
			zap.Int64("credits", result.Credits),
			zap.Int64("new_balance", result.NewBalance),
			zap.Duration("duration", duration),
		)
	}()
	return ls.svc.ApplyPurchase(ctx, checkoutID)
}
