package apikeys

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const serviceName = "APIKeyService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the key Service. Keys are
// credentials, so only redacted forms reach the log.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{svc: svc, logger: logger}
}

func (ls *logService) List(ctx context.Context, userID string) ([]string, error) {
	// Read-only; not worth a log line per call.
	return ls.svc.List(ctx, userID)
}

func (ls *logService) Create(ctx context.Context, userID string) (key string, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("Create failed",
				zap.String("service", serviceName),
				zap.String("user_id", userID),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("Create completed",
			zap.String("service", serviceName),
			zap.String("user_id", userID),
			zap.String("key", redactKey(key)),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.Create(ctx, userID)
}

func (ls *logService) Roll(ctx context.Context, userID, oldKey string) (key string, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("Roll failed",
				zap.String("service", serviceName),
				zap.String("user_id", userID),
				zap.String("old_key", redactKey(oldKey)),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("Roll completed",
			zap.String("service", serviceName),
			zap.String("user_id", userID),
			zap.String("old_key", redactKey(oldKey)),
			zap.String("new_key", redactKey(key)),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.Roll(ctx, userID, oldKey)
}

// redactKey keeps the prefix and last 4 characters so operators can
// match log lines to keys without the log holding a usable credential.
func redactKey(key string) string {
	if len(key) < 12 {
		return fmt.Sprintf("<%d chars>", len(key))
	}
	return key[:8] + "..." + key[len(key)-4:]
}
