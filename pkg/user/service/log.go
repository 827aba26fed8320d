package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luminet/hub-api/pkg/user"
)

const serviceName = "UserService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the user Service.
// It logs method entry/exit, duration and errors; credentials and tokens
// never reach the log.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) SignUp(ctx context.Context, req *user.SignUpRequest) (resp *user.AuthResult, err error) {
	defer ls.observe("SignUp", time.Now(), &resp, &err)
	return ls.svc.SignUp(ctx, req)
}

func (ls *logService) LogIn(ctx context.Context, req *user.LogInRequest) (resp *user.AuthResult, err error) {
	defer ls.observe("LogIn", time.Now(), &resp, &err)
	return ls.svc.LogIn(ctx, req)
}

func (ls *logService) SignInWithGoogle(ctx context.Context, req *user.GoogleSignInRequest) (resp *user.AuthResult, err error) {
	defer ls.observe("SignInWithGoogle", time.Now(), &resp, &err)
	return ls.svc.SignInWithGoogle(ctx, req)
}

func (ls *logService) LogOut(ctx context.Context, sessionID string) (err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			ls.logger.Error("LogOut failed",
				zap.String("service", serviceName),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("LogOut completed",
			zap.String("service", serviceName),
			zap.Duration("duration", time.Since(start)),
		)
	}()
	return ls.svc.LogOut(ctx, sessionID)
}

func (ls *logService) Profile(ctx context.Context, userID string) (*user.Profile, error) {
	// Read-only and hot; not worth a log line per call.
	return ls.svc.Profile(ctx, userID)
}

// observe logs the outcome of an auth method. Only the user id makes it
// into the log, never the session id or any credential.
func (ls *logService) observe(method string, start time.Time, resp **user.AuthResult, err *error) {
	duration := time.Since(start)

	if *err != nil {
		ls.logger.Error(method+" failed",
			zap.String("service", serviceName),
			zap.String("method", method),
			zap.Duration("duration", duration),
			zap.Error(*err),
		)
		return
	}

	ls.logger.Info(method+" completed",
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.String("user_id", (*resp).UserID),
		zap.Duration("duration", duration),
	)
}
