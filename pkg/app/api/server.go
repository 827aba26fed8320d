// Package api assembles the hub API server: database, services, router
// and the background session sweeper.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luminet/hub-api/internal/metrics"
	"github.com/luminet/hub-api/pkg/apikeys"
	apphttp "github.com/luminet/hub-api/pkg/app/http"
	"github.com/luminet/hub-api/pkg/auth"
	"github.com/luminet/hub-api/pkg/billing"
	"github.com/luminet/hub-api/pkg/config"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/inference"
	"github.com/luminet/hub-api/pkg/payments"
	"github.com/luminet/hub-api/pkg/pgutil"
	"github.com/luminet/hub-api/pkg/stats"
	userservice "github.com/luminet/hub-api/pkg/user/service"
)

// Run wires the server together and blocks until ctx is canceled or the
// server fails. The database schema must already be migrated; see
// cmd/api-server/migrate.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	store := hubdb.NewStore(db)
	router := setupRouter(cfg, store, logger)

	sweeper := newSessionSweeper(store, logger)
	sweeper.Start(cfg.Auth.SweepInterval)
	defer sweeper.Stop()

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

// setupRouter builds the route tree. Three trust levels: public (auth,
// stats, webhook), browser session (account, keys, credits) and API key
// (inference).
func setupRouter(cfg *config.Config, store *hubdb.Store, logger *zap.Logger) chi.Router {
	googleVerifier := auth.NewGoogleVerifier(
		cfg.Auth.GoogleJWKSURL,
		cfg.Auth.GoogleIssuer,
		cfg.Auth.GoogleClientID,
	)
	mw := auth.NewMiddleware(store, store, cfg.Auth.CookieName)

	userSvc := userservice.NewLog(
		userservice.NewService(store, googleVerifier, logger,
			cfg.Auth.SessionTTL, cfg.Billing.DefaultCredits),
		logger,
	)
	keySvc := apikeys.NewLog(apikeys.NewService(store, logger), logger)

	stripeClient := payments.NewStripeClient(&cfg.Stripe, logger)
	billingSvc := billing.NewLog(
		billing.NewService(store, stripeClient, logger,
			billing.NewPricing(cfg.Billing.CreditsPerUSDCent),
			cfg.Billing.MinPurchaseCredits),
		logger,
	)
	webhook := payments.NewWebhook(billingSvc, cfg.Stripe.EndpointSecret, logger)

	hubClient := inference.NewHubClient(&cfg.Hub, logger)
	inferenceSvc := inference.NewService(billingSvc, hubClient, store, logger,
		cfg.Billing.RefundOnFailure)

	statsSvc := stats.NewLog(stats.NewService(store, logger), logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	r.Handle("/metrics", promhttp.Handler())

	userservice.RegisterRoutes(r, userSvc, mw,
		cfg.Auth.CookieName, cfg.Auth.CookieSecure, logger)
	stats.RegisterRoutes(r, statsSvc, logger)
	webhook.RegisterRoutes(r)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSession)
			apikeys.RegisterRoutes(r, keySvc, logger)
			billing.RegisterRoutes(r, billingSvc, logger)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAPIKey)
			inference.RegisterRoutes(r, inferenceSvc, logger)
		})
	})

	return r
}

// sessionSweeper deletes expired sessions on a ticker so the sessions
// table does not grow without bound.
type sessionSweeper struct {
	store  *hubdb.Store
	logger *zap.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newSessionSweeper(store *hubdb.Store, logger *zap.Logger) *sessionSweeper {
	return &sessionSweeper{
		store:  store,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches the background sweep goroutine.
func (s *sessionSweeper) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("Started session sweeper", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				s.sweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("Stopping session sweeper")
				return
			}
		}
	}()
}

func (s *sessionSweeper) sweep(ctx context.Context) {
	deleted, err := s.store.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		s.logger.Error("Session sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		metrics.SessionsSwept.Add(float64(deleted))
		s.logger.Info("Swept expired sessions", zap.Int64("deleted", deleted))
	}
}

// Stop stops the sweeper and waits for the in-flight sweep to finish.
func (s *sessionSweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
