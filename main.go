package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/audit"
	"github.com/xhris2006/moninvest/internal/auth"
	claimsapp "github.com/xhris2006/moninvest/internal/claims/application"
	claimsrepo "github.com/xhris2006/moninvest/internal/claims/infrastructure/postgres"
	claimshttp "github.com/xhris2006/moninvest/internal/claims/interfaces/http"
	"github.com/xhris2006/moninvest/internal/config"
	"github.com/xhris2006/moninvest/internal/eventing"
	eventingrepo "github.com/xhris2006/moninvest/internal/eventing/infrastructure/postgres"
	ledgerapp "github.com/xhris2006/moninvest/internal/ledger/application"
	ledgerrepo "github.com/xhris2006/moninvest/internal/ledger/infrastructure/postgres"
	ledgerhttp "github.com/xhris2006/moninvest/internal/ledger/interfaces"
	"github.com/xhris2006/moninvest/internal/migrations"
	"github.com/xhris2006/moninvest/internal/notify"
	notifyrepo "github.com/xhris2006/moninvest/internal/notify/infrastructure/postgres"
	notifyhttp "github.com/xhris2006/moninvest/internal/notify/interfaces/http"
	"github.com/xhris2006/moninvest/internal/observability/metrics"
	passesapp "github.com/xhris2006/moninvest/internal/passes/application"
	passesrepo "github.com/xhris2006/moninvest/internal/passes/infrastructure/postgres"
	passeshttp "github.com/xhris2006/moninvest/internal/passes/interfaces/http"
	referralapp "github.com/xhris2006/moninvest/internal/referral/application"
	referralrepo "github.com/xhris2006/moninvest/internal/referral/infrastructure/postgres"
	referralhttp "github.com/xhris2006/moninvest/internal/referral/interfaces/http"
	"github.com/xhris2006/moninvest/internal/scheduler"
	settlementapp "github.com/xhris2006/moninvest/internal/settlement/application"
	settlementrepo "github.com/xhris2006/moninvest/internal/settlement/infrastructure/postgres"
	settlementhttp "github.com/xhris2006/moninvest/internal/settlement/interfaces/http"
	usersapp "github.com/xhris2006/moninvest/internal/users/application"
	usersrepo "github.com/xhris2006/moninvest/internal/users/infrastructure/postgres"
	usershttp "github.com/xhris2006/moninvest/internal/users/interfaces/http"
)

const (
	outboxRedeliverEvery = 30 * time.Second
	outboxBatchSize      = 100
	shutdownGrace        = 10 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	if err := migrations.Up(ctx, db, logger); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	metrics.Init(db, logger)

	auditRepo, err := audit.NewRepository(db)
	if err != nil {
		logger.Fatal("audit repository error", zap.Error(err))
	}

	// Eventing: outbox-backed publisher over an in-process bus.
	bus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(settlementapp.GainCredited{})
	registry.Register(settlementapp.PassExpired{})
	registry.Register(passesapp.PassPurchased{})

	outboxStore, err := eventingrepo.NewOutboxStore(db)
	if err != nil {
		logger.Fatal("outbox store error", zap.Error(err))
	}
	processedStore, err := eventingrepo.NewProcessedStore(db)
	if err != nil {
		logger.Fatal("processed store error", zap.Error(err))
	}
	dlqStore, err := eventingrepo.NewDLQStore(db)
	if err != nil {
		logger.Fatal("dlq store error", zap.Error(err))
	}
	dispatcher := eventing.NewDispatcher(bus, outboxStore, registry, dlqStore,
		eventing.WithDispatcherLogger(logger))
	publisher := eventing.NewPublisher(outboxStore, dispatcher, bus)

	// Notifications: in-app inbox always, webhook when configured.
	inbox, err := notifyrepo.NewStore(db)
	if err != nil {
		logger.Fatal("notification store error", zap.Error(err))
	}
	channels := []notify.Channel{inbox}
	if cfg.Schedule.WebhookURL != "" {
		webhook, err := notify.NewWebhook(cfg.Schedule.WebhookURL)
		if err != nil {
			logger.Fatal("notification webhook error", zap.Error(err))
		}
		channels = append(channels, webhook)
	}
	notifier := notify.NewMulti(logger, channels...)
	notify.RegisterConsumers(bus, notifier, processedStore, logger)

	// Users and referral. The referral service records signups and pays
	// purchase commissions; the users service only sees interfaces.
	userRepo, err := usersrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("user repository error", zap.Error(err))
	}
	refRepo, err := referralrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("referral repository error", zap.Error(err))
	}
	referralService, err := referralapp.NewService(refRepo, userRepo, int64(cfg.CommissionBp), logger,
		referralapp.WithNotifier(notifier))
	if err != nil {
		logger.Fatal("referral service error", zap.Error(err))
	}
	userService, err := usersapp.NewService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL, logger,
		usersapp.WithSignupRecorder(referralService),
		usersapp.WithNotifier(notifier))
	if err != nil {
		logger.Fatal("user service error", zap.Error(err))
	}

	passRepo, err := passesrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("pass repository error", zap.Error(err))
	}
	passService, err := passesapp.NewService(passRepo, passRepo, logger,
		passesapp.WithCommissionPayer(referralService),
		passesapp.WithNotifier(notifier),
		passesapp.WithPublisher(publisher))
	if err != nil {
		logger.Fatal("pass service error", zap.Error(err))
	}

	settlementRepo, err := settlementrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("settlement repository error", zap.Error(err))
	}
	engine, err := settlementapp.NewEngine(settlementRepo, settlementRepo, logger,
		settlementapp.WithPublisher(publisher),
		settlementapp.WithRunDeadline(cfg.Schedule.RunDeadline))
	if err != nil {
		logger.Fatal("settlement engine error", zap.Error(err))
	}

	ledgerRepo, err := ledgerrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("ledger repository error", zap.Error(err))
	}
	statementService, err := ledgerapp.NewStatementService(ledgerRepo, cfg.Currency, logger)
	if err != nil {
		logger.Fatal("statement service error", zap.Error(err))
	}

	claimRepo, err := claimsrepo.NewRepository(db)
	if err != nil {
		logger.Fatal("claim repository error", zap.Error(err))
	}
	claimService, err := claimsapp.NewService(claimRepo, logger, claimsapp.WithNotifier(notifier))
	if err != nil {
		logger.Fatal("claim service error", zap.Error(err))
	}

	userHandler, err := usershttp.NewHandler(userService, logger)
	if err != nil {
		logger.Fatal("user handler error", zap.Error(err))
	}
	passHandler, err := passeshttp.NewHandler(passService, logger)
	if err != nil {
		logger.Fatal("pass handler error", zap.Error(err))
	}
	referralHandler, err := referralhttp.NewHandler(referralService, logger)
	if err != nil {
		logger.Fatal("referral handler error", zap.Error(err))
	}
	settlementHandler, err := settlementhttp.NewHandler(engine, auditRepo, logger)
	if err != nil {
		logger.Fatal("settlement handler error", zap.Error(err))
	}
	ledgerHandler, err := ledgerhttp.NewHandler(statementService, logger)
	if err != nil {
		logger.Fatal("ledger handler error", zap.Error(err))
	}
	claimHandler, err := claimshttp.NewHandler(claimService, logger)
	if err != nil {
		logger.Fatal("claim handler error", zap.Error(err))
	}
	notifyHandler, err := notifyhttp.NewHandler(inbox, logger)
	if err != nil {
		logger.Fatal("notification handler error", zap.Error(err))
	}

	mux := http.NewServeMux()
	userHandler.Register(mux)
	passHandler.Register(mux)
	referralHandler.Register(mux)
	settlementHandler.Register(mux)
	ledgerHandler.Register(mux)
	claimHandler.Register(mux)
	notifyHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	policy := auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		[]string{"/api/v1/auth/"},
	)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	sched, err := scheduler.New(engine,
		cfg.Schedule.DailyAt, cfg.Schedule.Timezone,
		cfg.Schedule.SweepEvery, cfg.Schedule.RunDeadline,
		logger)
	if err != nil {
		logger.Fatal("scheduler error", zap.Error(err))
	}
	go sched.Start(ctx)
	go redeliverOutbox(ctx, dispatcher, logger)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: observeMiddleware(authMiddleware.Wrap(mux), logger),
	}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
}

// redeliverOutbox retries pending outbox events that a crashed or failed
// inline dispatch left behind.
func redeliverOutbox(ctx context.Context, dispatcher *eventing.Dispatcher, logger *zap.Logger) {
	ticker := time.NewTicker(outboxRedeliverEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := dispatcher.Dispatch(ctx, outboxBatchSize); err != nil {
				logger.Warn("outbox redelivery error", zap.Error(err))
			}
		}
	}
}

func observeMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, statusClass(resp.status))
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
