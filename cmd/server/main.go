// Command server wires the restriction service: stores, lifecycle engine,
// analytics, password-reset codes, and the HTTP surface. Business logic lives
// in the internal services; main only assembles and supervises.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	accountstore "warden/internal/account/store"
	analyticshandler "warden/internal/analytics/handler"
	analyticsservice "warden/internal/analytics/service"
	"warden/internal/jwttoken"
	"warden/internal/notify"
	"warden/internal/otp"
	"warden/internal/platform/config"
	"warden/internal/platform/httpserver"
	"warden/internal/platform/logger"
	"warden/internal/platform/postgres"
	"warden/internal/platform/redis"
	"warden/internal/restriction/announcer"
	restrictionhandler "warden/internal/restriction/handler"
	restrictionmetrics "warden/internal/restriction/metrics"
	restrictionservice "warden/internal/restriction/service"
	"warden/internal/restriction/store/history"
	adminmw "warden/pkg/platform/middleware/admin"
	authmw "warden/pkg/platform/middleware/auth"
	requestmw "warden/pkg/platform/middleware/request"
	requesttimemw "warden/pkg/platform/middleware/requesttime"
)

const bannedGaugeInterval = time.Minute

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres init failed", "error", err)
		os.Exit(1)
	}

	var (
		accounts accountstore.AccountStore
		events   history.Store
		txRunner restrictionservice.TxRunner
	)
	if db != nil {
		accounts = accountstore.NewPostgres(db)
		events = history.NewPostgres(db)
		txRunner = newPostgresTx(db)
		defer func() { _ = db.Close() }()
	} else {
		log.Warn("postgres not configured, using in-memory stores")
		accounts = accountstore.NewInMemory()
		events = history.NewInMemory()
		txRunner = restrictionservice.PassthroughTx()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	var codes otp.CodeStore
	if redisClient != nil {
		codes = otp.NewRedisStore(redisClient)
		defer func() { _ = redisClient.Close() }()
	} else {
		log.Warn("redis not configured, using in-memory code store")
		codes = otp.NewInMemoryStore()
	}

	notifier := notify.NewLogNotifier(log)
	lifecycleMetrics := restrictionmetrics.New()

	serviceOpts := []restrictionservice.Option{
		restrictionservice.WithLogger(log),
		restrictionservice.WithNotifier(notifier),
		restrictionservice.WithMetrics(lifecycleMetrics),
		restrictionservice.WithTxRunner(txRunner),
	}

	var kafkaAnnouncer *announcer.Kafka
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaAnnouncer, err = announcer.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaAnnouncer.Close()
		serviceOpts = append(serviceOpts, restrictionservice.WithAnnouncer(kafkaAnnouncer))
	}

	lifecycle := restrictionservice.New(accounts, events, serviceOpts...)
	analytics := analyticsservice.New(accounts, analyticsservice.WithLogger(log))
	resetCodes := otp.NewService(codes, notifier, config.OneTimeCodeTTL, log)
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "warden")

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requestmw.Middleware)
	router.Use(requesttimemw.Middleware)

	router.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		analyticshandler.New(analytics, log).Register(r)
		r.Group(func(r chi.Router) {
			// Lifecycle mutations additionally need an operator identity for
			// actor attribution.
			r.Use(authmw.RequireOperator(tokens, log))
			restrictionhandler.New(lifecycle, log).Register(r)
		})
	})
	router.Route("/auth", func(r chi.Router) {
		otp.NewHandler(resetCodes, log).Register(r)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(db, redisClient))

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		trackBannedGauge(ctx, accounts, lifecycleMetrics)
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// trackBannedGauge keeps the banned-accounts gauge fresh until shutdown.
func trackBannedGauge(ctx context.Context, accounts accountstore.AccountStore, m *restrictionmetrics.Metrics) {
	ticker := time.NewTicker(bannedGaugeInterval)
	defer ticker.Stop()
	for {
		if count, err := accounts.CountBanned(ctx); err == nil {
			m.SetBannedAccounts(count)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func healthz(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "postgres unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
