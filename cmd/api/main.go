package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-pay/db"
	"github.com/noah-isme/backend-pay/internal/auth"
	"github.com/noah-isme/backend-pay/internal/common"
	"github.com/noah-isme/backend-pay/internal/config"
	"github.com/noah-isme/backend-pay/internal/events"
	"github.com/noah-isme/backend-pay/internal/health"
	"github.com/noah-isme/backend-pay/internal/lock"
	"github.com/noah-isme/backend-pay/internal/obs"
	"github.com/noah-isme/backend-pay/internal/order"
	"github.com/noah-isme/backend-pay/internal/pending"
	"github.com/noah-isme/backend-pay/internal/reconcile"
	"github.com/noah-isme/backend-pay/internal/redirect"
	"github.com/noah-isme/backend-pay/internal/settings"
	"github.com/noah-isme/backend-pay/internal/zarinpal"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "backend-pay",
			Endpoint:      cfg.TracingEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "backend-pay"
	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	orders := order.NewStore(pool)
	pendingStore := pending.NewStore(pool)
	settingsStore := settings.NewPGStore(pool)
	resolver := &settings.Resolver{
		Base: settings.Gateway{
			MerchantID:              cfg.GatewayMerchantID,
			UseSandbox:              cfg.GatewayUseSandbox,
			ContactEmail:            cfg.GatewayContactEmail,
			ContactPhone:            cfg.GatewayContactPhone,
			PassCartDetails:         cfg.PassCartDetails,
			ValidateTotalOnConfirm:  cfg.ValidateTotalOnConfirm,
			RedirectOnDecline:       cfg.RedirectOnDecline,
			AdditionalFee:           cfg.AdditionalFee,
			AdditionalFeePercentage: cfg.AdditionalFeePercentage,
		},
		Store: settingsStore,
	}

	bus := &events.Bus{
		Store:     events.NewPGStore(pool),
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	sandboxClient := zarinpal.NewHTTPClient(true, cfg.GatewayTimeout)
	productionClient := zarinpal.NewHTTPClient(false, cfg.GatewayTimeout)
	gateway := zarinpal.NewSelector(sandboxClient, productionClient)

	builder := &redirect.Builder{PublicBaseURL: cfg.PublicBaseURL, Pending: pendingStore}
	redirectHandler := &redirect.Handler{
		Orders:    orders,
		Builder:   builder,
		Resolver:  resolver,
		Gateway:   gateway,
		StoreName: "backend-pay",
		Logger:    logger,
		PayPageURL: func(useSandbox bool, authority string) string {
			if useSandbox {
				return sandboxClient.PayPageURL(authority)
			}
			return productionClient.PayPageURL(authority)
		},
	}

	reconciler := &reconcile.Reconciler{
		Orders:  orders,
		Pending: pendingStore,
		Gateway: gateway,
		Events:  bus,
		Logger:  logger,
	}
	callbackHandler := &reconcile.Handler{
		Orders:        orders,
		Resolver:      resolver,
		Reconciler:    reconciler,
		Locker:        lock.Locker{R: redisClient, TTL: cfg.LockTTL},
		Logger:        logger,
		StorefrontURL: cfg.PublicBaseURL,
	}

	settingsHandler := &settings.Handler{
		Resolver: resolver,
		Store:    settingsStore,
		Validate: validator.New(),
		Logger:   logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	adminGuard := auth.Admin{Secret: []byte(cfg.AdminJWTSecret)}
	callbackLimiter := newCallbackLimiter(redisClient, cfg.CallbackRateLimitPerMin)

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, cfg.MetricsBuckets, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.New(pool, redisClient)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	// Gateway-facing callbacks. Public, unauthenticated, rate limited.
	r.Route("/plugins/payment-gateway", func(p chi.Router) {
		p.Use(callbackLimiter)
		p.Get("/confirm", callbackHandler.Confirm)
		p.Get("/cancel", callbackHandler.Cancel)
	})

	r.Route("/api/v1", func(v chi.Router) {
		v.With(idem.Middleware).Post("/payments/redirect", redirectHandler.BuildRedirect)

		v.Route("/admin/settings", func(admin chi.Router) {
			admin.Use(adminGuard.RequireAdmin)
			admin.Get("/{storeID}", settingsHandler.GetResolved)
			admin.Put("/{storeID}", settingsHandler.PutOverride)
			admin.Delete("/{storeID}", settingsHandler.DeleteOverride)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newCallbackLimiter(client *redis.Client, perMinute int) func(http.Handler) http.Handler {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "rl:callback"})
	if err != nil {
		panic(err)
	}
	if perMinute <= 0 {
		perMinute = 60
	}
	instance := limiter.New(store, limiter.Rate{Period: time.Minute, Limit: int64(perMinute)})
	return limiterstdlib.NewMiddleware(instance).Handler
}
