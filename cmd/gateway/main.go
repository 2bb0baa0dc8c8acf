package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := readConfig()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Fatal("invalid UPSTREAM_URL", zap.Error(err))
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		health  domain.StoreHealth
		central application.BackingFactory
		stats   domain.StatsStore
	)

	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		sup := infra.NewSupervisor(rdb, logger)
		sup.Subscribe(func(st domain.StoreState) {
			logger.Info("quota store state changed", zap.Stringer("state", st))
		})
		if err := sup.Connect(ctx); err != nil {
			// sem fatal: o serviço sobe em modo local e segue funcionando
			logger.Warn("starting with local quota accounting", zap.Error(err))
		}

		health = sup
		central = func(qc domain.QuotaConfig) domain.Quota {
			return infra.NewRedisQuota(rdb, qc, infra.WithFailureReporter(sup))
		}

		if cfg.statsEnabled {
			stats = infra.NewRedisStatsStore(rdb,
				infra.WithStatsPrefix(cfg.statsPrefix),
				infra.WithStatsTTL(cfg.statsTTL),
				infra.WithStatsTrackKeys(cfg.statsTrackKeys),
			)
		}
	} else {
		logger.Info("no REDIS_ADDR configured, quota accounting is local-only")
	}

	local := func(qc domain.QuotaConfig) domain.Quota {
		m := infra.NewMemoryQuota(qc)
		m.StartJanitor(ctx)
		return m
	}
	registry := application.NewRegistry(health, central, local)

	guard := func(preset string) http.Handler {
		qc, ok := domain.Preset(preset)
		if !ok {
			logger.Fatal("unknown preset", zap.String("preset", preset))
		}
		qc.Whitelist = cfg.whitelist
		return admission.Middleware(admission.Options{
			Quotas:            registry,
			Config:            qc,
			PrincipalFn:       admission.PrincipalFromHeader(cfg.principalHeader),
			Stats:             stats,
			Logger:            logger,
			TrustProxyHeaders: cfg.trustXFF,
		})(http.Handler(proxy))
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/chat/", admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(guard(domain.PresetChat)))
	mux.Handle("/admin/", guard(domain.PresetAdmin))
	mux.Handle("/auth/login", guard(domain.PresetLogin))
	mux.Handle("/auth/register", guard(domain.PresetRegister))
	mux.Handle("/", guard(domain.PresetAPI))

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("upstream", target.String()),
		zap.Bool("redis", cfg.redisAddr != ""),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Int("concurrency_max", cfg.concurrencyMax))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

type config struct {
	listenAddr  string
	upstreamURL string

	trustXFF        bool
	principalHeader string
	whitelist       []string

	redisAddr     string
	redisPassword string
	redisDB       int

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsTrackKeys bool

	concurrencyMax     int
	concurrencyTimeout time.Duration
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.principalHeader = getenvDefault("PRINCIPAL_HEADER", "X-User-ID")
	cfg.whitelist = splitCSV(os.Getenv("ADMISSION_WHITELIST"))

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "admission:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.statsEnabled && cfg.redisAddr == "" {
		return config{}, errors.New("REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
