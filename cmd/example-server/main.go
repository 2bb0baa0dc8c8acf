package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func main() {
	// Exemplo: injetando a admissão direto no seu webserver, sem proxy e sem
	// Redis (modo local-only).
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := application.NewRegistry(nil, nil, func(qc domain.QuotaConfig) domain.Quota {
		m := infra.NewMemoryQuota(qc)
		m.StartJanitor(ctx)
		return m
	})

	guard := func(preset string) func(http.Handler) http.Handler {
		qc, _ := domain.Preset(preset)
		return admission.Middleware(admission.Options{
			Quotas:            registry,
			Config:            qc,
			PrincipalFn:       admission.PrincipalFromHeader("X-User-ID"),
			Logger:            logger,
			TrustProxyHeaders: true,
		})
	}

	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(body + "\n"))
		}
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(guard(domain.PresetAPI))
		r.Get("/", ok("ok"))
	})
	r.Group(func(r chi.Router) {
		r.Use(admission.ConcurrencyMiddleware(admission.ConcurrencyOptions{Max: 10}))
		r.Use(guard(domain.PresetChat))
		r.Post("/v1/chat", ok("completion"))
	})
	r.Group(func(r chi.Router) {
		r.Use(guard(domain.PresetLogin))
		r.Post("/auth/login", ok("logged in"))
	})
	r.Group(func(r chi.Router) {
		r.Use(guard(domain.PresetRegister))
		r.Post("/auth/register", ok("registered"))
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
