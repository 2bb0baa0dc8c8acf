package admission

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	// Quotas é a fonte de limiters (normalmente o application.Registry).
	Quotas application.QuotaSource

	// Config é a política de quota desta cadeia (normalmente um preset).
	Config domain.QuotaConfig

	// KeyFn deriva a chave de contabilização. Quando nil, usa o principal
	// (se PrincipalFn estiver setado) com fallback na origem.
	KeyFn KeyFunc

	// PrincipalFn extrai o principal autenticado, se houver.
	PrincipalFn PrincipalFunc

	// Stats recebe cada decisão (best-effort, nunca derruba a request).
	Stats domain.StatsStore

	Logger *zap.Logger

	// TrustProxyHeaders habilita X-Forwarded-For / X-Real-IP na derivação
	// de origem.
	TrustProxyHeaders bool

	RejectStatus int

	// WarnEvery limita a frequência dos warnings de fail-open no hot path.
	WarnEvery time.Duration

	// RewardTimeout limita a ida ao store do hook de reward pós-resposta.
	RewardTimeout time.Duration
}

// corpo do 429, contrato estável com os clientes
type rejectionBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
	Timestamp  string `json:"timestamp"`
}

// Middleware aplica a política de admissão da config em cada request.
//
// Headers em toda request contabilizada: X-RateLimit-Limit, -Remaining e
// -Reset (epoch em milissegundos). Na rejeição, também Retry-After (segundos
// inteiros, arredondados para cima) e corpo JSON com code
// "RATE_LIMIT_EXCEEDED". Falha do store nunca vira 5xx: a request passa e
// fica um warning (limitado por taxa) no log.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Quotas == nil {
		// sem fonte de quotas não há o que decidir
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.WarnEvery <= 0 {
		opts.WarnEvery = 10 * time.Second
	}
	if opts.RewardTimeout <= 0 {
		opts.RewardTimeout = 2 * time.Second
	}

	originFn := OriginKey(opts.TrustProxyHeaders)
	if opts.KeyFn == nil {
		if opts.PrincipalFn != nil {
			opts.KeyFn = PrincipalKey(opts.PrincipalFn, originFn)
		} else {
			opts.KeyFn = originFn
		}
	}

	svc := application.Service{Quotas: opts.Quotas}
	warnLimit := rate.NewLimiter(rate.Every(opts.WarnEvery), 1)
	rewarding := opts.Config.RewardOnSuccess || opts.Config.RewardOnFailure

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := originFn(r)
			key := opts.KeyFn(r)

			dec := svc.Decide(r.Context(), opts.Config, origin, key)
			recordStats(r, opts.Stats, key, dec)

			if dec.Whitelisted {
				// isenta: nenhum header, nenhum estado criado
				next.ServeHTTP(w, r)
				return
			}

			if dec.FailOpen {
				if warnLimit.Allow() {
					opts.Logger.Warn("admission fail-open, request admitted without accounting",
						zap.String("key", key),
						zap.String("quota", opts.Config.Identity()),
						zap.Error(dec.Err))
				}
				next.ServeHTTP(w, r)
				return
			}

			setQuotaHeaders(w, opts.Config.Points, dec.Consumption)

			if !dec.Admitted {
				retryAfter := ceilSeconds(dec.Consumption.RetryAfter)
				w.Header().Set("Retry-After", formatInt(retryAfter))
				opts.Logger.Info("quota exceeded",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.Int("retry_after_s", retryAfter))
				writeRejection(w, opts.RejectStatus, retryAfter)
				return
			}

			if !rewarding {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// request abortada pelo cliente: hook vira no-op
			if r.Context().Err() != nil {
				return
			}
			success := rec.status < http.StatusBadRequest
			if (opts.Config.RewardOnSuccess && success) || (opts.Config.RewardOnFailure && !success) {
				q := opts.Quotas.GetOrCreate(opts.Config)
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), opts.RewardTimeout)
					defer cancel()
					if err := q.Reward(ctx, key, 1); err != nil {
						opts.Logger.Warn("quota reward failed",
							zap.String("key", key),
							zap.Error(err))
					}
				}()
			}
		})
	}
}

func recordStats(r *http.Request, stats domain.StatsStore, key string, dec application.Decision) {
	if stats == nil {
		return
	}
	class := domain.DecisionAllowed
	switch {
	case dec.FailOpen:
		class = domain.DecisionFailOpen
	case !dec.Admitted:
		class = domain.DecisionDenied
	}
	_ = stats.Record(r.Context(), domain.StatsEvent{
		Key:    domain.Key(key),
		Class:  class,
		Method: r.Method,
		Path:   r.URL.Path,
		At:     time.Now(),
	})
}

func setQuotaHeaders(w http.ResponseWriter, limit int, c domain.Consumption) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", formatInt(limit))
	h.Set("X-RateLimit-Remaining", formatInt(c.Remaining))
	h.Set("X-RateLimit-Reset", formatInt64(c.ResetAt.UnixMilli()))
}

func writeRejection(w http.ResponseWriter, status, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejectionBody{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "too many requests, quota exhausted for this key",
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// statusRecorder captura o status final para os hooks de reward.
// Repassa Flush e expõe Unwrap para o http.ResponseController chegar em
// Hijack/ReaderFrom do writer original.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
