package infra

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
)

//go:embed consume.lua
var consumeScript string

//go:embed reward.lua
var rewardScript string

// Scripter é o mínimo do client Redis que o RedisQuota precisa.
// Permite fakes em teste sem servidor.
type Scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// FailureReporter recebe falhas de transporte (normalmente o Supervisor).
type FailureReporter interface {
	ReportFailure(err error)
}

// RedisQuota é o limiter centralizado: janela fixa com bloqueio, atômica em
// uma única ida ao Redis via script Lua. Duas instâncias do serviço batendo
// na mesma chave nunca veem as duas o mesmo "último ponto disponível".
//
// As chaves expiram sozinhas (PEXPIRE na janela, PX no bloqueio).
type RedisQuota struct {
	client   Scripter
	cfg      domain.QuotaConfig
	prefix   string
	reporter FailureReporter
}

type RedisQuotaOption func(*RedisQuota)

func WithQuotaPrefix(prefix string) RedisQuotaOption {
	return func(q *RedisQuota) { q.prefix = strings.Trim(prefix, ":") }
}

func WithFailureReporter(r FailureReporter) RedisQuotaOption {
	return func(q *RedisQuota) { q.reporter = r }
}

func NewRedisQuota(client Scripter, cfg domain.QuotaConfig, opts ...RedisQuotaOption) *RedisQuota {
	q := &RedisQuota{
		client: client,
		cfg:    cfg,
		prefix: "admission",
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQuota) keys(key string) []string {
	base := q.prefix + ":" + q.cfg.Namespace + ":" + key
	return []string{base, base + ":block"}
}

// Consume implementa domain.Quota.
func (q *RedisQuota) Consume(ctx context.Context, key string, points int) (domain.Consumption, error) {
	result, err := q.client.Eval(ctx, consumeScript, q.keys(key),
		q.cfg.Points,
		q.cfg.Window.Milliseconds(),
		q.cfg.Block.Milliseconds(),
		points,
	).Result()
	if err != nil {
		if q.reporter != nil {
			q.reporter.ReportFailure(err)
		}
		return domain.Consumption{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	allowed, remaining, resetMs, err := decodeConsume(result)
	if err != nil {
		return domain.Consumption{}, err
	}

	c := domain.Consumption{
		Remaining:  int(remaining),
		RetryAfter: time.Duration(resetMs) * time.Millisecond,
		ResetAt:    time.Now().Add(time.Duration(resetMs) * time.Millisecond),
	}
	if !allowed {
		return c, &domain.QuotaExceededError{Consumption: c}
	}
	return c, nil
}

// Reward implementa domain.Quota. Best-effort: falha de transporte degrada
// mas não é repassada como quota.
func (q *RedisQuota) Reward(ctx context.Context, key string, points int) error {
	err := q.client.Eval(ctx, rewardScript, q.keys(key),
		points,
		q.cfg.Points,
	).Err()
	if err != nil {
		if q.reporter != nil {
			q.reporter.ReportFailure(err)
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func decodeConsume(result interface{}) (allowed bool, remaining, resetMs int64, err error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected consume script result: %T", result)
	}
	nums := make([]int64, 3)
	for i, v := range values {
		n, convErr := toInt64(v)
		if convErr != nil {
			return false, 0, 0, convErr
		}
		nums[i] = n
	}
	if nums[2] < 0 {
		// PTTL pode devolver -1/-2 em corridas com a expiração
		nums[2] = 0
	}
	return nums[0] == 1, nums[1], nums[2], nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type in script result: %T", v)
	}
}
