package infra

import (
	"context"
	"sync"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// MemoryQuota é o fallback local: janela fixa com bloqueio, por processo.
//
// Em modo degradado cada instância do serviço contabiliza sozinha, então a
// quota efetiva do cluster vira points × instâncias vivas. Limitação aceita
// e documentada do modo degradado, não é bug.
type MemoryQuota struct {
	mu      sync.Mutex
	cfg     domain.QuotaConfig
	entries map[string]*quotaEntry

	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type quotaEntry struct {
	consumed     int
	windowEnd    time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

type MemoryQuotaOption func(*MemoryQuota)

func WithIdleTTL(d time.Duration) MemoryQuotaOption {
	return func(m *MemoryQuota) { m.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryQuotaOption {
	return func(m *MemoryQuota) { m.cleanupEvery = d }
}

func NewMemoryQuota(cfg domain.QuotaConfig, opts ...MemoryQuotaOption) *MemoryQuota {
	m := &MemoryQuota{
		cfg:          cfg,
		entries:      make(map[string]*quotaEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Consume implementa domain.Quota.
func (m *MemoryQuota) Consume(_ context.Context, key string, points int) (domain.Consumption, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		e = &quotaEntry{windowEnd: now.Add(m.cfg.Window)}
		m.entries[key] = e
	}
	e.lastSeen = now

	if !e.blockedUntil.IsZero() {
		if now.Before(e.blockedUntil) {
			c := domain.Consumption{
				Remaining:  0,
				RetryAfter: e.blockedUntil.Sub(now),
				ResetAt:    e.blockedUntil,
			}
			return c, &domain.QuotaExceededError{Consumption: c}
		}
		// bloqueio venceu: janela nova
		e.consumed = 0
		e.blockedUntil = time.Time{}
		e.windowEnd = now.Add(m.cfg.Window)
	} else if !now.Before(e.windowEnd) {
		e.consumed = 0
		e.windowEnd = now.Add(m.cfg.Window)
	}

	e.consumed += points

	if e.consumed > m.cfg.Points {
		reset := e.windowEnd
		if m.cfg.Block > 0 {
			e.blockedUntil = now.Add(m.cfg.Block)
			reset = e.blockedUntil
		}
		c := domain.Consumption{
			Remaining:  0,
			RetryAfter: reset.Sub(now),
			ResetAt:    reset,
		}
		return c, &domain.QuotaExceededError{Consumption: c}
	}

	reset := e.windowEnd
	if e.consumed == m.cfg.Points && m.cfg.Block > 0 {
		// ultimo ponto da janela: entra em Blocked ja aqui
		e.blockedUntil = now.Add(m.cfg.Block)
		reset = e.blockedUntil
	}

	return domain.Consumption{
		Remaining:  m.cfg.Points - e.consumed,
		RetryAfter: reset.Sub(now),
		ResetAt:    reset,
	}, nil
}

// Reward implementa domain.Quota: devolve pontos (piso em zero) e solta o
// bloqueio se a chave voltou a ter quota.
func (m *MemoryQuota) Reward(_ context.Context, key string, points int) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.consumed <= 0 {
		return nil
	}
	e.lastSeen = now

	e.consumed -= points
	if e.consumed < 0 {
		e.consumed = 0
	}
	if e.consumed < m.cfg.Points {
		e.blockedUntil = time.Time{}
	}
	return nil
}

// Cleanup remove chaves ociosas (sem atividade além do idleTTL e sem bloqueio
// vigente).
func (m *MemoryQuota) Cleanup() {
	now := time.Now()
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.entries {
		if e.lastSeen.Before(cutoff) && (e.blockedUntil.IsZero() || now.After(e.blockedUntil)) {
			delete(m.entries, k)
		}
	}
}

// Len retorna quantas chaves têm estado vivo (útil para testes).
func (m *MemoryQuota) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (m *MemoryQuota) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}
