package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger é o mínimo do client Redis que o Supervisor precisa.
// Permite fakes em teste sem servidor.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Supervisor gerencia a conexão com o store central e expõe a disponibilidade
// para o hot path.
//
// Estados: Connecting -> Connected (ping ok) ou -> Degraded (tentativas
// esgotadas). Degradação é pegajosa: depois de esgotar o backoff ninguém
// reconecta sozinho; só um Retry explícito (ou um novo Connect) tenta de novo.
// Erros de operação reportados via ReportFailure derrubam para Degraded na
// hora, sem propagar nada para quem chamou.
type Supervisor struct {
	client Pinger
	log    *zap.Logger

	state atomic.Int32

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	pingTimeout time.Duration

	mu   sync.Mutex
	subs []func(domain.StoreState)
}

type SupervisorOption func(*Supervisor)

func WithMaxAttempts(n int) SupervisorOption {
	return func(s *Supervisor) { s.maxAttempts = n }
}

func WithBackoff(base, max time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.baseBackoff = base
		s.maxBackoff = max
	}
}

func WithPingTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.pingTimeout = d }
}

func NewSupervisor(client Pinger, log *zap.Logger, opts ...SupervisorOption) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Supervisor{
		client:      client,
		log:         log,
		maxAttempts: 3,
		baseBackoff: 500 * time.Millisecond,
		maxBackoff:  5 * time.Second,
		pingTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(domain.StateConnecting))
	return s
}

func (s *Supervisor) State() domain.StoreState {
	return domain.StoreState(s.state.Load())
}

// Available implementa domain.StoreHealth. O(1), nunca bloqueia.
func (s *Supervisor) Available() bool {
	return s.State() == domain.StateConnected
}

// Subscribe registra um callback tipado chamado a cada transição de estado.
func (s *Supervisor) Subscribe(fn func(domain.StoreState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Connect tenta conectar com backoff exponencial limitado.
//
// Esgotadas as tentativas, marca Degraded e retorna o último erro; o chamador
// decide se segue em modo local. Seguro chamar de novo (Retry); com o estado
// já Connected é no-op, sem passar por Connecting.
func (s *Supervisor) Connect(ctx context.Context) error {
	if s.State() == domain.StateConnected {
		return nil
	}
	s.transition(domain.StateConnecting)

	backoff := s.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
		err := s.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			s.transition(domain.StateConnected)
			s.log.Info("quota store connected", zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err
		s.log.Warn("quota store ping failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err))

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			s.transition(domain.StateDegraded)
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}

	s.transition(domain.StateDegraded)
	return lastErr
}

// Retry é o pedido externo de reconexão depois de uma degradação.
func (s *Supervisor) Retry(ctx context.Context) error {
	return s.Connect(ctx)
}

// ReportFailure registra uma falha de transporte vinda de uma operação do
// store. Nunca propaga o erro; só degrada e loga.
func (s *Supervisor) ReportFailure(err error) {
	if s.transition(domain.StateDegraded) {
		s.log.Warn("quota store degraded, falling back to local accounting", zap.Error(err))
	}
}

// transition muda o estado e notifica assinantes. Retorna true se mudou.
func (s *Supervisor) transition(to domain.StoreState) bool {
	from := domain.StoreState(s.state.Swap(int32(to)))
	if from == to {
		return false
	}

	s.mu.Lock()
	subs := make([]func(domain.StoreState), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(to)
	}
	return true
}
