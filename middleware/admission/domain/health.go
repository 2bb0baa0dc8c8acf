package domain

// StoreState é o estado da conexão com o store central.
//
// Transições: Connecting -> Connected (sucesso) ou Connecting -> Degraded
// (tentativas esgotadas). De Connected só se sai para Degraded (erro de
// transporte), e de Degraded só se volta para Connected com um sinal positivo
// de reconexão. Sem flapping automático.
type StoreState int

const (
	StateConnecting StoreState = iota
	StateConnected
	StateDegraded
)

func (s StoreState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// StoreHealth expõe a disponibilidade do store central.
//
// Available deve ser O(1) e nunca bloquear: é consultado no hot path de cada
// request (o registry decide o backing de um limiter novo com base nela).
type StoreHealth interface {
	Available() bool
}

// AlwaysLocal é a saúde usada no modo local-only (sem store central
// configurado): nunca disponível, todo limiter nasce com backing em memória.
type AlwaysLocal struct{}

func (AlwaysLocal) Available() bool { return false }
