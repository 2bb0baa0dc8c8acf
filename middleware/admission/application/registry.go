package application

import (
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// BackingFactory cria um limiter concreto para uma config.
type BackingFactory func(cfg domain.QuotaConfig) domain.Quota

// Registry cria e guarda um limiter por identidade de QuotaConfig.
//
// A escolha de backing (central vs local) acontece uma única vez, na criação:
// um limiter já criado nunca é re-avaliado nem substituído, mesmo que o store
// central caia ou volte depois. Falhas de um limiter central já criado são
// tratadas por chamada, via fail-open no Service.
//
// Cardinalidade limitada: uma entrada por preset nomeado; nada é removido
// durante operação normal.
type Registry struct {
	mu      sync.Mutex
	entries map[string]domain.Quota

	health  domain.StoreHealth
	central BackingFactory
	local   BackingFactory
}

func NewRegistry(health domain.StoreHealth, central, local BackingFactory) *Registry {
	if health == nil {
		health = domain.AlwaysLocal{}
	}
	return &Registry{
		entries: make(map[string]domain.Quota),
		health:  health,
		central: central,
		local:   local,
	}
}

// GetOrCreate retorna o limiter da config, criando na primeira chamada.
//
// Backing central só é escolhido se houver factory central e o store estiver
// disponível neste instante.
func (r *Registry) GetOrCreate(cfg domain.QuotaConfig) domain.Quota {
	id := cfg.Identity()

	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.entries[id]; ok {
		return q
	}

	var q domain.Quota
	if r.central != nil && r.health.Available() {
		q = r.central(cfg)
	} else {
		q = r.local(cfg)
	}
	r.entries[id] = q
	return q
}

// Len retorna quantos limiters existem (útil para testes/inspeção).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
