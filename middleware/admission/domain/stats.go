package domain

import (
	"context"
	"time"
)

// DecisionClass classifica o desfecho de uma decisão de admissão.
type DecisionClass string

const (
	DecisionAllowed  DecisionClass = "allowed"
	DecisionDenied   DecisionClass = "denied"
	DecisionFailOpen DecisionClass = "failopen"
)

// StatsEvent representa um evento de decisão de admissão.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (salvar Key/Path sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key   Key
	Class DecisionClass

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, memória, etc.
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
