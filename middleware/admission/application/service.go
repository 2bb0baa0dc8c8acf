package application

import (
	"context"

	"admission-gateway/middleware/admission/domain"
)

// QuotaSource abstrai o Registry para o Service (e para fakes em teste).
type QuotaSource interface {
	GetOrCreate(cfg domain.QuotaConfig) domain.Quota
}

// Decision é o resultado de uma decisão de admissão.
//
// FailOpen indica que a request foi admitida porque o consume falhou
// (store indisponível ou erro inesperado), não porque havia quota.
type Decision struct {
	Admitted    bool
	FailOpen    bool
	Whitelisted bool
	Consumption domain.Consumption

	// Err é o erro que causou o fail-open, para log na camada HTTP.
	Err error
}

// Service concentra a regra de admissão por request.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Quotas QuotaSource
}

// Decide aplica o algoritmo de admissão:
//
//  1. origem na whitelist admite direto, sem contabilizar nada;
//  2. consume de 1 ponto no limiter da config;
//  3. quota estourada rejeita com Remaining=0 e RetryAfter;
//  4. qualquer outro erro admite (fail-open): o limiter nunca pode ser
//     o ponto único de falha do serviço protegido.
func (s Service) Decide(ctx context.Context, cfg domain.QuotaConfig, origin, key string) Decision {
	if cfg.Whitelisted(origin) {
		return Decision{Admitted: true, Whitelisted: true}
	}
	if s.Quotas == nil {
		return Decision{Admitted: true}
	}

	q := s.Quotas.GetOrCreate(cfg)
	res, err := q.Consume(ctx, key, 1)
	if err == nil {
		return Decision{Admitted: true, Consumption: res}
	}
	if c, ok := domain.ExceededConsumption(err); ok {
		return Decision{Admitted: false, Consumption: c}
	}
	return Decision{Admitted: true, FailOpen: true, Err: err}
}
