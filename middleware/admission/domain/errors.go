package domain

import (
	"errors"
	"fmt"
)

// Erros sentinela do domínio.
//
// A taxonomia é fechada de propósito:
//   - ErrQuotaExceeded: condição esperada, vira 429 para o cliente.
//   - ErrStoreUnavailable: falha de transporte com o store central; nunca chega
//     ao cliente (a camada de aplicação faz fail-open).
// Qualquer outro erro de consume é "inesperado" e também resulta em fail-open.
var (
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrStoreUnavailable = errors.New("quota store unavailable")
)

// QuotaExceededError carrega o resultado do consume rejeitado
// (Remaining=0 e o RetryAfter que o cliente deve respeitar).
type QuotaExceededError struct {
	Consumption Consumption
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded, retry in %s", e.Consumption.RetryAfter)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// ExceededConsumption extrai a Consumption de um erro de quota estourada.
// Retorna zero value se o erro não for um QuotaExceededError.
func ExceededConsumption(err error) (Consumption, bool) {
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return qe.Consumption, true
	}
	return Consumption{}, false
}
