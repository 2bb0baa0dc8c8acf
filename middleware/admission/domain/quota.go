package domain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

type Key string

// QuotaConfig descreve uma política de quota: `Points` consumos por `Window`,
// com bloqueio de `Block` após estourar.
//
// Imutável depois de criada. A identidade (ver Identity) é o trio
// (Namespace, Points, Window): duas configs com a mesma identidade compartilham
// o mesmo limiter no registry.
type QuotaConfig struct {
	Points    int
	Window    time.Duration
	Block     time.Duration
	Namespace string

	// Whitelist contém origens (IPs/principals) que nunca são contabilizadas.
	Whitelist []string

	// RewardOnSuccess devolve o ponto consumido quando a resposta termina com
	// status < 400 (ex: login correto não conta contra a quota).
	// RewardOnFailure é o inverso (só cobra quem teve sucesso).
	RewardOnSuccess bool
	RewardOnFailure bool
}

func (c QuotaConfig) Validate() error {
	if c.Points <= 0 {
		return errors.New("quota: points must be > 0")
	}
	if c.Window <= 0 {
		return errors.New("quota: window must be > 0")
	}
	if c.Block < 0 {
		return errors.New("quota: block must be >= 0")
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("quota: namespace is required")
	}
	if c.RewardOnSuccess && c.RewardOnFailure {
		return errors.New("quota: reward on success and on failure are mutually exclusive")
	}
	return nil
}

// Identity é a chave de cache do registry.
// Configs distintas com mesma identidade são tratadas como a mesma política.
func (c QuotaConfig) Identity() string {
	return c.Namespace + "|" + strconv.Itoa(c.Points) + "|" + strconv.FormatInt(int64(c.Window/time.Second), 10)
}

// Whitelisted informa se a origem está isenta de contabilização.
// Comparação exata; a lista é pequena (consultada no hot path).
func (c QuotaConfig) Whitelisted(origin string) bool {
	for _, w := range c.Whitelist {
		if w == origin {
			return true
		}
	}
	return false
}

// Consumption é o resultado de um consume (aceito ou rejeitado).
//
// Remaining nunca é negativo. RetryAfter indica quanto falta para o próximo
// ponto ficar disponível (janela atual ou fim do bloqueio).
type Consumption struct {
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Quota representa um limiter vivo: consome e devolve pontos de uma chave.
//
// Implementações podem ser centralizadas (Redis) ou locais (memória).
// Consume e Reward não devem fazer I/O além de uma única ida ao store.
type Quota interface {
	// Consume debita `points` da chave. Quando a quota estoura, retorna uma
	// Consumption com Remaining=0 e um erro que satisfaz IsQuotaExceeded.
	Consume(ctx context.Context, key string, points int) (Consumption, error)

	// Reward devolve `points` à chave (piso em zero). Best-effort.
	Reward(ctx context.Context, key string, points int) error
}
