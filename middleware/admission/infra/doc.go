// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - Supervisor: ciclo de vida da conexão com o Redis central
//   - RedisQuota: janela fixa atômica via script Lua embutido
//   - MemoryQuota: fallback local por processo, com janitor de chaves ociosas
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões
package infra
