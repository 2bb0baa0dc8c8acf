// Package admission fornece adapters HTTP (net/http) para controle de admissão:
// quota por chave com degradação automática e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (registry de limiters, decisão de admissão,
//     acquire/timeout) sem net/http
//   - infra: implementações concretas (Supervisor do Redis, quota em Redis,
//     quota em memória, semáforo, stats)
//   - admission (este pacote): middlewares HTTP + derivação de chave +
//     tradução para status/headers/corpo 429
//
// Fluxo por request:
//
//  1. Deriva a origem e a chave de contabilização (IP/principal/rota)
//  2. Origem na whitelist passa direto, sem contabilizar
//  3. Consume no limiter do preset (central se o store estava disponível na
//     criação, local caso contrário)
//  4. Quota estourada responde 429 com Retry-After e corpo estruturado
//  5. Erro do store admite a request (fail-open) com warning limitado por taxa
//
// O limiter nunca devolve 5xx por falha própria: só o 429 esperado é visível
// para o cliente.
package admission
