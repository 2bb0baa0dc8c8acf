// Package application contém os casos de uso do controle de admissão.
//
// Ele depende apenas do pacote domain e não conhece net/http.
//
//   - Registry: cache de um limiter por identidade de QuotaConfig, escolhendo
//     backing central ou local no momento da criação.
//   - Service: decisão de admissão por request (whitelist, consume, fail-open).
//   - ConcurrencyService: aquisição de vaga com timeout para rotas caras.
package application
