package admission

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc deriva a chave de contabilização a partir da request.
// Contrato: nunca falha, nunca retorna vazio, determinística para a mesma
// entrada.
type KeyFunc func(r *http.Request) string

// PrincipalFunc extrai o id do principal autenticado, se houver.
// Retorna "" quando a request é anônima. A autenticação em si é de quem
// chama (JWT/sessão); aqui só consumimos o id já resolvido.
type PrincipalFunc func(r *http.Request) string

// OriginKey deriva a chave pela origem de rede: primeiro hop do
// X-Forwarded-For (quando o proxy é confiável), X-Real-IP, host do
// RemoteAddr, RemoteAddr cru, e por último o literal "anonymous".
func OriginKey(trustProxyHeaders bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxyHeaders {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				// pega o primeiro IP do X-Forwarded-For (cliente original)
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					if ip := strings.TrimSpace(parts[0]); ip != "" {
						return ip
					}
				}
			}
			if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
				return rip
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "anonymous"
	}
}

// PrincipalKey deriva a chave pelo principal autenticado, com fallback na
// origem quando a request é anônima.
func PrincipalKey(principal PrincipalFunc, fallback KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		if principal != nil {
			if id := strings.TrimSpace(principal(r)); id != "" {
				return id
			}
		}
		return fallback(r)
	}
}

// RouteKey compõe a chave base com a rota normalizada
// (ex: "1.2.3.4:/v1/chat"). Evita que uma rota barulhenta esgote a quota
// das outras para a mesma origem.
func RouteKey(base KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		return base(r) + ":" + normalizePath(r.URL.Path)
	}
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

// PrincipalFromHeader lê o principal de um header já resolvido por um
// middleware de autenticação anterior (ex: "X-User-ID").
func PrincipalFromHeader(name string) PrincipalFunc {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
}
