package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginKey_TrustedProxyUsesFirstForwardedIP(t *testing.T) {
	fn := OriginKey(true)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")

	if got := fn(r); got != "1.2.3.4" {
		t.Fatalf("expected first XFF ip, got %q", got)
	}
}

func TestOriginKey_TrustedProxyFallsBackToRealIP(t *testing.T) {
	fn := OriginKey(true)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Real-IP", "2.3.4.5")

	if got := fn(r); got != "2.3.4.5" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}
}

func TestOriginKey_UntrustedProxyIgnoresHeaders(t *testing.T) {
	fn := OriginKey(false)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected remote host, got %q", got)
	}
}

func TestOriginKey_AnonymousWhenNothingAvailable(t *testing.T) {
	fn := OriginKey(false)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = ""

	if got := fn(r); got != "anonymous" {
		t.Fatalf("expected anonymous fallback, got %q", got)
	}
}

func TestPrincipalKey_PrefersPrincipal(t *testing.T) {
	fn := PrincipalKey(PrincipalFromHeader("X-User-ID"), OriginKey(false))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-User-ID", " user-42 ")

	if got := fn(r); got != "user-42" {
		t.Fatalf("expected principal id, got %q", got)
	}
}

func TestPrincipalKey_FallsBackToOrigin(t *testing.T) {
	fn := PrincipalKey(PrincipalFromHeader("X-User-ID"), OriginKey(false))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "10.0.0.9" {
		t.Fatalf("expected origin fallback, got %q", got)
	}
}

func TestRouteKey_ComposesOriginAndPath(t *testing.T) {
	fn := RouteKey(OriginKey(false))

	r := httptest.NewRequest(http.MethodGet, "http://example/v1/chat/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "10.0.0.9:/v1/chat" {
		t.Fatalf("expected origin:path, got %q", got)
	}
}

func TestRouteKey_RootPath(t *testing.T) {
	fn := RouteKey(OriginKey(false))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.9:5555"

	if got := fn(r); got != "10.0.0.9:/" {
		t.Fatalf("expected root path, got %q", got)
	}
}
