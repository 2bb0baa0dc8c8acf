package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestQuotaConfig_Validate(t *testing.T) {
	valid := QuotaConfig{Points: 5, Window: time.Minute, Block: time.Minute, Namespace: "api"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []QuotaConfig{
		{Points: 0, Window: time.Minute, Namespace: "api"},
		{Points: 5, Window: 0, Namespace: "api"},
		{Points: 5, Window: time.Minute, Block: -time.Second, Namespace: "api"},
		{Points: 5, Window: time.Minute, Namespace: "  "},
		{Points: 5, Window: time.Minute, Namespace: "login", RewardOnSuccess: true, RewardOnFailure: true},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestQuotaConfig_Identity(t *testing.T) {
	a := QuotaConfig{Points: 5, Window: time.Minute, Namespace: "login"}
	b := QuotaConfig{Points: 5, Window: time.Minute, Namespace: "login", Block: 15 * time.Minute}
	c := QuotaConfig{Points: 5, Window: time.Minute, Namespace: "register"}

	// Block não participa da identidade
	if a.Identity() != b.Identity() {
		t.Fatalf("expected same identity, got %q vs %q", a.Identity(), b.Identity())
	}
	if a.Identity() == c.Identity() {
		t.Fatalf("expected distinct identities for distinct namespaces")
	}
}

func TestQuotaConfig_Whitelisted(t *testing.T) {
	cfg := QuotaConfig{Points: 1, Window: time.Minute, Namespace: "api", Whitelist: []string{"1.2.3.4", "10.0.0.1"}}
	if !cfg.Whitelisted("1.2.3.4") {
		t.Fatalf("expected 1.2.3.4 to be whitelisted")
	}
	if cfg.Whitelisted("5.6.7.8") {
		t.Fatalf("expected 5.6.7.8 to not be whitelisted")
	}
}

func TestQuotaExceededError_Taxonomy(t *testing.T) {
	err := &QuotaExceededError{Consumption: Consumption{Remaining: 0, RetryAfter: time.Minute}}

	if !IsQuotaExceeded(err) {
		t.Fatalf("expected IsQuotaExceeded")
	}
	if IsStoreUnavailable(err) {
		t.Fatalf("quota exceeded must not read as store unavailable")
	}

	c, ok := ExceededConsumption(err)
	if !ok {
		t.Fatalf("expected consumption to be extractable")
	}
	if c.RetryAfter != time.Minute {
		t.Fatalf("expected RetryAfter=1m, got %s", c.RetryAfter)
	}
}

func TestStoreUnavailable_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: dial tcp refused", ErrStoreUnavailable)
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected wrapped error to read as store unavailable")
	}
	if IsQuotaExceeded(err) {
		t.Fatalf("store unavailable must not read as quota exceeded")
	}
	if _, ok := ExceededConsumption(errors.New("other")); ok {
		t.Fatalf("expected no consumption from unrelated error")
	}
}
