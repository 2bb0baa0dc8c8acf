package infra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/redis/go-redis/v9"
)

type fakePinger struct {
	mu       sync.Mutex
	failures int // quantos pings falham antes de passar
	calls    int
}

func (p *fakePinger) Ping(ctx context.Context) *redis.StatusCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	cmd := redis.NewStatusCmd(ctx)
	if p.calls <= p.failures {
		cmd.SetErr(errors.New("dial tcp: connection refused"))
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func fastSupervisor(p Pinger) *Supervisor {
	return NewSupervisor(p, nil,
		WithMaxAttempts(3),
		WithBackoff(time.Millisecond, 2*time.Millisecond),
		WithPingTimeout(50*time.Millisecond))
}

func TestSupervisor_ConnectSucceeds(t *testing.T) {
	s := fastSupervisor(&fakePinger{})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	if !s.Available() {
		t.Fatalf("expected available after connect")
	}
	if s.State() != domain.StateConnected {
		t.Fatalf("expected connected, got %s", s.State())
	}
}

func TestSupervisor_ConnectRetriesThenSucceeds(t *testing.T) {
	p := &fakePinger{failures: 2}
	s := fastSupervisor(p)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("expected connect to succeed on 3rd attempt, got %v", err)
	}
	if p.calls != 3 {
		t.Fatalf("expected 3 ping attempts, got %d", p.calls)
	}
}

func TestSupervisor_ConnectExhaustsAndDegrades(t *testing.T) {
	p := &fakePinger{failures: 100}
	s := fastSupervisor(p)

	if err := s.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error after exhausting attempts")
	}
	if s.Available() {
		t.Fatalf("expected unavailable after degradation")
	}
	if s.State() != domain.StateDegraded {
		t.Fatalf("expected degraded, got %s", s.State())
	}
	// degradação pegajosa: ninguém reconectou sozinho
	if p.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", p.calls)
	}
}

func TestSupervisor_RetryRecoversAfterDegradation(t *testing.T) {
	p := &fakePinger{failures: 3}
	s := fastSupervisor(p)

	_ = s.Connect(context.Background())
	if s.State() != domain.StateDegraded {
		t.Fatalf("expected degraded before retry, got %s", s.State())
	}

	if err := s.Retry(context.Background()); err != nil {
		t.Fatalf("expected retry to reconnect, got %v", err)
	}
	if !s.Available() {
		t.Fatalf("expected available after retry")
	}
}

func TestSupervisor_ConnectWhileConnectedIsNoop(t *testing.T) {
	p := &fakePinger{}
	s := fastSupervisor(p)
	_ = s.Connect(context.Background())

	var mu sync.Mutex
	var seen []domain.StoreState
	s.Subscribe(func(st domain.StoreState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	// já Connected: nem pinga, nem passa por Connecting
	if err := s.Retry(context.Background()); err != nil {
		t.Fatalf("expected noop retry to succeed, got %v", err)
	}
	if !s.Available() {
		t.Fatalf("expected to stay available through redundant retry")
	}
	if p.calls != 1 {
		t.Fatalf("expected no extra ping, got %d calls", p.calls)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 0 {
		t.Fatalf("expected no notifications, got %v", seen)
	}
}

func TestSupervisor_ReportFailureDegrades(t *testing.T) {
	s := fastSupervisor(&fakePinger{})
	_ = s.Connect(context.Background())

	s.ReportFailure(errors.New("broken pipe"))
	if s.Available() {
		t.Fatalf("expected unavailable after reported failure")
	}
}

func TestSupervisor_SubscribersSeeTransitions(t *testing.T) {
	s := fastSupervisor(&fakePinger{})

	var mu sync.Mutex
	var seen []domain.StoreState
	s.Subscribe(func(st domain.StoreState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	_ = s.Connect(context.Background())
	s.ReportFailure(errors.New("broken pipe"))
	s.ReportFailure(errors.New("broken pipe")) // mesma transição, não notifica

	mu.Lock()
	defer mu.Unlock()
	want := []domain.StoreState{domain.StateConnected, domain.StateDegraded}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d (%v)", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}
