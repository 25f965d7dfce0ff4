package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetryConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	errBrokerDown := errors.New("broker unreachable")
	attempts := 0
	err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBrokerDown
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errBrokerDown), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsOnNonRetryableError(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	errBadKey := errors.New("invalid api key")
	attempts := 0
	err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
		attempts++
		return errBadKey
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errBadKey) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-retryable error must not be retried, attempts=%d", attempts)
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	exec := NewExecutor(fastRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "llm.complete", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if called {
		t.Fatal("callback must not run after cancellation")
	}
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker = BreakerPolicy{
		Enabled:          true,
		MinRequests:      2,
		FailureRatio:     0.5,
		OpenTimeout:      50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	exec := NewExecutor(cfg)

	errDown := errors.New("gateway down")
	record := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		if err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
			return errDown
		}, record); !errors.Is(err, errDown) {
			t.Fatalf("call %d: expected gateway error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
		t.Fatal("open circuit must not invoke the callback")
		return nil
	}, record)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open-circuit error, got %v", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected gobreaker open state, got %v", err)
	}
}

func TestBreakersAreIsolatedPerOperation(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker = BreakerPolicy{
		Enabled:          true,
		MinRequests:      1,
		FailureRatio:     0.5,
		OpenTimeout:      time.Second,
		HalfOpenMaxCalls: 1,
	}
	exec := NewExecutor(cfg)

	record := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}
	_ = exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
		return errors.New("down")
	}, record)

	// The llm.complete breaker is open now; nats.publish must still pass.
	if err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		return nil
	}, record); err != nil {
		t.Fatalf("unrelated operation affected by open breaker: %v", err)
	}
}

func TestIgnoredFailuresDoNotTripBreaker(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.Retry.MaxAttempts = 1
	cfg.Breaker = BreakerPolicy{
		Enabled:          true,
		MinRequests:      2,
		FailureRatio:     0.5,
		OpenTimeout:      time.Second,
		HalfOpenMaxCalls: 1,
	}
	exec := NewExecutor(cfg)

	errRateLimit := errors.New("quota exhausted")
	ignore := func(error) ErrorClassification {
		return ErrorClassification{}
	}

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
			return errRateLimit
		}, ignore)
	}

	err := exec.Execute(context.Background(), "llm.complete", func(context.Context) error {
		return nil
	}, ignore)
	if err != nil {
		t.Fatalf("breaker tripped on unrecorded failures: %v", err)
	}
}
