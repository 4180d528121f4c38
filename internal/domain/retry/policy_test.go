package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{
			name:    "zero attempt",
			policy:  Policy{InitialDelay: time.Second, MaxDelay: time.Minute, BackoffStrategy: BackoffFixed},
			attempt: 0,
			want:    0,
		},
		{
			name:    "fixed backoff",
			policy:  Policy{InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffStrategy: BackoffFixed},
			attempt: 3,
			want:    2 * time.Second,
		},
		{
			name:    "linear backoff",
			policy:  Policy{InitialDelay: time.Second, MaxDelay: time.Minute, BackoffStrategy: BackoffLinear},
			attempt: 3,
			want:    3 * time.Second,
		},
		{
			name:    "exponential backoff",
			policy:  Policy{InitialDelay: time.Second, MaxDelay: time.Minute, BackoffStrategy: BackoffExponential},
			attempt: 3,
			want:    4 * time.Second,
		},
		{
			name:    "max delay cap",
			policy:  Policy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffStrategy: BackoffExponential},
			attempt: 10,
			want:    5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CalculateDelay(tt.attempt); got != tt.want {
				t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	policy := Policy{
		InitialDelay:    time.Second,
		MaxDelay:        time.Minute,
		BackoffStrategy: BackoffFixed,
		JitterFactor:    0.5,
	}

	for i := 0; i < 100; i++ {
		delay := policy.CalculateDelay(1)
		if delay < 500*time.Millisecond || delay > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside expected bounds", delay)
		}
	}
}

func TestExecuteWithResultSucceedsAfterRetries(t *testing.T) {
	transient := errors.New("transient")
	policy := Policy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: BackoffFixed}

	calls := 0
	result, err := ExecuteWithResult(context.Background(), policy,
		func(err error) bool { return errors.Is(err, transient) },
		func(ctx context.Context, attempt int) (string, error) {
			calls++
			if calls < 3 {
				return "", transient
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q, want ok", result)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteWithResultStopsOnNonRetryable(t *testing.T) {
	terminal := errors.New("terminal")
	policy := Policy{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: BackoffFixed}

	calls := 0
	_, err := ExecuteWithResult(context.Background(), policy,
		func(err error) bool { return false },
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, terminal
		})
	if !errors.Is(err, terminal) {
		t.Fatalf("error = %v, want terminal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecuteWithResultExhaustsRetries(t *testing.T) {
	transient := errors.New("transient")
	policy := Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffStrategy: BackoffFixed}

	calls := 0
	_, err := ExecuteWithResult(context.Background(), policy,
		func(err error) bool { return true },
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, transient
		})
	if !errors.Is(err, transient) {
		t.Fatalf("error = %v, want transient", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

func TestExecuteWithResultHonorsContextCancellation(t *testing.T) {
	policy := Policy{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond, BackoffStrategy: BackoffFixed}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := ExecuteWithResult(ctx, policy,
		func(err error) bool { return true },
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			return 0, errors.New("transient")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls == 0 {
		t.Error("fn was never invoked")
	}
}
