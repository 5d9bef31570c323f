package kafka

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffFor(t *testing.T) {
	c := &Consumer{retryBackoff: 100 * time.Millisecond}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}
	for attempt, wantWait := range want {
		if got := c.backoffFor(attempt); got != wantWait {
			t.Errorf("backoffFor(%d) = %s, want %s", attempt, got, wantWait)
		}
	}

	disabled := &Consumer{}
	if got := disabled.backoffFor(0); got != 0 {
		t.Errorf("zero backoff must disable the delay, got %s", got)
	}
}

func TestProcessMessage_RetriesTransientFailuresWithBackoff(t *testing.T) {
	attempts := 0
	c := &Consumer{
		maxRetries:   3,
		retryBackoff: time.Millisecond,
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	}

	msg, err := NewMessage().WithKey("b-1").WithRawValue([]byte("{}")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	start := time.Now()
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	// Two retries waited 1ms + 2ms.
	if elapsed := time.Since(start); elapsed < 3*time.Millisecond {
		t.Errorf("retries completed in %s, expected backoff between attempts", elapsed)
	}
}

func TestProcessMessage_BackoffHonorsCancellation(t *testing.T) {
	c := &Consumer{
		maxRetries:   3,
		retryBackoff: time.Minute,
		handler: func(ctx context.Context, msg Message) error {
			return errors.New("connection refused")
		},
	}

	msg, err := NewMessage().WithKey("b-1").WithRawValue([]byte("{}")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.processMessage(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled during backoff, got %v", err)
	}
}

func TestProcessMessage_PermanentFailureSkipsRetries(t *testing.T) {
	attempts := 0
	c := &Consumer{
		maxRetries:   3,
		retryBackoff: time.Minute, // would stall the test if a retry slept
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			return NewPermanentError("bad payload", nil)
		},
	}

	msg, err := NewMessage().WithKey("b-1").WithRawValue([]byte("not json")).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := c.processMessage(context.Background(), msg); err == nil {
		t.Fatal("expected the permanent error to surface")
	}
	if attempts != 1 {
		t.Errorf("permanent failures must not retry, got %d attempts", attempts)
	}
}
