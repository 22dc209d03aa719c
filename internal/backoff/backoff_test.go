package backoff_test

import (
	"context"
	"testing"
	"time"

	"github.com/alex-ant/gomath/rational"
	"github.com/stretchr/testify/assert"

	"github.com/koyeb/sandbox-go/internal/backoff"
)

func TestFixed(t *testing.T) {
	b := backoff.NewFixed(100)
	for i := 1; i <= 1000; i++ {
		assert.Equal(t, time.Duration(100), b.Wait(context.Background(), i))
	}
}

func TestRandomized(t *testing.T) {
	b := backoff.NewRandomized(backoff.NewFixed(100), rational.New(1, 2), rational.New(3, 2))
	for i := 1; i <= 1000; i++ {
		wait := b.Wait(context.Background(), i)
		if wait < 50 || wait > 150 {
			t.Fatalf("unexpected wait %v", wait)
		}
	}
}

func TestLimited(t *testing.T) {
	b := backoff.NewLimited(backoff.NewRandomized(backoff.NewFixed(100), rational.New(1, 2), rational.New(3, 2)), 80, 120)
	for i := 1; i <= 1000; i++ {
		wait := b.Wait(context.Background(), i)
		if wait < 80 || wait > 120 {
			t.Fatalf("unexpected wait %v", wait)
		}
	}
}

func TestExponential(t *testing.T) {
	b := backoff.NewExponential(100, 2)
	expected := []time.Duration{100, 100, 200, 400, 800, 1600}
	for attempt, want := range expected {
		assert.Equal(t, want, b.Wait(context.Background(), attempt))
	}
}
