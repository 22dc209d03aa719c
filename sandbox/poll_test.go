package sandbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyeb/sandbox-go/internal/backoff"
)

func TestWaitForTimeout(t *testing.T) {
	var calls int32
	start := time.Now()
	ok, err := WaitFor(context.Background(), func(context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	}, time.Second, WithPollInterval(100*time.Millisecond))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 1300*time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(9))
}

func TestWaitForSucceedsOnThirdCall(t *testing.T) {
	calls := 0
	start := time.Now()
	ok, err := WaitFor(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	}, time.Second, WithPollInterval(100*time.Millisecond))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForHonorsSlowLastAttempt(t *testing.T) {
	calls := 0
	ok, err := WaitFor(context.Background(), func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			// 第二次调用在截止时间之前开始，结束时已经超时
			time.Sleep(150 * time.Millisecond)
			return true, nil
		}
		return false, nil
	}, 100*time.Millisecond, WithPollInterval(50*time.Millisecond))

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWaitForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	ok, err := WaitFor(ctx, func(context.Context) (bool, error) {
		calls++
		return false, nil
	}, 10*time.Second, WithPollInterval(time.Second))

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForPredicateError(t *testing.T) {
	boom := errors.New("boom")
	ok, err := WaitFor(context.Background(), func(context.Context) (bool, error) {
		return false, boom
	}, time.Second)

	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestWaitForOptions(t *testing.T) {
	var attempts []int
	var waits []int
	policy := backoff.Func(func(_ context.Context, attempt int) time.Duration {
		waits = append(waits, attempt)
		return time.Millisecond
	})

	calls := 0
	ok, err := WaitFor(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls == 4, nil
	}, time.Second, WithIntervalPolicy(policy), WithOnPoll(func(attempt int) {
		attempts = append(attempts, attempt)
	}))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3, 4}, attempts)
	assert.Equal(t, []int{1, 2, 3}, waits)
}

func TestPollIntervalPolicy(t *testing.T) {
	ctx := context.Background()

	o := defaultPollOpts()
	assert.Equal(t, DefaultPollInterval, o.intervalPolicy().Wait(ctx, 5))

	o = defaultPollOpts()
	WithPollInterval(100 * time.Millisecond)(o)
	WithBackoff(2, 300*time.Millisecond)(o)
	b := o.intervalPolicy()
	assert.Equal(t, 100*time.Millisecond, b.Wait(ctx, 1))
	assert.Equal(t, 200*time.Millisecond, b.Wait(ctx, 2))
	assert.Equal(t, 300*time.Millisecond, b.Wait(ctx, 3))

	o = defaultPollOpts()
	WithPollInterval(100 * time.Millisecond)(o)
	WithJitter()(o)
	b = o.intervalPolicy()
	for i := 1; i <= 20; i++ {
		d := b.Wait(ctx, i)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}
