package sandbox

import (
	"context"
	"time"

	"github.com/alex-ant/gomath/rational"

	"github.com/koyeb/sandbox-go/internal/backoff"
)

// DefaultPollInterval 默认轮询间隔。
const DefaultPollInterval = 500 * time.Millisecond

// PollOption 配置轮询行为的选项。
type PollOption func(*pollOpts)

type pollOpts struct {
	interval    time.Duration
	maxInterval time.Duration
	multiplier  float64 // 退避倍数，默认 1.0（无退避）
	jitter      bool
	backoff     backoff.Backoff
	onPoll      func(attempt int)
}

func defaultPollOpts() *pollOpts {
	return &pollOpts{
		interval:   DefaultPollInterval,
		multiplier: 1.0,
	}
}

// WithPollInterval 设置轮询间隔。
func WithPollInterval(d time.Duration) PollOption {
	return func(o *pollOpts) { o.interval = d }
}

// WithBackoff 设置指数退避倍数和最大间隔。
// multiplier 为每次轮询后间隔的乘数（如 1.5 表示每次增加 50%），
// maxInterval 为间隔上限（0 表示不限制）。
func WithBackoff(multiplier float64, maxInterval time.Duration) PollOption {
	return func(o *pollOpts) {
		o.multiplier = multiplier
		o.maxInterval = maxInterval
	}
}

// WithJitter 让每次间隔在 [0.5, 1.5) 倍之间随机浮动。
func WithJitter() PollOption {
	return func(o *pollOpts) { o.jitter = true }
}

// WithIntervalPolicy 直接指定间隔策略，会覆盖其他间隔相关选项。
func WithIntervalPolicy(b backoff.Backoff) PollOption {
	return func(o *pollOpts) { o.backoff = b }
}

// WithOnPoll 设置每次轮询时的回调函数。
// attempt 从 1 开始递增。
func WithOnPoll(fn func(attempt int)) PollOption {
	return func(o *pollOpts) { o.onPoll = fn }
}

func (o *pollOpts) intervalPolicy() backoff.Backoff {
	if o.backoff != nil {
		return o.backoff
	}
	if o.interval <= 0 {
		o.interval = DefaultPollInterval
	}

	b := backoff.NewFixed(o.interval)
	if o.multiplier > 1.0 {
		b = backoff.NewLimited(backoff.NewExponential(o.interval, o.multiplier), 0, o.maxInterval)
	}
	if o.jitter {
		b = backoff.NewRandomized(b, rational.New(1, 2), rational.New(3, 2))
	}
	return b
}

// WaitFor 反复调用 predicate，直到其返回 true、返回错误、超时或 ctx 被取消。
//
// 超时只在两次调用之间检查：在截止时间之前开始的调用总会被等待完成，其结果有效。
// 超时返回 (false, nil)；ctx 在等待期间被取消时立即返回 (false, ctx.Err())，不会再调用 predicate。
func WaitFor(ctx context.Context, predicate func(ctx context.Context) (bool, error), timeout time.Duration, opts ...PollOption) (bool, error) {
	o := defaultPollOpts()
	for _, opt := range opts {
		opt(o)
	}
	policy := o.intervalPolicy()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	start := time.Now()
	attempt := 0
	for {
		attempt++
		if o.onPoll != nil {
			o.onPoll(attempt)
		}

		ok, err := predicate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		interval := policy.Wait(ctx, attempt)
		if timer == nil {
			timer = time.NewTimer(interval)
		} else {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}

		if time.Since(start) >= timeout {
			return false, nil
		}
	}
}
