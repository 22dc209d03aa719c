// Package backoff 提供轮询间隔策略，供就绪轮询使用。
package backoff

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alex-ant/gomath/rational"
)

// Backoff 计算第 attempt 次（从 1 开始）轮询失败后需要等待的时长
type Backoff interface {
	Wait(ctx context.Context, attempt int) time.Duration
}

// Func 将普通函数适配为 Backoff
type Func func(ctx context.Context, attempt int) time.Duration

func (f Func) Wait(ctx context.Context, attempt int) time.Duration {
	return f(ctx, attempt)
}

type fixed struct {
	wait time.Duration
}

// NewFixed 创建固定间隔的退避器
func NewFixed(wait time.Duration) Backoff {
	return fixed{wait: wait}
}

func (f fixed) Wait(context.Context, int) time.Duration {
	return f.wait
}

type randomized struct {
	base                        Backoff
	minification, magnification rational.Rational
	r                           *rand.Rand
	mutex                       sync.Mutex
}

// NewRandomized 在 base 的基础上加入随机抖动，结果落在 [base*minification, base*magnification) 区间
func NewRandomized(base Backoff, minification, magnification rational.Rational) Backoff {
	if minification.LessThanNum(0) {
		panic("minification must be greater than or equal to 0")
	}
	if magnification.LessThanNum(0) || magnification.GetNumerator() == 0 {
		panic("magnification must be greater than 0")
	}
	return &randomized{
		base:          base,
		minification:  minification,
		magnification: magnification,
		r:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *randomized) Wait(ctx context.Context, attempt int) time.Duration {
	b := s.base.Wait(ctx, attempt)
	min := s.minification.MultiplyByNum(int64(b))
	max := s.magnification.MultiplyByNum(int64(b))
	diff := int64(max.Subtract(min).Float64())
	if diff <= 0 {
		return time.Duration(min.Float64())
	}
	s.mutex.Lock()
	r := s.r.Int63n(diff)
	s.mutex.Unlock()
	return time.Duration(min.AddNum(r).Float64())
}

type limited struct {
	base     Backoff
	min, max time.Duration
}

// NewLimited 将 base 的结果限制在 [min, max] 之间
func NewLimited(base Backoff, min, max time.Duration) Backoff {
	return limited{base: base, min: min, max: max}
}

func (s limited) Wait(ctx context.Context, attempt int) time.Duration {
	b := s.base.Wait(ctx, attempt)
	if b < s.min {
		return s.min
	} else if s.max > 0 && b > s.max {
		return s.max
	}
	return b
}

type exponential struct {
	wait       time.Duration
	multiplier float64
}

// NewExponential 创建指数增长的退避器，第 1 次等待 wait，之后每次乘以 multiplier
func NewExponential(wait time.Duration, multiplier float64) Backoff {
	return exponential{wait: wait, multiplier: multiplier}
}

func (e exponential) Wait(_ context.Context, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(e.wait) * math.Pow(e.multiplier, float64(attempt-1)))
}
