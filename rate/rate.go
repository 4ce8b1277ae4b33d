// Package rate 提供固定频率循环节拍器。
//
// 第 n 个节拍的截止时间为 start + n*period（绝对时间），单次迟到不会累积到后续周期。
// 若某次循环超时超过一个完整周期，参考点重置为当前时间，不做追赶式连发。
//
//	r, _ := rate.New(2) // 2Hz
//	for ok() {
//	    work()
//	    if err := r.Sleep(ctx); err != nil {
//	        return err
//	    }
//	}
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRate 频率非法
var ErrInvalidRate = errors.New("rate: frequency must be positive")

// Option 配置项
type Option func(*Rate)

// WithClock 替换时间源
func WithClock(c Clock) Option {
	return func(r *Rate) { r.clock = c }
}

// Rate 固定频率节拍器（非并发安全，由单个循环独占）
type Rate struct {
	clock  Clock
	period time.Duration
	last   time.Time // 上一个节拍的截止时间
	missed uint64
}

// New 创建频率为 hz 的节拍器，参考点为当前时间。
func New(hz float64, opts ...Option) (*Rate, error) {
	if !(hz > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, hz)
	}
	return NewPeriod(time.Duration(float64(time.Second)/hz), opts...)
}

// NewPeriod 按周期创建节拍器。
func NewPeriod(period time.Duration, opts ...Option) (*Rate, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period %v", ErrInvalidRate, period)
	}
	r := &Rate{clock: WallClock(), period: period}
	for _, o := range opts {
		o(r)
	}
	r.last = r.clock.Now()
	return r, nil
}

// Period 返回周期
func (r *Rate) Period() time.Duration {
	return r.period
}

// Missed 返回错过截止时间的节拍数
func (r *Rate) Missed() uint64 {
	return r.missed
}

// Reset 以当前时间为新的参考点
func (r *Rate) Reset() {
	r.last = r.clock.Now()
}

// Sleep 阻塞至下一个节拍。已错过截止时间时立即返回。
// ctx 取消时返回 ctx.Err()，节拍状态仍推进一个周期。
func (r *Rate) Sleep(ctx context.Context) error {
	now := r.clock.Now()
	next := r.last.Add(r.period)
	if now.Before(r.last) {
		// 时钟回拨
		next = now.Add(r.period)
	}
	wait := next.Sub(now)
	r.last = next

	if wait <= 0 {
		r.missed++
		if now.After(next.Add(r.period)) {
			r.last = now
		}
		return ctx.Err()
	}
	return r.clock.Sleep(ctx, wait)
}
