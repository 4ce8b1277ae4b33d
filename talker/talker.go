// Package talker 实现固定频率发布器：每个节拍发布一条 "beep N"。
//
// 单 goroutine 顺序执行：组装负载 → 计数器自增 → 发布 → SpinSome → 等待下一节拍，
// 直到运行时不再活跃。
package talker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/uniyakcom/beep/msgs"
	"github.com/uniyakcom/beep/node"
	"github.com/uniyakcom/beep/qos"
	"github.com/uniyakcom/beep/rate"
)

// 默认值
const (
	DefaultTopic  = "ament_haros_test"
	DefaultDepth  = 7
	DefaultHz     = 2.0
	DefaultPrefix = "beep "
)

var (
	// ErrNoRuntime 未提供运行时上下文
	ErrNoRuntime = errors.New("talker: nil runtime context")
	// ErrRunning Run 已在执行
	ErrRunning = errors.New("talker: already running")
	// ErrStopped 已停止，不可重启
	ErrStopped = errors.New("talker: stopped")
)

// Config 发布器配置
type Config struct {
	// Topic 发布 topic，默认 ament_haros_test
	Topic string

	// Depth 队列深度，默认 7；其余 QoS 取运行时默认
	Depth int

	// Hz 发布频率，默认 2
	Hz float64

	// Prefix 文本前缀，默认 "beep "
	Prefix string

	// OnPublish 每次发布后回调（仅用于观测，不影响发布结果）
	OnPublish func(n uint64, text string)

	// Clock 节拍时间源，nil 时使用墙钟
	Clock rate.Clock
}

func (c *Config) defaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Depth <= 0 {
		c.Depth = DefaultDepth
	}
	if c.Hz == 0 {
		c.Hz = DefaultHz
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Talker 固定频率发布器
type Talker struct {
	rt     *node.Context
	cfg    Config
	ep     *node.Endpoint
	rate   *rate.Rate
	logger *slog.Logger

	counter atomic.Uint64 // 下一条消息的序号，从 1 开始
	state   atomic.Int32
}

// New 创建发布器并在运行时上创建唯一的 Endpoint。
func New(rt *node.Context, cfg Config) (*Talker, error) {
	if rt == nil {
		return nil, ErrNoRuntime
	}
	cfg.defaults()

	var opts []rate.Option
	if cfg.Clock != nil {
		opts = append(opts, rate.WithClock(cfg.Clock))
	}
	r, err := rate.New(cfg.Hz, opts...)
	if err != nil {
		return nil, fmt.Errorf("talker: %w", err)
	}

	ep, err := rt.CreatePublisher(cfg.Topic, qos.Default().WithDepth(cfg.Depth))
	if err != nil {
		return nil, fmt.Errorf("talker: create publisher: %w", err)
	}

	t := &Talker{
		rt:     rt,
		cfg:    cfg,
		ep:     ep,
		rate:   r,
		logger: rt.Logger().With("component", "talker", "topic", cfg.Topic),
	}
	t.counter.Store(1)
	return t, nil
}

// Endpoint 返回发布端
func (t *Talker) Endpoint() *node.Endpoint { return t.ep }

// Published 返回已发布（尝试）的消息数
func (t *Talker) Published() uint64 { return t.counter.Load() - 1 }

// Run 执行发布循环，阻塞直到运行时不再活跃或 ctx 取消。
// 正常结束返回 nil；Talker 只能运行一次。
func (t *Talker) Run(ctx context.Context) error {
	if !t.state.CompareAndSwap(stateIdle, stateRunning) {
		if t.state.Load() == stateRunning {
			return ErrRunning
		}
		return ErrStopped
	}
	defer t.state.Store(stateStopped)

	t.rate.Reset()
	t.logger.Info("talker started", "hz", t.cfg.Hz, "period", t.rate.Period(), "depth", t.cfg.Depth)

	for t.rt.Ok(ctx) {
		n := t.counter.Load()
		text := t.cfg.Prefix + strconv.FormatUint(n, 10)
		t.counter.Add(1)

		t.ep.Publish(msgs.String{Data: text})
		if t.cfg.OnPublish != nil {
			t.cfg.OnPublish(n, text)
		}

		t.rt.SpinSome()

		if err := t.rate.Sleep(ctx); err != nil {
			break
		}
	}

	t.logger.Info("talker stopped", "published", t.Published(), "missed_ticks", t.rate.Missed())
	return nil
}
