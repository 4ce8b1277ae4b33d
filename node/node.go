// Package node 提供进程级运行时上下文。
//
// Context 由进程启动时显式创建并传给组件，持有日志、传输总线、
// 待处理的运行时任务和全部 Endpoint：
//
//	rt, err := node.Init(os.Args[1:])
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	ep, _ := rt.CreatePublisher("chatter", qos.Default().WithDepth(7))
//	for rt.Ok(ctx) {
//	    ep.Publish(msgs.String{Data: "hello"})
//	    rt.SpinSome()
//	}
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/uniyakcom/beep"
	"github.com/uniyakcom/beep/core"
	"github.com/uniyakcom/beep/marshal"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware/record"
	"github.com/uniyakcom/beep/pubsub/local"
	"github.com/uniyakcom/beep/qos"
)

var (
	// ErrShutdown 运行时已关闭
	ErrShutdown = errors.New("node: context is shut down")

	// ErrUnsupportedQoS Profile 中包含本地传输无法兑现的设置
	ErrUnsupportedQoS = errors.New("node: qos setting not supported by local transport")
)

// Option Init 配置项
type Option func(*options)

type options struct {
	logger *slog.Logger
	output io.Writer
	bus    core.Bus
	active func() bool
	name   string
}

// WithDefaultName 配置未给出节点名时使用的名称
func WithDefaultName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger 使用外部 logger（忽略 LogLevel）
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLogOutput 默认 logger 的输出目标（默认 stderr）
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithBus 使用外部传输总线（忽略 Transport/PoolSize）
func WithBus(b core.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithActive 追加活跃判定，返回 false 时 Ok 返回 false。
// 测试可借此在 N 次循环后确定性地结束发布循环。
func WithActive(fn func() bool) Option {
	return func(o *options) { o.active = fn }
}

// Context 进程级运行时上下文
type Context struct {
	cfg    Config
	args   []string
	logger *slog.Logger
	bus    core.Bus
	active func() bool

	closed atomic.Bool
	done   chan struct{}

	recFile  *os.File
	recorder *record.Recorder

	mu        sync.Mutex
	pending   []func()
	endpoints []*Endpoint
	subs      []*local.Subscriber
}

// Init 解析运行时参数并创建 Context。失败时进程不应继续。
func Init(args []string, opts ...Option) (*Context, error) {
	cfg, app, err := ParseArgs(args)
	if err != nil {
		return nil, err
	}
	return New(cfg, app, opts...)
}

// New 以已解析的配置创建 Context。
func New(cfg Config, appArgs []string, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Name == "" {
		cfg.Name = o.name
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	cfg.defaults()

	logger := o.logger
	if logger == nil {
		lvl, err := cfg.level()
		if err != nil {
			return nil, err
		}
		out := o.output
		if out == nil {
			out = os.Stderr
		}
		logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
	}
	logger = logger.With("node", cfg.Name)

	var recFile *os.File
	if cfg.Record != "" {
		f, err := os.OpenFile(cfg.Record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("node: open record file: %w", err)
		}
		recFile = f
	}

	bus := o.bus
	if bus == nil {
		b, err := beep.Scenario(cfg.Transport, beep.Options{
			PoolSize:    cfg.PoolSize,
			Nonblocking: cfg.Nonblocking,
			OnPanic: func(r interface{}, evt *core.Event) {
				logger.Error("subscriber panic", "topic", evt.Type, "uuid", evt.ID, "recovered", r)
			},
		})
		if err != nil {
			if recFile != nil {
				_ = recFile.Close()
			}
			return nil, fmt.Errorf("node: init transport: %w", err)
		}
		bus = b
	}

	c := &Context{
		cfg:    cfg,
		args:   appArgs,
		logger: logger,
		bus:    bus,
		active: o.active,
		done:   make(chan struct{}),
	}

	if recFile != nil {
		c.recFile = recFile
		c.recorder = record.New(recFile, marshal.JSON{})
	}
	logger.Debug("runtime initialized", "transport", cfg.Transport, "log_level", cfg.LogLevel)
	return c, nil
}

// SignalContext 返回在 SIGINT/SIGTERM 时取消的 context。
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Config 返回生效配置
func (c *Context) Config() Config { return c.cfg }

// Args 返回运行时参数之外的应用参数
func (c *Context) Args() []string { return c.args }

// Logger 返回运行时 logger
func (c *Context) Logger() *slog.Logger { return c.logger }

// Bus 返回传输总线
func (c *Context) Bus() core.Bus { return c.bus }

// Done 在 Shutdown 完成后关闭
func (c *Context) Done() <-chan struct{} { return c.done }

// Ok 报告运行时是否仍活跃：未 Shutdown、ctx 未取消且活跃判定（若有）为真。
func (c *Context) Ok(ctx context.Context) bool {
	if c.closed.Load() || ctx.Err() != nil {
		return false
	}
	if c.active != nil && !c.active() {
		return false
	}
	return true
}

// Post 投递一个运行时任务，由下一次 SpinSome 执行。关闭后忽略。
func (c *Context) Post(fn func()) {
	if fn == nil || c.closed.Load() {
		return
	}
	c.mu.Lock()
	c.pending = append(c.pending, fn)
	c.mu.Unlock()
}

// SpinSome 执行调用时已排队的运行时任务，不阻塞等待新任务。
// 返回执行的任务数。任务内 panic 被记录后继续。
func (c *Context) SpinSome() int {
	c.mu.Lock()
	work := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, fn := range work {
		c.runTask(fn)
	}
	return len(work)
}

func (c *Context) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("runtime task panic", "recovered", r)
		}
	}()
	fn()
}

// CreatePublisher 在 topic 上创建一个 Endpoint。
func (c *Context) CreatePublisher(topic string, profile qos.Profile) (*Endpoint, error) {
	if c.closed.Load() {
		return nil, ErrShutdown
	}
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	if err := checkProfile(profile); err != nil {
		return nil, err
	}

	ep := newEndpoint(c, topic, profile)

	c.mu.Lock()
	c.endpoints = append(c.endpoints, ep)
	c.mu.Unlock()

	c.logger.Debug("publisher created", "topic", topic, "qos", profile.String())
	return ep, nil
}

// checkProfile 校验 Profile 并拒绝本地传输无法兑现的设置。
// 本地传输不保存历史，TransientLocal 无法为后加入的订阅者补发。
func checkProfile(p qos.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Durability == qos.TransientLocal {
		return fmt.Errorf("%w: %s", ErrUnsupportedQoS, p)
	}
	return nil
}

// Endpoints 返回已创建的 Endpoint（副本）
func (c *Context) Endpoints() []*Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Endpoint, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// Subscribe 订阅 topic，队列容量由 profile 决定。订阅在 ctx 取消或 Shutdown 时结束。
func (c *Context) Subscribe(ctx context.Context, topic string, profile qos.Profile) (<-chan *message.Message, error) {
	if c.closed.Load() {
		return nil, ErrShutdown
	}
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	if err := checkProfile(profile); err != nil {
		return nil, err
	}
	sub := local.NewSubscriber(c.bus, profile)
	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return ch, nil
}

// Shutdown 关闭全部 Endpoint 与订阅并排空传输总线。可重复调用。
func (c *Context) Shutdown() error {
	if !c.closed.CompareAndSwap(false, true) {
		<-c.done
		return nil
	}
	defer close(c.done)

	c.mu.Lock()
	eps, subs := c.endpoints, c.subs
	c.pending = nil
	c.mu.Unlock()

	for _, ep := range eps {
		_ = ep.Close()
	}
	for _, s := range subs {
		_ = s.Close()
	}

	err := c.bus.Drain(c.cfg.DrainTimeout)
	if err != nil {
		c.logger.Warn("transport drain incomplete", "error", err)
	}
	if le, ok := c.bus.(interface{ LastError() error }); ok {
		if lastErr := le.LastError(); lastErr != nil {
			c.logger.Warn("subscriber error", "error", lastErr)
		}
	}

	if c.recorder != nil {
		if recErr := c.recorder.Err(); recErr != nil {
			c.logger.Warn("record incomplete", "file", c.cfg.Record, "error", recErr)
		}
		if cerr := c.recFile.Close(); cerr != nil {
			c.logger.Warn("close record file", "error", cerr)
		}
		c.logger.Debug("record closed", "file", c.cfg.Record, "messages", c.recorder.Count())
	}
	c.logger.Debug("runtime shut down")
	return err
}
