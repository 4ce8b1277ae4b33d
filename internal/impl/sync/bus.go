package sync

import (
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/uniyakcom/beep/core"
)

// subsSnapshot CoW 快照
//   - byTopic: On/Off 管理路径（含 sub.id 用于删除）
//   - handlers: Emit 热路径（预扁平化 []core.Handler）
type subsSnapshot struct {
	byTopic  map[string][]*sub
	handlers map[string][]core.Handler
}

// buildSnapshot 从 byTopic 构建完整快照（On/Off 时调用，非热路径）
func buildSnapshot(byTopic map[string][]*sub) *subsSnapshot {
	snap := &subsSnapshot{
		byTopic:  byTopic,
		handlers: make(map[string][]core.Handler, len(byTopic)),
	}
	for k, subs := range byTopic {
		hs := make([]core.Handler, len(subs))
		for i, s := range subs {
			hs[i] = s.handler
		}
		snap.handlers[k] = hs
	}
	return snap
}

// sub 订阅者
type sub struct {
	topic   string
	handler core.Handler
	id      uint64

	// 异步模式下的有序待投递队列，同一 sub 任一时刻至多一个 drain 任务在池中
	qmu     stdsync.Mutex
	queue   []*core.Event
	running bool
}

var subID atomic.Uint64

// Bus 传输总线
// 同步模式: Emit 在调用方 goroutine 内依次执行 handler
// 异步模式: 事件进入各 sub 的 FIFO 队列，由 ants 池按序排空；不同 sub 之间并行
type Bus struct {
	subs   atomic.Pointer[subsSnapshot]
	closed atomic.Bool
	async  bool

	gPool   *ants.Pool
	onPanic core.PanicHandler

	// 写路径（On/Off）
	mu stdsync.Mutex

	// 异步错误（仅保留最后一个）
	errMu   stdsync.Mutex
	lastErr error

	emitted   atomic.Int64
	processed atomic.Int64
	panics    atomic.Int64
}

func newBus(cfg *Config) *Bus {
	b := &Bus{onPanic: cfg.OnPanic}
	b.subs.Store(buildSnapshot(make(map[string][]*sub)))
	return b
}

func newAsync(cfg *Config) (*Bus, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = optPoolSz()
	}
	b := newBus(cfg)
	b.async = true

	p, err := ants.NewPool(size, ants.WithNonblocking(cfg.Nonblocking))
	if err != nil {
		return nil, fmt.Errorf("sync: create worker pool: %w", err)
	}
	b.gPool = p
	return b, nil
}

// On 订阅 topic - CoW
func (b *Bus) On(topic string, handler core.Handler) uint64 {
	id := subID.Add(1)
	s := &sub{
		id:      id,
		topic:   topic,
		handler: handler,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.subs.Load()
	next := make(map[string][]*sub, len(old.byTopic)+1)
	for k, v := range old.byTopic {
		next[k] = v
	}
	next[topic] = append(next[topic][:len(next[topic]):len(next[topic])], s)
	b.subs.Store(buildSnapshot(next))

	return id
}

// Off 取消订阅 - CoW
func (b *Bus) Off(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.subs.Load()
	next := make(map[string][]*sub, len(old.byTopic))
	for k, subs := range old.byTopic {
		filtered := make([]*sub, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			next[k] = filtered
		}
	}
	b.subs.Store(buildSnapshot(next))
}

// Emit 发布事件。关闭后的 Emit 为 no-op。
func (b *Bus) Emit(evt *core.Event) error {
	if evt == nil || b.closed.Load() {
		return nil
	}
	b.emitted.Add(1)
	if b.async {
		return b.emitAsync(evt)
	}
	return b.emitSync(evt)
}

// emitSync 同步路径 — 首个 handler error 中止分发并返回
func (b *Bus) emitSync(evt *core.Event) error {
	for _, h := range b.subs.Load().handlers[evt.Type] {
		if err := b.invoke(h, evt); err != nil {
			return err
		}
	}
	return nil
}

// emitAsync 异步路径 — 入队后按需提交 drain 任务；handler error 记入 LastError
func (b *Bus) emitAsync(evt *core.Event) error {
	for _, s := range b.subs.Load().byTopic[evt.Type] {
		if err := b.enqueue(s, evt); err != nil {
			return err
		}
	}
	return nil
}

// enqueue 追加到 sub 队列；sub 空闲时提交一个 drain 任务
func (b *Bus) enqueue(s *sub, evt *core.Event) error {
	s.qmu.Lock()
	s.queue = append(s.queue, evt)
	if s.running {
		s.qmu.Unlock()
		return nil
	}
	s.running = true
	s.qmu.Unlock()

	if err := b.gPool.Submit(func() { b.drainSub(s) }); err != nil {
		s.qmu.Lock()
		s.running = false
		s.queue = s.queue[:len(s.queue)-1]
		s.qmu.Unlock()
		return fmt.Errorf("sync: submit handler: %w", err)
	}
	return nil
}

// drainSub 依次执行 sub 队列中的事件，直到队列为空
func (b *Bus) drainSub(s *sub) {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.queue = nil
			s.qmu.Unlock()
			return
		}
		evt := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		if err := b.invoke(s.handler, evt); err != nil {
			b.errMu.Lock()
			b.lastErr = err
			b.errMu.Unlock()
		}
	}
}

// invoke 执行单个 handler，panic 转为 error
func (b *Bus) invoke(h core.Handler, evt *core.Event) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			if b.onPanic != nil {
				b.onPanic(r, evt)
			}
			retErr = fmt.Errorf("handler panic: %v", r)
		}
	}()
	if err := h(evt); err != nil {
		return err
	}
	b.processed.Add(1)
	return nil
}

// Stats 返回运行时统计
func (b *Bus) Stats() core.Stats {
	return core.Stats{
		Emitted:   b.emitted.Load(),
		Processed: b.processed.Load(),
		Panics:    b.panics.Load(),
	}
}

// Close 关闭总线，不等待在途任务
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	if b.gPool != nil {
		b.gPool.Release()
	}
}

// Drain 优雅关闭（等待异步任务完成或超时）
func (b *Bus) Drain(timeout time.Duration) error {
	if timeout <= 0 || b.gPool == nil {
		b.Close()
		return nil
	}
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.gPool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("sync: drain timed out after %v: %w", timeout, err)
	}
	return nil
}

// LastError 获取最后一个异步错误
func (b *Bus) LastError() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.lastErr
}

var _ core.Bus = (*Bus)(nil)
