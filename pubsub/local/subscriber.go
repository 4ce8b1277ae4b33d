package local

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/uniyakcom/beep/core"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/qos"
)

// Subscriber 基于 Bus 的本地订阅者
type Subscriber struct {
	bus     core.Bus
	profile qos.Profile
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	subIDs  []uint64 // Close 时统一 Off
	dropped atomic.Int64
}

// NewSubscriber 创建本地订阅者。profile.Depth 决定每个订阅的队列容量。
func NewSubscriber(bus core.Bus, profile qos.Profile) *Subscriber {
	return &Subscriber{
		bus:     bus,
		profile: profile,
		done:    make(chan struct{}),
	}
}

// Subscribe 订阅 topic，返回消息通道。
//
// keep_last: 队列满时丢弃最旧消息，发布端永不阻塞。
// keep_all: 队列满时投递阻塞，直到消费、ctx 取消或 Close。
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if err := s.profile.Validate(); err != nil {
		return nil, err
	}
	depth := s.profile.Depth
	if depth <= 0 {
		depth = qos.DefaultDepth
	}
	output := make(chan *message.Message, depth)

	id := s.bus.On(topic, func(e *core.Event) error {
		msg := message.New(e.ID, e.Data)
		if !e.Timestamp.IsZero() {
			msg.Timestamp = e.Timestamp
		}
		for k, v := range e.Metadata {
			msg.Metadata.Set(k, v)
		}
		msg.Metadata.Set(message.MetaTopic, e.Type)
		s.deliver(ctx, output, msg)
		return nil
	})

	s.mu.Lock()
	s.subIDs = append(s.subIDs, id)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.bus.Off(id)
		case <-s.done:
		}
	}()

	return output, nil
}

func (s *Subscriber) deliver(ctx context.Context, output chan *message.Message, msg *message.Message) {
	if s.profile.History == qos.KeepAll {
		select {
		case output <- msg:
		case <-ctx.Done():
		case <-s.done:
		}
		return
	}
	for {
		select {
		case output <- msg:
			return
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}
		// 队列满：丢弃最旧一条后重试
		select {
		case <-output:
			s.dropped.Add(1)
		default:
		}
	}
}

// Dropped 返回 keep_last 策略下被丢弃的消息数。
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Close 关闭订阅者，停止所有订阅的消息接收。
func (s *Subscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		for _, id := range s.subIDs {
			s.bus.Off(id)
		}
		s.subIDs = nil
		s.mu.Unlock()
	})
	return nil
}

var _ message.Subscriber = (*Subscriber)(nil)
