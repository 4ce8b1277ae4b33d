// Package local 提供基于进程内总线的 Publisher/Subscriber 实现。
//
// 将 core.Bus 包装为 message.Publisher/Subscriber 接口：
//   - 零网络开销：消息在内存中流转
//   - 订阅端按 qos.Profile 维护有界队列（keep_last 丢弃最旧）
//
// 用法：
//
//	bus, _ := beep.ForSync()
//	pub := local.NewPublisher(bus, "talker")
//	sub := local.NewSubscriber(bus, qos.Default().WithDepth(7))
package local

import (
	"context"

	"github.com/uniyakcom/beep/core"
	"github.com/uniyakcom/beep/message"
)

// Publisher 基于 Bus 的本地发布者
type Publisher struct {
	bus    core.Bus
	source string
}

// NewPublisher 创建本地发布者。source 写入 Event.Source，标识发布端。
func NewPublisher(bus core.Bus, source string) *Publisher {
	return &Publisher{bus: bus, source: source}
}

// Publish 将消息转换为 core.Event 并通过 Bus 发布。
//
// 映射规则：
//   - topic → Event.Type
//   - msg.Payload → Event.Data
//   - msg.UUID → Event.ID
//   - msg.Metadata → Event.Metadata
//   - msg.Timestamp → Event.Timestamp
func (p *Publisher) Publish(ctx context.Context, topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		evt := &core.Event{
			Type:      topic,
			Data:      msg.Payload,
			ID:        msg.UUID,
			Source:    p.source,
			Metadata:  make(map[string]string, len(msg.Metadata)),
			Timestamp: msg.Timestamp,
		}
		for k, v := range msg.Metadata {
			evt.Metadata[k] = v
		}
		if err := p.bus.Emit(evt); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭发布者。本地实现无需清理资源。
func (p *Publisher) Close() error {
	return nil
}

var _ message.Publisher = (*Publisher)(nil)
