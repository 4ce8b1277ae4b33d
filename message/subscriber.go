package message

import "context"

// Subscriber 消息订阅者接口
type Subscriber interface {
	// Subscribe 订阅指定 topic，返回消息通道。
	// Close 被调用或 ctx 取消后不再向通道投递新消息；通道本身不关闭。
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)

	// Close 关闭订阅者，停止所有订阅，释放资源。
	Close() error
}
