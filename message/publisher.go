package message

import "context"

// Publisher 消息发布者接口
//
// 传输适配器（本地总线等）实现此接口。
type Publisher interface {
	// Publish 发布消息到指定 topic。
	// 同步传输在返回前完成投递，异步传输在返回前完成入队。
	Publish(ctx context.Context, topic string, messages ...*Message) error

	// Close 关闭发布者，释放资源。
	Close() error
}
