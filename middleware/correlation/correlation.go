// Package correlation 提供链路追踪 ID 中间件。
//
// 消息无 correlation_id 时写入 Endpoint 级固定 ID，
// 同一 Endpoint 发布的全部消息共享该 ID，便于订阅端按发布者聚合。
//
//	ep.Use(correlation.New(""))
package correlation

import (
	"context"

	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware"
)

const (
	// HeaderCorrelationID 元数据中的 correlation ID key
	HeaderCorrelationID = "correlation_id"
)

// New 创建 correlation ID 中间件。id 为空时生成一个新 UUID。
func New(id string) middleware.Middleware {
	if id == "" {
		id = message.NewUUID()
	}
	return func(next middleware.PublishFunc) middleware.PublishFunc {
		return func(ctx context.Context, topic string, msg *message.Message) error {
			if msg.Metadata.Get(HeaderCorrelationID) == "" {
				msg.Metadata.Set(HeaderCorrelationID, id)
			}
			return next(ctx, topic, msg)
		}
	}
}
