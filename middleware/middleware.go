// Package middleware 定义 Endpoint 发布链的中间件签名。
//
// 中间件包装 PublishFunc，在消息交给传输层前后添加逻辑（日志、panic 恢复、追踪等）。
//
//	func myMiddleware(next middleware.PublishFunc) middleware.PublishFunc {
//	    return func(ctx context.Context, topic string, msg *message.Message) error {
//	        // 前置逻辑
//	        err := next(ctx, topic, msg)
//	        // 后置逻辑
//	        return err
//	    }
//	}
package middleware

import (
	"context"

	"github.com/uniyakcom/beep/message"
)

// PublishFunc 单条消息发布函数
type PublishFunc func(ctx context.Context, topic string, msg *message.Message) error

// Middleware 中间件函数签名
type Middleware func(next PublishFunc) PublishFunc

// Chain 按注册顺序组合中间件：mws[0] 最外层。
func Chain(final PublishFunc, mws ...Middleware) PublishFunc {
	fn := final
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return fn
}
