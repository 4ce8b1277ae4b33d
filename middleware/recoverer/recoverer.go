// Package recoverer 提供 panic 恢复中间件。
//
// 捕获传输层内的 panic 并转化为 error 返回，保证 fire-and-forget 发布不会中断发布循环。
//
//	ep.Use(recoverer.New())
package recoverer

import (
	"context"
	"fmt"

	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware"
)

// PanicError 包装 panic 恢复值的 error 类型
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("publish panic: %v", e.Value)
}

// New 创建 panic 恢复中间件。
func New() middleware.Middleware {
	return func(next middleware.PublishFunc) middleware.PublishFunc {
		return func(ctx context.Context, topic string, msg *message.Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r}
				}
			}()
			return next(ctx, topic, msg)
		}
	}
}
