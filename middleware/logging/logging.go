// Package logging 提供发布日志中间件。
//
// 记录每次发布的 topic、UUID、耗时和错误。使用 log/slog。
//
//	ep.Use(logging.New(slog.Default()))
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware"
)

// New 创建日志中间件。投递失败不上抛到发布循环，这里与成功一样只记 Debug。
func New(logger *slog.Logger) middleware.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next middleware.PublishFunc) middleware.PublishFunc {
		return func(ctx context.Context, topic string, msg *message.Message) error {
			start := time.Now()

			err := next(ctx, topic, msg)

			attrs := []any{
				"topic", topic,
				"uuid", msg.UUID,
				"duration", time.Since(start),
			}
			if seq := msg.Metadata.Get(message.MetaSeq); seq != "" {
				attrs = append(attrs, "seq", seq)
			}

			if err != nil {
				logger.DebugContext(ctx, "publish dropped", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "published", attrs...)
			}
			return err
		}
	}
}
