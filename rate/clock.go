package rate

import (
	"context"
	"time"
)

// Clock 时间源（测试时可替换为手动推进的实现）
type Clock interface {
	Now() time.Time
	// Sleep 阻塞 d 或直到 ctx 取消
	Sleep(ctx context.Context, d time.Duration) error
}

// wallClock 基于 time 包的默认时间源
type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WallClock 返回默认时间源
func WallClock() Clock {
	return wallClock{}
}
