// Package beep 统一API入口
//
// 提供进程内传输总线的构建函数。node 运行时通过 Scenario 选择实现，
// 上层组件只依赖 core.Bus 接口。
package beep

import (
	"fmt"

	"github.com/uniyakcom/beep/core"
	implsync "github.com/uniyakcom/beep/internal/impl/sync"
)

// Bus 导出Bus接口
type Bus = core.Bus

// Event 导出Event类型
type Event = core.Event

// Handler 导出Handler类型
type Handler = core.Handler

// 传输实现名称
const (
	TransportSync  = "sync"
	TransportAsync = "async"
)

// Options 传输总线配置
type Options struct {
	// PoolSize async 传输的 worker 数（<=0 时按 CPU 自动计算）
	PoolSize int

	// Nonblocking async 池满时 Emit 立即返回错误而非阻塞
	Nonblocking bool

	// OnPanic 订阅端 handler panic 回调（可选）
	OnPanic core.PanicHandler
}

// ForSync 创建同步直调 Bus
// 用途: 单线程发布、测试、确定性投递
func ForSync() (Bus, error) {
	return Scenario(TransportSync, Options{})
}

// ForAsync 创建异步 Bus，订阅端 handler 在 ants 池中执行，
// 同一订阅内按发布顺序投递
// poolSize<=0 时按 CPU 自动计算
func ForAsync(poolSize int) (Bus, error) {
	return Scenario(TransportAsync, Options{PoolSize: poolSize})
}

// Scenario 按名称创建 Bus
// name: "sync", "async"（空字符串等同 "sync"）
func Scenario(name string, opts Options) (Bus, error) {
	cfg := &implsync.Config{
		PoolSize:    opts.PoolSize,
		Nonblocking: opts.Nonblocking,
		OnPanic:     opts.OnPanic,
	}
	switch name {
	case "", TransportSync:
	case TransportAsync:
		cfg.Async = true
	default:
		return nil, fmt.Errorf("beep: unknown transport %q", name)
	}
	b, err := implsync.New(cfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}
