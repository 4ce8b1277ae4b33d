// Package sync 提供同步/异步传输总线实现
package sync

import (
	"runtime"

	"github.com/uniyakcom/beep/core"
)

// Config 总线配置
type Config struct {
	// Async 是否启用异步模式（handler 在 ants 池中执行）
	Async bool

	// PoolSize 异步池大小（<=0 时按 CPU 自动计算）
	PoolSize int

	// Nonblocking 池满时 Emit 立即返回 ants.ErrPoolOverload 而非阻塞
	Nonblocking bool

	// OnPanic handler panic 回调（可选）
	OnPanic core.PanicHandler
}

// DefaultConfig 返回默认配置（同步直调）
func DefaultConfig() *Config {
	return &Config{}
}

// AsyncConfig 返回异步配置
func AsyncConfig(poolSize int) *Config {
	return &Config{
		Async:    true,
		PoolSize: poolSize,
	}
}

// optPoolSz 根据OS获取默认池大小
func optPoolSz() int {
	base := runtime.NumCPU()
	switch runtime.GOOS {
	case "linux":
		return base * 4
	case "darwin":
		return base * 3
	default:
		return base * 2
	}
}

// New 使用配置创建总线
func New(cfg *Config) (*Bus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Async {
		return newAsync(cfg)
	}
	b := newBus(cfg)
	return b, nil
}
