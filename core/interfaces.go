// Package core 提供传输总线核心接口定义
package core

import (
	"time"
)

// Event 总线事件（Hot fields 在前，Cold fields 在后）
type Event struct {
	Data      []byte            // 负载（编码后的消息）
	Type      string            // topic，用于路由
	ID        string            // 消息 UUID
	Source    string            // 发布端标识
	Metadata  map[string]string // 元数据
	Timestamp time.Time         // 发布时间
}

// Handler 事件处理器
type Handler func(*Event) error

// PanicHandler panic 回调（可选，用户注册后接收 panic 通知）
type PanicHandler func(recovered interface{}, evt *Event)

// Stats 总线运行时统计
type Stats struct {
	Emitted   int64 // 已发布事件总数
	Processed int64 // 已处理事件总数（handler 执行完成）
	Panics    int64 // handler panic 次数
}

// Bus 传输总线接口
type Bus interface {
	// On 订阅 topic，返回订阅ID
	On(topic string, handler Handler) uint64

	// Off 取消订阅
	Off(id uint64)

	// Emit 发布事件
	Emit(evt *Event) error

	// Stats 返回运行时统计
	Stats() Stats

	// Close 关闭（立即关闭，不等待在途任务）
	Close()

	// Drain 优雅关闭（等待在途任务完成或超时）
	// timeout<=0 时等效于 Close()
	Drain(timeout time.Duration) error
}
