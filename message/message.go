// Package message 提供消息传输单元定义。
//
// Message 在 Endpoint、中间件链与 pubsub 传输层之间流转，
// 负载是经 marshal 编码后的类型化消息（如 msgs.String）。
package message

import "time"

// Message 消息传输单元
type Message struct {
	// UUID 消息唯一标识（自动生成或外部指定）
	UUID string

	// Metadata 消息元数据（topic、类型名、序号等）
	Metadata Metadata

	// Payload 编码后的消息负载
	Payload []byte

	// Timestamp 消息创建时间
	Timestamp time.Time
}

// New 创建新消息。uuid 为空时自动生成。
func New(uuid string, payload []byte) *Message {
	if uuid == "" {
		uuid = NewUUID()
	}
	return &Message{
		UUID:      uuid,
		Metadata:  make(Metadata),
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
