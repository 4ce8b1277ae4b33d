// Package msgs 定义可在 Endpoint 上发布的消息类型。
package msgs

// Type 可发布消息类型
type Type interface {
	// TypeName 返回全局唯一的类型名，写入消息元数据用于订阅端校验。
	TypeName() string
}

// String 单字段文本消息，线上形态为 {"data": "..."}。
type String struct {
	Data string `json:"data"`
}

// TypeName 实现 Type
func (String) TypeName() string { return "std_msgs/String" }
