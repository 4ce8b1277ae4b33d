package message

import "github.com/google/uuid"

// NewUUID 生成 UUID v4。
func NewUUID() string {
	return uuid.NewString()
}
