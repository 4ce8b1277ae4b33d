// Package qos 定义投递配置 Profile（队列深度、历史策略、可靠性、持久性）。
//
//	p := qos.Default().WithDepth(7)
package qos

import (
	"errors"
	"fmt"
)

// History 历史策略
type History int

const (
	// KeepLast 仅保留最近 Depth 条，队列满时丢弃最旧消息
	KeepLast History = iota
	// KeepAll 不丢弃，队列满时投递阻塞（受 Depth 之外的资源约束）
	KeepAll
)

// Reliability 可靠性策略
type Reliability int

const (
	Reliable Reliability = iota
	BestEffort
)

// Durability 持久性策略
type Durability int

const (
	Volatile Durability = iota
	TransientLocal
)

// DefaultDepth 默认队列深度
const DefaultDepth = 10

// ErrInvalidProfile Profile 参数非法
var ErrInvalidProfile = errors.New("qos: invalid profile")

// Profile 投递配置
type Profile struct {
	Depth       int
	History     History
	Reliability Reliability
	Durability  Durability
}

// Default 返回运行时默认 Profile
func Default() Profile {
	return Profile{
		Depth:       DefaultDepth,
		History:     KeepLast,
		Reliability: Reliable,
		Durability:  Volatile,
	}
}

// WithDepth 返回修改队列深度后的副本，其余字段保持不变。
func (p Profile) WithDepth(depth int) Profile {
	p.Depth = depth
	return p
}

// Validate 校验 Profile
func (p Profile) Validate() error {
	if p.History == KeepLast && p.Depth <= 0 {
		return fmt.Errorf("%w: depth %d must be positive for keep_last", ErrInvalidProfile, p.Depth)
	}
	if p.History != KeepLast && p.History != KeepAll {
		return fmt.Errorf("%w: unknown history %d", ErrInvalidProfile, p.History)
	}
	if p.Reliability != Reliable && p.Reliability != BestEffort {
		return fmt.Errorf("%w: unknown reliability %d", ErrInvalidProfile, p.Reliability)
	}
	if p.Durability != Volatile && p.Durability != TransientLocal {
		return fmt.Errorf("%w: unknown durability %d", ErrInvalidProfile, p.Durability)
	}
	return nil
}

func (h History) String() string {
	switch h {
	case KeepLast:
		return "keep_last"
	case KeepAll:
		return "keep_all"
	default:
		return fmt.Sprintf("History(%d)", int(h))
	}
}

func (r Reliability) String() string {
	switch r {
	case Reliable:
		return "reliable"
	case BestEffort:
		return "best_effort"
	default:
		return fmt.Sprintf("Reliability(%d)", int(r))
	}
}

func (d Durability) String() string {
	switch d {
	case Volatile:
		return "volatile"
	case TransientLocal:
		return "transient_local"
	default:
		return fmt.Sprintf("Durability(%d)", int(d))
	}
}

// String 返回 Profile 的紧凑描述，用于日志。
func (p Profile) String() string {
	return fmt.Sprintf("%s(%d)/%s/%s", p.History, p.Depth, p.Reliability, p.Durability)
}
