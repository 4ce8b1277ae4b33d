package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/uniyakcom/beep/marshal"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware"
	"github.com/uniyakcom/beep/middleware/correlation"
	"github.com/uniyakcom/beep/middleware/logging"
	"github.com/uniyakcom/beep/middleware/recoverer"
	"github.com/uniyakcom/beep/msgs"
	"github.com/uniyakcom/beep/pubsub/local"
	"github.com/uniyakcom/beep/qos"
)

// ErrInvalidTopic topic 名非法
var ErrInvalidTopic = errors.New("node: invalid topic name")

var topicRe = regexp.MustCompile(`^[A-Za-z_~/][A-Za-z0-9_/]*$`)

// ValidateTopic 校验 topic 名：字母/下划线/~/斜杠开头，仅含字母数字下划线和斜杠，
// 不含连续斜杠，不以斜杠结尾（"/" 本身除外）。
func ValidateTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("%w: empty", ErrInvalidTopic)
	case !topicRe.MatchString(topic),
		strings.Contains(topic, "//"),
		len(topic) > 1 && strings.HasSuffix(topic, "/"):
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return nil
}

// EndpointStats Endpoint 发布统计
type EndpointStats struct {
	Published int64 // 交给传输层且未报错
	Dropped   int64 // 编码失败、传输报错或关闭后发布
}

// Endpoint 绑定单个 topic 与 QoS Profile 的发布端，由 Context 创建并拥有。
//
// Publish 为 fire-and-forget：不等待确认，不向调用方返回投递错误。
// 本地传输在发布端不排队，Profile 的 Depth 与 Reliability 仅随 QoS() 对外公布，
// 队列上限由各订阅者的 Profile 决定。
type Endpoint struct {
	topic   string
	profile qos.Profile
	pub     *local.Publisher
	logger  *slog.Logger

	mws   []middleware.Middleware
	chain middleware.PublishFunc

	seq       atomic.Uint64
	published atomic.Int64
	dropped   atomic.Int64
	closed    atomic.Bool
}

func newEndpoint(rt *Context, topic string, profile qos.Profile) *Endpoint {
	logger := rt.logger.With("topic", topic)
	ep := &Endpoint{
		topic:   topic,
		profile: profile,
		pub:     local.NewPublisher(rt.bus, rt.cfg.Name),
		logger:  logger,
		mws: []middleware.Middleware{
			logging.New(logger),
			correlation.New(""),
		},
	}
	if rt.recorder != nil {
		ep.mws = append(ep.mws, rt.recorder.Middleware())
	}
	ep.build()
	return ep
}

// build 重建发布链：已注册中间件 → recoverer → 传输层
func (e *Endpoint) build() {
	final := recoverer.New()(func(ctx context.Context, topic string, msg *message.Message) error {
		return e.pub.Publish(ctx, topic, msg)
	})
	e.chain = middleware.Chain(final, e.mws...)
}

// Use 追加发布中间件。须在首次 Publish 前调用。
func (e *Endpoint) Use(mws ...middleware.Middleware) {
	e.mws = append(e.mws, mws...)
	e.build()
}

// Topic 返回绑定的 topic
func (e *Endpoint) Topic() string { return e.topic }

// QoS 返回绑定的 Profile
func (e *Endpoint) QoS() qos.Profile { return e.profile }

// Stats 返回发布统计
func (e *Endpoint) Stats() EndpointStats {
	return EndpointStats{
		Published: e.published.Load(),
		Dropped:   e.dropped.Load(),
	}
}

// Publish 编码并发布一条消息。失败只计入 Dropped。
func (e *Endpoint) Publish(v msgs.Type) {
	if e.closed.Load() {
		e.dropped.Add(1)
		return
	}

	msg, err := marshal.Encode(v)
	if err != nil {
		e.dropped.Add(1)
		e.logger.Debug("encode failed", "error", err)
		return
	}
	msg.Metadata.Set(message.MetaTopic, e.topic)
	msg.Metadata.SetUint(message.MetaSeq, e.seq.Add(1))

	if err := e.chain(context.Background(), e.topic, msg); err != nil {
		e.dropped.Add(1)
		return
	}
	e.published.Add(1)
}

// Close 关闭 Endpoint，之后的 Publish 全部丢弃。
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.pub.Close()
}
