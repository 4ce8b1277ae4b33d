package marshal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/msgs"
)

// ErrTypeMismatch 负载类型名与目标类型不一致
var ErrTypeMismatch = errors.New("marshal: payload type mismatch")

// jsonEnvelope JSON 序列化信封
type jsonEnvelope struct {
	UUID      string            `json:"uuid"`
	Topic     string            `json:"topic,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}

// JSON JSON 信封编解码器
type JSON struct{}

// Marshal 将消息序列化为 JSON。
func (JSON) Marshal(topic string, msg *message.Message) ([]byte, error) {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(jsonEnvelope{
		UUID:      msg.UUID,
		Topic:     topic,
		Metadata:  msg.Metadata,
		Payload:   payload,
		Timestamp: msg.Timestamp,
	})
}

// Unmarshal 将 JSON 反序列化为消息。元数据缺少 MetaTopic 时以 topic 补入，
// topic 为空时取信封中的值。
func (JSON) Unmarshal(topic string, data []byte) (*message.Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("marshal: decode envelope: %w", err)
	}

	var payload []byte
	if string(env.Payload) != "null" {
		payload = env.Payload
	}
	msg := message.New(env.UUID, payload)
	if !env.Timestamp.IsZero() {
		msg.Timestamp = env.Timestamp
	}
	for k, v := range env.Metadata {
		msg.Metadata.Set(k, v)
	}
	if topic == "" {
		topic = env.Topic
	}
	if topic != "" && msg.Metadata.Get(message.MetaTopic) == "" {
		msg.Metadata.Set(message.MetaTopic, topic)
	}
	return msg, nil
}

// Encode 将类型化消息编码为 Message，类型名写入 MetaType。
func Encode(v msgs.Type) (*message.Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: encode %s: %w", v.TypeName(), err)
	}
	msg := message.New("", payload)
	msg.Metadata.Set(message.MetaType, v.TypeName())
	return msg, nil
}

// Decode 将 Message 负载解码到 v。MetaType 存在且与 v 不符时返回 ErrTypeMismatch。
func Decode(msg *message.Message, v msgs.Type) error {
	if tn := msg.Metadata.Get(message.MetaType); tn != "" && tn != v.TypeName() {
		return fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, tn, v.TypeName())
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("marshal: decode %s: %w", v.TypeName(), err)
	}
	return nil
}
