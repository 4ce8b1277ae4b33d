package marshal_test

import (
	"errors"
	"testing"

	"github.com/uniyakcom/beep/marshal"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/msgs"
)

type otherType struct{}

func (otherType) TypeName() string { return "test/Other" }

func TestEncodeString(t *testing.T) {
	msg, err := marshal.Encode(msgs.String{Data: "beep 1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Payload) != `{"data":"beep 1"}` {
		t.Errorf("Payload = %s", msg.Payload)
	}
	if msg.Metadata.Get(message.MetaType) != "std_msgs/String" {
		t.Errorf("type metadata = %q", msg.Metadata.Get(message.MetaType))
	}

	var got msgs.String
	if err := marshal.Decode(msg, &got); err != nil {
		t.Fatal(err)
	}
	if got.Data != "beep 1" {
		t.Errorf("Data = %q, want %q", got.Data, "beep 1")
	}
}

func TestDecodeTypeMismatch(t *testing.T) {
	msg, err := marshal.Encode(otherType{})
	if err != nil {
		t.Fatal(err)
	}
	var s msgs.String
	if err := marshal.Decode(msg, &s); !errors.Is(err, marshal.ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestJSONEnvelope(t *testing.T) {
	m := marshal.JSON{}

	orig, err := marshal.Encode(msgs.String{Data: "beep 7"})
	if err != nil {
		t.Fatal(err)
	}
	orig.Metadata.SetUint(message.MetaSeq, 7)

	data, err := m.Marshal("ament_haros_test", orig)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := m.Unmarshal("ament_haros_test", data)
	if err != nil {
		t.Fatal(err)
	}

	if restored.UUID != orig.UUID {
		t.Errorf("UUID = %q, want %q", restored.UUID, orig.UUID)
	}
	if !restored.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", restored.Timestamp, orig.Timestamp)
	}
	if n, _ := restored.Metadata.Uint(message.MetaSeq); n != 7 {
		t.Errorf("seq = %d, want 7", n)
	}
	var s msgs.String
	if err := marshal.Decode(restored, &s); err != nil || s.Data != "beep 7" {
		t.Errorf("decoded %q, %v", s.Data, err)
	}
}

func TestJSONEmptyPayload(t *testing.T) {
	m := marshal.JSON{}
	data, err := m.Marshal("t", message.New("", nil))
	if err != nil {
		t.Fatal(err)
	}
	restored, err := m.Unmarshal("t", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(restored.Payload) != 0 {
		t.Errorf("Payload = %q, want empty", restored.Payload)
	}
}

func TestJSONInvalid(t *testing.T) {
	if _, err := (marshal.JSON{}).Unmarshal("t", []byte("{")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestJSONEnvelopeTopic(t *testing.T) {
	m := marshal.JSON{}
	data, err := m.Marshal("ament_haros_test", message.New("", []byte(`{"data":"beep 1"}`)))
	if err != nil {
		t.Fatal(err)
	}
	restored, err := m.Unmarshal("", data)
	if err != nil {
		t.Fatal(err)
	}
	if got := restored.Metadata.Get(message.MetaTopic); got != "ament_haros_test" {
		t.Errorf("topic = %q, want ament_haros_test", got)
	}
}
