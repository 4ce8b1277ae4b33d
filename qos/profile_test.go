package qos_test

import (
	"errors"
	"testing"

	"github.com/uniyakcom/beep/qos"
)

func TestWithDepthKeepsDefaults(t *testing.T) {
	p := qos.Default().WithDepth(7)
	want := qos.Profile{Depth: 7, History: qos.KeepLast, Reliability: qos.Reliable, Durability: qos.Volatile}
	if p != want {
		t.Errorf("profile = %+v, want %+v", p, want)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestWithDepthDoesNotMutate(t *testing.T) {
	base := qos.Default()
	_ = base.WithDepth(1)
	if base.Depth != qos.DefaultDepth {
		t.Errorf("base depth changed to %d", base.Depth)
	}
}

func TestValidate(t *testing.T) {
	bad := []qos.Profile{
		qos.Default().WithDepth(0),
		qos.Default().WithDepth(-1),
		{Depth: 1, History: qos.History(9)},
		{Depth: 1, Reliability: qos.Reliability(9)},
		{Depth: 1, Durability: qos.Durability(9)},
	}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, qos.ErrInvalidProfile) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidProfile", p, err)
		}
	}

	keepAll := qos.Profile{History: qos.KeepAll}
	if err := keepAll.Validate(); err != nil {
		t.Errorf("keep_all with zero depth: %v", err)
	}
}

func TestString(t *testing.T) {
	if s := qos.Default().WithDepth(7).String(); s != "keep_last(7)/reliable/volatile" {
		t.Errorf("String = %q", s)
	}
}
