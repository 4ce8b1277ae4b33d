package msgs_test

import (
	"testing"

	"github.com/uniyakcom/beep/msgs"
)

func TestStringTypeName(t *testing.T) {
	var v msgs.Type = msgs.String{Data: "beep 1"}
	if v.TypeName() != "std_msgs/String" {
		t.Errorf("TypeName = %q", v.TypeName())
	}
}
