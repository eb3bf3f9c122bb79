package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"hello", nil, "hello"},
		{"%s world", []interface{}{"hello"}, "hello world"},
		{"%d", []interface{}{42}, "42"},
		{"%d", []interface{}{-7}, "-7"},
		{"%x", []interface{}{uint64(255)}, "ff"},
		{"%o", []interface{}{uint8(8)}, "10"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"%c", []interface{}{byte('A')}, "A"},
		{"%s", nil, "(MISSING)"},
		{"%d", []interface{}{"nope"}, "%!(WRONGTYPE)"},
		{"no verbs", []interface{}{1}, "no verbs%!(EXTRA)"},
	}

	for specIndex, spec := range specs {
		var buf bytes.Buffer
		Fprintf(&buf, spec.format, spec.args...)
		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestSetOutputSinkFlushesEarlyRingBuffer(t *testing.T) {
	SetOutputSink(nil)
	earlyPrintBuffer = ringBuffer{}

	Printf("%s", "first-chunk-of-text")

	var buf bytes.Buffer
	SetOutputSink(&buf)
	if buf.Len() == 0 {
		t.Fatal("expected early buffer contents to be flushed to new sink")
	}

	Printf("%s", "-more")
	if got := buf.String(); got != "first-chunk-of-text-more" {
		t.Errorf("expected %q; got %q", "first-chunk-of-text-more", got)
	}

	SetOutputSink(nil)
}
