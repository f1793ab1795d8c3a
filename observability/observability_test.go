package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestFieldConstructors(t *testing.T) {
	cases := []struct {
		field Field
		key   string
		val   interface{}
	}{
		{String("path", "/tmp/a.jpg"), "path", "/tmp/a.jpg"},
		{Int("width", 1200), "width", 1200},
		{Float64("confidence", 0.75), "confidence", 0.75},
		{Bool("two_pages", true), "two_pages", true},
	}
	for _, c := range cases {
		if c.field.Key() != c.key {
			t.Fatalf("key = %q, want %q", c.field.Key(), c.key)
		}
		if c.field.Value() != c.val {
			t.Fatalf("value = %v, want %v", c.field.Value(), c.val)
		}
	}

	err := errors.New("boom")
	f := Error("err", err)
	if f.Key() != "err" || f.Value() != err {
		t.Fatalf("error field mismatch: %q %v", f.Key(), f.Value())
	}
}

func TestNopLoggerWith(t *testing.T) {
	var l Logger = NopLogger{}
	l2 := l.With(String("stage", "inspect"))
	if l2 == nil {
		t.Fatalf("With returned nil logger")
	}
	l2.Debug("ignored")
	l2.Info("ignored")
	l2.Warn("ignored")
	l2.Error("ignored")
}
