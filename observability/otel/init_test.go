package otel

import (
	"context"
	"testing"
)

func TestInitWithoutTraces(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected service name error")
	}
	shutdown, err := Init(context.Background(), Config{ServiceName: "bondswapd"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,bogus,=x, tenant=ops")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "ops" {
		t.Fatalf("unexpected headers %v", got)
	}
}
