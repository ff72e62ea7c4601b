package requestctx

import (
	"context"
	"testing"
)

func TestRequestValuesRoundTrip(t *testing.T) {
	ctx := WithClientIP(WithRequestID(context.Background(), "req-1"), "10.0.0.1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetClientIP(ctx); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1, got %q", got)
	}
	if GetRequestID(context.Background()) != "" {
		t.Fatal("expected empty request id on bare context")
	}
}
