package common

import (
	"errors"
	"testing"
)

func TestGuard(t *testing.T) {
	pauses := Pauses{"pool": true}
	if err := Guard(pauses, "pool"); !errors.Is(err, ErrContractPaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(pauses, "bonding"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Guard(nil, "pool"); err != nil {
		t.Fatalf("nil view must allow: %v", err)
	}
}
