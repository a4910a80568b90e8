package common

import (
	"errors"
	"fmt"
	"strings"
)

var ErrContractPaused = errors.New("contract paused")

// PauseView reports whether a contract family has been paused by the
// operator.
type PauseView interface {
	IsPaused(contract string) bool
}

// Pauses is a static PauseView keyed by contract name.
type Pauses map[string]bool

// IsPaused implements PauseView.
func (p Pauses) IsPaused(contract string) bool {
	return p[strings.ToLower(strings.TrimSpace(contract))]
}

// Guard rejects execution against a paused contract. Queries are never
// guarded.
func Guard(p PauseView, contract string) error {
	if p == nil || contract == "" {
		return nil
	}
	if p.IsPaused(contract) {
		return fmt.Errorf("%w: %s", ErrContractPaused, contract)
	}
	return nil
}
