package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindIO, "I/O error"},
		{KindLadder, "Ladder error"},
		{KindState, "State error"},
		{KindEncode, "Encode error"},
		{KindMetric, "Metric error"},
		{KindScenes, "Scene error"},
		{KindConfig, "Configuration error"},
		{KindCancelled, "Operation cancelled"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestCoreErrorFormat(t *testing.T) {
	err := NewLadderError("CRF must be between 1-70 (got 90)")
	if !strings.Contains(err.Error(), "Ladder error") {
		t.Errorf("error missing kind prefix: %v", err)
	}
	if !strings.Contains(err.Error(), "got 90") {
		t.Errorf("error missing offending value: %v", err)
	}
}

func TestCoreErrorUnwrap(t *testing.T) {
	underlying := fmt.Errorf("disk full")
	err := NewIOError("failed to write ledger", underlying)

	if !stderrors.Is(err, underlying) {
		t.Error("expected errors.Is to find underlying error")
	}
}

func TestIsKind(t *testing.T) {
	stateErr := NewStateError("artifact 00042.ivf does not match any scene")
	wrapped := fmt.Errorf("pass 3: %w", stateErr)

	if !IsKind(wrapped, KindState) {
		t.Error("expected wrapped error to match KindState")
	}
	if IsKind(wrapped, KindLadder) {
		t.Error("unexpected KindLadder match")
	}
	if !IsState(wrapped) {
		t.Error("IsState should match wrapped state error")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(NewCancelledError()) {
		t.Error("expected cancellation error to match")
	}
	if IsCancelled(NewConfigError("bad workers")) {
		t.Error("config error should not match cancellation")
	}
}

func TestCommandFailedError(t *testing.T) {
	err := NewCommandFailedError("av1an", 2, "segfault")
	if !strings.Contains(err.Error(), "exit code 2") {
		t.Errorf("missing exit code: %v", err)
	}

	var cmdErr *CommandError
	if !stderrors.As(err, &cmdErr) {
		t.Fatal("expected CommandError in chain")
	}
	if cmdErr.ExitCode != 2 || cmdErr.Stderr != "segfault" {
		t.Errorf("unexpected command error fields: %+v", cmdErr)
	}
}
