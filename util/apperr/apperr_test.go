package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeDuplicateIntent, "already pending")
	if got := CodeOf(err); got != CodeDuplicateIntent {
		t.Fatalf("CodeOf = %q, want %q", got, CodeDuplicateIntent)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Fatalf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Fatalf("CodeOf(nil) = %q, want empty", got)
	}

	// codes survive wrapping by callers
	wrapped := fmt.Errorf("processing job 7: %w", err)
	if got := CodeOf(wrapped); got != CodeDuplicateIntent {
		t.Fatalf("CodeOf(wrapped) = %q, want %q", got, CodeDuplicateIntent)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(CodeGatewayVerification, "lookup unreachable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if got := MessageOf(err); got != "lookup unreachable" {
		t.Fatalf("MessageOf = %q", got)
	}
}

func TestMessageOfFallback(t *testing.T) {
	if got := MessageOf(errors.New("boom")); got != "boom" {
		t.Fatalf("MessageOf(plain) = %q", got)
	}
	if got := MessageOf(nil); got != "" {
		t.Fatalf("MessageOf(nil) = %q", got)
	}
}
