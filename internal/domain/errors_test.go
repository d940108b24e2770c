package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	t.Run("wrap keeps cause in the chain", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection refused")
		err := Wrap(CodeTransient, "db.connect", cause)
		if !errors.Is(err, cause) {
			t.Fatalf("wrapped error lost its cause")
		}
		if !IsCode(err, CodeTransient) {
			t.Fatalf("IsCode(CodeTransient) = false")
		}
	})

	t.Run("wrap nil is nil", func(t *testing.T) {
		t.Parallel()
		if err := Wrap(CodeInternal, "db.connect", nil); err != nil {
			t.Fatalf("Wrap(nil) = %v, want nil", err)
		}
	})

	t.Run("code of wrapped chain", func(t *testing.T) {
		t.Parallel()
		inner := NewError(CodeInsufficientFunds, "account.debit", "balance too low", nil)
		outer := fmt.Errorf("processing command: %w", inner)
		if got := CodeOf(outer); got != CodeInsufficientFunds {
			t.Fatalf("CodeOf = %q, want %q", got, CodeInsufficientFunds)
		}
	})

	t.Run("code of plain error is empty", func(t *testing.T) {
		t.Parallel()
		if got := CodeOf(errors.New("boom")); got != "" {
			t.Fatalf("CodeOf = %q, want empty", got)
		}
		if IsCode(errors.New("boom"), CodeInternal) {
			t.Fatalf("IsCode matched a plain error")
		}
	})
}
