package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewAppliesDefaultTimeout(t *testing.T) {
	if f := New(0); f.timeout != DefaultTimeout {
		t.Errorf("zero timeout should default, got %v", f.timeout)
	}
	if f := New(5 * time.Second); f.timeout != 5*time.Second {
		t.Errorf("explicit timeout overridden: %v", f.timeout)
	}
}

func TestClassify(t *testing.T) {
	err := classify(context.DeadlineExceeded)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("deadline errors should map to ErrTimeout, got %v", err)
	}

	wrapped := classify(fmt.Errorf("run: %w", context.DeadlineExceeded))
	if !errors.Is(wrapped, ErrTimeout) {
		t.Errorf("wrapped deadline errors should map to ErrTimeout, got %v", wrapped)
	}

	inner := errors.New("browser crashed")
	other := classify(inner)
	if errors.Is(other, ErrTimeout) {
		t.Error("non-timeout failure must not look like a timeout")
	}
	if !errors.Is(other, inner) {
		t.Error("original error should stay unwrappable")
	}
}
