package dynamo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLoadErrorBounded(t *testing.T) {
	long := strings.Repeat("x", 4*MaxDiagnostic)
	err := NewLoadError("scene.xml", long)
	if len(err.Diagnostic) != MaxDiagnostic {
		t.Errorf("diagnostic length = %d, want %d", len(err.Diagnostic), MaxDiagnostic)
	}
	if !errors.Is(err, ErrLoad) {
		t.Error("LoadError should unwrap to ErrLoad")
	}

	empty := NewLoadError("", "")
	if empty.Diagnostic == "" {
		t.Error("diagnostic must never be empty")
	}
}

func TestLoadErrorKeepsRunes(t *testing.T) {
	// "é" is two bytes, so the limit falls inside the last one
	long := "x" + strings.Repeat("é", MaxDiagnostic)
	err := NewLoadError("scene.xml", long)
	if !utf8.ValidString(err.Diagnostic) {
		t.Fatal("truncated diagnostic is not valid UTF-8")
	}
	if len(err.Diagnostic) != MaxDiagnostic-1 {
		t.Errorf("diagnostic length = %d, want %d", len(err.Diagnostic), MaxDiagnostic-1)
	}
}

func TestStage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"load", NewLoadError("a", "b"), "load"},
		{"context", &ContextError{Op: "gfx", Err: errors.New("no display")}, "context"},
		{"step", &SimulationError{Step: 3, Wrapped: ErrUnstable}, "step"},
		{"sink", &SinkError{Op: "write", Err: ErrShortWrite}, "sink"},
		{"wrapped sink", fmt.Errorf("frame 4: %w", &SinkError{Op: "launch", Err: errors.New("not found")}), "sink"},
		{"other", errors.New("boom"), "pipeline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stage(tt.err); got != tt.want {
				t.Errorf("Stage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSoft(t *testing.T) {
	short := &SinkError{Op: "write", Frame: 7, Written: 10, Expected: 30, Err: ErrShortWrite}
	if !IsSoft(short) {
		t.Error("short write should be soft")
	}
	if !errors.Is(short, ErrSink) {
		t.Error("short write should still be a sink error")
	}
	if IsSoft(&SinkError{Op: "launch", Err: errors.New("exec: not found")}) {
		t.Error("launch failure should not be soft")
	}
	if !strings.Contains(short.Error(), "wrote 10 of 30") {
		t.Errorf("unexpected message %q", short.Error())
	}

	piped := &SinkError{Op: "write", Err: errors.Join(ErrShortWrite, errors.New("broken pipe"))}
	if !IsSoft(piped) || !IsSoft(fmt.Errorf("frame 3: %w", piped)) {
		t.Error("a short write with its cause should be soft")
	}
	closeFailed := &SinkError{Op: "close", Err: errors.New("exit status 1")}
	if IsSoft(errors.Join(short, closeFailed)) {
		t.Error("a short write followed by a failed close should not be soft")
	}
	if !IsSoft(errors.Join(short, nil)) {
		t.Error("a lone short write in a join should be soft")
	}
	if IsSoft(nil) {
		t.Error("nil is not soft")
	}
}

func TestSimulationErrorUnwrap(t *testing.T) {
	err := &SimulationError{Step: 12, Time: 0.06, Wrapped: ErrUnstable}
	if !errors.Is(err, ErrUnstable) || !errors.Is(err, ErrStep) {
		t.Error("SimulationError should unwrap to ErrStep and its cause")
	}
}

func TestStateBounded(t *testing.T) {
	if !(State{1, -2, 3}).Bounded(10) {
		t.Error("expected bounded")
	}
	if (State{1, 20}).Bounded(10) {
		t.Error("expected unbounded")
	}
	if (State{math.NaN()}).Bounded(10) || (State{math.Inf(-1)}).Bounded(10) {
		t.Error("non-finite state reported bounded")
	}
}
