package dynamo

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxDiagnostic bounds the diagnostic text carried by a LoadError.
const MaxDiagnostic = 1024

// Domain errors for the simulate-render-encode pipeline.
var (
	// ErrLoad indicates the scene description could not be loaded.
	ErrLoad = errors.New("dynamo: scene load failed")

	// ErrContext indicates an offscreen rendering resource could not be acquired.
	ErrContext = errors.New("dynamo: rendering context unavailable")

	// ErrStep indicates the physics step failed.
	ErrStep = errors.New("dynamo: simulation step failed")

	// ErrSink indicates the encoder could not be launched or written to.
	ErrSink = errors.New("dynamo: encoder sink failed")

	// ErrShortWrite indicates the encoder accepted fewer bytes than a full frame.
	ErrShortWrite = errors.New("dynamo: short write to encoder")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrDimensionMismatch indicates mismatched buffer or state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// LoadError carries the loader diagnostic for a rejected scene description.
type LoadError struct {
	Source     string
	Diagnostic string
}

// NewLoadError builds a LoadError whose diagnostic never exceeds MaxDiagnostic
// bytes and is never empty. Truncation keeps whole UTF-8 sequences.
func NewLoadError(source, diagnostic string) *LoadError {
	if diagnostic == "" {
		diagnostic = "unknown error"
	}
	if len(diagnostic) > MaxDiagnostic {
		cut := MaxDiagnostic
		for cut > 0 && !utf8.RuneStart(diagnostic[cut]) {
			cut--
		}
		diagnostic = diagnostic[:cut]
	}
	return &LoadError{Source: source, Diagnostic: diagnostic}
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return "load: " + e.Diagnostic
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Diagnostic)
}

func (e *LoadError) Unwrap() error {
	return ErrLoad
}

// ContextError reports a failed acquisition of a rendering resource.
type ContextError struct {
	Op  string
	Err error
}

func (e *ContextError) Error() string {
	if e.Err == nil {
		return "context " + e.Op
	}
	return fmt.Sprintf("context %s: %v", e.Op, e.Err)
}

func (e *ContextError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrContext}
	}
	return []error{ErrContext, e.Err}
}

// SimulationError wraps a step failure with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() []error {
	return []error{ErrStep, e.Wrapped}
}

// SinkError reports an encoder launch, write or close failure.
type SinkError struct {
	Op       string
	Frame    int
	Written  int
	Expected int
	Err      error
}

func (e *SinkError) Error() string {
	if errors.Is(e.Err, ErrShortWrite) {
		return fmt.Sprintf("sink %s: frame %d: wrote %d of %d bytes", e.Op, e.Frame, e.Written, e.Expected)
	}
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSink}
	}
	return []error{ErrSink, e.Err}
}

// IsSoft reports whether err should end the run gracefully rather than as a
// failure. Only a short write to the encoder qualifies; a joined error is
// soft only when every error in it is, so a short write followed by a failed
// encoder close is a failure.
func IsSoft(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *SinkError:
		return errors.Is(e.Err, ErrShortWrite)
	case interface{ Unwrap() []error }:
		errs := e.Unwrap()
		for _, inner := range errs {
			if !IsSoft(inner) {
				return false
			}
		}
		return len(errs) > 0
	case interface{ Unwrap() error }:
		return IsSoft(e.Unwrap())
	default:
		return err == ErrShortWrite
	}
}

// Stage names the pipeline stage an error originated from.
func Stage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoad):
		return "load"
	case errors.Is(err, ErrContext):
		return "context"
	case errors.Is(err, ErrStep):
		return "step"
	case errors.Is(err, ErrSink):
		return "sink"
	default:
		return "pipeline"
	}
}
