package pipeline

// Phase is the orchestrator's lifecycle state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseLoaded
	PhaseRendering
	PhaseDraining
	PhaseClosed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseLoaded:
		return "loaded"
	case PhaseRendering:
		return "rendering"
	case PhaseDraining:
		return "draining"
	case PhaseClosed:
		return "closed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseClosed || p == PhaseFailed
}
