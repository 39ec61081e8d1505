package render

import (
	"errors"
	"fmt"
	"sort"
)

// MaxDimension bounds the offscreen buffer in each direction.
const MaxDimension = 8192

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "software"

// ErrUnavailable is returned for backends registered but not usable in this
// build.
var ErrUnavailable = errors.New("render: backend not available")

// Backend creates graphics contexts. The backend is chosen explicitly through
// Config; nothing is selected from the process environment.
type Backend interface {
	Name() string
	Available() bool
	NewContext(width, height int) (*GraphicsContext, error)
}

var backends = map[string]func() Backend{
	"software": func() Backend { return softwareBackend{} },
	"osmesa":   func() Backend { return hostBackend{name: "osmesa"} },
	"egl":      func() Backend { return hostBackend{name: "egl"} },
}

// LookupBackend returns the named backend if it is registered and available.
func LookupBackend(name string) (Backend, error) {
	if name == "" {
		name = DefaultBackend
	}
	build, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
	b := build()
	if !b.Available() {
		return nil, fmt.Errorf("%s: %w", name, ErrUnavailable)
	}
	return b, nil
}

// Backends lists every registered backend name.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type softwareBackend struct{}

func (softwareBackend) Name() string    { return "software" }
func (softwareBackend) Available() bool { return true }

func (softwareBackend) NewContext(width, height int) (*GraphicsContext, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	return newGraphicsContext(width, height), nil
}

// hostBackend stands for a system GL library; this build links none.
type hostBackend struct {
	name string
}

func (h hostBackend) Name() string    { return h.name + " (not available)" }
func (h hostBackend) Available() bool { return false }

func (h hostBackend) NewContext(int, int) (*GraphicsContext, error) {
	return nil, fmt.Errorf("%s: %w", h.name, ErrUnavailable)
}
