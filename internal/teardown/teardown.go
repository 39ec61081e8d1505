// Package teardown releases acquired resources in reverse acquisition order.
package teardown

import (
	"errors"
	"fmt"
	"sync"
)

// ErrReleased is returned when a resource is released a second time.
var ErrReleased = errors.New("teardown: already released")

type entry struct {
	name    string
	release func() error
}

// Stack records resources as they are acquired. Release undoes them last in,
// first out, exactly once.
type Stack struct {
	mu      sync.Mutex
	entries []entry
	done    bool
	onEach  func(name string, err error)
}

func New() *Stack {
	return &Stack{}
}

// OnRelease installs a hook called after each resource is released.
func (s *Stack) OnRelease(fn func(name string, err error)) {
	s.mu.Lock()
	s.onEach = fn
	s.mu.Unlock()
}

// Push records an acquired resource. Pushing onto a released stack releases
// the resource immediately and returns ErrReleased.
func (s *Stack) Push(name string, release func() error) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		if err := release(); err != nil {
			return errors.Join(ErrReleased, fmt.Errorf("release %s: %w", name, err))
		}
		return ErrReleased
	}
	s.entries = append(s.entries, entry{name: name, release: release})
	s.mu.Unlock()
	return nil
}

// Len is the number of resources still held.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Names lists held resources in acquisition order.
func (s *Stack) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Release releases every held resource in reverse order. All resources are
// released even when some fail; the failures are joined.
func (s *Stack) Release() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	entries := s.entries
	s.entries = nil
	hook := s.onEach
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		err := e.release()
		if hook != nil {
			hook(e.name, err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}

// Once wraps release so that only the first call runs it; later calls
// return ErrReleased.
func Once(release func() error) func() error {
	var once sync.Once
	return func() error {
		err := ErrReleased
		once.Do(func() { err = release() })
		return err
	}
}
