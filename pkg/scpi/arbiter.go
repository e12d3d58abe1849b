package scpi

import (
	"sync"

	scpiruntime "ridengateway/pkg/scpi/runtime"
)

type holder struct {
	name        string
	evict       func()
	preemptible bool
}

// Arbiter grants exclusive remote control of the instrument to one
// session at a time. A raw socket client holds control preemptibly; a
// VXI-11 link takes control away from it but never from another link.
type Arbiter struct {
	mu      sync.Mutex
	current *holder
}

func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Claim takes control for the named session, failing when any other
// session holds it. The evict callback is invoked if the session is
// later preempted.
func (a *Arbiter) Claim(name string, evict func(), preemptible bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && a.current.name != name {
		return scpiruntime.ErrControlHeld
	}
	a.current = &holder{name: name, evict: evict, preemptible: preemptible}
	return nil
}

// Preempt takes control, evicting a preemptible holder. It still fails
// against a non-preemptible one.
func (a *Arbiter) Preempt(name string, evict func(), preemptible bool) error {
	a.mu.Lock()
	evicted := (func())(nil)
	if a.current != nil && a.current.name != name {
		if !a.current.preemptible {
			a.mu.Unlock()
			return scpiruntime.ErrControlHeld
		}
		evicted = a.current.evict
	}
	a.current = &holder{name: name, evict: evict, preemptible: preemptible}
	a.mu.Unlock()
	if evicted != nil {
		evicted()
	}
	return nil
}

// Release gives control back. Only the holder can release.
func (a *Arbiter) Release(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && a.current.name == name {
		a.current = nil
	}
}

func (a *Arbiter) Owner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ""
	}
	return a.current.name
}

func (a *Arbiter) Held() bool {
	return a.Owner() != ""
}
