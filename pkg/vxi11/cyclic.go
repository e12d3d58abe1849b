package vxi11

import "sync"

// portCycle walks a closed interval of ports, wrapping at the end.
// A single-port interval always yields the same port.
type portCycle struct {
	mu      sync.Mutex
	first   uint32
	last    uint32
	current uint32
}

func newPortCycle(first, last uint32) *portCycle {
	if last < first {
		last = first
	}
	return &portCycle{first: first, last: last, current: first}
}

func (p *portCycle) Current() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Advance moves to the next port and returns it.
func (p *portCycle) Advance() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= p.last {
		p.current = p.first
	} else {
		p.current++
	}
	return p.current
}

// Fixed reports whether the interval holds a single port.
func (p *portCycle) Fixed() bool {
	return p.first == p.last
}
