// Package loadselector implements the router-placement policy used when a
// peer transport is placed in a room (router.Manager.SelectRouter). Despite
// the name carried over from the control
// protocol ("less loaded router"), the policy is a plain round-robin over
// the worker pool — see the Design Notes in SPEC_FULL.md for why this is
// preserved rather than made to actually track load.
package loadselector

import (
	"sync/atomic"

	"github.com/google/uuid"

	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
)

// Selector hands out workers in round-robin order across repeated calls.
type Selector struct {
	reg     *registry.Registry
	counter uint64
}

func New(reg *registry.Registry) *Selector {
	return &Selector{reg: reg}
}

// LessLoadedWorker returns the next worker in round-robin order. The name
// matches the control protocol's historical terminology; it does not
// inspect actual CPU or router count.
func (s *Selector) LessLoadedWorker() (mediaengine.Worker, bool) {
	workers := s.reg.AllWorkers()
	if len(workers) == 0 {
		return nil, false
	}
	n := atomic.AddUint64(&s.counter, 1) - 1
	idx := int(n % uint64(len(workers)))
	return workers[idx], true
}

// RecordAssignment increments the load counter for workerID, associating
// routerID as the most recently assigned router on it.
func (s *Selector) RecordAssignment(workerID, routerID uuid.UUID) {
	s.reg.IncrementLoad(workerID, routerID)
}

// RecordRelease decrements the load counter for workerID.
func (s *Selector) RecordRelease(workerID uuid.UUID) {
	s.reg.DecrementLoad(workerID)
}
