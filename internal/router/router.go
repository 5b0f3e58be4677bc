// Package router implements the Router Manager: createRouterGroup and the
// teardown side of destroyRouterGroup. A "router group" is one router per
// media-engine worker, all tagged to the same room name, so that any
// subsequently-assigned peer can be placed on whichever worker the load
// selector currently favors without the room needing to span nodes.
package router

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"aq-media-node/internal/loadselector"
	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
)

// DefaultCodecs is the codec set every router in this node advertises.
// mediasoup-equivalent deployments negotiate this per room; this node uses
// a fixed Opus+VP8+H264 set, matching the scope in SPEC_FULL.md §4.E.
var DefaultCodecs = []webrtc.RTPCodecCapability{
	{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
	{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
	{MimeType: webrtc.MimeTypeH264, ClockRate: 90000},
}

// Manager owns room-to-router-group lifecycle.
type Manager struct {
	reg      *registry.Registry
	selector *loadselector.Selector
}

func New(reg *registry.Registry, selector *loadselector.Selector) *Manager {
	return &Manager{reg: reg, selector: selector}
}

// CreateRouterGroup is idempotent: if room already has a router group, its
// existing router IDs are returned unchanged and no new routers are
// created, matching the "joining an existing room" path described in
// SPEC_FULL.md §4.E.
func (m *Manager) CreateRouterGroup(room string) ([]uuid.UUID, error) {
	if ids, ok := m.reg.RoomRouters(room); ok {
		return ids, nil
	}

	workers := m.reg.AllWorkers()
	if len(workers) == 0 {
		return nil, fmt.Errorf("router: no workers available")
	}

	ids := make([]uuid.UUID, 0, len(workers))
	for _, w := range workers {
		rt, err := w.CreateRouter(DefaultCodecs)
		if err != nil {
			return nil, fmt.Errorf("router: create router on worker %s: %w", w.ID(), err)
		}
		m.reg.PutRouter(rt)
		ids = append(ids, rt.ID())
	}

	m.reg.CreateRoom(room, ids)
	return ids, nil
}

// SelectRouter picks a router for room via the load selector (SPEC_FULL.md
// §4.D): it asks the selector for the next worker in round-robin order,
// finds that worker's router in room's group, and records the assignment
// against the worker's load counter. Callers must not accept a
// client-supplied worker id in its place — that bypasses the selector
// entirely and leaves the load counter meaningless.
func (m *Manager) SelectRouter(room string) (mediaengine.Router, error) {
	w, ok := m.selector.LessLoadedWorker()
	if !ok {
		return nil, fmt.Errorf("router: no workers available")
	}
	rt, ok := m.RouterOnWorker(room, w.ID())
	if !ok {
		return nil, fmt.Errorf("router: no router for room %q on worker %s", room, w.ID())
	}
	m.selector.RecordAssignment(w.ID(), rt.ID())
	return rt, nil
}

// ReleaseRouter decrements the load counter for routerID's worker — the
// counterpart to SelectRouter, called when a transport placed on that
// router is torn down.
func (m *Manager) ReleaseRouter(routerID uuid.UUID) {
	rt, ok := m.reg.GetRouter(routerID)
	if !ok {
		return
	}
	m.selector.RecordRelease(rt.WorkerID())
}

// RouterOnWorker returns the router in room's group that lives on workerID.
func (m *Manager) RouterOnWorker(room string, workerID uuid.UUID) (mediaengine.Router, bool) {
	ids, ok := m.reg.RoomRouters(room)
	if !ok {
		return nil, false
	}
	for _, id := range ids {
		rt, ok := m.reg.GetRouter(id)
		if ok && rt.WorkerID() == workerID {
			return rt, true
		}
	}
	return nil, false
}

// OtherRouters returns every router in room's group except exclude — used
// by the relay fan-out path to replicate a producer onto every sibling
// router in the room.
func (m *Manager) OtherRouters(room string, exclude uuid.UUID) []mediaengine.Router {
	ids, ok := m.reg.RoomRouters(room)
	if !ok {
		return nil
	}
	out := make([]mediaengine.Router, 0, len(ids))
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if rt, ok := m.reg.GetRouter(id); ok {
			out = append(out, rt)
		}
	}
	return out
}

// DestroyRouterGroup closes every router in room's group and removes the
// room from the registry. It is safe to call on an already-destroyed or
// unknown room.
func (m *Manager) DestroyRouterGroup(room string) {
	ids, ok := m.reg.RoomRouters(room)
	if !ok {
		return
	}
	for _, id := range ids {
		if rt, ok := m.reg.GetRouter(id); ok {
			rt.Close()
		}
		m.reg.DeleteRouter(id)
	}
	m.reg.DeleteRoom(room)
}
