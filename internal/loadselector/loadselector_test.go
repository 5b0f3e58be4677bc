package loadselector

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"aq-media-node/internal/mediaengine"
	"aq-media-node/internal/registry"
)

// fakeWorker is the minimal mediaengine.Worker stand-in needed to exercise
// the selector without pulling in the in-memory engine.
type fakeWorker struct{ id uuid.UUID }

func (w fakeWorker) ID() uuid.UUID { return w.id }
func (w fakeWorker) CreateRouter(codecs []webrtc.RTPCodecCapability) (mediaengine.Router, error) {
	return nil, nil
}
func (w fakeWorker) WebRtcServer() mediaengine.WebRtcServer { return nil }
func (w fakeWorker) Closed() bool                           { return false }

func TestLessLoadedWorkerVisitsEachWorkerEqually(t *testing.T) {
	reg := registry.New()
	const k = 4
	const m = 5

	ids := make([]uuid.UUID, k)
	for i := range ids {
		ids[i] = uuid.New()
		reg.PutWorker(fakeWorker{id: ids[i]})
	}

	sel := New(reg)
	counts := map[uuid.UUID]int{}
	for i := 0; i < k*m; i++ {
		w, ok := sel.LessLoadedWorker()
		if !ok {
			t.Fatalf("expected a worker to be selected on call %d", i)
		}
		counts[w.ID()]++
	}

	for _, id := range ids {
		if counts[id] != m {
			t.Errorf("expected worker %s to be visited %d times, got %d", id, m, counts[id])
		}
	}
}

func TestLessLoadedWorkerWithNoWorkers(t *testing.T) {
	reg := registry.New()
	sel := New(reg)

	if _, ok := sel.LessLoadedWorker(); ok {
		t.Fatal("expected no worker to be selected against an empty pool")
	}
}

func TestRecordAssignmentAndRelease(t *testing.T) {
	reg := registry.New()
	sel := New(reg)
	worker := uuid.New()
	router := uuid.New()

	sel.RecordAssignment(worker, router)
	sel.RecordAssignment(worker, router)
	if got := reg.Load(worker); got != 2 {
		t.Fatalf("expected load 2 after two assignments, got %d", got)
	}

	sel.RecordRelease(worker)
	if got := reg.Load(worker); got != 1 {
		t.Fatalf("expected load 1 after one release, got %d", got)
	}
}
