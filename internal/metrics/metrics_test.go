package metrics

import (
	"testing"
	"time"
)

func TestRecordNodeRegistration(t *testing.T) {
	Reset()

	RecordNodeRegistration()

	m := Get()
	if m.NodeRegistrations != 1 {
		t.Errorf("Expected NodeRegistrations to be 1, got %d", m.NodeRegistrations)
	}
}

func TestRecordRoomLifecycle(t *testing.T) {
	Reset()

	RecordRoomCreated()
	RecordRoomCreated()
	RecordRoomDestroyed()

	m := Get()
	if m.RoomsCreated != 2 {
		t.Errorf("Expected RoomsCreated to be 2, got %d", m.RoomsCreated)
	}
	if m.RoomsDestroyed != 1 {
		t.Errorf("Expected RoomsDestroyed to be 1, got %d", m.RoomsDestroyed)
	}
}

func TestRecordTransportLifecycle(t *testing.T) {
	Reset()

	RecordTransportCreated()
	RecordTransportDisconnected()

	m := Get()
	if m.TransportsCreated != 1 {
		t.Errorf("Expected TransportsCreated to be 1, got %d", m.TransportsCreated)
	}
	if m.TransportsDisconnected != 1 {
		t.Errorf("Expected TransportsDisconnected to be 1, got %d", m.TransportsDisconnected)
	}
}

func TestRecordProducersAndConsumers(t *testing.T) {
	Reset()

	RecordMediaProducerCreated()
	RecordDataProducerCreated()
	RecordConsumerCreated()
	RecordDataConsumerCreated()

	m := Get()
	if m.MediaProducersCreated != 1 || m.DataProducersCreated != 1 {
		t.Errorf("Expected one media and one data producer recorded, got %+v", m)
	}
	if m.ConsumersCreated != 1 || m.DataConsumersCreated != 1 {
		t.Errorf("Expected one consumer and one data consumer recorded, got %+v", m)
	}
}

func TestRecordRelayHandshake(t *testing.T) {
	Reset()

	RecordRelayHandshakeStarted()
	RecordRelayHandshakeCompleted()

	m := Get()
	if m.RelayHandshakesStarted != 1 || m.RelayHandshakesCompleted != 1 {
		t.Errorf("Expected one started and one completed handshake, got %+v", m)
	}
}

func TestRecordFatalExit(t *testing.T) {
	Reset()

	RecordFatalExit()

	m := Get()
	if m.FatalExitsTriggered != 1 {
		t.Errorf("Expected FatalExitsTriggered to be 1, got %d", m.FatalExitsTriggered)
	}
}

func TestRecordMessageProcessed(t *testing.T) {
	Reset()

	RecordMessageProcessed()
	RecordMessageProcessed()

	m := Get()
	if m.MessagesProcessed != 2 {
		t.Errorf("Expected MessagesProcessed to be 2, got %d", m.MessagesProcessed)
	}
}

func TestReset(t *testing.T) {
	Reset()

	RecordNodeRegistration()
	RecordMessageProcessed()
	RecordFatalExit()

	Reset()

	m := Get()
	if m.NodeRegistrations != 0 || m.MessagesProcessed != 0 || m.FatalExitsTriggered != 0 {
		t.Error("Expected all metrics to be reset to 0")
	}
}

func TestUptime(t *testing.T) {
	m := Get()
	uptime := m.Uptime()

	if uptime < 0 {
		t.Errorf("Expected Uptime to be non-negative, got %v", uptime)
	}
	if uptime > time.Second {
		t.Errorf("Expected Uptime to be small, got %v", uptime)
	}
}

func TestToJSON(t *testing.T) {
	Reset()

	RecordNodeRegistration()
	m := Get()
	data := m.ToJSON()

	if len(data) == 0 {
		t.Error("Expected JSON data to be non-empty")
	}
	if !containsSubstring(string(data), "node_registrations") {
		t.Error("Expected JSON to contain 'node_registrations'")
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i < len(s)-len(substr)+1; i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
