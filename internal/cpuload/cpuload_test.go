package cpuload

import "testing"

func TestSampleFirstCallIsZeroDelta(t *testing.T) {
	s := NewSampler()
	v, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected the first sample to report a zero delta (no prior reading), got %d", v)
	}
}

func TestSampleSecondCallIsNonNegative(t *testing.T) {
	s := NewSampler()
	if _, err := s.Sample(); err != nil {
		t.Fatalf("Sample (first): %v", err)
	}
	v, err := s.Sample()
	if err != nil {
		t.Fatalf("Sample (second): %v", err)
	}
	if v < 0 {
		t.Fatalf("expected a non-negative load figure, got %d", v)
	}
}

func TestDiffFloorsAtZeroOnCounterReset(t *testing.T) {
	if got := diff(5, 10); got != 0 {
		t.Fatalf("expected diff to floor at 0 when the counter appears to have gone backwards, got %d", got)
	}
	if got := diff(15, 10); got != 5 {
		t.Fatalf("expected diff(15, 10) = 5, got %d", got)
	}
}

func TestReadProcStat(t *testing.T) {
	user, system, err := readProcStat()
	if err != nil {
		t.Fatalf("readProcStat: %v", err)
	}
	if user == 0 && system == 0 {
		t.Fatal("expected nonzero user or system ticks from a live /proc/stat")
	}
}
