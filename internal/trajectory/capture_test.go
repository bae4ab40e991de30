package trajectory

import (
	"context"
	"sync"
	"testing"
	"time"

	"aeterna/internal/config"
	"aeterna/internal/metrics"
	"aeterna/internal/model"
)

type fakeStorage struct {
	mu    sync.Mutex
	saved [][]model.TrajectoryEvent
	fail  bool
}

func (f *fakeStorage) PersistEvents(_ context.Context, _ string, batch []model.TrajectoryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return assertErr
	}
	cp := make([]model.TrajectoryEvent, len(batch))
	copy(cp, batch)
	f.saved = append(f.saved, cp)
	return nil
}

func (f *fakeStorage) LoadEvents(_ context.Context, _ string) ([]model.TrajectoryEvent, error) {
	return nil, nil
}

var assertErr = &fakeErr{"persist failed"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

func TestRingBufferOverflow(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.QueueSize = 100
	rb := NewRingBuffer(cfg, nil)

	for i := 0; i < 105; i++ {
		rb.Capture(model.TrajectoryEvent{ID: string(rune('a' + i%26)), ToolName: "t", Success: true})
	}

	if rb.Len() != 100 {
		t.Fatalf("expected queue length 100, got %d", rb.Len())
	}
}

// TestSessionOverflowDropsTrackedInMetrics drives the admission path
// through Session.Capture rather than a bare RingBuffer, matching
// spec.md §8 seed scenario 5 (queue_size=100, push 105 events): the
// buffer evicts its oldest entry per over-capacity push rather than
// rejecting the new one, so every event is still captured, but each
// push past capacity also counts as an overflow drop.
func TestSessionOverflowDropsTrackedInMetrics(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.QueueSize = 100
	storage := &fakeStorage{}
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, storage, m, nil)
	defer s.Stop()

	for i := 0; i < 105; i++ {
		s.Capture(model.TrajectoryEvent{ID: string(rune('a' + i%26)), ToolName: "t", Success: true})
	}

	snap := m.Snapshot()
	if snap.OverflowDrops != 5 {
		t.Fatalf("expected 5 overflow drops, got %d", snap.OverflowDrops)
	}
	if snap.EventsCaptured != 105 {
		t.Fatalf("expected all 105 events captured (overflow evicts rather than rejects), got %d", snap.EventsCaptured)
	}
}

func TestErrorsOnlyModeDropsSuccesses(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.Mode = model.CaptureErrorsOnly
	storage := &fakeStorage{}
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, storage, m, nil)
	defer s.Stop()

	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: true})
	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: false})

	snap := m.Snapshot()
	if snap.Dropped != 1 {
		t.Fatalf("expected 1 dropped (the success), got %d", snap.Dropped)
	}
	if snap.EventsCaptured != 1 {
		t.Fatalf("expected 1 captured (the failure), got %d", snap.EventsCaptured)
	}
}

func TestDisabledModeDropsAll(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.Mode = model.CaptureDisabled
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, &fakeStorage{}, m, nil)
	defer s.Stop()

	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: true})
	if m.Snapshot().Dropped != 1 {
		t.Fatal("expected event to be dropped when capture disabled")
	}
}

func TestSampledModeCapturesEveryRthEvent(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.Mode = model.CaptureSampled
	cfg.SampleRate = 3
	cfg.QueueSize = 1000
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, &fakeStorage{}, m, nil)
	defer s.Stop()

	const n = 30
	for i := 0; i < n; i++ {
		s.Capture(model.TrajectoryEvent{ToolName: "same-tool", Success: true})
	}

	captured := m.Snapshot().EventsCaptured
	lower := int64(n / cfg.SampleRate)
	upper := int64((n + cfg.SampleRate - 1) / cfg.SampleRate)
	if captured < lower || captured > upper {
		t.Fatalf("sampled capture count %d out of expected range [%d,%d]", captured, lower, upper)
	}
}

func TestFlushPersistsBufferedEvents(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.BatchFlushMs = 50
	storage := &fakeStorage{}
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, storage, m, nil)
	defer s.Stop()

	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: true})
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if len(storage.saved) != 1 || len(storage.saved[0]) != 1 {
		t.Fatalf("expected one persisted batch of one event, got %+v", storage.saved)
	}
}

func TestPeriodicFlushOnTicker(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.BatchFlushMs = 20
	storage := &fakeStorage{}
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, storage, m, nil)
	defer s.Stop()

	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: true})

	deadline := time.After(2 * time.Second)
	for {
		storage.mu.Lock()
		n := len(storage.saved)
		storage.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for periodic flush")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPersistFailureCountsAsDropped(t *testing.T) {
	cfg := config.DefaultTrajectoryConfig()
	cfg.BatchFlushMs = 20
	storage := &fakeStorage{fail: true}
	m := &metrics.TrajectoryMetrics{}
	s := NewSession(context.Background(), "sess", cfg, storage, m, nil)
	defer s.Stop()

	s.Capture(model.TrajectoryEvent{ToolName: "t", Success: true})

	deadline := time.After(2 * time.Second)
	for {
		if m.Snapshot().Dropped >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for persist failure to register as dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
