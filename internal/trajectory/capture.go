package trajectory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"aeterna/internal/config"
	"aeterna/internal/logging"
	"aeterna/internal/metrics"
	"aeterna/internal/model"
	"aeterna/internal/redact"
)

// Session owns a RingBuffer and a single long-running flusher goroutine
// for its lifetime (spec.md §3 "Sessions exclusively own their capture
// buffer", §4.4). Capture is safe for concurrent producer calls; the
// flusher is the only goroutine that ever suspends.
type Session struct {
	id      string
	cfg     config.TrajectoryConfig
	storage Storage
	metrics *metrics.TrajectoryMetrics
	logger  *zap.Logger

	mu     sync.Mutex // guards buf and sampleCounters; try-locked by producers
	buf    *RingBuffer
	sampleCounters map[string]int

	notify chan struct{} // one-shot wake-up signal; payload unused

	cancel context.CancelFunc
	done   chan struct{} // closed when the flusher goroutine exits
}

// NewSession constructs a Session and starts its flusher goroutine.
// Callers must call Stop (or cancel the parent context) to release the
// flusher; dropping the session without stopping leaks a goroutine.
func NewSession(parent context.Context, id string, cfg config.TrajectoryConfig, storage Storage, m *metrics.TrajectoryMetrics, logger *zap.Logger) *Session {
	if m == nil {
		m = &metrics.TrajectoryMetrics{}
	}
	logger = logging.Component(logger, "trajectory")

	var filter *redact.Filter
	if cfg.RedactSensitive {
		filter = redact.NewDefaultFilter()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:             id,
		cfg:            cfg,
		storage:        storage,
		metrics:        m,
		logger:         logger,
		buf:            NewRingBuffer(cfg, filter),
		sampleCounters: make(map[string]int),
		notify:         make(chan struct{}, 1),
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	go s.flusherLoop(ctx)
	return s
}

// Stop cancels the flusher immediately. No attempt is made to flush the
// remaining buffer on stop; callers needing durability must call Flush
// first (spec.md §4.4 cancellation policy).
func (s *Session) Stop() {
	s.cancel()
	<-s.done
}

// Capture implements the spec.md §4.4 admission contract. It never
// blocks: on lock contention it drops the event and records the drop.
func (s *Session) Capture(ev model.TrajectoryEvent) {
	start := time.Now()

	switch s.cfg.Mode {
	case model.CaptureDisabled:
		s.metrics.IncDropped()
		return
	case model.CaptureErrorsOnly:
		if ev.Success {
			s.metrics.IncDropped()
			return
		}
	case model.CaptureSampled:
		rate := s.cfg.SampleRate
		if rate <= 0 {
			rate = 1
		}
		if !s.tryLock() {
			s.metrics.IncContentionDrops()
			s.metrics.IncDropped()
			return
		}
		count := s.sampleCounters[ev.ToolName]
		s.sampleCounters[ev.ToolName] = count + 1
		s.mu.Unlock()
		if count%rate != 0 {
			s.metrics.IncDropped()
			return
		}
	case model.CaptureAll:
		// fall through to admission below
	}

	if s.cfg.OverheadBudgetMs > 0 {
		elapsed := time.Since(start)
		if elapsed.Milliseconds() > s.cfg.OverheadBudgetMs {
			s.metrics.IncOverheadDrops()
			s.metrics.IncDropped()
			s.logger.Warn("capture dropped: overhead budget exceeded",
				zap.String("session_id", s.id), zap.Duration("elapsed", elapsed))
			return
		}
	}

	if !s.tryLock() {
		s.metrics.IncContentionDrops()
		s.metrics.IncDropped()
		return
	}
	defer s.mu.Unlock()

	if s.buf.Len() >= s.cfg.QueueSize {
		s.metrics.IncOverflowDrops()
	}
	if s.buf.Capture(ev) {
		s.metrics.IncEventsCaptured()
	} else {
		s.metrics.IncDropped()
	}

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) tryLock() bool {
	return s.mu.TryLock()
}

// Flush drains the buffer synchronously and persists it, for callers
// that need durability before dropping the session (spec.md §4.4).
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buf.Events()
	s.buf.events = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return s.persist(ctx, batch)
}

// flusherLoop is the dedicated per-session cooperative task described
// in spec.md §4.4: it awaits either the notifier or a periodic tick,
// drains up to batch_size events, and persists them.
func (s *Session) flusherLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(durationOrDefault(s.cfg.BatchFlushMs, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			s.drainAndFlush(ctx)
		case <-ticker.C:
			s.drainAndFlush(ctx)
		}
	}
}

func durationOrDefault(ms int64, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Session) drainAndFlush(ctx context.Context) {
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	s.mu.Lock()
	n := s.buf.Len()
	if n > batchSize {
		n = batchSize
	}
	batch := make([]model.TrajectoryEvent, n)
	copy(batch, s.buf.events[:n])
	s.buf.events = s.buf.events[n:]
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := s.persist(ctx, batch); err != nil {
		// On persist failure all buffered events in this batch count
		// as dropped and the batch is discarded (spec.md §4.4).
		s.metrics.AddDropped(int64(len(batch)))
		s.logger.Error("trajectory batch persist failed",
			zap.String("session_id", s.id), zap.Int("batch_size", len(batch)), zap.Error(err))
		return
	}
	s.metrics.IncBatchFlushes()
}

func (s *Session) persist(ctx context.Context, batch []model.TrajectoryEvent) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.PersistEvents(ctx, s.id, batch)
}
