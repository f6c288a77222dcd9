package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTrackingInterval = 10 * time.Second
	DefaultDistanceStepKm   = 0.1

	// MoveFraction of the remaining vector covered per tick.
	MoveFraction = 0.05

	minRemainingKm  = 0.1
	minRemainingEta = 1
)

var errSimulatorStarted = errors.New("tracking simulator already started")

type SimulatorOption func(*TrackingSimulator)

func WithClock(c clockwork.Clock) SimulatorOption {
	return func(s *TrackingSimulator) { s.clock = c }
}

func WithInterval(d time.Duration) SimulatorOption {
	return func(s *TrackingSimulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithDistanceStep(km float64) SimulatorOption {
	return func(s *TrackingSimulator) {
		if km > 0 {
			s.stepKm = km
		}
	}
}

// WithOnUpdate registers fn to receive a copy of the delivery after each
// committed tick. fn must not call Stop or SetStatus.
func WithOnUpdate(fn func(domain.TrackedDelivery)) SimulatorOption {
	return func(s *TrackingSimulator) { s.onUpdate = fn }
}

// TrackingSimulator moves a courier toward the destination on a ticker while
// the delivery is IN_PROGRESS. Once stopped, by Stop, a non IN_PROGRESS status
// or cancellation of the Start context, it never mutates the delivery again.
type TrackingSimulator struct {
	clock    clockwork.Clock
	interval time.Duration
	stepKm   float64
	onUpdate func(domain.TrackedDelivery)

	busy atomic.Bool

	mu       sync.Mutex
	delivery domain.TrackedDelivery
	started  bool
	stopped  bool
	cancel   context.CancelFunc

	// held while onUpdate runs so Stop can wait for an in-flight notification
	notifyMu sync.Mutex

	done     chan struct{}
	doneOnce sync.Once
}

func NewTrackingSimulator(d domain.TrackedDelivery, opts ...SimulatorOption) *TrackingSimulator {
	s := &TrackingSimulator{
		clock:    clockwork.NewRealClock(),
		interval: DefaultTrackingInterval,
		stepKm:   DefaultDistanceStepKm,
		delivery: d.Clone(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the ticker until Stop, a terminal status or ctx is done.
func (s *TrackingSimulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errSimulatorStarted
	}
	if s.stopped || s.delivery.Status != domain.StatusInProgress {
		status := s.delivery.Status
		s.mu.Unlock()
		return fmt.Errorf("start tracking %s: status %s: %w", s.delivery.OrderID, status, domain.ErrInvalidState)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	ticker := s.clock.NewTicker(s.interval)
	orderID := s.delivery.OrderID
	s.mu.Unlock()

	obs.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": orderID,
		"interval": s.interval.String(),
	}).Info("tracking started")

	go s.run(ctx, ticker)
	return nil
}

func (s *TrackingSimulator) run(ctx context.Context, ticker clockwork.Ticker) {
	defer s.closeDone()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

// Tick applies one simulation step. It reports false when the step was
// skipped: another tick still running, the simulator stopped, or the
// delivery no longer IN_PROGRESS.
func (s *TrackingSimulator) Tick() bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	if s.stopped || s.delivery.Status != domain.StatusInProgress {
		s.mu.Unlock()
		return false
	}

	d := &s.delivery
	d.CurrentLocation = d.CurrentLocation.MoveToward(d.Destination, MoveFraction)
	d.RemainingEtaMinutes = max(d.RemainingEtaMinutes-1, minRemainingEta)
	d.RemainingDistanceKm = max(d.RemainingDistanceKm-s.stepKm, minRemainingKm)
	d.AppendHistory(domain.RoutePoint{
		Time:     s.clock.Now(),
		Location: d.CurrentLocation,
		Status:   d.Status,
	})
	snap := d.Clone()

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
	return true
}

// SetStatus applies an external status change. Any status other than
// IN_PROGRESS stops the simulator for good. Once stopped, later changes
// are ignored.
func (s *TrackingSimulator) SetStatus(status domain.OrderStatus) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.delivery.Status = status
	if status == domain.StatusInProgress {
		s.mu.Unlock()
		return
	}
	orderID := s.delivery.OrderID
	s.stopLocked()
	s.mu.Unlock()

	s.waitNotify()
	obs.Logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("tracking finished")
}

// Stop cancels the ticker. After Stop returns no tick mutates the delivery
// and no update is delivered.
func (s *TrackingSimulator) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
	s.waitNotify()
}

func (s *TrackingSimulator) stopLocked() {
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	} else {
		s.closeDone()
	}
}

func (s *TrackingSimulator) waitNotify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
}

func (s *TrackingSimulator) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Done is closed once the ticker goroutine has exited, or on Stop if the
// simulator was never started.
func (s *TrackingSimulator) Done() <-chan struct{} { return s.done }

func (s *TrackingSimulator) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *TrackingSimulator) Snapshot() domain.TrackedDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivery.Clone()
}
