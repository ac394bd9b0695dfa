// Package animator cycles an hour-of-day cursor through 0..23 on a fixed
// period and notifies subscribers on every tick.
package animator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 500 * time.Millisecond

// State is a snapshot of the animator. CurrentHour is nil while all hours are shown.
type State struct {
	CurrentHour *int `json:"current_hour"`
	Running     bool `json:"running"`
}

// Observer receives the new hour after each tick. Observers run while the
// animator lock is held and must not call back into the Animator.
type Observer func(hour int)

// Config configures an Animator. Zero values select defaults.
type Config struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Animator is an Idle/Running state machine over the hour cursor.
type Animator struct {
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu        sync.Mutex
	hour      int
	hasHour   bool
	running   bool
	stop      chan struct{}
	done      chan struct{}
	observers []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Observer
}

// New creates an idle animator showing all hours.
func New(cfg Config) *Animator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsForTesting()
	}
	return &Animator{
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// State returns the current cursor and run state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Animator) stateLocked() State {
	s := State{Running: a.running}
	if a.hasHour {
		h := a.hour
		s.CurrentHour = &h
	}
	return s
}

// Start begins ticking. It is a no-op when already running.
func (a *Animator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	a.metrics.AnimationRunning.Set(1)
	go a.run(a.stop, a.done)
	a.logger.Info("animation started", "interval", a.interval)
}

// Stop halts ticking and waits for the ticker goroutine to exit, so no tick
// is emitted after Stop returns. It is a no-op when idle.
func (a *Animator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	done := a.done
	a.metrics.AnimationRunning.Set(0)
	a.mu.Unlock()

	<-done
	a.logger.Info("animation stopped")
}

// Toggle starts an idle animator or stops a running one.
func (a *Animator) Toggle() State {
	if a.State().Running {
		a.Stop()
	} else {
		a.Start()
	}
	return a.State()
}

// SetHour moves the cursor to h without changing the run state.
func (a *Animator) SetHour(h int) error {
	if err := domain.ValidateHour(h); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hour = h
	a.hasHour = true
	return nil
}

// ShowAll clears the cursor without changing the run state.
func (a *Animator) ShowAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hasHour = false
	a.hour = 0
}

// Advance performs one tick immediately and returns the new hour.
func (a *Animator) Advance() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tickLocked()
}

// Subscribe registers fn for every tick. The returned func unsubscribes.
func (a *Animator) Subscribe(fn Observer) (unsubscribe func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.observers = append(a.observers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, s := range a.observers {
				if s.id == id {
					a.observers = append(a.observers[:i:i], a.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (a *Animator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			a.mu.Lock()
			select {
			case <-stop:
				// Stop won the lock first.
				a.mu.Unlock()
				return
			default:
			}
			a.tickLocked()
			a.mu.Unlock()
		}
	}
}

// tickLocked advances the cursor; from "all hours" the first tick lands on 0.
func (a *Animator) tickLocked() int {
	if a.hasHour {
		a.hour = (a.hour + 1) % domain.HoursPerDay
	} else {
		a.hour = 0
		a.hasHour = true
	}
	a.metrics.AnimationTicks.Inc()
	a.logger.Debug("animation tick", "hour", a.hour)

	for _, s := range a.observers {
		s.fn(a.hour)
	}
	return a.hour
}
