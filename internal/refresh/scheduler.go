package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"wachtrij/internal/metrics"
	"wachtrij/internal/orders"
	"wachtrij/internal/queue"
	"wachtrij/internal/render"
	"wachtrij/internal/settings"
)

const DefaultPeriod = 2 * time.Second

type State int32

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Active:
		return "ACTIVE"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Frame is one rendered panel.
type Frame struct {
	// Key identifies what was rendered; equal keys render identical markup.
	Key      string
	Content  string
	Panel    string
	Settings settings.Settings
	Loading  bool
	Units    int
	At       time.Time
}

// Surface is the set of open overlay panels.
type Surface interface {
	Present() bool
	Redraw(ctx context.Context, f Frame) error
}

type Prefs interface {
	Current() (settings.Settings, uint64)
}

type Options struct {
	Period    time.Duration
	EmptyText string

	Source  orders.Source
	Surface Surface
	Prefs   Prefs
	Clock   Clock
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// Scheduler periodically re-aggregates the order queue and redraws the panel when the result
// changed. A failed tick is logged and skipped; the loop keeps running.
type Scheduler struct {
	period    time.Duration
	emptyText string

	source  orders.Source
	surface Surface
	prefs   Prefs
	clock   Clock
	log     *log.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	state   State
	last    string
	hasLast bool

	stop     chan struct{}
	stopOnce sync.Once
}

func New(opts Options) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("refresh: nil order source")
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("refresh: nil surface")
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Prefs == nil {
		opts.Prefs = staticPrefs{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[refresh] ", log.LstdFlags)
	}
	return &Scheduler{
		period:    opts.Period,
		emptyText: opts.EmptyText,
		source:    opts.Source,
		surface:   opts.Surface,
		prefs:     opts.Prefs,
		clock:     opts.Clock,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		stop:      make(chan struct{}),
	}, nil
}

func (s *Scheduler) Period() time.Duration { return s.period }

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run ticks until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Tick runs one refresh iteration and reports whether the panel was redrawn.
func (s *Scheduler) Tick(ctx context.Context) (redrawn bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("tick panic: %v", r)
			s.metrics.IncFailure("panic")
			redrawn = false
		}
	}()
	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.surface.Present() {
		if s.state == Active {
			s.log.Printf("no open panel; idle")
		}
		s.state = Idle
		s.last, s.hasLast = "", false
		return false
	}
	s.state = Active

	start := time.Now()
	defer s.metrics.ObserveTick(start)

	f, err := s.compose(ctx)
	if err != nil {
		s.log.Printf("tick: %v", err)
		s.metrics.IncFailure("compute")
		return false
	}
	if f.Loading {
		// Order collection not loaded yet; try again next tick.
		return false
	}
	if s.hasLast && f.Key == s.last {
		s.metrics.IncUnchanged()
		return false
	}
	if err := s.surface.Redraw(ctx, f); err != nil {
		s.log.Printf("redraw: %v", err)
		s.metrics.IncFailure("redraw")
		return false
	}
	s.last, s.hasLast = f.Key, true
	s.metrics.IncRedraw()
	return true
}

// Activate is called when a panel opens. It renders unconditionally, pushes the frame to
// every open surface and records it as the last rendered snapshot.
func (s *Scheduler) Activate(ctx context.Context) (f Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncFailure("panic")
			err = fmt.Errorf("activate: panic: %v", r)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Active
	f, err = s.compose(ctx)
	if err != nil {
		s.metrics.IncFailure("compute")
		return Frame{}, err
	}
	if err := s.surface.Redraw(ctx, f); err != nil {
		s.metrics.IncFailure("redraw")
		return f, fmt.Errorf("activate: redraw: %w", err)
	}
	s.last, s.hasLast = f.Key, true
	s.metrics.IncRedraw()
	return f, nil
}

// Current renders the panel as of now without touching scheduler state.
func (s *Scheduler) Current(ctx context.Context) (Frame, error) {
	return s.compose(ctx)
}

func (s *Scheduler) compose(ctx context.Context) (Frame, error) {
	at := s.clock.Now()
	list, err := s.source.Orders(ctx)
	loading := errors.Is(err, orders.ErrUnavailable)
	if err != nil && !loading {
		return Frame{}, fmt.Errorf("read orders: %w", err)
	}

	snap := queue.Aggregate(list, at.Unix())
	groups := snap.Groups()
	prefs, rev := s.prefs.Current()

	content, err := render.Content(groups, render.Options{Loading: loading, EmptyText: s.emptyText})
	if err != nil {
		return Frame{}, err
	}
	panel, err := render.Panel(content, prefs)
	if err != nil {
		return Frame{}, err
	}

	if !loading {
		s.recordOutstanding(groups)
	}

	key := fmt.Sprintf("%d|%s", rev, snap.Key())
	if loading {
		key = fmt.Sprintf("%d|loading", rev)
	}
	return Frame{
		Key:      key,
		Content:  content,
		Panel:    panel,
		Settings: prefs,
		Loading:  loading,
		Units:    snap.Total(),
		At:       at,
	}, nil
}

func (s *Scheduler) recordOutstanding(groups []queue.Group) {
	if s.metrics == nil {
		return
	}
	totals := map[queue.GroupKind]int{}
	for _, g := range groups {
		for _, e := range g.Entries {
			totals[g.Kind] += e.Count
		}
	}
	for _, k := range []queue.GroupKind{queue.GroupLand, queue.GroupNaval, queue.GroupMythical, queue.GroupOther} {
		s.metrics.SetOutstanding(string(k), totals[k])
	}
}

type staticPrefs struct{}

func (staticPrefs) Current() (settings.Settings, uint64) { return settings.Defaults(), 0 }
