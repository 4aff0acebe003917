package client

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

// State is the connectivity snapshot: online or offline, with the time of
// the last transition.
type State struct {
	Online    bool
	ChangedAt time.Time
}

// Drainer is the slice of the sync engine the monitor needs.
type Drainer interface {
	Drain(ctx context.Context) syncdomain.SyncResult
}

// Prober answers whether the remote service is reachable right now.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor is the single source of truth for online/offline state. Every
// transition is broadcast to subscribers exactly once; an offline to online
// transition additionally schedules a drain.
type Monitor struct {
	engine Drainer
	log    *slog.Logger

	mu        gosync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewMonitor(engine Drainer, online bool, log *slog.Logger) *Monitor {
	return &Monitor{
		engine:    engine,
		log:       log,
		state:     State{Online: online, ChangedAt: time.Now()},
		listeners: make(map[int]func(State)),
	}
}

// Current returns the connectivity state.
func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers a listener. The listener is called immediately with
// the current state so new subscribers never miss it, then once per
// transition. The returned function unsubscribes.
func (m *Monitor) OnChange(listener func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	current := m.state
	m.mu.Unlock()

	listener(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// SetState records a connectivity transition. Redundant calls with the same
// state neither re-notify nor re-trigger a drain. The drain scheduled on an
// offline to online transition is fire and forget: its result is logged,
// not returned.
func (m *Monitor) SetState(online bool) {
	m.mu.Lock()
	if m.state.Online == online {
		m.mu.Unlock()
		return
	}

	wasOnline := m.state.Online
	m.state = State{Online: online, ChangedAt: time.Now()}
	state := m.state

	notify := make([]func(State), 0, len(m.listeners))
	for _, l := range m.listeners {
		notify = append(notify, l)
	}
	m.mu.Unlock()

	m.log.Info("connectivity changed", "online", online)

	for _, l := range notify {
		l(state)
	}

	if !wasOnline && online {
		go func() {
			result := m.engine.Drain(context.Background())
			m.log.Info("reconnect drain finished",
				"success", result.Success,
				"synced", result.SyncedCount,
				"failed", result.FailedCount,
			)
		}()
	}
}

// Run polls the prober until ctx is cancelled, feeding transitions into
// SetState. Cancelling ctx is the teardown that releases the subscription.
func (m *Monitor) Run(ctx context.Context, prober Prober, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.probe(ctx, prober)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("connectivity monitor stopped")
			return
		case <-ticker.C:
			m.probe(ctx, prober)
		}
	}
}

func (m *Monitor) probe(ctx context.Context, prober Prober) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := prober.Ping(probeCtx)
	m.SetState(err == nil)
}
