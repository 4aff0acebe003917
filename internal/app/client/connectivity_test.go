package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "campsync/internal/domain/sync"
)

func TestMonitorImmediateCallback(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := NewMonitor(e, true, newTestLogger())

	var got []State
	unsubscribe := m.OnChange(func(s State) { got = append(got, s) })
	defer unsubscribe()

	require.Len(t, got, 1, "subscriber receives the current state immediately")
	assert.True(t, got[0].Online)
}

func TestMonitorIdempotentSetState(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := NewMonitor(e, false, newTestLogger())

	var notifications int
	defer m.OnChange(func(State) { notifications++ })()
	require.Equal(t, 1, notifications)

	m.SetState(false)
	m.SetState(false)
	assert.Equal(t, 1, notifications, "redundant transitions do not re-notify")

	m.SetState(true)
	assert.Equal(t, 2, notifications)
	assert.True(t, m.Current().Online)

	m.SetState(true)
	assert.Equal(t, 2, notifications)
}

func TestMonitorUnsubscribe(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := NewMonitor(e, false, newTestLogger())

	var notifications int
	unsubscribe := m.OnChange(func(State) { notifications++ })
	unsubscribe()

	m.SetState(true)
	assert.Equal(t, 1, notifications, "only the immediate callback fired")
}

func TestMonitorReconnectTriggersDrain(t *testing.T) {
	e, q, r := newTestEngine(t)
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		return nil
	})

	q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)
	q.Enqueue("campaign", syncdomain.ActionCreate, "b", nil)

	m := NewMonitor(e, false, newTestLogger())
	m.SetState(true)

	assert.Eventually(t, func() bool {
		return q.CountPending() == 0
	}, 2*time.Second, 10*time.Millisecond, "reconnect drains the queue")
}

func TestMonitorOnlineToOfflineDoesNotDrain(t *testing.T) {
	e, q, r := newTestEngine(t)
	r.Register("campaign", func(context.Context, syncdomain.PendingChange) error {
		return nil
	})
	q.Enqueue("campaign", syncdomain.ActionCreate, "a", nil)

	m := NewMonitor(e, true, newTestLogger())
	m.SetState(false)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, q.CountPending())
}

type fakeProber struct {
	err error
}

func (p *fakeProber) Ping(context.Context) error { return p.err }

func TestMonitorRunProbes(t *testing.T) {
	e, _, _ := newTestEngine(t)
	m := NewMonitor(e, false, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx, &fakeProber{}, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return m.Current().Online
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after teardown")
	}
}
