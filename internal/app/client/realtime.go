package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

const (
	realtimeReadLimit  = 1 << 20
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// RealtimeFeed consumes the service's websocket push channel and yields the
// decoded events. Dropped connections are redialed with capped exponential
// backoff until the feed is closed.
type RealtimeFeed struct {
	wsURL string
	log   *slog.Logger

	mu   gosync.Mutex
	conn *websocket.Conn
}

func NewRealtimeFeed(baseURL string, log *slog.Logger) *RealtimeFeed {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &RealtimeFeed{wsURL: wsURL, log: log}
}

// Open dials the push channel for a scope and streams events until the
// context ends or Close is called. The returned channel is closed on
// teardown.
func (f *RealtimeFeed) Open(ctx context.Context, scope string) (<-chan syncdomain.PushEvent, error) {
	endpoint := f.wsURL + "/ws?scope=" + url.QueryEscape(scope)

	conn, err := f.dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to push channel: %w", err)
	}
	f.setConn(conn)

	events := make(chan syncdomain.PushEvent, 64)

	go func() {
		defer close(events)
		delay := reconnectBaseDelay

		for {
			err := f.readLoop(ctx, events)
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("push channel dropped, reconnecting",
				"scope", scope,
				"delay", delay,
				"error", err,
			)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}

			conn, err := f.dial(ctx, endpoint)
			if err != nil {
				continue
			}
			f.setConn(conn)
			delay = reconnectBaseDelay
		}
	}()

	return events, nil
}

// Close tears the connection down. Safe to call repeatedly.
func (f *RealtimeFeed) Close() error {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

func (f *RealtimeFeed) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(realtimeReadLimit)
	return conn, nil
}

func (f *RealtimeFeed) setConn(conn *websocket.Conn) {
	f.mu.Lock()
	old := f.conn
	f.conn = conn
	f.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (f *RealtimeFeed) readLoop(ctx context.Context, events chan<- syncdomain.PushEvent) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("push channel closed")
	}

	for {
		var ev syncdomain.PushEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
