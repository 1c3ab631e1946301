/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package bridge connects a screen to the game server over a WebSocket and
// reports what happens on the socket as pasur events.
//
// A Bridge keeps redialing until its context is cancelled, so screens only
// ever see Opened, Closed and SnapshotReceived events and never have to
// reconnect themselves.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Seednode/elva/pasur"
)

const (
	// Time allowed to write a message to the server
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the server
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingInterval = 50 * time.Second

	// Game snapshots carry at most 52 cards plus player metadata
	maxMessageSize = 64 * 1024

	sendBuffer  = 16
	eventBuffer = 64
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrSendBlocked  = errors.New("send buffer full")
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithHeader sets request headers sent on every dial, e.g. a session cookie.
func WithHeader(h http.Header) Option {
	return func(b *Bridge) {
		b.header = h.Clone()
	}
}

// WithReconnectDelay sets the pause between a dropped connection and the
// next dial.
func WithReconnectDelay(d time.Duration) Option {
	return func(b *Bridge) {
		b.reconnectDelay = d
	}
}

// WithLogger sets the function used for diagnostic output.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(b *Bridge) {
		b.logf = logf
	}
}

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) {
		b.dialer = d
	}
}

// Bridge is a self-reconnecting WebSocket connection to one server URL.
// Send and Connected are safe for concurrent use.
type Bridge struct {
	url            string
	header         http.Header
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logf           func(format string, args ...any)

	events chan pasur.Event

	mu   sync.RWMutex
	id   uuid.UUID
	send chan []byte
}

// New returns a Bridge for url. Nothing is dialed until Run is called.
func New(url string, opts ...Option) *Bridge {
	b := &Bridge{
		url:            url,
		reconnectDelay: 3 * time.Second,
		dialer:         websocket.DefaultDialer,
		logf:           func(string, ...any) {},
		events:         make(chan pasur.Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// URL returns the server URL this bridge dials.
func (b *Bridge) URL() string {
	return b.url
}

// Events returns the channel events are delivered on. It is closed when Run
// returns.
func (b *Bridge) Events() <-chan pasur.Event {
	return b.events
}

// Connected reports whether a socket is currently open.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.send != nil
}

// Send encodes v as JSON and queues it for the server. There is no
// acknowledgement; the outcome arrives with a later snapshot, if at all.
func (b *Bridge) Send(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.send == nil {
		return ErrNotConnected
	}

	select {
	case b.send <- msg:
		return nil
	default:
		return ErrSendBlocked
	}
}

// Run dials the server and keeps the connection alive until ctx is done,
// redialing after every drop. It always returns nil once ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	defer close(b.events)

	for {
		conn, _, err := b.dialer.DialContext(ctx, b.url, b.header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logf("SOCKET: Dial %s failed: %v", b.url, err)
		} else {
			b.serve(ctx, conn)
		}

		timer := time.NewTimer(b.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) {
	id := uuid.New()
	send := make(chan []byte, sendBuffer)

	b.mu.Lock()
	b.id = id
	b.send = send
	b.mu.Unlock()

	b.logf("SOCKET: Connected %s to %s", id, b.url)
	b.emit(ctx, pasur.Opened{})

	done := make(chan struct{})
	go b.writePump(conn, send, done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	err := b.readPump(ctx, conn)
	close(done)

	b.mu.Lock()
	b.send = nil
	b.mu.Unlock()

	_ = conn.Close()

	b.logf("SOCKET: Disconnected %s: %v", id, err)
	b.emit(ctx, pasur.Closed{Err: err})
}

func (b *Bridge) emit(ctx context.Context, e pasur.Event) {
	select {
	case b.events <- e:
	case <-ctx.Done():
	}
}

func (b *Bridge) readPump(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		b.emit(ctx, pasur.SnapshotReceived{Payload: msg})
	}
}

// writePump is the only goroutine writing to conn.
func (b *Bridge) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = conn.Close()
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// ConnectionID returns the id of the current or most recent connection.
func (b *Bridge) ConnectionID() uuid.UUID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.id
}
