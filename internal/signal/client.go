package signal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is the lifecycle state of a channel connection.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// DefaultRetryInterval is the fixed pause between reconnect attempts.
const DefaultRetryInterval = 2 * time.Second

// ClientConfig configures a channel Client.
type ClientConfig struct {
	// Address is the resolved signalling address to connect to.
	Address ResolvedAddress

	// RetryInterval is the pause between reconnect attempts.
	// Defaults to DefaultRetryInterval.
	RetryInterval time.Duration

	// LogLevel gates connection-status logging. Silent suppresses all of
	// it; events still flow.
	LogLevel LogLevel

	// Logger receives connection-status logs. Defaults to slog.Default.
	Logger *slog.Logger

	// Dialer overrides the WebSocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Client is the consumer end of the signalling channel. It owns at most
// one live connection at a time; a dropped connection is replaced by a
// fresh one after RetryInterval, indefinitely, until the context given to
// Run is cancelled. A closed connection is never reused.
type Client struct {
	cfg    ClientConfig
	events chan Event

	mu    sync.Mutex
	state ConnState
}

// NewClient creates a client in the Idle state.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	return &Client{
		cfg:    cfg,
		events: make(chan Event, 8),
		state:  StateIdle,
	}
}

// Events returns the stream of decoded compilation events. The channel is
// closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run connects and keeps the channel alive until ctx is cancelled.
// Connection failures are logged at error level (unless silent) and
// retried at the fixed interval; they are never fatal. Run returns
// ctx.Err() once cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.setState(StateClosed)

	url := c.cfg.Address.URL()

	for {
		c.setState(StateConnecting)
		conn, _, err := c.cfg.Dialer.DialContext(ctx, url, nil)
		if err != nil {
			c.setState(StateErrored)
			if c.cfg.LogLevel.Allows(LogError) {
				c.cfg.Logger.Error("channel connect failed", "url", url, "error", err)
			}
			if waitErr := c.wait(ctx); waitErr != nil {
				return waitErr
			}
			continue
		}

		c.setState(StateOpen)
		if c.cfg.LogLevel.Allows(LogInfo) {
			c.cfg.Logger.Info("channel connected", "url", url)
		}

		err = c.readEvents(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateErrored)
		if err != nil && c.cfg.LogLevel.Allows(LogError) {
			c.cfg.Logger.Error("channel disconnected", "error", err)
		}
		if waitErr := c.wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}

// readEvents pumps decoded events until the connection drops or ctx is
// cancelled. Cancellation closes the connection to unblock the read.
func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			if c.cfg.LogLevel.Allows(LogWarn) {
				c.cfg.Logger.Warn("malformed channel event", "error", err)
			}
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wait pauses for the retry interval, returning early on cancellation.
func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.RetryInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
