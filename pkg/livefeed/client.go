package livefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/transit"
)

var (
	ErrClientClosed     = errors.New("live feed client is closed")
	ErrRetriesExhausted = errors.New("live feed reconnection attempts exhausted")
)

const (
	DefaultBaseRetryDelay   = 2 * time.Second
	DefaultMaxRetryAttempts = 5
	DefaultHandshakeTimeout = 10 * time.Second

	eventBufferSize = 64
)

// DefaultChannels are the update channels subscribed to on connect.
var DefaultChannels = []string{"buses", "stops"}

type Config struct {
	URL string

	// AccessToken is attached to the connection URL as a query parameter.
	// An empty token means an anonymous connection, which is permitted.
	AccessToken string

	Channels []string

	// BaseRetryDelay is multiplied by the attempt number, so reconnect
	// delays grow linearly up to MaxRetryAttempts.
	BaseRetryDelay   time.Duration
	MaxRetryAttempts int
	HandshakeTimeout time.Duration
}

type subscribeMessage struct {
	Type string   `json:"type"`
	Data []string `json:"data"`
}

type envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client maintains a persistent websocket connection to the live update
// channel and recovers transparently from drops. Updates are delivered
// as typed events on a single stream; the stream is closed on Disconnect.
type Client struct {
	config Config

	mu             sync.Mutex
	conn           *websocket.Conn
	state          ConnectionState
	attempts       int
	reconnectTimer *time.Timer
	closed         bool

	events chan Event

	dial     func(target string, timeout time.Duration) (*websocket.Conn, error)
	schedule func(delay time.Duration, fn func()) *time.Timer
}

func NewClient(config Config) *Client {
	if len(config.Channels) == 0 {
		config.Channels = DefaultChannels
	}
	if config.BaseRetryDelay == 0 {
		config.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if config.MaxRetryAttempts == 0 {
		config.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}

	return &Client{
		config: config,
		state:  StateDisconnected,
		events: make(chan Event, eventBufferSize),
		dial: func(target string, timeout time.Duration) (*websocket.Conn, error) {
			dialer := websocket.Dialer{HandshakeTimeout: timeout}
			conn, _, err := dialer.Dial(target, nil)

			return conn, err
		},
		schedule: time.AfterFunc,
	}
}

// Events is the client's update stream. It is closed when the client is
// torn down with Disconnect.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Attempts returns the current reconnection attempt counter. It resets
// to zero every time a connection is successfully established.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attempts
}

// Connect starts establishing the connection. It is a no-op if the
// client is already connecting or connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.attempts = 0
	c.mu.Unlock()

	go c.establish()

	return nil
}

// Disconnect tears the connection down and cancels any pending
// reconnection. It is idempotent and safe to call in any state; the
// client never reconnects afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateDisconnected
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	close(c.events)
}

// Send writes a message to the backend. While not connected the message
// is silently dropped, not queued; callers get no delivery guarantee.
func (c *Client) Send(message any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()

	if !connected {
		log.Debug().Msg("Dropping outbound live feed message while not connected")
		return nil
	}

	return conn.WriteJSON(message)
}

func (c *Client) establish() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	attempt := c.attempts
	c.mu.Unlock()

	c.emit(StateEvent{State: StateConnecting, Attempt: attempt})

	conn, err := c.dial(c.connectionURL(), c.config.HandshakeTimeout)
	if err != nil {
		log.Warn().Err(err).Str("url", c.config.URL).Msg("Live feed connection failed")
		c.dropped()

		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()

		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.emit(StateEvent{State: StateConnected})

	if err := c.Send(subscribeMessage{Type: "subscribe", Data: c.config.Channels}); err != nil {
		log.Warn().Err(err).Msg("Failed to send live feed subscription")
	}

	go c.readLoop(conn)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || c.conn != conn
			if !stale {
				c.conn = nil
			}
			c.mu.Unlock()

			if !stale {
				log.Warn().Err(err).Msg("Live feed connection dropped")
				c.dropped()
			}

			return
		}

		c.handleMessage(payload)
	}
}

// dropped runs the reconnection state machine after an unexpected
// connection loss or a failed attempt.
func (c *Client) dropped() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.attempts++
	attempt := c.attempts

	if attempt > c.config.MaxRetryAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()

		c.emit(StateEvent{State: StateDisconnected, Attempt: attempt - 1})
		c.emit(TerminalErrorEvent{
			Err: fmt.Errorf("%w: gave up after %d attempts", ErrRetriesExhausted, c.config.MaxRetryAttempts),
		})

		return
	}

	c.state = StateReconnecting
	delay := time.Duration(attempt) * c.config.BaseRetryDelay
	c.reconnectTimer = c.schedule(delay, c.establish)
	c.mu.Unlock()

	log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Live feed reconnecting")

	c.emit(StateEvent{State: StateReconnecting, Attempt: attempt})
}

func (c *Client) handleMessage(payload []byte) {
	var message envelope
	if err := json.Unmarshal(payload, &message); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed live feed message")
		return
	}

	switch message.Type {
	case "bus_update":
		var vehicles []transit.Vehicle
		if err := json.Unmarshal(message.Data, &vehicles); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed vehicle batch")
			return
		}
		c.emit(VehiclesEvent{Vehicles: vehicles})
	case "stop_update":
		var stops []transit.Stop
		if err := json.Unmarshal(message.Data, &stops); err != nil {
			log.Warn().Err(err).Msg("Dropping malformed stop batch")
			return
		}
		c.emit(StopsEvent{Stops: stops})
	case "error":
		c.emit(ServerErrorEvent{Message: message.Message})
	default:
		log.Debug().Str("type", message.Type).Msg("Ignoring unrecognised live feed message")
	}
}

func (c *Client) emit(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.events <- event:
	default:
		log.Debug().Msg("Live feed event buffer full, dropping event")
	}
}

func (c *Client) connectionURL() string {
	if c.config.AccessToken == "" {
		return c.config.URL
	}

	parsed, err := url.Parse(c.config.URL)
	if err != nil {
		return c.config.URL
	}

	query := parsed.Query()
	query.Set("token", c.config.AccessToken)
	parsed.RawQuery = query.Encode()

	return parsed.String()
}
