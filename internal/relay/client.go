package relay

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ErrRateLimited is reported to a client whose frames exceed its rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Options tune per-connection limits.
type Options struct {
	// MaxMessageSize is the largest frame accepted from a client.
	MaxMessageSize int64

	// SendBuffer is the number of outbound frames queued per client before
	// the hub starts dropping.
	SendBuffer int

	// RateLimit is the sustained number of inbound frames per second; zero
	// disables limiting. Well-formed negotiation frames are not counted.
	RateLimit rate.Limit
	RateBurst int
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxMessageSize: 64 * 1024, // enough for SDP with many candidates
		SendBuffer:     256,
		RateLimit:      50,
		RateBurst:      100,
	}
}

// Client is a wrapper for a single websocket connection
type Client struct {
	// Hub manages this client.
	Hub *Hub

	// Conn is the websocket connection. Nil for in-process clients.
	Conn *websocket.Conn

	// ID is a relay-assigned handle for this connection, used in logs.
	ID string

	// Identity is the routing address claimed by the client at connect time.
	Identity string

	// SessionID is the session the client is in. Owned by the hub goroutine.
	SessionID string

	// Send is a buffered channel for all outbound messages. The hub writes to
	// it and WritePump drains it to the websocket.
	Send chan *Message

	limiter        *rate.Limiter
	maxMessageSize int64

	// closed is set by the hub once Send has been closed.
	closed bool
}

// NewClient wraps conn for identity. conn may be nil for clients driven
// directly through the hub.
func NewClient(hub *Hub, conn *websocket.Conn, identity string, opts Options) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultOptions().MaxMessageSize
	}

	c := &Client{
		Hub:            hub,
		Conn:           conn,
		ID:             uuid.NewString(),
		Identity:       identity,
		Send:           make(chan *Message, opts.SendBuffer),
		maxMessageSize: opts.MaxMessageSize,
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(opts.RateLimit, max(opts.RateBurst, 1))
	}
	return c
}

func (c *Client) logger() *zerolog.Logger {
	ctx := log.With().Str("module", "relay").Str("conn", c.ID).Str("user", c.Identity)
	if c.Conn != nil {
		ctx = ctx.Str("remote", c.Conn.RemoteAddr().String())
	}
	l := ctx.Logger()
	return &l
}

// admit charges msg against the rate limit. Well-formed offers, answers and
// candidates are not counted; session changes and invalid frames are.
func (c *Client) admit(msg *Message) bool {
	if c.limiter == nil {
		return true
	}
	switch msg.Type {
	case TypeSendOffer, TypeSendAnswer, TypeSendICECandidates:
		if msg.validate() == nil {
			return true
		}
	}
	return c.limiter.Allow()
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	l := c.logger()

	// Closing the transport always runs the leave path in the hub.
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.Debug().Err(err).Msg("malformed frame")
			msg = Message{}
		}
		if !c.admit(&msg) {
			l.Warn().Str("type", msg.Type).Msg("rate limit exceeded, rejecting frame")
			msg = Message{rejected: ErrRateLimited}
		}
		msg.client = c

		if !c.Hub.Submit(&msg) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				c.logger().Warn().Err(err).Msg("write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
