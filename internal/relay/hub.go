package relay

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// Stats is a point-in-time view of the hub's tables.
type Stats struct {
	Connections int            `json:"connections"`
	Sessions    map[string]int `json:"sessions"`
}

// Hub is the central brain of the signaling relay.
// It owns the identity table and the session table; only the Run goroutine
// touches them.
type Hub struct {
	// clients maps identity to the connection currently holding it. Each
	// entry is the private channel used to address that identity.
	clients map[string]*Client

	// sessions maps session IDs to their members.
	sessions map[string]*Session

	register   chan *Client
	unregister chan *Client
	inbound    chan *Message
	queries    chan func()
	quit       chan struct{}
	done       chan struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Message),
		queries:    make(chan func()),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register hands a new connection to the hub. It returns false once the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister runs the leave path for c and releases its identity.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Submit queues an inbound message for processing. It returns false once the
// hub has stopped.
func (h *Hub) Submit(msg *Message) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.quit:
		return false
	}
}

// Stats returns connection and session counts. Because it is served by the
// hub goroutine, every message submitted before the call has been processed
// when it returns.
func (h *Hub) Stats() Stats {
	stats := Stats{Sessions: map[string]int{}}
	h.do(func() { stats = h.snapshot() })
	return stats
}

// do runs fn on the hub goroutine and waits for it. It returns without
// running fn once the hub has stopped.
func (h *Hub) do(fn func()) {
	finished := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(finished) }:
	case <-h.quit:
		return
	}
	select {
	case <-finished:
	case <-h.done:
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state (sessions, clients).
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			for _, c := range h.clients {
				h.closeClient(c)
			}
			log.Info().Str("module", "relay").Int("clients", len(h.clients)).Msg("Hub stopped")
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case message := <-h.inbound:
			h.handleMessage(message)

		case query := <-h.queries:
			query()
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	l := c.logger()

	if existing, ok := h.clients[c.Identity]; ok && existing != c {
		l.Warn().Str("holder", existing.ID).Msg("Identity already connected, rejecting")
		h.deliver(c, &Message{Type: TypeError, Error: "identity already connected"})
		h.closeClient(c)
		return
	}

	h.clients[c.Identity] = c
	l.Info().Int("clients", len(h.clients)).Msg("Client registered")
}

func (h *Hub) handleUnregister(c *Client) {
	// Rejected duplicates never owned the identity or a session.
	if h.clients[c.Identity] == c {
		h.leave(c)
		delete(h.clients, c.Identity)
		c.logger().Info().Int("clients", len(h.clients)).Msg("Client unregistered")
	}
	h.closeClient(c)
}

func (h *Hub) handleMessage(msg *Message) {
	c := msg.client
	if c == nil || h.clients[c.Identity] != c {
		return
	}
	l := c.logger()

	if msg.rejected != nil {
		h.deliver(c, &Message{Type: TypeError, Error: msg.rejected.Error()})
		return
	}

	if err := msg.validate(); err != nil {
		l.Warn().Err(err).Str("type", msg.Type).Msg("Rejected message")
		h.deliver(c, &Message{Type: TypeError, Error: err.Error()})
		return
	}

	switch msg.Type {
	case TypeJoinSession:
		h.join(c, string(msg.SessionID))

	case TypeLeaveSession:
		h.leave(c)

	case TypeSendOffer, TypeSendAnswer, TypeSendICECandidates:
		target, ok := h.clients[msg.User]
		if !ok || target == c {
			// Signaling is best effort: unknown and self targets are dropped silently.
			l.Debug().Str("type", msg.Type).Str("to", msg.User).Msg("Target not routable, dropping")
			return
		}
		l.Debug().Str("type", msg.Type).Str("to", msg.User).Msg("Relaying")
		h.deliver(target, msg.forwarded(c.Identity))
	}
}

// join adds c to sessionID and announces it to the other members. Joining a
// different session leaves the current one first; joining the same session
// again re-announces without duplicating membership.
func (h *Hub) join(c *Client, sessionID string) {
	if c.SessionID != "" && c.SessionID != sessionID {
		h.leave(c)
	}

	s, ok := h.sessions[sessionID]
	if !ok {
		s = newSession(sessionID)
		h.sessions[sessionID] = s
	}

	for _, other := range s.others(c.Identity) {
		h.deliver(other, &Message{Type: TypeJoinUser, User: c.Identity})
	}

	s.Members[c.Identity] = c
	c.SessionID = sessionID

	c.logger().Info().Str("session", sessionID).Int("members", len(s.Members)).Msg("Joined session")
}

// leave removes c from its session and notifies the remaining members. It is
// a no-op when c is not in a session.
func (h *Hub) leave(c *Client) {
	if c.SessionID == "" {
		return
	}
	sessionID := c.SessionID
	c.SessionID = ""

	s, ok := h.sessions[sessionID]
	if !ok || s.Members[c.Identity] != c {
		return
	}
	delete(s.Members, c.Identity)

	for _, other := range s.others(c.Identity) {
		h.deliver(other, &Message{Type: TypeLeaveUser, User: c.Identity})
	}

	if len(s.Members) == 0 {
		delete(h.sessions, sessionID)
		log.Info().Str("module", "relay").Str("session", sessionID).Msg("Session deleted")
	}

	c.logger().Info().Str("session", sessionID).Msg("Left session")
}

// deliver queues msg on c without blocking the hub.
func (h *Hub) deliver(c *Client, msg *Message) {
	if c.closed {
		return
	}
	select {
	case c.Send <- msg:
	default:
		c.logger().Warn().Str("type", msg.Type).Msg("Send buffer full, dropping message")
	}
}

func (h *Hub) closeClient(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

func (h *Hub) snapshot() Stats {
	s := Stats{
		Connections: len(h.clients),
		Sessions:    make(map[string]int, len(h.sessions)),
	}
	for id, session := range h.sessions {
		s.Sessions[id] = len(session.Members)
	}
	return s
}

// Members returns the sorted identities in sessionID.
func (h *Hub) Members(sessionID string) []string {
	var ids []string
	h.do(func() {
		if s, ok := h.sessions[sessionID]; ok {
			for id := range s.Members {
				ids = append(ids, id)
			}
		}
	})
	sort.Strings(ids)
	return ids
}
