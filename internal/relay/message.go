package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Client to server message types.
const (
	TypeJoinSession       = "join-session"
	TypeLeaveSession      = "leave-session"
	TypeSendOffer         = "send-offer"
	TypeSendAnswer        = "send-answer"
	TypeSendICECandidates = "send-ice-candidates"
)

// Server to client message types.
const (
	TypeJoinUser             = "join-user"
	TypeLeaveUser            = "leave-user"
	TypeReceivedOffer        = "received-offer"
	TypeReceivedAnswer       = "received-answer"
	TypeReceivedICECandidate = "received-ice-candidate"
	TypeError                = "error"
)

// Message is the envelope for every frame in both directions. Negotiation
// payloads are kept as raw JSON; the relay never looks inside them.
type Message struct {
	Type      string          `json:"type"`
	SessionID SessionID       `json:"sessionId,omitempty"`
	User      string          `json:"user,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Error     string          `json:"error,omitempty"`

	// client is the connection that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`

	// rejected is set when the frame was refused before reaching the hub.
	rejected error
}

// SessionID is an opaque session name. Clients may send it as a JSON string
// or a JSON number; both decode to the same textual id.
type SessionID string

func (s *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SessionID(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("sessionId must be a string or number: %w", err)
	}
	*s = SessionID(num.String())
	return nil
}

// validate reports why a client to server message cannot be processed.
func (m *Message) validate() error {
	switch m.Type {
	case TypeJoinSession:
		if m.SessionID == "" {
			return fmt.Errorf("%s requires sessionId", m.Type)
		}
	case TypeLeaveSession:
	case TypeSendOffer:
		return requireTarget(m, m.Offer, "offer")
	case TypeSendAnswer:
		return requireTarget(m, m.Answer, "answer")
	case TypeSendICECandidates:
		return requireTarget(m, m.Candidate, "candidate")
	case "":
		return fmt.Errorf("malformed envelope")
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

func requireTarget(m *Message, payload json.RawMessage, field string) error {
	if m.User == "" {
		return fmt.Errorf("%s requires user", m.Type)
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return fmt.Errorf("%s requires %s", m.Type, field)
	}
	return nil
}

// forwarded builds the server to client message for a routed negotiation
// message, annotated with the sender identity.
func (m *Message) forwarded(from string) *Message {
	out := &Message{User: from}
	switch m.Type {
	case TypeSendOffer:
		out.Type = TypeReceivedOffer
		out.Offer = m.Offer
	case TypeSendAnswer:
		out.Type = TypeReceivedAnswer
		out.Answer = m.Answer
	case TypeSendICECandidates:
		out.Type = TypeReceivedICECandidate
		out.Candidate = m.Candidate
	}
	return out
}
