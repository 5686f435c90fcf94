package signaling

import "github.com/pion/webrtc/v4"

// Message represents every WebSocket frame exchanged with the relay.
type Message struct {
	Type      string                     `json:"type"`
	SessionID string                     `json:"sessionId,omitempty"`
	User      string                     `json:"user,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// Client to relay message types.
const (
	MessageTypeJoinSession       = "join-session"
	MessageTypeLeaveSession      = "leave-session"
	MessageTypeSendOffer         = "send-offer"
	MessageTypeSendAnswer        = "send-answer"
	MessageTypeSendICECandidates = "send-ice-candidates"
)

// Relay to client message types.
const (
	MessageTypeJoinUser             = "join-user"
	MessageTypeLeaveUser            = "leave-user"
	MessageTypeReceivedOffer        = "received-offer"
	MessageTypeReceivedAnswer       = "received-answer"
	MessageTypeReceivedICECandidate = "received-ice-candidate"
	MessageTypeError                = "error"
)

func JoinSession(sessionID string) *Message {
	return &Message{Type: MessageTypeJoinSession, SessionID: sessionID}
}

func LeaveSession() *Message {
	return &Message{Type: MessageTypeLeaveSession}
}

func SendOffer(to string, offer webrtc.SessionDescription) *Message {
	return &Message{Type: MessageTypeSendOffer, User: to, Offer: &offer}
}

func SendAnswer(to string, answer webrtc.SessionDescription) *Message {
	return &Message{Type: MessageTypeSendAnswer, User: to, Answer: &answer}
}

func SendCandidate(to string, candidate webrtc.ICECandidateInit) *Message {
	return &Message{Type: MessageTypeSendICECandidates, User: to, Candidate: &candidate}
}
