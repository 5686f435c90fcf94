package signaling

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Listener receives relay notifications decoded by Dispatch.
type Listener interface {
	OnJoinUser(user string)
	OnLeaveUser(user string)
	OnOffer(from string, offer webrtc.SessionDescription)
	OnAnswer(from string, answer webrtc.SessionDescription)
	OnCandidate(from string, candidate webrtc.ICECandidateInit)
	OnRelayError(reason string)
}

// Dispatch routes msg to the matching Listener method. Frames that are
// missing their payload or sender are reported as errors; unknown types are
// ignored.
func Dispatch(msg *Message, l Listener) error {
	switch msg.Type {
	case MessageTypeJoinUser:
		if msg.User == "" {
			return fmt.Errorf("%s without user", msg.Type)
		}
		l.OnJoinUser(msg.User)

	case MessageTypeLeaveUser:
		if msg.User == "" {
			return fmt.Errorf("%s without user", msg.Type)
		}
		l.OnLeaveUser(msg.User)

	case MessageTypeReceivedOffer:
		if msg.User == "" || msg.Offer == nil {
			return fmt.Errorf("%s without user or offer", msg.Type)
		}
		l.OnOffer(msg.User, *msg.Offer)

	case MessageTypeReceivedAnswer:
		if msg.User == "" || msg.Answer == nil {
			return fmt.Errorf("%s without user or answer", msg.Type)
		}
		l.OnAnswer(msg.User, *msg.Answer)

	case MessageTypeReceivedICECandidate:
		if msg.User == "" || msg.Candidate == nil {
			return fmt.Errorf("%s without user or candidate", msg.Type)
		}
		l.OnCandidate(msg.User, *msg.Candidate)

	case MessageTypeError:
		l.OnRelayError(msg.Error)

	default:
	}
	return nil
}
