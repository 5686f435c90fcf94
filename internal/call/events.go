package call

import (
	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
)

// event is posted to the dispatch loop by negotiation workers and peer
// connection callbacks. Every event names the entry it belongs to so results
// for a replaced or removed entry can be discarded.
type event interface {
	peer() *peerEntry
}

type step int

const (
	stepOffer step = iota
	stepAnswer
	stepApplyAnswer
)

func (s step) String() string {
	switch s {
	case stepOffer:
		return "create offer"
	case stepAnswer:
		return "answer offer"
	default:
		return "apply answer"
	}
}

// negotiated reports the outcome of one negotiation step.
type negotiated struct {
	entry         *peerEntry
	step          step
	desc          webrtc.SessionDescription
	remoteApplied bool
	err           error
}

type candidateGathered struct {
	entry     *peerEntry
	candidate webrtc.ICECandidateInit
}

type trackAdded struct {
	entry *peerEntry
	track *media.RemoteTrack
}

type connectionChanged struct {
	entry *peerEntry
	state webrtc.PeerConnectionState
}

type presenceChanged struct {
	entry *peerEntry
	state rtc.MediaState
}

func (e negotiated) peer() *peerEntry        { return e.entry }
func (e candidateGathered) peer() *peerEntry { return e.entry }
func (e trackAdded) peer() *peerEntry        { return e.entry }
func (e connectionChanged) peer() *peerEntry { return e.entry }
func (e presenceChanged) peer() *peerEntry   { return e.entry }
