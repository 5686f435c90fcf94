package call

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
)

// PeerConnection is the peer connection engine surface driven by the
// coordinator. *rtc.Peer implements it.
type PeerConnection interface {
	AddTrack(t *media.LocalTrack) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnTrack(fn func(*media.RemoteTrack))
	OnConnectionStateChange(fn func(webrtc.PeerConnectionState))
	OnMediaState(fn func(rtc.MediaState))
	SendMediaState(s rtc.MediaState) error
	Close() error
}

const (
	// maxPendingCandidates bounds candidates held per remote.
	maxPendingCandidates = 64
	workQueue            = 16
)

// peerEntry is one remote's peer connection plus its negotiation progress.
// Everything except work and quit is owned by the dispatch loop.
type peerEntry struct {
	id string
	pc PeerConnection

	remoteApplied bool
	descSent      bool
	pendingRemote []webrtc.ICECandidateInit
	pendingLocal  []webrtc.ICECandidateInit

	// work runs negotiation steps for this remote in order, off the loop.
	work chan func()
	quit chan struct{}
}

func newPeerEntry(id string, pc PeerConnection) *peerEntry {
	e := &peerEntry{
		id:   id,
		pc:   pc,
		work: make(chan func(), workQueue),
		quit: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *peerEntry) run() {
	for {
		select {
		case fn := <-e.work:
			fn()
		case <-e.quit:
			return
		}
	}
}

// enqueue schedules fn on the entry's worker. It reports false when the
// queue is full.
func (e *peerEntry) enqueue(fn func()) bool {
	select {
	case e.work <- fn:
		return true
	default:
		return false
	}
}

// close stops the worker and the peer connection. In-flight steps finish
// against a closed connection and their results are discarded.
func (e *peerEntry) close() {
	close(e.quit)
	if err := e.pc.Close(); err != nil {
		log.Debug().Str("module", "call").Str("peer", e.id).Err(err).Msg("Close peer connection")
	}
}

// bufferCandidate appends c to list, dropping the oldest entry when full.
func bufferCandidate(list []webrtc.ICECandidateInit, c webrtc.ICECandidateInit) []webrtc.ICECandidateInit {
	if len(list) >= maxPendingCandidates {
		list = list[1:]
	}
	return append(list, c)
}
