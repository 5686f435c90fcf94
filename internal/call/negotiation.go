package call

import (
	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/signaling"
)

// relayHandler receives relay notifications on the dispatch loop.
type relayHandler struct {
	c *Coordinator
}

var _ signaling.Listener = relayHandler{}

// OnJoinUser makes the local side the offerer towards user.
func (h relayHandler) OnJoinUser(user string) {
	c := h.c
	if user == c.identity {
		return
	}
	c.log.Info().Str("peer", user).Msg("Participant joined")

	e := c.replacePeer(user)
	if e == nil {
		return
	}
	if !e.enqueue(func() {
		offer, err := e.pc.CreateOffer()
		c.post(negotiated{entry: e, step: stepOffer, desc: offer, err: err})
	}) {
		c.log.Warn().Str("peer", user).Msg("Negotiation queue full")
	}
}

// OnOffer makes the local side the answerer towards from. An offer from a
// remote that already has a connection replaces it.
func (h relayHandler) OnOffer(from string, offer webrtc.SessionDescription) {
	c := h.c
	if from == c.identity {
		return
	}
	c.log.Debug().Str("peer", from).Msg("Received offer")

	e := c.replacePeer(from)
	if e == nil {
		return
	}
	if !e.enqueue(func() {
		ev := negotiated{entry: e, step: stepAnswer}
		if ev.err = e.pc.SetRemoteDescription(offer); ev.err == nil {
			ev.remoteApplied = true
			ev.desc, ev.err = e.pc.CreateAnswer()
		}
		c.post(ev)
	}) {
		c.log.Warn().Str("peer", from).Msg("Negotiation queue full")
	}
}

// OnAnswer completes the offerer path. Answers for unknown remotes are
// ignored.
func (h relayHandler) OnAnswer(from string, answer webrtc.SessionDescription) {
	c := h.c
	e, ok := c.peers[from]
	if !ok {
		c.log.Debug().Str("peer", from).Msg("Answer for unknown peer, ignoring")
		return
	}
	if !e.enqueue(func() {
		err := e.pc.SetRemoteDescription(answer)
		c.post(negotiated{entry: e, step: stepApplyAnswer, remoteApplied: err == nil, err: err})
	}) {
		c.log.Warn().Str("peer", from).Msg("Negotiation queue full")
	}
}

// OnCandidate applies a remote candidate, or holds it until the remote
// description is in place.
func (h relayHandler) OnCandidate(from string, candidate webrtc.ICECandidateInit) {
	c := h.c
	e, ok := c.peers[from]
	if !ok {
		c.orphans[from] = bufferCandidate(c.orphans[from], candidate)
		return
	}
	if !e.remoteApplied {
		e.pendingRemote = bufferCandidate(e.pendingRemote, candidate)
		return
	}
	c.addCandidate(e, candidate)
}

func (h relayHandler) OnLeaveUser(user string) {
	c := h.c
	c.log.Info().Str("peer", user).Msg("Participant left")
	c.removePeer(user)
	delete(c.participants, user)
	delete(c.orphans, user)
}

func (h relayHandler) OnRelayError(reason string) {
	h.c.log.Warn().Str("reason", reason).Msg("Relay rejected a message")
}

// replacePeer tears down any existing connection to id and creates a new one
// with the local tracks attached. It returns nil when the engine fails.
func (c *Coordinator) replacePeer(id string) *peerEntry {
	if _, ok := c.peers[id]; ok {
		c.log.Info().Str("peer", id).Msg("Replacing peer connection")
		c.removePeer(id)
	}

	pc, err := c.newPeer()
	if err != nil {
		c.log.Error().Err(NewPeerError("create peer connection", id, err)).Msg("Negotiation failed")
		return nil
	}
	e := newPeerEntry(id, pc)

	if c.stream != nil {
		for _, t := range c.stream.Tracks() {
			if err := pc.AddTrack(t); err != nil {
				c.log.Warn().Err(NewPeerError("add track", id, err)).Msg("Track not attached")
			}
		}
	}

	pc.OnICECandidate(func(cand webrtc.ICECandidateInit) {
		c.post(candidateGathered{entry: e, candidate: cand})
	})
	pc.OnTrack(func(t *media.RemoteTrack) {
		c.post(trackAdded{entry: e, track: t})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.post(connectionChanged{entry: e, state: s})
	})
	pc.OnMediaState(func(s rtc.MediaState) {
		c.post(presenceChanged{entry: e, state: s})
	})
	if err := pc.SendMediaState(c.mediaState()); err != nil {
		c.log.Debug().Err(err).Str("peer", id).Msg("Presence not sent")
	}

	if orphans, ok := c.orphans[id]; ok {
		e.pendingRemote = orphans
		delete(c.orphans, id)
	}

	c.peers[id] = e
	p, ok := c.participants[id]
	if !ok {
		p = newParticipant(id)
		c.participants[id] = p
	}
	p.audio, p.video = nil, nil
	p.connection = webrtc.PeerConnectionStateNew.String()
	return e
}

func (c *Coordinator) removePeer(id string) {
	e, ok := c.peers[id]
	if !ok {
		return
	}
	delete(c.peers, id)
	e.close()
}

func (c *Coordinator) teardownAll() {
	for id := range c.peers {
		c.removePeer(id)
	}
	c.participants = make(map[string]*participant)
	c.orphans = make(map[string][]webrtc.ICECandidateInit)
}

func (c *Coordinator) addCandidate(e *peerEntry, candidate webrtc.ICECandidateInit) {
	if err := e.pc.AddICECandidate(candidate); err != nil {
		c.log.Warn().Err(NewPeerError("add candidate", e.id, err)).Msg("Candidate rejected")
	}
}

func (c *Coordinator) handleEvent(ev event) {
	e := ev.peer()
	if c.peers[e.id] != e {
		// The entry was replaced or removed while the event was in flight.
		return
	}

	switch ev := ev.(type) {
	case negotiated:
		c.handleNegotiated(e, ev)

	case candidateGathered:
		if !e.descSent {
			e.pendingLocal = append(e.pendingLocal, ev.candidate)
			return
		}
		c.send(signaling.SendCandidate(e.id, ev.candidate))

	case trackAdded:
		if p, ok := c.participants[e.id]; ok {
			p.addTrack(ev.track)
		}

	case connectionChanged:
		if p, ok := c.participants[e.id]; ok {
			p.connection = ev.state.String()
		}
		if ev.state == webrtc.PeerConnectionStateFailed {
			c.log.Warn().Str("peer", e.id).Msg("Peer connection failed")
		}

	case presenceChanged:
		if p, ok := c.participants[e.id]; ok {
			p.mic, p.camera = ev.state.Mic, ev.state.Camera
		}
	}
}

func (c *Coordinator) handleNegotiated(e *peerEntry, ev negotiated) {
	if ev.remoteApplied && !e.remoteApplied {
		e.remoteApplied = true
		for _, cand := range e.pendingRemote {
			c.addCandidate(e, cand)
		}
		e.pendingRemote = nil
	}

	if ev.err != nil {
		c.log.Warn().Err(NewPeerError(ev.step.String(), e.id, ev.err)).Msg("Negotiation failed")
		return
	}

	switch ev.step {
	case stepOffer:
		c.send(signaling.SendOffer(e.id, ev.desc))
	case stepAnswer:
		c.send(signaling.SendAnswer(e.id, ev.desc))
	default:
		return
	}

	e.descSent = true
	for _, cand := range e.pendingLocal {
		c.send(signaling.SendCandidate(e.id, cand))
	}
	e.pendingLocal = nil
}
