package rtc

import (
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/Warpcall/internal/media"
)

// Peer is one negotiated connection to a remote participant.
type Peer struct {
	pc       *pion.PeerConnection
	presence *pion.DataChannel

	mu       sync.Mutex
	state    MediaState
	hasState bool
	onState  func(MediaState)
	onTrack  func(*media.RemoteTrack)
}

func newPeer(pc *pion.PeerConnection) (*Peer, error) {
	p := &Peer{pc: pc}

	negotiated := true
	id := presenceID
	dc, err := pc.CreateDataChannel(presenceLabel, &pion.DataChannelInit{
		Negotiated: &negotiated,
		ID:         &id,
	})
	if err != nil {
		return nil, err
	}
	p.presence = dc

	dc.OnOpen(p.flushState)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		s, err := decodeMediaState(msg.Data)
		if err != nil {
			log.Debug().Str("module", "rtc").Err(err).Msg("Bad presence message")
			return
		}
		p.mu.Lock()
		fn := p.onState
		p.mu.Unlock()
		if fn != nil {
			fn(s)
		}
	})

	pc.OnTrack(p.handleTrack)
	return p, nil
}

// AddTrack attaches a local outgoing track.
func (p *Peer) AddTrack(t *media.LocalTrack) error {
	sender, err := p.pc.AddTrack(t.Track())
	if err != nil {
		return err
	}

	// Drain RTCP so interceptors keep working.
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

// CreateOffer creates an offer and applies it as the local description.
func (p *Peer) CreateOffer() (pion.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return pion.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return pion.SessionDescription{}, err
	}
	return offer, nil
}

// CreateAnswer creates an answer to the applied remote offer and applies it
// as the local description.
func (p *Peer) CreateAnswer() (pion.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return pion.SessionDescription{}, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return pion.SessionDescription{}, err
	}
	return answer, nil
}

func (p *Peer) SetRemoteDescription(desc pion.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *Peer) AddICECandidate(c pion.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

// OnICECandidate registers fn for every gathered local candidate. The end of
// gathering is not reported.
func (p *Peer) OnICECandidate(fn func(pion.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		fn(c.ToJSON())
	})
}

func (p *Peer) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

// OnTrack registers fn for every remote track.
func (p *Peer) OnTrack(fn func(*media.RemoteTrack)) {
	p.mu.Lock()
	p.onTrack = fn
	p.mu.Unlock()
}

// OnMediaState registers fn for presence updates from the remote side.
func (p *Peer) OnMediaState(fn func(MediaState)) {
	p.mu.Lock()
	p.onState = fn
	p.mu.Unlock()
}

// SendMediaState publishes s to the remote side. Before the presence channel
// opens, only the latest state is kept and sent on open.
func (p *Peer) SendMediaState(s MediaState) error {
	p.mu.Lock()
	p.state = s
	p.hasState = true
	p.mu.Unlock()

	if p.presence.ReadyState() != pion.DataChannelStateOpen {
		return nil
	}
	data, err := encodeMediaState(s)
	if err != nil {
		return err
	}
	return p.presence.Send(data)
}

func (p *Peer) flushState() {
	p.mu.Lock()
	s, ok := p.state, p.hasState
	p.mu.Unlock()
	if !ok {
		return
	}
	if err := p.SendMediaState(s); err != nil {
		log.Debug().Str("module", "rtc").Err(err).Msg("Presence send failed")
	}
}

func (p *Peer) Close() error {
	return p.pc.Close()
}

func (p *Peer) handleTrack(track *pion.TrackRemote, _ *pion.RTPReceiver) {
	kind := media.KindAudio
	if track.Kind() == pion.RTPCodecTypeVideo {
		kind = media.KindVideo
		// Ask for a key frame so the picture starts immediately.
		pli := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}}
		if err := p.pc.WriteRTCP(pli); err != nil {
			log.Debug().Str("module", "rtc").Err(err).Msg("PLI failed")
		}
	}

	rt := media.NewRemoteTrack(track.ID(), kind)
	log.Debug().
		Str("module", "rtc").
		Str("kind", string(kind)).
		Str("track_id", track.ID()).
		Str("codec", track.Codec().MimeType).
		Msg("Remote track")

	p.mu.Lock()
	fn := p.onTrack
	p.mu.Unlock()
	if fn != nil {
		fn(rt)
	}

	go readRTP(track, rt)
}

// readRTP consumes the remote track until it ends, counting payload bytes.
func readRTP(track *pion.TrackRemote, rt *media.RemoteTrack) {
	buf := make([]byte, 1500)
	var pkt rtp.Packet
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		rt.Received(len(pkt.Payload))
	}
}
