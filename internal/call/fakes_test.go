package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/signaling"
)

var errPeerClosed = errors.New("peer connection closed")

// fakePeer behaves like a peer connection engine that rejects candidates
// before a remote description is set.
type fakePeer struct {
	n int

	mu         sync.Mutex
	tracks     []*media.LocalTrack
	remote     []webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	states     []rtc.MediaState
	closed     bool

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(*media.RemoteTrack)
	onConn  func(webrtc.PeerConnectionState)
	onMedia func(rtc.MediaState)

	// gate, when set, holds negotiation steps until closed.
	gate chan struct{}
	// gather is emitted as local candidates while creating a description.
	gather []webrtc.ICECandidateInit
}

func (p *fakePeer) wait() error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPeerClosed
	}
	return nil
}

func (p *fakePeer) emitGathered() {
	for _, c := range p.gather {
		p.onICE(c)
	}
}

func (p *fakePeer) AddTrack(t *media.LocalTrack) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, t)
	return nil
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	if err := p.wait(); err != nil {
		return webrtc.SessionDescription{}, err
	}
	p.emitGathered()
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", p.n)}, nil
}

func (p *fakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return webrtc.SessionDescription{}, errPeerClosed
	}
	p.emitGathered()
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", p.n)}, nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	if err := p.wait(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = append(p.remote, desc)
	return nil
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.remote) == 0 {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *fakePeer) OnICECandidate(fn func(webrtc.ICECandidateInit))             { p.onICE = fn }
func (p *fakePeer) OnTrack(fn func(*media.RemoteTrack))                         { p.onTrack = fn }
func (p *fakePeer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) { p.onConn = fn }
func (p *fakePeer) OnMediaState(fn func(rtc.MediaState))                        { p.onMedia = fn }

func (p *fakePeer) SendMediaState(s rtc.MediaState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) appliedCandidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, c := range p.candidates {
		out = append(out, c.Candidate)
	}
	return out
}

func (p *fakePeer) remoteSDPs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, d := range p.remote {
		out = append(out, d.SDP)
	}
	return out
}

func (p *fakePeer) lastState() (rtc.MediaState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return rtc.MediaState{}, false
	}
	return p.states[len(p.states)-1], true
}

type fakeEngine struct {
	mu     sync.Mutex
	peers  []*fakePeer
	gates  map[int]chan struct{}
	gather []webrtc.ICECandidateInit
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{gates: map[int]chan struct{}{}}
}

func (f *fakeEngine) newPeer() (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePeer{n: len(f.peers), gate: f.gates[len(f.peers)], gather: f.gather}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *fakeEngine) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.peers)
}

func (f *fakeEngine) peer(t *testing.T, i int) *fakePeer {
	t.Helper()
	eventually(t, fmt.Sprintf("peer %d created", i), func() bool { return f.count() > i })
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers[i]
}

type fakeRelay struct {
	incoming chan *signaling.Message
	sent     chan *signaling.Message

	mu     sync.Mutex
	closed bool
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		incoming: make(chan *signaling.Message, 64),
		sent:     make(chan *signaling.Message, 256),
	}
}

func (r *fakeRelay) Send(msg *signaling.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return signaling.ErrClosed
	}
	r.sent <- msg
	return nil
}

func (r *fakeRelay) Incoming() <-chan *signaling.Message { return r.incoming }

func (r *fakeRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRelay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type harness struct {
	c       *Coordinator
	relay   *fakeRelay
	engine  *fakeEngine
	devices *media.Synthetic
	errc    chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		relay:   newFakeRelay(),
		engine:  newFakeEngine(),
		devices: media.NewSynthetic(),
		errc:    make(chan error, 1),
	}
	c, err := New(Options{
		Identity:  "A",
		SessionID: "123456",
		Devices:   h.devices,
		NewPeer:   h.engine.newPeer,
		Dial: func(ctx context.Context, identity string) (Relay, error) {
			return h.relay, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.c = c
	t.Cleanup(c.Reset)
	return h
}

// start runs the coordinator and waits until it has joined the session.
func (h *harness) start(t *testing.T) {
	t.Helper()
	go func() { h.errc <- h.c.Run(context.Background()) }()

	msg := h.expectSent(t, signaling.MessageTypeJoinSession)
	if msg.SessionID != "123456" {
		t.Fatalf("joined %q", msg.SessionID)
	}
	eventually(t, "dispatch loop", func() bool {
		_, err := h.c.peerIDs()
		return err == nil
	})
}

func (h *harness) deliver(msg *signaling.Message) {
	h.relay.incoming <- msg
}

func (h *harness) expectSent(t *testing.T, typ string) *signaling.Message {
	t.Helper()
	select {
	case msg := <-h.relay.sent:
		if msg.Type != typ {
			t.Fatalf("sent %s to %q, want %s", msg.Type, msg.User, typ)
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", typ)
	}
	return nil
}

func (h *harness) expectQuiet(t *testing.T) {
	t.Helper()
	time.Sleep(50 * time.Millisecond)
	select {
	case msg := <-h.relay.sent:
		t.Fatalf("unexpected %s to %q", msg.Type, msg.User)
	default:
	}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errc:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	return nil
}

func offer(sdp string) *webrtc.SessionDescription {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
}

func answer(sdp string) *webrtc.SessionDescription {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
}

func candidate(s string) *webrtc.ICECandidateInit {
	return &webrtc.ICECandidateInit{Candidate: s}
}
