package call

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/signaling"
	"github.com/BioHazard786/Warpcall/internal/utils"
)

// Relay is the coordinator's connection to the signaling relay.
// *signaling.Client implements it.
type Relay interface {
	Send(msg *signaling.Message) error
	Incoming() <-chan *signaling.Message
	Close() error
}

// Dialer connects to the relay as identity.
type Dialer func(ctx context.Context, identity string) (Relay, error)

// PeerFactory creates an unconfigured peer connection.
type PeerFactory func() (PeerConnection, error)

// Options configures a Coordinator.
type Options struct {
	Identity    string
	SessionID   string
	Devices     media.Devices
	Constraints media.Constraints
	NewPeer     PeerFactory
	Dial        Dialer
}

// Coordinator owns the local participant, the remote participants and one
// peer connection per remote. All of that state belongs to the dispatch
// loop started by Run; other goroutines reach it through events and
// commands.
type Coordinator struct {
	identity    string
	sessionID   string
	devices     media.Devices
	constraints media.Constraints
	newPeer     PeerFactory
	dial        Dialer
	log         zerolog.Logger

	// Loop-owned.
	relay        Relay
	stream       *media.Stream
	local        *participant
	participants map[string]*participant
	peers        map[string]*peerEntry
	orphans      map[string][]webrtc.ICECandidateInit

	events   chan event
	commands chan func()

	runMu     sync.Mutex
	resetCh   chan struct{}
	resetOnce sync.Once
	done      chan struct{}
	doneOnce  sync.Once

	mu       sync.Mutex
	state    State
	loopDone chan struct{}
	snapshot Snapshot
	updates  chan Snapshot
}

// New validates opts and returns an idle coordinator.
func New(opts Options) (*Coordinator, error) {
	if err := utils.ValidateIdentity(opts.Identity); err != nil {
		return nil, NewError("new call", err)
	}
	if opts.SessionID == "" {
		return nil, NewError("new call", fmt.Errorf("session id required"))
	}
	if opts.Devices == nil || opts.NewPeer == nil || opts.Dial == nil {
		return nil, NewError("new call", fmt.Errorf("devices, peer factory and dialer are required"))
	}
	if !opts.Constraints.Audio && !opts.Constraints.Video {
		opts.Constraints = media.Constraints{Audio: true, Video: true, Facing: media.FacingUser}
	}

	c := &Coordinator{
		identity:     opts.Identity,
		sessionID:    opts.SessionID,
		devices:      opts.Devices,
		constraints:  opts.Constraints,
		newPeer:      opts.NewPeer,
		dial:         opts.Dial,
		log:          log.With().Str("module", "call").Str("user", opts.Identity).Str("session", opts.SessionID).Logger(),
		local:        newParticipant(opts.Identity),
		participants: make(map[string]*participant),
		peers:        make(map[string]*peerEntry),
		orphans:      make(map[string][]webrtc.ICECandidateInit),
		events:       make(chan event, 64),
		commands:     make(chan func()),
		resetCh:      make(chan struct{}),
		done:         make(chan struct{}),
		state:        StateIdle,
		updates:      make(chan Snapshot, 1),
	}
	c.local.connection = ""
	c.local.mic, c.local.camera = false, false
	c.snapshot = c.buildSnapshot()
	return c, nil
}

func (c *Coordinator) Identity() string  { return c.identity }
func (c *Coordinator) SessionID() string { return c.sessionID }

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the latest published view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Updates delivers the latest snapshot after changes. Intermediate
// snapshots are dropped when the reader falls behind.
func (c *Coordinator) Updates() <-chan Snapshot {
	return c.updates
}

// Done is closed once the coordinator has terminated.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run acquires local media, connects to the relay, joins the session and
// dispatches events until the context ends, Reset is called or the relay
// goes away. It returns nil on termination. A failed media acquisition or
// relay connection leaves the coordinator in a recoverable state and Run
// may be called again.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.runMu.TryLock() {
		return ErrAlreadyRunning
	}
	defer c.runMu.Unlock()

	select {
	case <-c.done:
		return ErrTerminated
	case <-c.resetCh:
		return c.terminate()
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.resetCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if c.stream == nil {
		c.setState(StateAcquiringMedia)
		stream, err := c.devices.GetUserMedia(ctx, c.constraints)
		if err != nil {
			if ctx.Err() != nil {
				return c.terminate()
			}
			c.log.Error().Err(err).Msg("Local media unavailable")
			c.setState(StateMediaUnavailable)
			return WrapError("acquire media", ErrMediaUnavailable, err.Error())
		}
		c.stream = stream
		c.local.mic = stream.Audio != nil && stream.Audio.Enabled()
		c.local.camera = stream.Video != nil && stream.Video.Enabled()
	}

	relay, err := c.dial(ctx, c.identity)
	if err != nil {
		if ctx.Err() != nil {
			return c.terminate()
		}
		c.log.Error().Err(err).Msg("Relay unreachable")
		c.setState(StateDisconnected)
		return WrapError("connect relay", ErrRelayUnreachable, err.Error())
	}
	c.relay = relay
	c.setState(StateConnectedToRelay)

	if err := relay.Send(signaling.JoinSession(c.sessionID)); err != nil {
		c.dropRelay()
		c.setState(StateDisconnected)
		return NewError("join session", ErrRelayDisconnected)
	}
	c.setState(StateInSession)
	c.log.Info().Msg("Joined session")

	return c.loop(ctx)
}

// Reset terminates the call: it stops local media, closes every peer
// connection, forgets every remote participant and disconnects from the
// relay. It blocks until the coordinator has terminated.
func (c *Coordinator) Reset() {
	c.resetOnce.Do(func() { close(c.resetCh) })
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.terminate()
}

func (c *Coordinator) loop(ctx context.Context) error {
	c.mu.Lock()
	c.loopDone = make(chan struct{})
	loopDone := c.loopDone
	c.mu.Unlock()
	defer close(loopDone)

	handler := relayHandler{c}
	incoming := c.relay.Incoming()

	for {
		c.publish()

		select {
		case <-ctx.Done():
			return c.terminate()

		case msg, ok := <-incoming:
			if !ok {
				c.log.Warn().Msg("Relay connection lost")
				c.dropRelay()
				c.teardownAll()
				c.setState(StateDisconnected)
				return NewError("relay", ErrRelayDisconnected)
			}
			if err := signaling.Dispatch(msg, handler); err != nil {
				c.log.Warn().Err(err).Msg("Ignoring relay message")
			}

		case ev := <-c.events:
			c.handleEvent(ev)

		case fn := <-c.commands:
			fn()
		}
	}
}

// do runs fn on the dispatch loop and waits for it. The snapshot is
// republished before do returns.
func (c *Coordinator) do(fn func()) error {
	c.mu.Lock()
	loopDone := c.loopDone
	c.mu.Unlock()

	select {
	case <-c.done:
		return ErrTerminated
	default:
	}
	if loopDone == nil {
		return ErrNotInSession
	}

	finished := make(chan struct{})
	select {
	case c.commands <- func() {
		fn()
		c.publish()
		close(finished)
	}:
	case <-loopDone:
		return ErrNotInSession
	case <-c.done:
		return ErrTerminated
	}
	<-finished
	return nil
}

// post hands ev to the dispatch loop unless its entry has been torn down.
func (c *Coordinator) post(ev event) {
	select {
	case c.events <- ev:
	case <-ev.peer().quit:
	case <-c.done:
	}
}

func (c *Coordinator) terminate() error {
	select {
	case <-c.done:
		return nil
	default:
	}

	if c.relay != nil {
		if err := c.relay.Send(signaling.LeaveSession()); err != nil {
			c.log.Debug().Err(err).Msg("Leave not sent")
		}
		c.dropRelay()
	}
	c.teardownAll()
	if c.stream != nil {
		c.stream.Stop()
	}
	c.local.mic, c.local.camera = false, false

	c.setState(StateTerminated)
	c.doneOnce.Do(func() { close(c.done) })
	c.log.Info().Msg("Call terminated")
	return nil
}

func (c *Coordinator) dropRelay() {
	if c.relay == nil {
		return
	}
	if err := c.relay.Close(); err != nil {
		c.log.Debug().Err(err).Msg("Close relay")
	}
	c.relay = nil
}

// send forwards msg to the relay. Failures are logged; a dead relay surfaces
// through the incoming channel closing.
func (c *Coordinator) send(msg *signaling.Message) {
	if c.relay == nil {
		return
	}
	if err := c.relay.Send(msg); err != nil {
		c.log.Warn().Err(err).Str("type", msg.Type).Msg("Relay send failed")
	}
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.Debug().Str("from", prev.String()).Str("to", s.String()).Msg("State")
	}
	c.publish()
}

func (c *Coordinator) buildSnapshot() Snapshot {
	local := c.local.view()
	local.Local = true
	local.HasAudio = c.stream != nil && c.stream.Audio != nil
	local.HasVideo = c.stream != nil && c.stream.Video != nil
	if local.HasAudio {
		local.Volume = c.stream.Audio.Volume()
	}

	return Snapshot{
		State:        c.state,
		Identity:     c.identity,
		SessionID:    c.sessionID,
		Participants: append([]Participant{local}, sortedViews(c.participants)...),
	}
}

// publish stores a fresh snapshot and offers it on Updates.
func (c *Coordinator) publish() {
	c.mu.Lock()
	s := c.buildSnapshot()
	c.snapshot = s
	c.mu.Unlock()

	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- s:
	default:
	}
}

// mediaState is what the local participant currently publishes.
func (c *Coordinator) mediaState() rtc.MediaState {
	return rtc.MediaState{Mic: c.local.mic, Camera: c.local.camera}
}
