package media

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// Kind is the media type of a track.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

const (
	audioFrame = 20 * time.Millisecond
	videoFrame = time.Second / 30
)

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// LocalTrack is an outgoing track. Disabling it stops samples from being
// written without touching the negotiated transceiver.
type LocalTrack struct {
	kind  Kind
	track *webrtc.TrackLocalStaticSample

	mu     sync.Mutex
	device DeviceInfo
	volume float64

	enabled atomic.Bool
	stop    chan struct{}
	once    sync.Once
}

func newLocalTrack(kind Kind, device DeviceInfo, streamID string) (*LocalTrack, error) {
	capability := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	if kind == KindVideo {
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	}

	track, err := webrtc.NewTrackLocalStaticSample(capability, string(kind)+"-"+uuid.NewString(), streamID)
	if err != nil {
		return nil, err
	}

	t := &LocalTrack{
		kind:   kind,
		track:  track,
		device: device,
		volume: 1,
		stop:   make(chan struct{}),
	}
	t.enabled.Store(true)
	return t, nil
}

func (t *LocalTrack) Kind() Kind { return t.kind }

// Track returns the pion track to attach to peer connections.
func (t *LocalTrack) Track() webrtc.TrackLocal { return t.track }

func (t *LocalTrack) Enabled() bool { return t.enabled.Load() }

func (t *LocalTrack) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

func (t *LocalTrack) Device() DeviceInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.device
}

// SwitchDevice moves the track to another capture device. The outgoing track
// keeps its identity, so peers see no renegotiation.
func (t *LocalTrack) SwitchDevice(d DeviceInfo) {
	t.mu.Lock()
	t.device = d
	t.mu.Unlock()
	log.Debug().Str("module", "media").Str("kind", string(t.kind)).Str("device", d.Label).Msg("Switched capture device")
}

// Volume is the capture gain in [0,1].
func (t *LocalTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *LocalTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = ClampVolume(v)
	t.mu.Unlock()
}

// Stop ends the sample feed. It is safe to call more than once.
func (t *LocalTrack) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// feed writes frame every period while the track is enabled.
func (t *LocalTrack) feed(frame []byte, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !t.enabled.Load() {
				continue
			}
			if err := t.track.WriteSample(pionmedia.Sample{Data: frame, Duration: period}); err != nil {
				log.Debug().Str("module", "media").Err(err).Msg("write sample")
			}
		}
	}
}

// RemoteTrack is an incoming track from one remote participant.
type RemoteTrack struct {
	ID   string
	Kind Kind

	mu     sync.Mutex
	volume float64

	packets atomic.Uint64
	bytes   atomic.Uint64
}

func NewRemoteTrack(id string, kind Kind) *RemoteTrack {
	return &RemoteTrack{ID: id, Kind: kind, volume: 1}
}

// Volume is the local playback gain in [0,1].
func (t *RemoteTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *RemoteTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = ClampVolume(v)
	t.mu.Unlock()
}

// Received records one inbound packet of n payload bytes.
func (t *RemoteTrack) Received(n int) {
	t.packets.Add(1)
	t.bytes.Add(uint64(n))
}

// Stats returns the packet and byte counts received so far.
func (t *RemoteTrack) Stats() (packets, bytes uint64) {
	return t.packets.Load(), t.bytes.Load()
}

// ClampVolume limits v to [0,1].
func ClampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
