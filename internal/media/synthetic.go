package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// blankVP8 is a minimal VP8 key frame used as the synthetic camera picture.
var blankVP8 = []byte{
	0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a, 0x10, 0x00, 0x10, 0x00,
	0x00, 0x47, 0x08, 0x85, 0x85, 0x88, 0x85, 0x84, 0x88, 0x02,
}

// Synthetic is a capture device set that produces silence and a blank
// picture. It stands in for real capture hardware on headless hosts.
type Synthetic struct {
	mu      sync.Mutex
	devices []DeviceInfo

	// Deny makes GetUserMedia fail as if the user refused permission.
	Deny bool
}

// NewSynthetic returns one microphone and a front and back camera.
func NewSynthetic() *Synthetic {
	return &Synthetic{devices: []DeviceInfo{
		{DeviceID: "synthetic-mic", Label: "Synthetic Microphone", Kind: AudioInput},
		{DeviceID: "synthetic-front", Label: "Synthetic Front Camera", Kind: VideoInput, Facing: FacingUser},
		{DeviceID: "synthetic-back", Label: "Synthetic Back Camera", Kind: VideoInput, Facing: FacingEnvironment},
	}}
}

// NewSyntheticWith returns a device set with exactly devices.
func NewSyntheticWith(devices ...DeviceInfo) *Synthetic {
	return &Synthetic{devices: devices}
}

func (s *Synthetic) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeviceInfo(nil), s.devices...), nil
}

func (s *Synthetic) GetUserMedia(ctx context.Context, c Constraints) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Deny {
		return nil, ErrPermissionDenied
	}

	devices, _ := s.EnumerateDevices(ctx)
	stream := &Stream{ID: "stream-" + uuid.NewString()}

	if c.Audio {
		d, ok := Find(devices, AudioInput, "")
		if !ok {
			return nil, ErrNoDevice
		}
		t, err := newLocalTrack(KindAudio, d, stream.ID)
		if err != nil {
			return nil, err
		}
		stream.Audio = t
	}

	if c.Video {
		facing := c.Facing
		if facing == "" {
			facing = FacingUser
		}
		d, ok := Find(devices, VideoInput, facing)
		if !ok {
			stream.Stop()
			return nil, ErrNoDevice
		}
		t, err := newLocalTrack(KindVideo, d, stream.ID)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.Video = t
	}

	if stream.Audio != nil {
		go stream.Audio.feed(opusSilence, audioFrame)
	}
	if stream.Video != nil {
		go stream.Video.feed(blankVP8, videoFrame)
	}
	return stream, nil
}
