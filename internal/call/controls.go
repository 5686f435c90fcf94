package call

import (
	"context"
	"sort"

	"github.com/BioHazard786/Warpcall/internal/media"
)

// ToggleMic flips the local audio track's enabled flag and returns the new
// value. Peers learn about it over the presence channel; nothing is
// renegotiated.
func (c *Coordinator) ToggleMic() (bool, error) {
	return c.toggle(media.KindAudio)
}

// ToggleCamera flips the local video track's enabled flag and returns the
// new value.
func (c *Coordinator) ToggleCamera() (bool, error) {
	return c.toggle(media.KindVideo)
}

func (c *Coordinator) toggle(kind media.Kind) (bool, error) {
	var (
		enabled bool
		opErr   error
	)
	err := c.do(func() {
		t := c.localTrack(kind)
		if t == nil {
			opErr = NewError("toggle "+string(kind), ErrNoTrack)
			return
		}
		enabled = !t.Enabled()
		t.SetEnabled(enabled)
		if kind == media.KindAudio {
			c.local.mic = enabled
		} else {
			c.local.camera = enabled
		}
		c.broadcastMediaState()
		c.log.Debug().Str("kind", string(kind)).Bool("enabled", enabled).Msg("Toggled local track")
	})
	if err != nil {
		return false, err
	}
	return enabled, opErr
}

// SwitchCamera moves the local video track to the camera facing the other
// way and returns the new device.
func (c *Coordinator) SwitchCamera(ctx context.Context) (media.DeviceInfo, error) {
	devices, err := c.devices.EnumerateDevices(ctx)
	if err != nil {
		return media.DeviceInfo{}, NewError("switch camera", err)
	}

	var (
		next  media.DeviceInfo
		opErr error
	)
	err = c.do(func() {
		t := c.localTrack(media.KindVideo)
		if t == nil {
			opErr = NewError("switch camera", ErrNoTrack)
			return
		}
		current := t.Device()
		for _, d := range devices {
			if d.Kind == media.VideoInput && d.DeviceID != current.DeviceID && d.Facing == current.Facing.Opposite() {
				next = d
				break
			}
		}
		if next.DeviceID == "" {
			for _, d := range devices {
				if d.Kind == media.VideoInput && d.DeviceID != current.DeviceID {
					next = d
					break
				}
			}
		}
		if next.DeviceID == "" {
			opErr = NewError("switch camera", ErrNoCamera)
			return
		}
		t.SwitchDevice(next)
	})
	if err != nil {
		return media.DeviceInfo{}, err
	}
	return next, opErr
}

// AdjustVolume sets the playback gain of a remote participant, or the
// capture gain when id is the local identity. v is clamped to [0,1]. The
// change never leaves this process.
func (c *Coordinator) AdjustVolume(id string, v float64) error {
	var opErr error
	err := c.do(func() {
		if id == c.identity {
			t := c.localTrack(media.KindAudio)
			if t == nil {
				opErr = NewError("adjust volume", ErrNoTrack)
				return
			}
			t.SetVolume(v)
			return
		}
		p, ok := c.participants[id]
		if !ok {
			opErr = NewPeerError("adjust volume", id, ErrUnknownParticipant)
			return
		}
		p.setVolume(v)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Coordinator) localTrack(kind media.Kind) *media.LocalTrack {
	if c.stream == nil {
		return nil
	}
	if kind == media.KindAudio {
		return c.stream.Audio
	}
	return c.stream.Video
}

func (c *Coordinator) broadcastMediaState() {
	s := c.mediaState()
	for id, e := range c.peers {
		if err := e.pc.SendMediaState(s); err != nil {
			c.log.Debug().Err(err).Str("peer", id).Msg("Presence not sent")
		}
	}
}

// peerIDs lists the remotes that currently have a peer connection.
func (c *Coordinator) peerIDs() ([]string, error) {
	var ids []string
	err := c.do(func() {
		for id := range c.peers {
			ids = append(ids, id)
		}
	})
	sort.Strings(ids)
	return ids, err
}
