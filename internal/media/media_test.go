package media

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestGetUserMedia(t *testing.T) {
	devs := NewSynthetic()
	stream, err := devs.GetUserMedia(context.Background(), Constraints{Audio: true, Video: true})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Stop()

	if stream.Audio == nil || stream.Video == nil {
		t.Fatalf("stream = %+v", stream)
	}
	if got := len(stream.Tracks()); got != 2 {
		t.Fatalf("tracks = %d", got)
	}
	if stream.Video.Device().Facing != FacingUser {
		t.Fatalf("default facing = %s", stream.Video.Device().Facing)
	}
	if stream.Audio.Track().Kind().String() != "audio" || stream.Video.Track().Kind().String() != "video" {
		t.Fatal("track kinds mismatched")
	}
	if stream.Audio.Track().StreamID() != stream.ID {
		t.Fatalf("stream id = %s, want %s", stream.Audio.Track().StreamID(), stream.ID)
	}
}

func TestGetUserMediaFailures(t *testing.T) {
	denied := NewSynthetic()
	denied.Deny = true
	if _, err := denied.GetUserMedia(context.Background(), Constraints{Audio: true}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}

	micOnly := NewSyntheticWith(DeviceInfo{DeviceID: "m", Kind: AudioInput})
	if _, err := micOnly.GetUserMedia(context.Background(), Constraints{Audio: true, Video: true}); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSynthetic().GetUserMedia(ctx, Constraints{Audio: true}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFindFallsBackToAnyFacing(t *testing.T) {
	devices := []DeviceInfo{
		{DeviceID: "mic", Kind: AudioInput},
		{DeviceID: "webcam", Kind: VideoInput},
	}
	d, ok := Find(devices, VideoInput, FacingEnvironment)
	if !ok || d.DeviceID != "webcam" {
		t.Fatalf("got %+v %v", d, ok)
	}
	if _, ok := Find(devices[:1], VideoInput, FacingUser); ok {
		t.Fatal("found camera in mic-only list")
	}
}

func TestLocalTrackControls(t *testing.T) {
	stream, err := NewSynthetic().GetUserMedia(context.Background(), Constraints{Audio: true, Video: true})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Stop()

	stream.Audio.SetEnabled(false)
	if stream.Audio.Enabled() {
		t.Fatal("still enabled")
	}

	id := stream.Video.Track().ID()
	stream.Video.SwitchDevice(DeviceInfo{DeviceID: "synthetic-back", Kind: VideoInput, Facing: FacingEnvironment})
	if stream.Video.Device().Facing != FacingEnvironment {
		t.Fatal("device not switched")
	}
	if stream.Video.Track().ID() != id {
		t.Fatal("switching device replaced the outgoing track")
	}

	stream.Stop()
	stream.Stop()
}

func TestClampVolume(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {0.25, 0.25}, {1, 1}, {7, 1}, {math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampVolume(tt.in); got != tt.want {
			t.Fatalf("ClampVolume(%v) = %v", tt.in, got)
		}
	}

	rt := NewRemoteTrack("t", KindAudio)
	rt.SetVolume(3)
	if rt.Volume() != 1 {
		t.Fatalf("volume = %v", rt.Volume())
	}
	rt.Received(100)
	rt.Received(50)
	if p, b := rt.Stats(); p != 2 || b != 150 {
		t.Fatalf("stats = %d %d", p, b)
	}
}

func TestFacingOpposite(t *testing.T) {
	if FacingUser.Opposite() != FacingEnvironment || FacingEnvironment.Opposite() != FacingUser {
		t.Fatal("opposite mismatch")
	}
}
