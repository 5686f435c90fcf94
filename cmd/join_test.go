package cmd

import (
	"testing"

	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/media"
)

func TestCaptureConstraints(t *testing.T) {
	tests := []struct {
		front bool
		want  media.Facing
	}{
		{false, media.FacingEnvironment},
		{true, media.FacingUser},
	}
	for _, tt := range tests {
		got := captureConstraints(&config.Config{FrontCamera: tt.front})
		if !got.Audio || !got.Video || got.Facing != tt.want {
			t.Errorf("front=%v: got %+v, want facing %s", tt.front, got, tt.want)
		}
	}
}

func TestJoinFrontCameraFlagDefault(t *testing.T) {
	f := joinCmd.Flags().Lookup("front-camera")
	if f == nil || f.DefValue != "false" {
		t.Fatalf("front-camera flag = %+v", f)
	}
}
