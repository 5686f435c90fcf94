package media

import (
	"context"
	"errors"
)

// DeviceKind mirrors the browser enumerateDevices vocabulary.
type DeviceKind string

const (
	AudioInput DeviceKind = "audioinput"
	VideoInput DeviceKind = "videoinput"
)

// Facing is the direction a camera points.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Opposite returns the other facing mode.
func (f Facing) Opposite() Facing {
	if f == FacingEnvironment {
		return FacingUser
	}
	return FacingEnvironment
}

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	DeviceID string
	Label    string
	Kind     DeviceKind
	Facing   Facing
}

// Constraints selects the tracks GetUserMedia should produce.
type Constraints struct {
	Audio  bool
	Video  bool
	Facing Facing
}

var (
	ErrNoDevice         = errors.New("no matching capture device")
	ErrPermissionDenied = errors.New("capture permission denied")
)

// Devices is the capture device API consumed by the call coordinator.
type Devices interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, c Constraints) (*Stream, error)
}

// Find returns the first device of kind facing the given way, falling back to
// any device of that kind.
func Find(devices []DeviceInfo, kind DeviceKind, facing Facing) (DeviceInfo, bool) {
	var fallback *DeviceInfo
	for i := range devices {
		d := devices[i]
		if d.Kind != kind {
			continue
		}
		if facing == "" || d.Facing == facing {
			return d, true
		}
		if fallback == nil {
			fallback = &devices[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return DeviceInfo{}, false
}
