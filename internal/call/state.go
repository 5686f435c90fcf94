package call

// State is the coordinator lifecycle state.
type State string

const (
	StateIdle             State = "idle"
	StateAcquiringMedia   State = "acquiring-media"
	StateMediaUnavailable State = "media-unavailable"
	StateConnectedToRelay State = "connected-to-relay"
	StateInSession        State = "in-session"
	StateDisconnected     State = "disconnected"
	StateTerminated       State = "terminated"
)

func (s State) String() string { return string(s) }

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateTerminated }
