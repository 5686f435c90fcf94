package call

import (
	"sort"

	"github.com/BioHazard786/Warpcall/internal/media"
)

// Participant is a read-only view of one session member.
type Participant struct {
	ID         string
	Local      bool
	Mic        bool
	Camera     bool
	Volume     float64
	HasAudio   bool
	HasVideo   bool
	Connection string
	Packets    uint64
}

// Snapshot is a point-in-time view of the coordinator for presentation.
type Snapshot struct {
	State        State
	Identity     string
	SessionID    string
	Participants []Participant
}

// Local returns the local participant, if present.
func (s Snapshot) Local() (Participant, bool) {
	for _, p := range s.Participants {
		if p.Local {
			return p, true
		}
	}
	return Participant{}, false
}

// Remotes returns the remote participants in identity order.
func (s Snapshot) Remotes() []Participant {
	var out []Participant
	for _, p := range s.Participants {
		if !p.Local {
			out = append(out, p)
		}
	}
	return out
}

// participant is the coordinator-owned record behind a Participant.
type participant struct {
	id         string
	mic        bool
	camera     bool
	volume     float64
	connection string
	audio      *media.RemoteTrack
	video      *media.RemoteTrack
}

func newParticipant(id string) *participant {
	return &participant{id: id, mic: true, camera: true, volume: 1, connection: "new"}
}

// addTrack merges t into the tracks already known for the participant.
func (p *participant) addTrack(t *media.RemoteTrack) {
	switch t.Kind {
	case media.KindAudio:
		t.SetVolume(p.volume)
		p.audio = t
	case media.KindVideo:
		p.video = t
	}
}

func (p *participant) setVolume(v float64) {
	p.volume = media.ClampVolume(v)
	if p.audio != nil {
		p.audio.SetVolume(p.volume)
	}
}

func (p *participant) view() Participant {
	v := Participant{
		ID:         p.id,
		Mic:        p.mic,
		Camera:     p.camera,
		Volume:     p.volume,
		HasAudio:   p.audio != nil,
		HasVideo:   p.video != nil,
		Connection: p.connection,
	}
	for _, t := range []*media.RemoteTrack{p.audio, p.video} {
		if t != nil {
			n, _ := t.Stats()
			v.Packets += n
		}
	}
	return v
}

func sortedViews(m map[string]*participant) []Participant {
	out := make([]Participant, 0, len(m))
	for _, p := range m {
		out = append(out, p.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
