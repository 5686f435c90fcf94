package media

// Stream is the result of GetUserMedia: separable audio and video tracks.
// Either may be nil.
type Stream struct {
	ID    string
	Audio *LocalTrack
	Video *LocalTrack
}

// Tracks returns the non-nil tracks, audio first.
func (s *Stream) Tracks() []*LocalTrack {
	var out []*LocalTrack
	if s.Audio != nil {
		out = append(out, s.Audio)
	}
	if s.Video != nil {
		out = append(out, s.Video)
	}
	return out
}

// Stop stops every track.
func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
