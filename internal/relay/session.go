package relay

// Session is a named room grouping connections that negotiate with each other.
// It exists while it has at least one member.
type Session struct {
	ID string

	// Members maps identity to the member's connection.
	Members map[string]*Client
}

func newSession(id string) *Session {
	return &Session{ID: id, Members: make(map[string]*Client)}
}

// others returns every member except identity.
func (s *Session) others(identity string) []*Client {
	out := make([]*Client, 0, len(s.Members))
	for id, c := range s.Members {
		if id != identity {
			out = append(out, c)
		}
	}
	return out
}
