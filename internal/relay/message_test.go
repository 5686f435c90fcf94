package relay

import (
	"encoding/json"
	"testing"
)

func TestSessionIDDecoding(t *testing.T) {
	tests := []struct {
		raw     string
		want    SessionID
		wantErr bool
	}{
		{`{"sessionId":"123456"}`, "123456", false},
		{`{"sessionId":123456}`, "123456", false},
		{`{"sessionId":"room-a"}`, "room-a", false},
		{`{"sessionId":null}`, "", false},
		{`{}`, "", false},
		{`{"sessionId":{"nested":true}}`, "", true},
		{`{"sessionId":[1]}`, "", true},
	}

	for _, tt := range tests {
		var m Message
		err := json.Unmarshal([]byte(tt.raw), &m)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err == nil && m.SessionID != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.raw, m.SessionID, tt.want)
		}
	}
}

func TestForwardedRenamesType(t *testing.T) {
	payload := json.RawMessage(`{"sdp":"x"}`)
	tests := []struct {
		in   *Message
		want string
	}{
		{&Message{Type: TypeSendOffer, User: "B", Offer: payload}, TypeReceivedOffer},
		{&Message{Type: TypeSendAnswer, User: "B", Answer: payload}, TypeReceivedAnswer},
		{&Message{Type: TypeSendICECandidates, User: "B", Candidate: payload}, TypeReceivedICECandidate},
	}
	for _, tt := range tests {
		out := tt.in.forwarded("A")
		if out.Type != tt.want || out.User != "A" {
			t.Fatalf("%s forwarded as %s from %q", tt.in.Type, out.Type, out.User)
		}
		data, err := json.Marshal(out)
		if err != nil {
			t.Fatal(err)
		}
		var back map[string]json.RawMessage
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if _, ok := back["sessionId"]; ok {
			t.Fatalf("empty sessionId should be omitted: %s", data)
		}
	}
}
