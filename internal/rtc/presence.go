package rtc

import "github.com/vmihailenco/msgpack/v5"

const (
	presenceLabel = "presence"
	presenceID    = uint16(0)
)

// MediaState is what a participant publishes about its own outgoing media.
type MediaState struct {
	Mic    bool `msgpack:"mic"`
	Camera bool `msgpack:"camera"`
}

func encodeMediaState(s MediaState) ([]byte, error) {
	return msgpack.Marshal(&s)
}

func decodeMediaState(data []byte) (MediaState, error) {
	var s MediaState
	err := msgpack.Unmarshal(data, &s)
	return s, err
}
