package rtc

import (
	"context"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/vnet"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/media"
)

func TestMediaStateCodec(t *testing.T) {
	for _, s := range []MediaState{{}, {Mic: true}, {Camera: true}, {Mic: true, Camera: true}} {
		data, err := encodeMediaState(s)
		if err != nil {
			t.Fatal(err)
		}
		got, err := decodeMediaState(data)
		if err != nil {
			t.Fatal(err)
		}
		if got != s {
			t.Fatalf("got %+v, want %+v", got, s)
		}
	}
	if _, err := decodeMediaState([]byte{0xc1}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestConfiguration(t *testing.T) {
	cfg := &config.Config{}
	c := Configuration(cfg)
	if len(c.ICEServers) != 1 || len(c.ICEServers[0].URLs) != len(config.DefaultSTUNServers) {
		t.Fatalf("ice servers = %+v", c.ICEServers)
	}
	if c.ICETransportPolicy != pion.ICETransportPolicyAll {
		t.Fatalf("policy = %v", c.ICETransportPolicy)
	}

	cfg = &config.Config{
		STUNServers: []string{"stun:stun.example.com:3478"},
		TURNServer:  "turn.example.com",
		TURNUser:    "u",
		TURNPass:    "p",
		ForceRelay:  true,
	}
	c = Configuration(cfg)
	if len(c.ICEServers) != 2 {
		t.Fatalf("ice servers = %+v", c.ICEServers)
	}
	turn := c.ICEServers[1]
	if turn.Username != "u" || turn.Credential != "p" || len(turn.URLs) != 3 {
		t.Fatalf("turn = %+v", turn)
	}
	if c.ICETransportPolicy != pion.ICETransportPolicyRelay {
		t.Fatalf("policy = %v", c.ICETransportPolicy)
	}
}

func newVNetEngines(t *testing.T) (*Engine, *Engine) {
	t.Helper()

	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() { _ = router.Stop() })

	netA, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.1"}})
	if err != nil {
		t.Fatalf("new net A: %v", err)
	}
	netB, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{"10.0.0.2"}})
	if err != nil {
		t.Fatalf("new net B: %v", err)
	}
	if err := router.AddNet(netA); err != nil {
		t.Fatalf("add net A: %v", err)
	}
	if err := router.AddNet(netB); err != nil {
		t.Fatalf("add net B: %v", err)
	}
	if err := router.Start(); err != nil {
		t.Fatalf("start router: %v", err)
	}

	engineA, err := NewEngine(pion.Configuration{}, WithNet(netA))
	if err != nil {
		t.Fatalf("engine A: %v", err)
	}
	engineB, err := NewEngine(pion.Configuration{}, WithNet(netB))
	if err != nil {
		t.Fatalf("engine B: %v", err)
	}
	return engineA, engineB
}

func TestPeersNegotiateOverVirtualNetwork(t *testing.T) {
	engineA, engineB := newVNetEngines(t)

	a, err := engineA.NewPeer()
	if err != nil {
		t.Fatalf("peer A: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	b, err := engineB.NewPeer()
	if err != nil {
		t.Fatalf("peer B: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	stream, err := media.NewSynthetic().GetUserMedia(context.Background(), media.Constraints{Audio: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(stream.Stop)
	if err := a.AddTrack(stream.Audio); err != nil {
		t.Fatalf("add track: %v", err)
	}

	tracks := make(chan *media.RemoteTrack, 1)
	b.OnTrack(func(rt *media.RemoteTrack) { tracks <- rt })

	states := make(chan MediaState, 4)
	b.OnMediaState(func(s MediaState) { states <- s })
	a.SendMediaState(MediaState{Mic: true})

	connected := make(chan struct{})
	a.OnConnectionStateChange(func(s pion.PeerConnectionState) {
		if s == pion.PeerConnectionStateConnected {
			close(connected)
		}
	})

	// Non-trickle exchange: wait for gathering so descriptions carry candidates.
	gatherA := pion.GatheringCompletePromise(a.pc)
	if _, err := a.CreateOffer(); err != nil {
		t.Fatalf("offer: %v", err)
	}
	<-gatherA
	if err := b.SetRemoteDescription(*a.pc.LocalDescription()); err != nil {
		t.Fatalf("apply offer: %v", err)
	}

	gatherB := pion.GatheringCompletePromise(b.pc)
	if _, err := b.CreateAnswer(); err != nil {
		t.Fatalf("answer: %v", err)
	}
	<-gatherB
	if err := a.SetRemoteDescription(*b.pc.LocalDescription()); err != nil {
		t.Fatalf("apply answer: %v", err)
	}

	select {
	case <-connected:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for connection")
	}

	select {
	case rt := <-tracks:
		if rt.Kind != media.KindAudio {
			t.Fatalf("kind = %s", rt.Kind)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for remote track")
	}

	select {
	case s := <-states:
		if !s.Mic || s.Camera {
			t.Fatalf("state = %+v", s)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for presence")
	}
}
