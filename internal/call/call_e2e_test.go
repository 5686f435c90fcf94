package call_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/vnet"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/call"
	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/relay"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/server"
)

func newVNetEngine(t *testing.T, router *vnet.Router, ip string) *rtc.Engine {
	t.Helper()
	n, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{ip}})
	if err != nil {
		t.Fatalf("new net %s: %v", ip, err)
	}
	if err := router.AddNet(n); err != nil {
		t.Fatalf("add net %s: %v", ip, err)
	}
	engine, err := rtc.NewEngine(pion.Configuration{}, rtc.WithNet(n))
	if err != nil {
		t.Fatalf("engine %s: %v", ip, err)
	}
	return engine
}

func waitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func remote(c *call.Coordinator, id string) (call.Participant, bool) {
	for _, p := range c.Snapshot().Remotes() {
		if p.ID == id {
			return p, true
		}
	}
	return call.Participant{}, false
}

func TestTwoParticipantsConnectThroughRelay(t *testing.T) {
	hub := relay.NewHub()
	go hub.Run()
	srv := httptest.NewServer(server.NewRouter(hub, relay.DefaultOptions()))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	cfg := &config.Config{Server: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}

	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	engineA := newVNetEngine(t, router, "10.0.0.1")
	engineB := newVNetEngine(t, router, "10.0.0.2")
	if err := router.Start(); err != nil {
		t.Fatalf("start router: %v", err)
	}
	t.Cleanup(func() { _ = router.Stop() })

	newCall := func(identity string, engine *rtc.Engine) *call.Coordinator {
		c, err := call.New(call.Options{
			Identity:  identity,
			SessionID: "123456",
			Devices:   media.NewSynthetic(),
			NewPeer:   call.EnginePeers(engine),
			Dial:      call.RelayDialer(cfg, nil),
		})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(c.Reset)
		return c
	}

	a := newCall("Alice", engineA)
	b := newCall("Bob", engineB)

	errs := make(chan error, 2)
	go func() { errs <- a.Run(context.Background()) }()
	waitFor(t, "Alice in session", 5*time.Second, func() bool { return len(hub.Members("123456")) == 1 })
	go func() { errs <- b.Run(context.Background()) }()

	waitFor(t, "both connected", 20*time.Second, func() bool {
		pb, okA := remote(a, "Bob")
		pa, okB := remote(b, "Alice")
		return okA && okB && pb.Connection == "connected" && pa.Connection == "connected"
	})
	waitFor(t, "remote media", 10*time.Second, func() bool {
		pb, _ := remote(a, "Bob")
		pa, _ := remote(b, "Alice")
		return pb.HasAudio && pa.HasAudio
	})

	// Muting travels peer-to-peer; the relay sees no new traffic and the
	// connection stays up.
	if on, err := a.ToggleMic(); err != nil || on {
		t.Fatalf("toggle mic = %v, %v", on, err)
	}
	waitFor(t, "Bob sees Alice muted", 10*time.Second, func() bool {
		pa, ok := remote(b, "Alice")
		return ok && !pa.Mic && pa.Connection == "connected"
	})

	b.Reset()
	waitFor(t, "Alice drops Bob", 10*time.Second, func() bool {
		_, ok := remote(a, "Bob")
		return !ok
	})
	if got := hub.Members("123456"); len(got) != 1 || got[0] != "Alice" {
		t.Fatalf("members = %v", got)
	}

	a.Reset()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("Run = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return")
		}
	}
}
