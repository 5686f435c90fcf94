package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func clientFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("server", "", "")
	fs.String("identity", "", "")
	fs.StringSlice("stun", nil, "")
	fs.String("turn", "", "")
	fs.String("turn-user", "", "")
	fs.String("turn-pass", "", "")
	fs.Bool("relay", false, "")
	fs.Bool("front-camera", false, "")
	return fs
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(clientFlags())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != DefaultServer {
		t.Fatalf("server = %q", cfg.Server)
	}
	if !reflect.DeepEqual(cfg.GetSTUNServers(), DefaultSTUNServers) {
		t.Fatalf("stun = %v", cfg.GetSTUNServers())
	}
	if cfg.GetTURNServers() != nil {
		t.Fatalf("turn servers should be empty by default")
	}
	user, pass := cfg.GetTURNCredentials()
	if user != DefaultTURNUser || pass != DefaultTURNPass {
		t.Fatalf("credentials = %q/%q", user, pass)
	}
	if cfg.FrontCamera {
		t.Fatal("the rear camera should be the default")
	}
}

func TestFrontCameraOverrides(t *testing.T) {
	isolate(t)

	t.Setenv("WARPCALL_FRONT_CAMERA", "true")
	cfg, err := Load(clientFlags())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.FrontCamera {
		t.Fatal("env should select the front camera")
	}

	t.Setenv("WARPCALL_FRONT_CAMERA", "")
	fs := clientFlags()
	if err := fs.Parse([]string{"--front-camera"}); err != nil {
		t.Fatal(err)
	}
	if cfg, err = Load(fs); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.FrontCamera {
		t.Fatal("flag should select the front camera")
	}
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("WARPCALL_SERVER", "ws://env.example/ws")
	t.Setenv("WARPCALL_TURN", "turn.env.example")
	t.Setenv("WARPCALL_STUN", "stun:a.example:3478,stun:b.example:3478")

	fs := clientFlags()
	if err := fs.Parse([]string{"--server", "wss://flag.example/ws"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "wss://flag.example/ws" {
		t.Fatalf("flag should win over env, got %q", cfg.Server)
	}
	if cfg.TURNServer != "turn.env.example" {
		t.Fatalf("env should win over default, got %q", cfg.TURNServer)
	}
	want := []string{"stun:a.example:3478", "stun:b.example:3478"}
	if !reflect.DeepEqual(cfg.STUNServers, want) {
		t.Fatalf("stun = %v, want %v", cfg.STUNServers, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "warpcall.yaml")
	body := "server: wss://file.example/ws\nidentity: FileUser\nturn: turn.file.example\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := clientFlags()
	if err := fs.Parse([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "wss://file.example/ws" || cfg.Identity != "FileUser" {
		t.Fatalf("config file values not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{Server: "wss://relay.example/ws"}, ""},
		{"http scheme", Config{Server: "http://relay.example/ws"}, "ws:// or wss://"},
		{"relay without turn", Config{Server: "ws://x/ws", ForceRelay: true}, "TURN"},
		{"relay with turn", Config{Server: "ws://x/ws", ForceRelay: true, TURNServer: "t.example"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSignalingURL(t *testing.T) {
	cfg := Config{Server: "ws://localhost:8080/ws"}
	got, err := cfg.SignalingURL("Brave Knight")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ws://localhost:8080/ws?user=Brave+Knight" {
		t.Fatalf("got %q", got)
	}
}

func TestGetTURNServers(t *testing.T) {
	cfg := Config{TURNServer: "turn:relay.example"}
	want := []string{
		"turn:relay.example:3478?transport=udp",
		"turn:relay.example:3478?transport=tcp",
		"turns:relay.example:5349?transport=tcp",
	}
	if got := cfg.GetTURNServers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v", got)
	}
}

func TestLoadRelay(t *testing.T) {
	isolate(t)
	t.Setenv("WARPCALL_RATE_LIMIT", "5")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("listen", "", "")
	if err := fs.Parse([]string{"--listen", ":9999"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRelay(fs)
	if err != nil {
		t.Fatalf("LoadRelay: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.RateLimit != 5 {
		t.Fatalf("rate limit = %v", cfg.RateLimit)
	}
	if cfg.MaxMessageSize != DefaultMaxMessageSize || cfg.SendBuffer != DefaultSendBuffer {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
