package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultServer   = "ws://localhost:8080/ws"
	DefaultTURNUser = "warpcall"
	DefaultTURNPass = "warpcall-secret"

	DefaultListen         = ":8080"
	DefaultMaxMessageSize = 64 * 1024
	DefaultSendBuffer     = 256
	DefaultRateLimit      = 50.0
	DefaultRateBurst      = 100

	envPrefix = "WARPCALL"
)

// DefaultSTUNServers are used when no STUN server is configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
}

// Config holds the call client configuration
type Config struct {
	// Server is the relay websocket endpoint, e.g. wss://relay.example/ws
	Server string `mapstructure:"server"`

	// Identity is announced to the relay and used as our routing address
	Identity string `mapstructure:"identity"`

	// ICE servers for WebRTC
	STUNServers []string `mapstructure:"stun"`
	TURNServer  string   `mapstructure:"turn"`
	TURNUser    string   `mapstructure:"turn_user"`
	TURNPass    string   `mapstructure:"turn_pass"`
	ForceRelay  bool     `mapstructure:"force_relay"`

	FrontCamera bool   `mapstructure:"front_camera"`
	LogLevel    string `mapstructure:"log_level"`
}

// RelayConfig holds the signaling relay configuration
type RelayConfig struct {
	Listen         string  `mapstructure:"listen"`
	MaxMessageSize int64   `mapstructure:"max_message_size"`
	SendBuffer     int     `mapstructure:"send_buffer"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	LogLevel       string  `mapstructure:"log_level"`
}

// flagKeys maps viper keys to the cobra flag names that override them.
var flagKeys = map[string]string{
	"server":           "server",
	"identity":         "identity",
	"stun":             "stun",
	"turn":             "turn",
	"turn_user":        "turn-user",
	"turn_pass":        "turn-pass",
	"force_relay":      "relay",
	"front_camera":     "front-camera",
	"log_level":        "log-level",
	"listen":           "listen",
	"max_message_size": "max-message-size",
	"send_buffer":      "send-buffer",
	"rate_limit":       "rate-limit",
	"rate_burst":       "rate-burst",
}

// newViper reads configuration with the following priority:
// 1. CLI flags - highest priority
// 2. Environment variables (WARPCALL_*)
// 3. Config file (--config, or $XDG_CONFIG_HOME/warpcall/config.yaml)
// 4. Hardcoded defaults - lowest priority
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server", DefaultServer)
	v.SetDefault("stun", DefaultSTUNServers)
	v.SetDefault("turn_user", DefaultTURNUser)
	v.SetDefault("turn_pass", DefaultTURNPass)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("max_message_size", DefaultMaxMessageSize)
	v.SetDefault("send_buffer", DefaultSendBuffer)
	v.SetDefault("rate_limit", DefaultRateLimit)
	v.SetDefault("rate_burst", DefaultRateBurst)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}
	return v, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", f.Value.String(), err)
			}
			return nil
		}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(dir, "warpcall"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds the client configuration from flags, env, config file and defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v, err := newViper(flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.STUNServers = splitList(cfg.STUNServers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRelay builds the relay configuration from flags, env, config file and defaults.
func LoadRelay(flags *pflag.FlagSet) (*RelayConfig, error) {
	v, err := newViper(flags)
	if err != nil {
		return nil, err
	}

	var cfg RelayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxMessageSize <= 0 {
		return nil, fmt.Errorf("max message size must be positive, got %d", cfg.MaxMessageSize)
	}
	if cfg.SendBuffer <= 0 {
		return nil, fmt.Errorf("send buffer must be positive, got %d", cfg.SendBuffer)
	}
	return &cfg, nil
}

// Validate checks the relay URL and ICE settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server URL must use ws:// or wss://, got %q", c.Server)
	}
	if c.ForceRelay && c.GetTURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return nil
}

// SignalingURL returns the relay URL carrying identity as the user query parameter.
func (c *Config) SignalingURL(identity string) (string, error) {
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	q := u.Query()
	q.Set("user", identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetSTUNServers returns STUN server URLs
func (c *Config) GetSTUNServers() []string {
	if len(c.STUNServers) == 0 {
		return DefaultSTUNServers
	}
	return c.STUNServers
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// splitList accepts both repeated values and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
