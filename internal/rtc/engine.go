package rtc

import (
	"github.com/pion/transport/v4"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/utils"
)

// Configuration builds the ICE configuration from the client config: STUN
// servers, optional TURN servers with credentials, and relay-only transport
// when forced or when the host sits behind a tunnel or carrier-grade NAT.
func Configuration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); len(stun) > 0 {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// Engine creates peer connections sharing one pion API.
type Engine struct {
	api    *pion.API
	config pion.Configuration
}

// Option customizes the Engine's setting engine.
type Option func(*pion.SettingEngine)

// WithNet makes peer connections use n instead of the host network.
func WithNet(n transport.Net) Option {
	return func(se *pion.SettingEngine) { se.SetNet(n) }
}

// NewEngine registers the default codecs and routes pion logging to zerolog.
func NewEngine(cfg pion.Configuration, opts ...Option) (*Engine, error) {
	se := pion.SettingEngine{LoggerFactory: loggerFactory{}}
	for _, opt := range opts {
		opt(&se)
	}

	mediaEngine := &pion.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	api := pion.NewAPI(
		pion.WithSettingEngine(se),
		pion.WithMediaEngine(mediaEngine),
	)
	return &Engine{api: api, config: cfg}, nil
}

// NewPeer creates a peer connection with the presence channel already
// negotiated.
func (e *Engine) NewPeer() (*Peer, error) {
	pc, err := e.api.NewPeerConnection(e.config)
	if err != nil {
		return nil, err
	}
	p, err := newPeer(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}
	return p, nil
}
