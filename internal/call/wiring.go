package call

import (
	"context"

	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/dns"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/signaling"
)

// RelayDialer dials the relay configured in cfg through resolver.
func RelayDialer(cfg *config.Config, resolver *dns.Resolver) Dialer {
	return func(ctx context.Context, identity string) (Relay, error) {
		u, err := cfg.SignalingURL(identity)
		if err != nil {
			return nil, err
		}
		client, err := signaling.Dial(ctx, u, resolver)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// EnginePeers creates peer connections from engine.
func EnginePeers(engine *rtc.Engine) PeerFactory {
	return func() (PeerConnection, error) {
		p, err := engine.NewPeer()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
