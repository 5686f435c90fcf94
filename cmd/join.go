package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcall/internal/call"
	"github.com/BioHazard786/Warpcall/internal/config"
	"github.com/BioHazard786/Warpcall/internal/dns"
	"github.com/BioHazard786/Warpcall/internal/logging"
	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/rtc"
	"github.com/BioHazard786/Warpcall/internal/ui"
	"github.com/BioHazard786/Warpcall/internal/utils"
)

var joinCmd = &cobra.Command{
	Use:     "join [session-id]",
	Aliases: []string{"j"},
	Short:   "Join a call session",
	Long: `Join a call session. Without a session id a new 6-digit id is generated;
share it with the people you want to call.

Examples:
  warpcall join
  warpcall join 482913
  warpcall join 482913 --identity Alice --server wss://relay.example.com/ws
  warpcall join --relay --turn turn:turn.example.com:3478 482913`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return call.NewError("load config", err)
		}
		logging.SetLevel(cfg.LogLevel)

		var sessionID string
		if len(args) == 1 {
			sessionID = args[0]
		} else {
			sessionID = utils.GenerateSessionID()
			ui.PrintInfof("Created session %s, share it with the people you want to call", sessionID)
		}
		identity := cfg.Identity
		if identity == "" {
			identity = utils.GenerateIdentity()
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return joinSession(ctx, cfg, identity, sessionID)
	},
}

func joinSession(ctx context.Context, cfg *config.Config, identity, sessionID string) error {
	engine, err := rtc.NewEngine(rtc.Configuration(cfg))
	if err != nil {
		return call.NewError("create engine", err)
	}

	coord, err := call.New(call.Options{
		Identity:    identity,
		SessionID:   sessionID,
		Devices:     media.NewSynthetic(),
		Constraints: captureConstraints(cfg),
		NewPeer:     call.EnginePeers(engine),
		Dial:        call.RelayDialer(cfg, dns.NewResolver()),
	})
	if err != nil {
		return err
	}
	defer coord.Reset()

	spinner := ui.NewConnectionSpinner("Connecting to relay...")
	spinner.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- coord.Run(ctx)
	}()

	if err := waitInSession(ctx, coord, spinner, errCh); err != nil {
		spinner.Error("Could not join the session")
		return err
	}
	spinner.Success("Joined the session")

	fmt.Println()
	fmt.Println(ui.SessionBox(coord.SessionID(), coord.Identity()))
	fmt.Println()

	if err := ui.RunCall(coord); err != nil {
		return err
	}

	coord.Reset()
	if err := <-errCh; err != nil && !errors.Is(err, call.ErrTerminated) {
		return err
	}
	ui.PrintSuccessf("Left session %s", coord.SessionID())
	return nil
}

// captureConstraints requests audio and video, starting on the rear camera
// unless the front one is configured.
func captureConstraints(cfg *config.Config) media.Constraints {
	facing := media.FacingEnvironment
	if cfg.FrontCamera {
		facing = media.FacingUser
	}
	return media.Constraints{Audio: true, Video: true, Facing: facing}
}

// waitInSession blocks until coord has joined its session or Run returned.
func waitInSession(ctx context.Context, coord *call.Coordinator, spinner *ui.SimpleSpinner, errCh <-chan error) error {
	for {
		switch coord.State() {
		case call.StateInSession:
			return nil
		case call.StateConnectedToRelay:
			spinner.UpdateMessage("Joining session...")
		}
		select {
		case <-coord.Updates():
		case err := <-errCh:
			if err == nil {
				err = ctx.Err()
			}
			if err == nil {
				err = call.ErrTerminated
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().String("server", "", "Relay websocket URL (default "+config.DefaultServer+")")
	joinCmd.Flags().StringP("identity", "i", "", "Name announced to the session (default random)")
	joinCmd.Flags().StringP("stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringP("turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringP("turn-user", "u", "", "TURN username")
	joinCmd.Flags().StringP("turn-pass", "p", "", "TURN password")
	joinCmd.Flags().BoolP("relay", "r", false, "Force relay mode")
	joinCmd.Flags().Bool("front-camera", false, "Start with the user-facing camera instead of the rear one")
}
