package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcall/internal/call"
	"github.com/BioHazard786/Warpcall/internal/media"
	"github.com/BioHazard786/Warpcall/internal/ui"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"d"},
	Short:   "List capture devices",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner := ui.NewWaitingSpinner("Looking for capture devices...")
		spinner.Start()
		devices, err := media.NewSynthetic().EnumerateDevices(cmd.Context())
		spinner.Stop()
		if err != nil {
			return call.WrapError("enumerate devices", call.ErrMediaUnavailable, err.Error())
		}
		if len(devices) == 0 {
			ui.PrintWarning("No capture devices found")
			return nil
		}
		fmt.Println(ui.TitleStyle.Render("Capture devices"))
		fmt.Println(ui.DeviceTable(devices))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
