package ui

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BioHazard786/Warpcall/internal/media"
)

// DeviceTable renders capture devices as a go-pretty table.
func DeviceTable(devices []media.DeviceInfo) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatUpper
	t.AppendHeader(table.Row{"#", "Kind", "Label", "Facing", "Device ID"})

	for i, d := range devices {
		facing := string(d.Facing)
		if facing == "" {
			facing = "-"
		}
		t.AppendRow(table.Row{i + 1, kindLabel(d.Kind), d.Label, facing, d.DeviceID})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(devices)})
	return t.Render()
}

func kindLabel(k media.DeviceKind) string {
	switch k {
	case media.AudioInput:
		return IconMicOn + " microphone"
	case media.VideoInput:
		return IconCamOn + " camera"
	}
	return string(k)
}
