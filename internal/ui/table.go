package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/BioHazard786/Warpcall/internal/call"
)

// ParticipantTable renders the session members using lipgloss/table.
type ParticipantTable struct {
	participants []call.Participant
	selected     int
}

func NewParticipantTable(participants []call.Participant, selected int) *ParticipantTable {
	return &ParticipantTable{participants: participants, selected: selected}
}

// View renders the table as a string
func (t *ParticipantTable) View() string {
	if len(t.participants) == 0 {
		return MutedStyle.Render("No participants")
	}

	headers := []string{"", "Participant", "Mic", "Camera", "Volume", "Link", "Packets"}

	var rows [][]string
	for i, p := range t.participants {
		cursor := " "
		if i == t.selected {
			cursor = ">"
		}
		name := p.ID
		link := p.Connection
		if p.Local {
			name += " (you)"
			link = "-"
		}
		rows = append(rows, []string{
			cursor,
			name,
			flag(p.Mic, IconMicOn, IconMicOff),
			flag(p.Camera, IconCamOn, IconCamOff),
			fmt.Sprintf("%3.0f%%", p.Volume*100),
			link,
			fmt.Sprintf("%d", p.Packets),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row == t.selected:
				return TableSelectedStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func flag(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}
