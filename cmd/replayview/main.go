// Command replayview is a terminal viewer for grid-race replay files: it
// lets a human step forward and backward through the recorded match states
// with the track rendered using lipgloss styling.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/gridrace/internal/replay"
)

type CLI struct {
	ReplayFile string `arg:"" name:"replay_file" help:"Path to a replay file to view."`
}

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "replayview"})

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("replayview"),
		kong.Description("Step through a saved Grid Race replay."),
	)

	if termenv.ColorProfile() == termenv.Ascii {
		logger.Warn("terminal reports no color support; the track will render in plain glyphs")
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	r, err := replay.ReadFile(cli.ReplayFile)
	if err != nil {
		logger.Fatal("failed to read replay file", "path", cli.ReplayFile, "err", err)
	}

	m := newModel(r)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("replay viewer exited with error", "err", err)
	}
}

var (
	wallStyle   = lipgloss.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	goalStyle   = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	startStyle  = lipgloss.NewStyle().Background(lipgloss.Color("2")).Foreground(lipgloss.Color("0"))
	playerStyle = lipgloss.NewStyle().Background(lipgloss.Color("3")).Foreground(lipgloss.Color("0")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginTop(1)

	playerGlyphs = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
)

type keyMap struct {
	Next key.Binding
	Prev key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(key.WithKeys("right", "n", "l"), key.WithHelp("→/n", "next")),
	Prev: key.NewBinding(key.WithKeys("left", "p", "h"), key.WithHelp("←/p", "prev")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

type model struct {
	replay *replay.Replay
	cursor int
}

func newModel(r *replay.Replay) model {
	return model{replay: r}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			if m.cursor < len(m.replay.States)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Prev):
			if m.cursor > 0 {
				m.cursor--
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("turn %d/%d", m.cursor, len(m.replay.States)-1)))
	b.WriteString("\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")
	if m.cursor > 0 {
		step := m.replay.Steps[m.cursor-1]
		if step.Success {
			b.WriteString(fmt.Sprintf("player %d moved (%d, %d)\n", step.PlayerInd, *step.Dx, *step.Dy))
		} else {
			b.WriteString(fmt.Sprintf("player %d: %s\n", step.PlayerInd, step.Status))
		}
	}
	b.WriteString(helpStyle.Render("←/→ step   q quit"))
	return b.String()
}

func (m model) renderGrid() string {
	state := m.replay.States[m.cursor]
	track := m.replay.EnvInfo.Track

	occupied := make(map[[2]int]int, len(state.Players))
	for i, p := range state.Players {
		occupied[[2]int{p.X, p.Y}] = i
	}

	var b strings.Builder
	for row := range track {
		for col, v := range track[row] {
			if idx, ok := occupied[[2]int{row, col}]; ok {
				glyph := "*"
				if idx < len(playerGlyphs) {
					glyph = playerGlyphs[idx]
				}
				b.WriteString(playerStyle.Render(glyph))
				continue
			}
			b.WriteString(cellGlyph(v))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellGlyph(v int) string {
	switch v {
	case -1:
		return wallStyle.Render(" ")
	case 1:
		return startStyle.Render(" ")
	case 100:
		return goalStyle.Render(" ")
	default:
		return emptyStyle.Render(".")
	}
}
