// Package tui is the terminal player: a status bar with transport controls
// and switchable queue, equalizer and lyrics views.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gigurra/tunes/cmd/common"
	"github.com/gigurra/tunes/cmd/player/engine"
	"github.com/gigurra/tunes/cmd/player/lyrics"
)

// Player is the part of the engine controller the UI drives.
type Player interface {
	State() engine.State
	Subscribe() (<-chan engine.State, func())

	PlayTrack(track engine.Track)
	TogglePlay()
	PlayNext()
	PlayPrevious()
	Seek(seconds float64)
	SetVolume(volume float64)
	ToggleMute()
	ToggleShuffle()
	CycleRepeatMode()
	UpdateEqualizerBand(index int, gain float64)
	ApplyPreset(p engine.Preset)
}

const (
	seekStep   = 5.0
	volumeStep = 0.05
	gainStep   = 1.0
	maxGain    = 12.0
)

type view int

const (
	viewQueue view = iota
	viewEqualizer
	viewLyrics
	numViews
)

func (v view) String() string {
	switch v {
	case viewQueue:
		return "Queue"
	case viewEqualizer:
		return "Equalizer"
	case viewLyrics:
		return "Lyrics"
	default:
		return "?"
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	artistStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTab     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type stateMsg engine.State

type closedMsg struct{}

// Model is the bubbletea model. It never mutates player state directly; every
// change goes through the player and comes back as a published snapshot.
type Model struct {
	player Player
	lyrics *lyrics.Overrides
	states <-chan engine.State
	cancel func()

	state  engine.State
	view   view
	cursor int // queue row
	band   int
	width  int
	height int
}

// New subscribes to player. Call Close when the model is no longer used.
func New(player Player, overrides *lyrics.Overrides) Model {
	if overrides == nil {
		overrides = lyrics.NewOverrides()
	}
	states, cancel := player.Subscribe()
	return Model{
		player: player,
		lyrics: overrides,
		states: states,
		cancel: cancel,
		state:  player.State(),
		width:  80,
		height: 24,
	}
}

// Close ends the subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run shows the player until the user quits or the player closes.
func Run(player Player, overrides *lyrics.Overrides) error {
	m := New(player, overrides)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.states)
}

func waitForState(states <-chan engine.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = engine.State(msg)
		m.cursor = clampIndex(m.cursor, len(m.state.Queue))
		return m, waitForState(m.states)

	case closedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.state
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.player.TogglePlay()
	case "n":
		m.player.PlayNext()
	case "p":
		m.player.PlayPrevious()
	case "left":
		m.player.Seek(max(0, st.CurrentTime-seekStep))
	case "right":
		m.player.Seek(st.CurrentTime + seekStep)
	case "+", "=":
		m.player.SetVolume(min(st.Volume+volumeStep, 1))
	case "-", "_":
		m.player.SetVolume(max(0, st.Volume-volumeStep))
	case "m":
		m.player.ToggleMute()
	case "s":
		m.player.ToggleShuffle()
	case "r":
		m.player.CycleRepeatMode()
	case "tab":
		m.view = (m.view + 1) % numViews
	case "shift+tab":
		m.view = (m.view + numViews - 1) % numViews
	case "up", "k":
		if m.view == viewEqualizer {
			m.band = max(0, m.band-1)
		} else {
			m.cursor = max(0, m.cursor-1)
		}
	case "down", "j":
		if m.view == viewEqualizer {
			m.band = min(engine.NumBands-1, m.band+1)
		} else {
			m.cursor = clampIndex(m.cursor+1, len(st.Queue))
		}
	case "h", "l":
		if m.view == viewEqualizer {
			delta := gainStep
			if key == "h" {
				delta = -gainStep
			}
			gain := st.EqualizerGains[m.band] + delta
			m.player.UpdateEqualizerBand(m.band, max(-maxGain, min(gain, maxGain)))
		}
	case "enter":
		if m.view == viewQueue && m.cursor < len(st.Queue) {
			m.player.PlayTrack(st.Queue[m.cursor])
		}
	case "1", "2", "3", "4", "5", "6", "7", "8":
		if i := int(key[0] - '1'); i < len(engine.Presets) {
			m.player.ApplyPreset(engine.Presets[i])
		}
	}
	return m, nil
}

func clampIndex(i, n int) int {
	return max(0, min(i, n-1))
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	bodyHeight := max(3, m.height-9)
	switch m.view {
	case viewQueue:
		b.WriteString(m.renderQueue(bodyHeight))
	case viewEqualizer:
		b.WriteString(m.renderEqualizer())
	case viewLyrics:
		b.WriteString(m.renderLyrics(bodyHeight))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderNowPlaying() string {
	st := m.state
	var b strings.Builder

	if st.CurrentTrack == nil {
		b.WriteString(dimStyle.Render("  Nothing playing"))
		b.WriteString("\n\n")
	} else {
		icon := "▶"
		if !st.IsPlaying {
			icon = "⏸"
		}
		b.WriteString("  " + icon + " ")
		b.WriteString(titleStyle.Render(truncate(st.CurrentTrack.Title, m.width-6)))
		b.WriteString("\n    ")
		b.WriteString(artistStyle.Render(truncate(st.CurrentTrack.Artist+" · "+st.CurrentTrack.Album, m.width-6)))
		b.WriteString("\n")
	}

	elapsed := common.FormatTime(st.CurrentTime)
	total := common.FormatTime(st.Duration)
	barWidth := max(10, m.width-len(elapsed)-len(total)-8)
	b.WriteString(fmt.Sprintf("  %s %s %s\n", elapsed, progressBar(st.CurrentTime, st.Duration, barWidth), total))

	b.WriteString("  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	st := m.state
	vol := fmt.Sprintf("vol %3d%%", int(math.Round(st.Volume*100)))
	if st.IsMuted {
		vol = "vol muted"
	}
	shuffle := dimStyle.Render("shuffle")
	if st.IsShuffled {
		shuffle = activeStyle.Render("shuffle")
	}
	repeat := dimStyle.Render("repeat off")
	if st.RepeatMode != engine.RepeatOff {
		repeat = activeStyle.Render("repeat " + string(st.RepeatMode))
	}
	return strings.Join([]string{vol, shuffle, repeat}, "  ")
}

func progressBar(current, total float64, width int) string {
	frac := 0.0
	if total > 0 && !math.IsNaN(current) {
		frac = max(0, min(current/total, 1))
	}
	filled := int(math.Round(frac * float64(width)))
	return activeStyle.Render(strings.Repeat("━", filled)) + dimStyle.Render(strings.Repeat("─", width-filled))
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, numViews)
	for v := range numViews {
		style := tabStyle
		if v == m.view {
			style = activeTab
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	return "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderQueue(height int) string {
	st := m.state
	if len(st.Queue) == 0 {
		return dimStyle.Render("  Queue is empty") + "\n"
	}

	current := st.QueueIndex()
	start := max(0, min(m.cursor-height/2, len(st.Queue)-height))
	end := min(len(st.Queue), start+height)
	titleWidth := max(10, m.width-24)

	var b strings.Builder
	for i := start; i < end; i++ {
		t := st.Queue[i]
		marker := "  "
		if i == current {
			marker = "▶ "
		}
		row := fmt.Sprintf("%s%3d  %s %6s", marker, i+1,
			padRight(t.Title+" - "+t.Artist, titleWidth), common.FormatTime(t.Duration))
		switch {
		case i == m.cursor:
			row = selectedStyle.Render(row)
		case i == current:
			row = activeStyle.Render(row)
		}
		b.WriteString("  " + row + "\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d tracks, %s", len(st.Queue), common.PlaylistDuration(st.Queue))))
	b.WriteString("\n")
	return b.String()
}

// barHeight is the number of rows one equalizer bar spans from -12 to +12 dB.
const barHeight = 13

func (m Model) renderEqualizer() string {
	gains := m.state.EqualizerGains
	var b strings.Builder

	for row := range barHeight {
		level := maxGain - float64(row)*(2*maxGain/float64(barHeight-1))
		label := "      "
		switch row {
		case 0:
			label = "+12 dB"
		case barHeight / 2:
			label = "  0 dB"
		case barHeight - 1:
			label = "-12 dB"
		}
		b.WriteString("  " + dimStyle.Render(label) + " ")
		for i, g := range gains {
			cell := "   "
			if (level > 0 && g >= level) || (level < 0 && g <= level) {
				cell = "███"
			} else if level == 0 {
				cell = "───"
			}
			if i == m.band {
				cell = activeStyle.Render(cell)
			}
			b.WriteString("  " + cell + "  ")
		}
		b.WriteString("\n")
	}

	b.WriteString("         ")
	for i, band := range engine.Bands {
		label := padRight(band.FrequencyLabel(), 7)
		if i == m.band {
			label = selectedStyle.Render(label)
		}
		b.WriteString(label)
	}
	b.WriteString("\n         ")
	for _, g := range gains {
		b.WriteString(padRight(fmt.Sprintf("%+.0f", g), 7))
	}
	b.WriteString("\n\n  ")

	presets := make([]string, 0, len(engine.Presets))
	for i, p := range engine.Presets {
		name := fmt.Sprintf("%d %s", i+1, p.Name)
		if p.Gains == gains {
			name = activeStyle.Render(name)
		} else {
			name = dimStyle.Render(name)
		}
		presets = append(presets, name)
	}
	b.WriteString(strings.Join(presets, "  "))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLyrics(height int) string {
	st := m.state
	if st.CurrentTrack == nil {
		return dimStyle.Render("  Nothing playing") + "\n"
	}
	lines := m.lyrics.For(*st.CurrentTrack)
	if len(lines) == 0 {
		return dimStyle.Render("  No lyrics for this track") + "\n"
	}

	active := lyrics.ActiveIndex(lines, st.CurrentTime)
	start := max(0, min(active-height/2, len(lines)-height))
	end := min(len(lines), start+height)

	var b strings.Builder
	for i := start; i < end; i++ {
		text := truncate(lines[i].Text, m.width-4)
		if i == active {
			b.WriteString("  " + activeStyle.Render(text) + "\n")
		} else {
			b.WriteString("  " + dimStyle.Render(text) + "\n")
		}
	}
	return b.String()
}

func (m Model) helpLine() string {
	keys := "  space play • n/p next/prev • ←/→ seek • +/- vol • m mute • s shuffle • r repeat • tab view • q quit"
	switch m.view {
	case viewQueue:
		return keys + "\n  ↑/↓ select • enter play"
	case viewEqualizer:
		return keys + "\n  ↑/↓ band • h/l gain • 1-8 presets"
	default:
		return keys
	}
}
