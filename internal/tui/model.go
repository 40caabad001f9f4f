// Package tui provides the BubbleTea-based volume and playback interface.
package tui

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/volume"
)

// Step is how far one key press moves the volume.
const Step = 0.05

// Player starts playback of an already resolved URL.
type Player interface {
	Play(ctx context.Context, url string) audio.Result
}

// Resolver turns what the user typed into a URL to fetch.
type Resolver func(ref string) (string, error)

type focusArea int

const (
	focusVolume focusArea = iota
	focusURL
)

// Model is the main TUI model.
type Model struct {
	ctx     context.Context
	slider  *volume.Slider
	player  Player
	resolve Resolver

	// Components
	bar   progress.Model
	input textinput.Model
	help  help.Model

	// State
	focus     focusArea
	playing   bool
	statusMsg string
	statusErr bool
	width     int

	keys KeyMap
}

type playResultMsg struct {
	ref    string
	result audio.Result
	err    error
}

// New creates a Model driving slider. Playback requests go through player
// after resolve; a nil resolve passes input through unchanged.
func New(ctx context.Context, slider *volume.Slider, player Player, resolve Resolver) Model {
	if resolve == nil {
		resolve = func(ref string) (string, error) { return ref, nil }
	}

	input := textinput.New()
	input.Placeholder = "/sounds/chime.wav"
	input.Prompt = "> "
	input.CharLimit = 2048

	return Model{
		ctx:     ctx,
		slider:  slider,
		player:  player,
		resolve: resolve,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		input:   input,
		help:    help.New(),
		focus:   focusVolume,
		width:   60,
		keys:    DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 10)
		m.input.Width = max(msg.Width-12, 10)
		m.help.Width = msg.Width
		return m, nil

	case playResultMsg:
		m.playing = false
		m.setResult(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if key.Matches(msg, m.keys.Focus) {
		return m.toggleFocus()
	}

	if m.focus == focusURL {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m.toggleFocus()
		case key.Matches(msg, m.keys.Play):
			return m.startPlay()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Louder):
		m.nudge(Step)
	case key.Matches(msg, m.keys.Quieter):
		m.nudge(-Step)
	case key.Matches(msg, m.keys.Mute):
		m.slider.Set("0")
	case key.Matches(msg, m.keys.Play):
		return m.startPlay()
	}
	return m, nil
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == focusVolume {
		m.focus = focusURL
		return m, m.input.Focus()
	}
	m.focus = focusVolume
	m.input.Blur()
	return m, nil
}

// nudge moves the slider by delta, clamped to [0, 1]. An unparsable value
// restarts from zero.
func (m Model) nudge(delta float64) {
	current, err := volume.Parse(m.slider.Value())
	if err != nil {
		current = 0
	}
	next := math.Round((current+delta)*100) / 100
	next = math.Min(math.Max(next, 0), 1)
	m.slider.Set(strconv.FormatFloat(next, 'f', -1, 64))
}

func (m Model) startPlay() (tea.Model, tea.Cmd) {
	ref := strings.TrimSpace(m.input.Value())
	if ref == "" {
		m.statusMsg = "Enter a URL to play"
		m.statusErr = true
		return m, nil
	}
	if m.playing {
		return m, nil
	}

	m.playing = true
	m.statusMsg = "Fetching " + ref + "..."
	m.statusErr = false
	return m, m.playCmd(ref)
}

func (m Model) playCmd(ref string) tea.Cmd {
	ctx, player, resolve := m.ctx, m.player, m.resolve
	return func() tea.Msg {
		url, err := resolve(ref)
		if err != nil {
			return playResultMsg{ref: ref, err: err}
		}
		return playResultMsg{ref: ref, result: player.Play(ctx, url)}
	}
}

func (m *Model) setResult(msg playResultMsg) {
	if msg.err != nil {
		m.statusMsg = "Invalid URL: " + msg.err.Error()
		m.statusErr = true
		return
	}

	res := msg.result
	if !res.OK() {
		m.statusMsg = fmt.Sprintf("%s: %v", res.Outcome, res.Err)
		m.statusErr = true
		return
	}

	m.statusMsg = fmt.Sprintf("Playing %s (%s, %s, %s, %s)",
		msg.ref, res.Codec, humanize.Bytes(uint64(res.Bytes)),
		res.Duration.Round(10*time.Millisecond), english.Plural(res.Attempts, "attempt", ""))
	m.statusErr = false
}

// View implements tea.Model.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)
	labelStyle := lipgloss.NewStyle().
		Width(8).
		Foreground(lipgloss.Color("8"))
	focusedStyle := labelStyle.
		Foreground(lipgloss.Color("10")).
		Bold(true)

	label := func(text string, area focusArea) string {
		if m.focus == area {
			return focusedStyle.Render(text)
		}
		return labelStyle.Render(text)
	}

	s := titleStyle.Render("earplay") + "\n"

	value := m.slider.Value()
	level, err := volume.Parse(value)
	if err != nil {
		level = 0
	}
	s += label("Volume", focusVolume) + m.bar.ViewAs(math.Min(math.Max(level, 0), 1)) + " " + value + "\n"
	s += label("Play", focusURL) + m.input.View() + "\n\n"

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += statusStyle.Render(m.statusMsg) + "\n"
	}

	s += "\n" + m.help.View(m.keys)
	return s
}

// RunOptions contains options for running the TUI.
type RunOptions struct {
	Slider  *volume.Slider
	Player  Player
	Resolve Resolver
}

// Run starts the TUI and blocks until it exits or ctx is cancelled.
func Run(ctx context.Context, opts RunOptions) error {
	m := New(ctx, opts.Slider, opts.Player, opts.Resolve)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
