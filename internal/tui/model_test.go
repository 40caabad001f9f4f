package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/volume"
)

type fakePlayer struct {
	urls   []string
	result audio.Result
}

func (p *fakePlayer) Play(_ context.Context, url string) audio.Result {
	p.urls = append(p.urls, url)
	res := p.result
	res.URL = url
	return res
}

func newTestModel(t *testing.T, value string) (Model, *volume.Slider, *fakePlayer) {
	t.Helper()
	slider := volume.NewSlider(value)
	player := &fakePlayer{result: audio.Result{
		Outcome:  audio.OutcomePlayed,
		Codec:    audio.CodecWAV,
		Bytes:    2048,
		Duration: 1500 * time.Millisecond,
		Attempts: 1,
	}}
	resolve := func(ref string) (string, error) {
		if ref == "::" {
			return "", errors.New("bad ref")
		}
		return "http://localhost:8000" + ref, nil
	}
	return New(context.Background(), slider, player, resolve), slider, player
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestVolumeKeys(t *testing.T) {
	m, slider, _ := newTestModel(t, "0.5")
	changes := 0
	slider.OnChange(func() { changes++ })

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "0.55", slider.Value())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "0.45", slider.Value())

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	assert.Equal(t, "0", slider.Value())
	assert.Equal(t, 4, changes, "every key press is a user change")
}

func TestVolumeKeys_Clamped(t *testing.T) {
	m, slider, _ := newTestModel(t, "0.98")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "1", slider.Value())

	slider.SetValue("0.02")
	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "0", slider.Value())
}

func TestVolumeKeys_UnparsableRestartsFromZero(t *testing.T) {
	m, slider, _ := newTestModel(t, "loud")
	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "0.05", slider.Value())
}

func TestFocus_TypingGoesToInput(t *testing.T) {
	m, slider, _ := newTestModel(t, "0.5")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusURL, m.focus)

	m = typeText(t, m, "/hl.wav")
	assert.Equal(t, "/hl.wav", m.input.Value())
	assert.Equal(t, "0.5", slider.Value(), "h and l type while the input has focus")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, focusVolume, m.focus)
}

func TestPlay(t *testing.T) {
	m, _, player := newTestModel(t, "0.5")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "/sounds/a.wav")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.playing)
	assert.Contains(t, m.statusMsg, "Fetching")

	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, []string{"http://localhost:8000/sounds/a.wav"}, player.urls)
	assert.False(t, m.playing)
	assert.False(t, m.statusErr)
	assert.Contains(t, m.statusMsg, "Playing /sounds/a.wav")
	assert.Contains(t, m.statusMsg, "2.0 kB")
	assert.Contains(t, m.statusMsg, "1 attempt")
}

func TestPlay_Failure(t *testing.T) {
	m, _, player := newTestModel(t, "0.5")
	player.result = audio.Result{
		Outcome: audio.OutcomeRetriesExhausted,
		Err:     audio.ErrRetriesExhausted,
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "/missing.mp3")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.statusMsg, string(audio.OutcomeRetriesExhausted))
}

func TestPlay_ResolveError(t *testing.T) {
	m, _, player := newTestModel(t, "0.5")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "::")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Empty(t, player.urls)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.statusMsg, "bad ref")
}

func TestPlay_EmptyInput(t *testing.T) {
	m, _, _ := newTestModel(t, "0.5")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, m.statusErr)
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t, "0.5")

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "q")
	assert.Equal(t, "q", m.input.Value(), "q types while the input has focus")

	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestView(t *testing.T) {
	m, _, _ := newTestModel(t, "0.25")
	out := m.View()
	assert.Contains(t, out, "earplay")
	assert.Contains(t, out, "0.25")
	assert.Contains(t, out, "Volume")
}
