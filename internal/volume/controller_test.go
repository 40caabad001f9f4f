package volume

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]string
	err    error
	writes int
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *memStore) Set(key, value string) error {
	if s.err != nil {
		return s.err
	}
	s.writes++
	s.values[key] = value
	return nil
}

type gainRecorder struct {
	levels []float64
}

func (g *gainRecorder) SetGain(level float64) {
	g.levels = append(g.levels, level)
}

func (g *gainRecorder) last() float64 {
	if len(g.levels) == 0 {
		return -1
	}
	return g.levels[len(g.levels)-1]
}

func TestSetup_DefaultsWhenNothingStored(t *testing.T) {
	store := newMemStore()
	gain := &gainRecorder{}
	slider := NewSlider("")

	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))

	assert.Equal(t, "0.5", slider.Value())
	assert.Equal(t, 0.5, gain.last())
	assert.Equal(t, "0.5", store.values[Key])
}

func TestSetup_UsesStoredValueThenChange(t *testing.T) {
	store := newMemStore()
	store.values[Key] = "0.8"
	gain := &gainRecorder{}
	slider := NewSlider("")

	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))

	assert.Equal(t, "0.8", slider.Value())
	assert.Equal(t, 0.8, gain.last())

	slider.Set("0.3")

	assert.Equal(t, 0.3, gain.last())
	assert.Equal(t, "0.3", store.values[Key])
	assert.Equal(t, "0.3", c.Value())
}

func TestSetup_CustomDefault(t *testing.T) {
	gain := &gainRecorder{}
	c := NewController(gain, newMemStore(), WithDefault("0.7"))
	require.NoError(t, c.Setup(NewSlider("")))
	assert.Equal(t, 0.7, gain.last())
}

func TestSetup_Twice(t *testing.T) {
	gain := &gainRecorder{}
	c := NewController(gain, newMemStore())
	first := NewSlider("")
	require.NoError(t, c.Setup(first))

	err := c.Setup(NewSlider(""))
	assert.ErrorIs(t, err, ErrAlreadySetup)
	assert.Len(t, gain.levels, 1, "second setup must not touch the gain")

	first.Set("0.2")
	assert.Equal(t, 0.2, gain.last(), "original binding still active")
}

func TestChange_BeforeSetup(t *testing.T) {
	c := NewController(&gainRecorder{}, newMemStore())
	assert.ErrorIs(t, c.Change(), ErrNotSetup)
	assert.ErrorIs(t, c.Reload(), ErrNotSetup)
}

func TestChange_NoRangeValidation(t *testing.T) {
	store := newMemStore()
	gain := &gainRecorder{}
	slider := NewSlider("")
	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))

	slider.SetValue("1.5")
	require.NoError(t, c.Change())
	assert.Equal(t, 1.5, gain.last())
	assert.Equal(t, "1.5", store.values[Key])

	slider.SetValue("-0.2")
	require.NoError(t, c.Change())
	assert.Equal(t, -0.2, gain.last())
}

func TestChange_InvalidValue(t *testing.T) {
	store := newMemStore()
	gain := &gainRecorder{}
	slider := NewSlider("")
	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))
	writes := store.writes

	slider.SetValue("loud")
	err := c.Change()

	assert.ErrorIs(t, err, ErrInvalidVolume)
	assert.Equal(t, 0.5, gain.last())
	assert.Equal(t, writes, store.writes, "invalid values are not persisted")
	assert.Equal(t, "0.5", store.values[Key])
}

func TestChange_StoreFailure(t *testing.T) {
	store := newMemStore()
	c := NewController(&gainRecorder{}, store)
	require.NoError(t, c.Setup(NewSlider("")))

	store.err = errors.New("disk full")
	err := c.Change()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestReload(t *testing.T) {
	store := newMemStore()
	gain := &gainRecorder{}
	slider := NewSlider("")
	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))
	writes := store.writes

	store.values[Key] = "0.9"
	require.NoError(t, c.Reload())

	assert.Equal(t, "0.9", slider.Value())
	assert.Equal(t, 0.9, gain.last())
	assert.Equal(t, writes, store.writes, "reload never writes back")

	// Unchanged value is a no-op.
	applied := len(gain.levels)
	require.NoError(t, c.Reload())
	assert.Len(t, gain.levels, applied)
}

func TestValue_BeforeSetup(t *testing.T) {
	store := newMemStore()
	c := NewController(&gainRecorder{}, store)
	assert.Equal(t, DefaultValue, c.Value())

	store.values[Key] = "0.4"
	assert.Equal(t, "0.4", c.Value())
}

func TestGainFunc(t *testing.T) {
	var got float64
	var g Gain = GainFunc(func(level float64) { got = level })
	g.SetGain(0.6)
	assert.Equal(t, 0.6, got)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0.5", want: 0.5},
		{in: " 0.25 ", want: 0.25},
		{in: "1", want: 1},
		{in: "", wantErr: true},
		{in: "half", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVolume)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlider_SetFiresHandlers(t *testing.T) {
	s := NewSlider("0.1")
	calls := 0
	s.OnChange(func() { calls++ })
	s.OnChange(func() { calls++ })

	s.SetValue("0.2")
	assert.Equal(t, 0, calls, "programmatic updates are silent")

	s.Set("0.3")
	assert.Equal(t, 2, calls)
	assert.Equal(t, "0.3", s.Value())
}

func TestSetup_InvalidStoredValueFallsBack(t *testing.T) {
	store := newMemStore()
	store.values[Key] = "loud"
	gain := &gainRecorder{}
	slider := NewSlider("")

	c := NewController(gain, store, WithDefault("0.6"))
	require.NoError(t, c.Setup(slider))

	assert.Equal(t, "0.6", slider.Value())
	assert.Equal(t, 0.6, gain.last())
	assert.Equal(t, "0.6", store.values[Key], "the bad value is replaced")
}

func TestSetup_InvalidDefaultFallsBack(t *testing.T) {
	store := newMemStore()
	store.values[Key] = "loud"
	gain := &gainRecorder{}

	c := NewController(gain, store, WithDefault("quiet"))
	require.NoError(t, c.Setup(NewSlider("")))
	assert.Equal(t, 0.5, gain.last())
}

func TestPersist(t *testing.T) {
	store := newMemStore()
	store.values[Key] = "loud"
	gain := &gainRecorder{}
	c := NewController(gain, store)

	require.NoError(t, c.Persist("0.5"))
	assert.Equal(t, "0.5", store.values[Key])
	assert.Empty(t, gain.levels, "persist never touches the gain")

	assert.ErrorIs(t, c.Persist("max"), ErrInvalidVolume)
	assert.Equal(t, "0.5", store.values[Key])
}

func TestReload_InvalidValueKeepsControl(t *testing.T) {
	store := newMemStore()
	gain := &gainRecorder{}
	slider := NewSlider("")
	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))

	store.values[Key] = "loud"
	assert.ErrorIs(t, c.Reload(), ErrInvalidVolume)
	assert.Equal(t, "0.5", slider.Value())
	assert.Equal(t, 0.5, gain.last())
}

// blockingStore holds the first Set of block until release is closed.
type blockingStore struct {
	*memStore
	mu      sync.Mutex
	block   string
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memStore.Get(key)
}

func (s *blockingStore) Set(key, value string) error {
	if value == s.block {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memStore.Set(key, value)
}

type syncGain struct {
	mu    sync.Mutex
	level float64
}

func (g *syncGain) SetGain(level float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.level = level
}

func (g *syncGain) get() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

func TestChange_OverlappingChangesStayConsistent(t *testing.T) {
	store := &blockingStore{
		memStore: newMemStore(),
		block:    "0.3",
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	gain := &syncGain{}
	slider := NewSlider("")
	c := NewController(gain, store)
	require.NoError(t, c.Setup(slider))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		slider.Set("0.3")
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		slider.Set("0.7")
	}()

	// Let the second change queue behind the first before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	stored, _ := store.Get(Key)
	assert.Equal(t, "0.7", slider.Value())
	assert.Equal(t, 0.7, gain.get())
	assert.Equal(t, "0.7", stored, "the stored value matches the live gain")
}
