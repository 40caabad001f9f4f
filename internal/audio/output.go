package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// DefaultSampleRate is the rate the output device runs at unless configured.
const DefaultSampleRate = beep.SampleRate(44100)

// DefaultBufferSize is the device buffer length.
const DefaultBufferSize = 100 * time.Millisecond

// Output is the shared audio output: one device, one mixer and one gain
// stage that every playback session routes through.
type Output struct {
	mu     sync.Mutex
	logger *slog.Logger
	sink   Sink

	sampleRate beep.SampleRate
	mixer      *beep.Mixer
	gain       *effects.Volume
	level      float64

	active atomic.Int32
	closed bool

	// pendingMu is never held while taking the sink lock.
	pendingMu sync.Mutex
	pending   map[*playback]struct{}
}

// playback is one connected source. finish runs once, either from the
// mixer when the source drains or from Close.
type playback struct {
	done chan struct{}
	once sync.Once
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithSampleRate sets the device sample rate.
func WithSampleRate(sr beep.SampleRate) OutputOption {
	return func(o *Output) {
		if sr > 0 {
			o.sampleRate = sr
		}
	}
}

// WithOutputLogger sets the logger.
func WithOutputLogger(logger *slog.Logger) OutputOption {
	return func(o *Output) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOutput initializes the sink and starts draining the shared mixer
// through the gain stage. The gain starts at unity.
func NewOutput(sink Sink, bufferSize time.Duration, opts ...OutputOption) (*Output, error) {
	o := &Output{
		logger:     slog.Default(),
		sink:       sink,
		sampleRate: DefaultSampleRate,
		mixer:      &beep.Mixer{},
		level:      1.0,
		pending:    make(map[*playback]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if err := sink.Init(o.sampleRate, o.sampleRate.N(bufferSize)); err != nil {
		return nil, fmt.Errorf("failed to initialize audio output: %w", err)
	}

	// Infinite silence keeps the mixer alive between sessions.
	o.mixer.Add(beep.Silence(-1))
	o.gain = &effects.Volume{
		Streamer: o.mixer,
		Base:     2,
	}
	applyLevel(o.gain, o.level)
	sink.Play(o.gain)

	o.logger.Debug("audio output initialized", "sample_rate", o.sampleRate, "buffer", bufferSize)
	return o, nil
}

// SampleRate returns the rate sources are resampled to.
func (o *Output) SampleRate() beep.SampleRate {
	return o.sampleRate
}

// SetGain sets the linear gain applied to everything routed through the
// output. Values are not clamped; anything at or below zero is silent.
func (o *Output) SetGain(level float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.level = level
	if o.closed {
		return
	}

	o.sink.Lock()
	applyLevel(o.gain, level)
	o.sink.Unlock()

	o.logger.Debug("gain set", "gain", level)
}

// Gain returns the current linear gain.
func (o *Output) Gain() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// Active returns the number of sources still playing.
func (o *Output) Active() int {
	return int(o.active.Load())
}

// Connect starts a one-shot source reading the whole buffer. The returned
// channel is closed when the source has drained.
func (o *Output) Connect(buf *beep.Buffer) (<-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrOutputClosed
	}

	var source beep.Streamer = buf.Streamer(0, buf.Len())
	if buf.Format().SampleRate != o.sampleRate {
		source = beep.Resample(4, buf.Format().SampleRate, o.sampleRate, source)
	}

	pb := &playback{done: make(chan struct{})}
	o.active.Add(1)
	o.pendingMu.Lock()
	o.pending[pb] = struct{}{}
	o.pendingMu.Unlock()

	session := beep.Seq(source, beep.Callback(func() { o.finish(pb) }))

	o.sink.Lock()
	o.mixer.Add(session)
	o.sink.Unlock()

	return pb.done, nil
}

func (o *Output) finish(pb *playback) {
	pb.once.Do(func() {
		o.pendingMu.Lock()
		delete(o.pending, pb)
		o.pendingMu.Unlock()

		o.active.Add(-1)
		close(pb.done)
	})
}

// Close stops all sources and releases the device. Sources cut off here
// are finished: their channels close and Active drops to zero.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true

	o.sink.Lock()
	o.mixer.Clear()
	o.sink.Unlock()
	o.sink.Close()

	o.pendingMu.Lock()
	cut := make([]*playback, 0, len(o.pending))
	for pb := range o.pending {
		cut = append(cut, pb)
	}
	o.pendingMu.Unlock()
	for _, pb := range cut {
		o.finish(pb)
	}

	o.logger.Debug("audio output closed", "cut", len(cut))
}

// applyLevel maps a linear gain onto beep's exponential volume.
func applyLevel(v *effects.Volume, level float64) {
	if level <= 0 || math.IsNaN(level) {
		v.Silent = true
		v.Volume = 0
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}
