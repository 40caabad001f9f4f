package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/require"
)

// fakeSink records what the Output hands to the device and lets tests pull
// samples by hand.
type fakeSink struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	bufferSize int
	streamers  []beep.Streamer
	closed     bool
	initErr    error
}

func (s *fakeSink) Init(sampleRate beep.SampleRate, bufferSize int) error {
	if s.initErr != nil {
		return s.initErr
	}
	s.sampleRate = sampleRate
	s.bufferSize = bufferSize
	return nil
}

func (s *fakeSink) Play(st ...beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamers = append(s.streamers, st...)
}

func (s *fakeSink) Lock()   { s.mu.Lock() }
func (s *fakeSink) Unlock() { s.mu.Unlock() }

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// pull streams n frames out of the device the way the speaker would.
func (s *fakeSink) pull(n int) [][2]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][2]float64, n)
	for _, st := range s.streamers {
		st.Stream(out)
	}
	return out
}

func newTestOutput(t *testing.T) (*Output, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	out, err := NewOutput(sink, 0)
	require.NoError(t, err)
	t.Cleanup(out.Close)
	return out, sink
}

// wavBytes builds a 16-bit mono PCM WAV file.
func wavBytes(sampleRate int, samples []int16) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

// constantWAV returns n frames at half of full scale.
func constantWAV(sampleRate, n int) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 1 << 14
	}
	return wavBytes(sampleRate, samples)
}

// recordingWaiter returns immediately and remembers every requested delay.
type recordingWaiter struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *recordingWaiter) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *recordingWaiter) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

// silentMP3 returns n MPEG-1 Layer III frames (128 kbit/s, 44.1 kHz,
// stereo, no CRC) whose side info and main data are all zero, so each
// decodes to 1152 frames of silence.
func silentMP3(n int) []byte {
	const frameLen = 144 * 128000 / 44100 // 417 bytes, no padding
	header := []byte{0xFF, 0xFB, 0x90, 0x00}

	out := make([]byte, 0, n*frameLen)
	for i := 0; i < n; i++ {
		frame := make([]byte, frameLen)
		copy(frame, header)
		out = append(out, frame...)
	}
	return out
}
