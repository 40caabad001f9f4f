package audio

import (
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Sink is the device an Output drains into.
// Lock and Unlock guard streamers that the device is currently pulling from.
type Sink interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// SpeakerSink plays through the system audio device via beep's speaker.
// The speaker is process-global, so only one SpeakerSink should be initialized.
type SpeakerSink struct{}

// NewSpeakerSink returns a Sink backed by the beep speaker.
func NewSpeakerSink() *SpeakerSink {
	return &SpeakerSink{}
}

func (SpeakerSink) Init(sampleRate beep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (SpeakerSink) Play(s ...beep.Streamer) {
	speaker.Play(s...)
}

func (SpeakerSink) Lock() {
	speaker.Lock()
}

func (SpeakerSink) Unlock() {
	speaker.Unlock()
}

func (SpeakerSink) Close() {
	speaker.Close()
}
