package volume

import "sync"

// Control is a user-facing volume control such as a slider.
// Values are strings, the same form they are persisted in.
type Control interface {
	// Value returns the control's current value.
	Value() string
	// SetValue changes the displayed value without firing change handlers.
	SetValue(v string)
	// OnChange registers a handler run after each user change.
	OnChange(handler func())
}

// Slider is an in-memory Control.
type Slider struct {
	mu       sync.RWMutex
	value    string
	handlers []func()
}

// NewSlider returns a Slider showing value.
func NewSlider(value string) *Slider {
	return &Slider{value: value}
}

func (s *Slider) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *Slider) SetValue(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

func (s *Slider) OnChange(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Set moves the slider as a user would and fires the change handlers.
func (s *Slider) Set(v string) {
	s.mu.Lock()
	s.value = v
	handlers := append([]func(){}, s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}
