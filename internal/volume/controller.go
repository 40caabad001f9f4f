package volume

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Key is the preference key the volume is persisted under.
const Key = "volume"

// DefaultValue is used when nothing has been persisted yet.
const DefaultValue = "0.5"

var (
	// ErrAlreadySetup is returned by a second Setup call.
	ErrAlreadySetup = errors.New("volume control already set up")

	// ErrNotSetup is returned by Change before Setup.
	ErrNotSetup = errors.New("volume control not set up")

	// ErrInvalidVolume is returned for control values that are not numbers.
	ErrInvalidVolume = errors.New("invalid volume")
)

// Gain is the live output gain.
type Gain interface {
	SetGain(level float64)
}

// GainFunc adapts a function to Gain.
type GainFunc func(level float64)

// SetGain calls f(level).
func (f GainFunc) SetGain(level float64) {
	f(level)
}

// Store persists string preferences.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Controller keeps a Control, the output gain and the stored preference in
// step.
type Controller struct {
	mu           sync.Mutex
	changeMu     sync.Mutex // held across read, apply and persist
	logger       *slog.Logger
	gain         Gain
	store        Store
	defaultValue string
	control      Control
}

// Option configures a Controller.
type Option func(*Controller)

// WithDefault sets the value used when nothing is stored.
func WithDefault(v string) Option {
	return func(c *Controller) {
		if v != "" {
			c.defaultValue = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a Controller. Setup must be called before Change.
func NewController(gain Gain, store Store, opts ...Option) *Controller {
	c := &Controller{
		logger:       slog.Default(),
		gain:         gain,
		store:        store,
		defaultValue: DefaultValue,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Setup binds control: it shows the stored volume (or the default), applies
// it to the gain and registers Change for future user changes.
func (c *Controller) Setup(control Control) error {
	c.mu.Lock()
	if c.control != nil {
		c.mu.Unlock()
		return ErrAlreadySetup
	}
	c.control = control
	c.mu.Unlock()

	control.SetValue(c.initial())
	control.OnChange(func() {
		if err := c.Change(); err != nil {
			c.logger.Warn("failed to change volume", "value", control.Value(), "error", err)
		}
	})

	return c.Change()
}

// Change applies the control's current value to the gain and persists it.
func (c *Controller) Change() error {
	control, err := c.bound()
	if err != nil {
		return err
	}

	c.changeMu.Lock()
	defer c.changeMu.Unlock()

	value := control.Value()
	if err := c.apply(value); err != nil {
		return err
	}

	if err := c.store.Set(Key, value); err != nil {
		return fmt.Errorf("failed to persist volume: %w", err)
	}
	return nil
}

// Persist validates value and stores it without touching a control or the
// gain. It works whatever is currently stored, so it can replace a
// corrupted preference.
func (c *Controller) Persist(value string) error {
	if _, err := Parse(value); err != nil {
		return err
	}

	c.changeMu.Lock()
	defer c.changeMu.Unlock()

	if err := c.store.Set(Key, value); err != nil {
		return fmt.Errorf("failed to persist volume: %w", err)
	}
	return nil
}

// Reload re-reads the stored volume into the control and the gain without
// writing it back. Used when another process changed the preference.
func (c *Controller) Reload() error {
	control, err := c.bound()
	if err != nil {
		return err
	}

	c.changeMu.Lock()
	defer c.changeMu.Unlock()

	value := c.stored()
	if value == control.Value() {
		return nil
	}
	if _, err := Parse(value); err != nil {
		return err
	}

	control.SetValue(value)
	return c.apply(value)
}

// Value returns the control's value, or the stored one before Setup.
func (c *Controller) Value() string {
	control, err := c.bound()
	if err != nil {
		return c.stored()
	}
	return control.Value()
}

func (c *Controller) bound() (Control, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.control == nil {
		return nil, ErrNotSetup
	}
	return c.control, nil
}

func (c *Controller) stored() string {
	if v, ok := c.store.Get(Key); ok && v != "" {
		return v
	}
	return c.defaultValue
}

// initial returns the value Setup shows. An unparsable stored value falls
// back to the default, then to DefaultValue.
func (c *Controller) initial() string {
	value := c.stored()
	if _, err := Parse(value); err == nil {
		return value
	}

	fallback := c.defaultValue
	if _, err := Parse(fallback); err != nil {
		fallback = DefaultValue
	}
	c.logger.Warn("ignoring invalid stored volume", "volume", value, "fallback", fallback)
	return fallback
}

func (c *Controller) apply(value string) error {
	level, err := Parse(value)
	if err != nil {
		return err
	}

	c.gain.SetGain(level)
	c.logger.Debug("volume applied", "volume", value)
	return nil
}

// Parse converts a control value to a linear gain. Range is not checked.
func Parse(value string) (float64, error) {
	level, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidVolume, value, err)
	}
	return level, nil
}
