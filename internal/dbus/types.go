package dbus

const (
	// DBusInterface is the player interface name.
	DBusInterface = "io.github.jmylchreest.earplay.Player"
	// DBusPath is the player object path.
	DBusPath = "/io/github/jmylchreest/earplay/Player"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.earplay"
)

// OutcomeCancelled is reported for sessions cut off by a daemon shutdown.
const OutcomeCancelled = "cancelled"

// PlayReply is the result of a Play call as it crosses the bus.
type PlayReply struct {
	SessionID string
	Outcome   string
	Error     string // Empty on success

	// Finished is closed when playback drains. Server side only.
	Finished <-chan struct{}
}

// Handler serves the exported methods.
type Handler interface {
	Play(url string) PlayReply
	SetVolume(value string) error
	Volume() string
}
