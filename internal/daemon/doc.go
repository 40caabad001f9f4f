// Package daemon provides the main orchestration for earplayd.
//
// A Daemon owns the single audio output for the session, the player that
// routes through it and the volume control bound to the stored preference.
// It serves the D-Bus handler interface and re-applies the volume when the
// preference file is changed by another process.
package daemon
