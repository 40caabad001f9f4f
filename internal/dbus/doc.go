// Package dbus exposes the earplay daemon on the D-Bus session bus.
// The server exports Play, SetVolume and GetVolume on
// io.github.jmylchreest.earplay.Player and emits PlaybackFinished when a
// session ends. The client is what the earplay CLI uses to reach it.
package dbus
