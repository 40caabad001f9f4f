// Package volume binds a volume control to the shared output gain and to
// persisted preferences.
package volume
