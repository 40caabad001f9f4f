package dbus

import (
	"fmt"
)

// EmitPlaybackFinished emits the PlaybackFinished signal.
// This signal is emitted when a session's source has drained, or right away
// when the session failed before playing.
func (s *Server) EmitPlaybackFinished(sessionID, outcome string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".PlaybackFinished", sessionID, outcome)
	if err != nil {
		return fmt.Errorf("failed to emit PlaybackFinished signal: %w", err)
	}

	s.logger.Debug("emitted PlaybackFinished signal", "session_id", sessionID, "outcome", outcome)
	return nil
}
