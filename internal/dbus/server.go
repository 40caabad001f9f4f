package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Server implements the earplay player D-Bus interface.
type Server struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	handler Handler

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	pending map[string]struct{} // sessions still owed a PlaybackFinished

	emit func(sessionID, outcome string) error
}

// NewServer creates a new Server dispatching to handler.
func NewServer(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:  logger,
		handler: handler,
		stopCh:  make(chan struct{}),
		pending: make(map[string]struct{}),
	}
	s.emit = s.EmitPlaybackFinished
	return s
}

// Start connects to the session bus and exports the player service.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	// Export the player object
	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	// Export introspection data
	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: playerMethods(),
				Signals: playerSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// Request the bus name
	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("D-Bus player server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name. Sessions still playing are reported as
// cancelled first so waiting clients are not left hanging.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopCh)
	s.running = false

	for id := range s.pending {
		delete(s.pending, id)
		s.emitFinished(PlayReply{SessionID: id, Outcome: OutcomeCancelled})
	}

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus player server stopped")
	return nil
}

// Play fetches and plays url.
// D-Bus method: Play(s) -> (sss)
func (s *Server) Play(url string) (string, string, string, *dbus.Error) {
	s.logger.Debug("Play called", "url", url)

	reply := s.handler.Play(url)
	s.notifyWhenFinished(reply)

	return reply.SessionID, reply.Outcome, reply.Error, nil
}

// SetVolume moves the volume control.
// D-Bus method: SetVolume(s) -> nothing
func (s *Server) SetVolume(value string) *dbus.Error {
	s.logger.Debug("SetVolume called", "value", value)

	if err := s.handler.SetVolume(value); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetVolume returns the current volume control value.
// D-Bus method: GetVolume() -> s
func (s *Server) GetVolume() (string, *dbus.Error) {
	return s.handler.Volume(), nil
}

// notifyWhenFinished emits PlaybackFinished once the session ends.
// Failed sessions end immediately.
func (s *Server) notifyWhenFinished(reply PlayReply) {
	if reply.Finished == nil {
		s.emitFinished(reply)
		return
	}

	s.mu.Lock()
	s.pending[reply.SessionID] = struct{}{}
	stopCh := s.stopCh
	s.mu.Unlock()

	go func() {
		select {
		case <-reply.Finished:
			if s.claim(reply.SessionID) {
				s.emitFinished(reply)
			}
		case <-stopCh:
		}
	}()
}

// claim removes id from the pending set. Only the caller that removes it
// emits the signal.
func (s *Server) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

// Pending returns the number of sessions not yet reported as finished.
func (s *Server) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *Server) emitFinished(reply PlayReply) {
	if err := s.emit(reply.SessionID, reply.Outcome); err != nil {
		s.logger.Warn("failed to emit PlaybackFinished signal", "session_id", reply.SessionID, "error", err)
	}
}

// playerMethods returns the D-Bus method introspection data.
func playerMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Play",
			Args: []introspect.Arg{
				{Name: "url", Type: "s", Direction: "in"},
				{Name: "session_id", Type: "s", Direction: "out"},
				{Name: "outcome", Type: "s", Direction: "out"},
				{Name: "error", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "SetVolume",
			Args: []introspect.Arg{
				{Name: "value", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "GetVolume",
			Args: []introspect.Arg{
				{Name: "value", Type: "s", Direction: "out"},
			},
		},
	}
}

// playerSignals returns the D-Bus signal introspection data.
func playerSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "PlaybackFinished",
			Args: []introspect.Arg{
				{Name: "session_id", Type: "s"},
				{Name: "outcome", Type: "s"},
			},
		},
	}
}
