package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

var (
	// ErrDaemonNotRunning is returned by Connect when nobody owns the bus name.
	ErrDaemonNotRunning = errors.New("earplayd is not running")
	// ErrDaemonStopped is returned by PlayAndWait when the daemon leaves the
	// bus before reporting the session.
	ErrDaemonStopped = errors.New("earplayd stopped during playback")
)

// Client calls a running earplayd.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection and checks that the
// daemon owns its bus name.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var hasOwner bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&hasOwner)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to query bus name owner: %w", err)
	}
	if !hasOwner {
		_ = conn.Close()
		return nil, ErrDaemonNotRunning
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Play asks the daemon to play url and returns once playback has started or
// failed.
func (c *Client) Play(ctx context.Context, url string) (PlayReply, error) {
	var reply PlayReply
	err := c.obj.CallWithContext(ctx, DBusInterface+".Play", 0, url).
		Store(&reply.SessionID, &reply.Outcome, &reply.Error)
	if err != nil {
		return PlayReply{}, fmt.Errorf("failed to call Play: %w", err)
	}
	return reply, nil
}

// SetVolume moves the daemon's volume control.
func (c *Client) SetVolume(ctx context.Context, value string) error {
	call := c.obj.CallWithContext(ctx, DBusInterface+".SetVolume", 0, value)
	if call.Err != nil {
		return fmt.Errorf("failed to call SetVolume: %w", call.Err)
	}
	return nil
}

// Volume returns the daemon's volume control value.
func (c *Client) Volume(ctx context.Context) (string, error) {
	var value string
	if err := c.obj.CallWithContext(ctx, DBusInterface+".GetVolume", 0).Store(&value); err != nil {
		return "", fmt.Errorf("failed to call GetVolume: %w", err)
	}
	return value, nil
}

// PlayAndWait plays url and blocks until the daemon reports the session as
// finished, the daemon drops off the bus, or ctx is done. Failed requests
// return as soon as the reply arrives. The returned outcome is the one
// carried by PlaybackFinished.
func (c *Client) PlayAndWait(ctx context.Context, url string) (PlayReply, error) {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchObjectPath(DBusPath),
			dbus.WithMatchInterface(DBusInterface),
			dbus.WithMatchMember("PlaybackFinished"),
		},
		{
			dbus.WithMatchInterface("org.freedesktop.DBus"),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, DBusBusName),
		},
	}
	for _, match := range matches {
		if err := c.conn.AddMatchSignal(match...); err != nil {
			return PlayReply{}, fmt.Errorf("failed to subscribe to signals: %w", err)
		}
		defer func() { _ = c.conn.RemoveMatchSignal(match...) }()
	}

	// Subscribe before calling so a fast finish is not missed.
	signals := make(chan *dbus.Signal, 16)
	c.conn.Signal(signals)
	defer c.conn.RemoveSignal(signals)

	reply, err := c.Play(ctx, url)
	if err != nil || reply.Error != "" {
		return reply, err
	}

	outcome, err := waitFinished(ctx, signals, reply.SessionID)
	if outcome != "" {
		reply.Outcome = outcome
	}
	return reply, err
}

// waitFinished reads signals until sessionID is reported finished.
func waitFinished(ctx context.Context, signals <-chan *dbus.Signal, sessionID string) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return "", ErrDaemonStopped
			}
			if sig == nil {
				continue
			}
			switch sig.Name {
			case DBusInterface + ".PlaybackFinished":
				if len(sig.Body) < 2 {
					continue
				}
				if id, _ := sig.Body[0].(string); id == sessionID {
					outcome, _ := sig.Body[1].(string)
					return outcome, nil
				}
			case "org.freedesktop.DBus.NameOwnerChanged":
				if len(sig.Body) < 3 {
					continue
				}
				name, _ := sig.Body[0].(string)
				newOwner, _ := sig.Body[2].(string)
				if name == DBusBusName && newOwner == "" {
					return OutcomeCancelled, ErrDaemonStopped
				}
			}
		}
	}
}
