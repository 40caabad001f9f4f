package audio

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewSessionID returns a ULID identifying one playback session.
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	return id.String(), nil
}

// Session is a Play call running in the background.
type Session struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// PlayAsync starts Play on its own goroutine. The returned Session can be
// cancelled at any point, including while waiting between retries.
func (p *Player) PlayAsync(ctx context.Context, url string) (*Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()
		s.result = p.play(ctx, id, url, p.policy.MaxRetries)
	}()

	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Cancel aborts the session if it has not started playing yet.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed once the session has a Result.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session has a Result or ctx is done.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
