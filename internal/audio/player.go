package audio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Outcome is the terminal state of one Play call.
type Outcome string

const (
	OutcomePlayed           Outcome = "played"
	OutcomeDecodeError      Outcome = "decode-error"
	OutcomeRetriesExhausted Outcome = "retries-exhausted"
	OutcomeFetchError       Outcome = "fetch-error"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeOutputError      Outcome = "output-error"
)

// Result describes what a Play call did.
type Result struct {
	SessionID string
	URL       string
	Outcome   Outcome
	Err       error

	// Attempts counts GET requests issued, Remaining the retries left when
	// the call finished.
	Attempts  int
	Remaining int

	Codec    Codec
	Bytes    int
	Duration time.Duration

	// Finished is closed when the source has drained. Nil unless played.
	Finished <-chan struct{}
}

// OK reports whether playback started.
func (r Result) OK() bool {
	return r.Outcome == OutcomePlayed
}

// Player fetches, decodes and plays assets through a shared Output.
type Player struct {
	logger  *slog.Logger
	output  *Output
	fetcher *Fetcher
	policy  RetryPolicy
	wait    Waiter
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy RetryPolicy) PlayerOption {
	return func(p *Player) {
		p.policy = policy
	}
}

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(f *Fetcher) PlayerOption {
	return func(p *Player) {
		if f != nil {
			p.fetcher = f
		}
	}
}

// WithWaiter replaces the timer used between retries.
func WithWaiter(w Waiter) PlayerOption {
	return func(p *Player) {
		if w != nil {
			p.wait = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlayer creates a Player routing all sessions through output.
func NewPlayer(output *Output, opts ...PlayerOption) *Player {
	p := &Player{
		logger:  slog.Default(),
		output:  output,
		fetcher: NewFetcher(nil, ""),
		policy:  DefaultRetryPolicy(),
		wait:    timerWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the retry policy in use.
func (p *Player) Policy() RetryPolicy {
	return p.policy
}

// Play fetches url, retrying 404s per the policy, then decodes and starts
// playback. It returns once playback has started or the call has failed.
func (p *Player) Play(ctx context.Context, url string) Result {
	return p.PlayWithRetries(ctx, url, p.policy.MaxRetries)
}

// PlayWithRetries is Play with an explicit number of remaining retries.
func (p *Player) PlayWithRetries(ctx context.Context, url string, remaining int) Result {
	id, err := NewSessionID()
	if err != nil {
		return Result{URL: url, Outcome: OutcomeFetchError, Err: err, Remaining: remaining}
	}
	return p.play(ctx, id, url, remaining)
}

func (p *Player) play(ctx context.Context, id, url string, remaining int) Result {
	res := Result{SessionID: id, URL: url, Remaining: remaining}
	logger := p.logger.With("session_id", id, "url", url)

	if p.output == nil {
		return p.fail(logger, res, OutcomeOutputError, ErrOutputClosed)
	}

	delays := p.policy.newBackOff()

	for {
		res.Attempts++

		resp, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return p.fail(logger, res, OutcomeCancelled, ctx.Err())
			}
			return p.fail(logger, res, OutcomeFetchError, err)
		}

		if resp.StatusCode == http.StatusNotFound {
			if res.Remaining <= 0 {
				return p.fail(logger, res, OutcomeRetriesExhausted, ErrRetriesExhausted)
			}

			delay := delays.NextBackOff()
			if delay == backoff.Stop {
				return p.fail(logger, res, OutcomeRetriesExhausted, ErrRetriesExhausted)
			}

			res.Remaining--
			logger.Debug("asset not ready, retry scheduled",
				"attempt", res.Attempts, "remaining", res.Remaining, "delay", delay)

			if err := p.wait(ctx, delay); err != nil {
				return p.fail(logger, res, OutcomeCancelled, err)
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return p.fail(logger, res, OutcomeFetchError, &StatusError{URL: url, StatusCode: resp.StatusCode})
		}

		return p.start(logger, res, resp)
	}
}

func (p *Player) start(logger *slog.Logger, res Result, resp *Response) Result {
	res.Bytes = len(resp.Body)
	res.Codec = DetectCodec(resp.Body, resp.ContentType, res.URL)

	buffer, err := Decode(resp.Body, res.Codec, res.URL)
	if err != nil {
		return p.fail(logger, res, OutcomeDecodeError, err)
	}
	res.Duration = buffer.Format().SampleRate.D(buffer.Len())

	finished, err := p.output.Connect(buffer)
	if err != nil {
		return p.fail(logger, res, OutcomeOutputError, err)
	}

	res.Outcome = OutcomePlayed
	res.Finished = finished
	logger.Debug("playback started",
		"attempts", res.Attempts, "codec", res.Codec, "bytes", res.Bytes, "duration", res.Duration)
	return res
}

func (p *Player) fail(logger *slog.Logger, res Result, outcome Outcome, err error) Result {
	res.Outcome = outcome
	res.Err = err

	if errors.Is(err, context.Canceled) {
		logger.Debug("playback cancelled", "attempts", res.Attempts)
	} else {
		logger.Warn("playback failed", "outcome", outcome, "attempts", res.Attempts, "error", err)
	}
	return res
}
