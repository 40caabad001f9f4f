package audio

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetriesExhausted is returned when an asset still answers 404 after
	// the retry budget has been spent.
	ErrRetriesExhausted = errors.New("asset not available after retries")

	// ErrOutputClosed is returned when a source is connected to an Output
	// that was never started or has been closed.
	ErrOutputClosed = errors.New("audio output is closed")

	// ErrUnsupportedFormat is wrapped by DecodeError when the payload is not
	// a format any decoder understands.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyBody is wrapped by DecodeError when the response had no body.
	ErrEmptyBody = errors.New("empty audio payload")
)

// DecodeError reports a payload that could not be decoded as audio.
type DecodeError struct {
	URL   string
	Codec Codec
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Codec == CodecUnknown {
		return fmt.Sprintf("failed to decode %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to decode %s as %s: %v", e.URL, e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError reports a response status that is neither a success nor a
// retryable 404.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status fetching %s: %d %s",
		e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
