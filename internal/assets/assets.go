// Package assets resolves the URLs earplay fetches audio from.
package assets

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidID is returned for interval IDs that cannot name an asset.
var ErrInvalidID = errors.New("interval id must be positive")

// Resolve resolves ref against base. Absolute refs are returned unchanged,
// so "/sounds/a.wav" resolves the way a page-relative URL would.
func Resolve(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	return b.ResolveReference(r).String(), nil
}

// IntervalPath returns the media-relative path of an interval's audio file.
func IntervalPath(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w, got %d", ErrInvalidID, id)
	}
	return fmt.Sprintf("audio/interval_%d.mp3", id), nil
}

// IntervalURL returns the URL of an interval's generated audio file.
func IntervalURL(base, mediaPath string, id int64) (string, error) {
	p, err := IntervalPath(id)
	if err != nil {
		return "", err
	}

	media, err := Resolve(base, mediaPath)
	if err != nil {
		return "", err
	}
	return url.JoinPath(media, p)
}
