package audio

import (
	"bytes"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Codec identifies an audio container format.
type Codec string

const (
	CodecUnknown Codec = ""
	CodecWAV     Codec = "wav"
	CodecMP3     Codec = "mp3"
	CodecVorbis  Codec = "ogg"
)

var contentTypes = map[string]Codec{
	"audio/wav":       CodecWAV,
	"audio/wave":      CodecWAV,
	"audio/x-wav":     CodecWAV,
	"audio/vnd.wave":  CodecWAV,
	"audio/mpeg":      CodecMP3,
	"audio/mp3":       CodecMP3,
	"audio/ogg":       CodecVorbis,
	"audio/vorbis":    CodecVorbis,
	"application/ogg": CodecVorbis,
}

var extensions = map[string]Codec{
	".wav": CodecWAV,
	".mp3": CodecMP3,
	".ogg": CodecVorbis,
	".oga": CodecVorbis,
}

// DetectCodec picks a decoder for a payload. Magic bytes win, then the
// Content-Type header, then the URL path extension.
func DetectCodec(data []byte, contentType, rawURL string) Codec {
	if c := sniff(data); c != CodecUnknown {
		return c
	}

	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if c, ok := contentTypes[strings.ToLower(mt)]; ok {
				return c
			}
		}
	}

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if c, ok := extensions[strings.ToLower(path.Ext(p))]; ok {
		return c
	}

	return CodecUnknown
}

func sniff(data []byte) Codec {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return CodecWAV
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return CodecVorbis
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return CodecMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return CodecMP3
	}
	return CodecUnknown
}

// Decode decodes a whole payload into a buffer ready for playback.
// Failures are returned as *DecodeError.
func Decode(data []byte, codec Codec, rawURL string) (*beep.Buffer, error) {
	if len(data) == 0 {
		return nil, &DecodeError{URL: rawURL, Codec: codec, Err: ErrEmptyBody}
	}

	rc := io.NopCloser(bytes.NewReader(data))

	var streamer beep.StreamSeekCloser
	var format beep.Format
	var err error

	switch codec {
	case CodecWAV:
		streamer, format, err = wav.Decode(rc)
	case CodecMP3:
		streamer, format, err = mp3.Decode(rc)
	case CodecVorbis:
		streamer, format, err = vorbis.Decode(rc)
	default:
		return nil, &DecodeError{URL: rawURL, Codec: codec, Err: ErrUnsupportedFormat}
	}
	if err != nil {
		return nil, &DecodeError{URL: rawURL, Codec: codec, Err: err}
	}
	defer func() { _ = streamer.Close() }()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, &DecodeError{URL: rawURL, Codec: codec, Err: err}
	}

	return buffer, nil
}
