// Package media concatenates per-section audio, downloads generated assets,
// and lays out the per-request output directories.
package media

import (
	"errors"
	"fmt"
	"regexp"
)

// Default encoding of merged audio.
const (
	DefaultCodec   = "libmp3lame"
	DefaultBitrate = "128k"
)

// Error message formats for encoding validation.
const (
	errFmtCodecEmpty    = "%w: codec must not be empty"
	errFmtBitrateFormat = "%w: bitrate %q must look like 128k"
	errFmtCodecUnknown  = "%w: unsupported codec %q"
)

// ErrInvalidEncoding is returned for unusable encoding settings.
var ErrInvalidEncoding = errors.New("invalid encoding settings")

var bitratePattern = regexp.MustCompile(`^[1-9][0-9]*k$`)

// codecExtensions lists the container each supported codec writes.
var codecExtensions = map[string]string{
	"libmp3lame": ".mp3",
	"aac":        ".m4a",
	"libopus":    ".ogg",
	"flac":       ".flac",
	"pcm_s16le":  ".wav",
}

// Encoding is the audio codec and bitrate the merge tool re-encodes to.
type Encoding struct {
	Codec   string `json:"codec"`
	Bitrate string `json:"bitrate,omitempty"`
}

// NewDefaultEncoding returns MP3 at 128 kbit/s.
func NewDefaultEncoding() Encoding {
	return Encoding{Codec: DefaultCodec, Bitrate: DefaultBitrate}
}

// Validate checks the codec is known and the bitrate well formed. Lossless
// codecs take no bitrate.
func (e Encoding) Validate() error {
	if e.Codec == "" {
		return fmt.Errorf(errFmtCodecEmpty, ErrInvalidEncoding)
	}

	if _, ok := codecExtensions[e.Codec]; !ok {
		return fmt.Errorf(errFmtCodecUnknown, ErrInvalidEncoding, e.Codec)
	}

	if e.Bitrate != "" && !bitratePattern.MatchString(e.Bitrate) {
		return fmt.Errorf(errFmtBitrateFormat, ErrInvalidEncoding, e.Bitrate)
	}

	return nil
}

// Extension returns the file extension the codec writes.
func (e Encoding) Extension() string {
	return codecExtensions[e.Codec]
}

// Args returns the encoder arguments for the merge tool.
func (e Encoding) Args() []string {
	args := []string{"-c:a", e.Codec}
	if e.Bitrate != "" {
		args = append(args, "-b:a", e.Bitrate)
	}

	return args
}
