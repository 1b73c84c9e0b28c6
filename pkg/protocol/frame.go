package protocol

import (
	"errors"
	"strings"
)

const (
	// Delimiter terminates every frame in both directions.
	Delimiter = "#%"

	// DefaultBufferLimit bounds the unconsumed receive buffer. Exceeding it
	// disconnects the peer.
	DefaultBufferLimit = 8192

	// Some clients send the encrypted askchar2 request without a delimiter.
	legacyAskChar2 = "#615810BC07D12A5A#"
)

var ErrBufferOverflow = errors.New("receive buffer exceeded limit")

// Decoder accumulates raw socket reads and splits them into frames.
type Decoder struct {
	limit  int
	buffer strings.Builder
}

func NewDecoder(limit int) *Decoder {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &Decoder{limit: limit}
}

// Feed appends data to the buffer and returns every complete frame. Invalid
// UTF-8 and NUL bytes are dropped rather than treated as errors.
func (d *Decoder) Feed(data []byte) ([]string, error) {
	text := strings.ToValidUTF8(string(data), "")
	text = strings.ReplaceAll(text, "\x00", "")
	d.buffer.WriteString(text)

	if d.buffer.Len() > d.limit {
		d.buffer.Reset()
		return nil, ErrBufferOverflow
	}

	pending := d.buffer.String()
	frames := make([]string, 0)
	for {
		index := strings.Index(pending, Delimiter)
		if index < 0 {
			break
		}
		frames = append(frames, pending[:index])
		pending = pending[index+len(Delimiter):]
	}

	if pending == legacyAskChar2 {
		frames = append(frames, pending)
		pending = ""
	}

	d.buffer.Reset()
	d.buffer.WriteString(pending)
	return frames, nil
}

// Buffered returns the number of bytes waiting for a delimiter.
func (d *Decoder) Buffered() int {
	return d.buffer.Len()
}
