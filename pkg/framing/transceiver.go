// Package framing splits a byte stream into messages separated by a single
// delimiter byte. Payload bytes that collide with the delimiter or the escape
// byte are written as the escape byte followed by the original XOR 0x20.
package framing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	// Delimiter terminates every message on the wire.
	Delimiter byte = 0xFF
	// Escape prefixes a payload byte that would otherwise be read as framing.
	Escape byte = 0xFE

	escapeMask byte = 0x20

	// DefaultMaxMessageSize bounds a single decoded message.
	DefaultMaxMessageSize = 1024 * 1024
)

var (
	ErrMessageTooLarge = errors.New("framing: message exceeds maximum size")
	ErrInvalidEscape   = errors.New("framing: invalid escape sequence")
)

// Transceiver reads and writes delimiter-framed messages on a stream.
type Transceiver struct {
	reader  *bufio.Reader
	writer  io.Writer
	maxSize int
}

// NewTransceiver wraps rw. maxSize bounds received messages only; a value of
// zero or less selects DefaultMaxMessageSize.
func NewTransceiver(rw io.ReadWriter, maxSize int) *Transceiver {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Transceiver{
		reader:  bufio.NewReaderSize(rw, 4096),
		writer:  rw,
		maxSize: maxSize,
	}
}

// Receive blocks until a full message arrives and returns it without the
// delimiter. io.EOF is returned when the stream ends before any byte of a new
// message; io.ErrUnexpectedEOF when it ends mid-message.
func (t *Transceiver) Receive() ([]byte, error) {
	var (
		msg     []byte
		escaped bool
		started bool
	)
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !started {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		started = true

		switch {
		case escaped:
			decoded := b ^ escapeMask
			if decoded != Delimiter && decoded != Escape {
				return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidEscape, b)
			}
			msg = append(msg, decoded)
			escaped = false
		case b == Delimiter:
			return msg, nil
		case b == Escape:
			escaped = true
			continue
		default:
			msg = append(msg, b)
		}

		if len(msg) > t.maxSize {
			return nil, ErrMessageTooLarge
		}
	}
}

// Send writes message followed by the delimiter. Outgoing messages are not
// size-checked.
func (t *Transceiver) Send(message []byte) error {
	if _, err := t.writer.Write(Encode(message)); err != nil {
		return fmt.Errorf("framing: write message: %w", err)
	}
	return nil
}

// Encode returns the escaped, delimited wire form of message.
func Encode(message []byte) []byte {
	out := make([]byte, 0, len(message)+len(message)/16+1)
	for _, b := range message {
		if b == Delimiter || b == Escape {
			out = append(out, Escape, b^escapeMask)
			continue
		}
		out = append(out, b)
	}
	return append(out, Delimiter)
}
