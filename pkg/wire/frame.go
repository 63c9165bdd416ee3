package wire

import (
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the frame header in bytes.
	HeaderSize = 4

	// MaxPayload is the largest payload a frame can carry.
	MaxPayload = 0xffff

	// Version is the stream version sent in Hello.
	Version = 1
)

// FrameType identifies the payload of a frame.
type FrameType uint8

const (
	FrameHello    FrameType = 0x01 // Stream setup
	FrameEvent    FrameType = 0x02 // One fired lifecycle callback
	FrameSnapshot FrameType = 0x03 // Live registry entries
	FrameError    FrameType = 0x04 // Server-side failure
)

// String returns the string representation of the frame type.
func (t FrameType) String() string {
	switch t {
	case FrameHello:
		return "Hello"
	case FrameEvent:
		return "Event"
	case FrameSnapshot:
		return "Snapshot"
	case FrameError:
		return "Error"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// Flags modify frame handling.
type Flags uint8

const (
	// FlagDropped marks the first frame after the server dropped frames
	// for a slow reader.
	FlagDropped Flags = 0x01
)

// Has reports whether f contains flag.
func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Frame errors.
var (
	ErrPayloadTooLarge = errors.New("wire: frame payload too large")
	ErrUnknownFrame    = errors.New("wire: unknown frame type")
)

// Frame is one message of the event stream.
type Frame struct {
	Type    FrameType
	Flags   Flags
	Payload []byte
}

// Encode returns the frame with its header.
func (f *Frame) Encode() ([]byte, error) {
	n := len(f.Payload)
	if n > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+n)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// DecodeFrame decodes one complete frame. Trailing bytes are an error.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	n := int(data[2])<<8 | int(data[3])
	switch {
	case len(data) < HeaderSize+n:
		return nil, io.ErrUnexpectedEOF
	case len(data) > HeaderSize+n:
		return nil, ErrTrailingBytes
	}
	payload := make([]byte, n)
	copy(payload, data[HeaderSize:])
	return &Frame{Type: FrameType(data[0]), Flags: Flags(data[1]), Payload: payload}, nil
}

// ReadFrame reads one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	var h [HeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, int(h[2])<<8|int(h[3]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Type: FrameType(h[0]), Flags: Flags(h[1]), Payload: payload}, nil
}

// WriteFrame writes f to w.
func WriteFrame(w io.Writer, f *Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
