package wire

import (
	"fmt"
	"time"

	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// Hello opens a stream.
type Hello struct {
	Version uint64
	Started time.Time
}

// EncodeHello builds a Hello frame.
func EncodeHello(h Hello) *Frame {
	e := NewEncoder()
	e.WriteUvarint(h.Version)
	e.WriteSvarint(h.Started.UnixNano())
	return &Frame{Type: FrameHello, Payload: e.Bytes()}
}

// DecodeHello decodes a Hello payload.
func DecodeHello(payload []byte) (Hello, error) {
	d := NewDecoder(payload)
	var h Hello
	var err error
	if h.Version, err = d.ReadUvarint(); err != nil {
		return h, err
	}
	ns, err := d.ReadSvarint()
	if err != nil {
		return h, err
	}
	h.Started = time.Unix(0, ns)
	return h, d.Done()
}

// EncodeEvent builds an Event frame.
func EncodeEvent(ev lifecycle.Event) *Frame {
	e := NewEncoder()
	e.WriteByte(byte(ev.Kind))
	e.WriteString(ev.ID)
	e.WriteString(ev.Tag)
	e.WriteUvarint(ev.Batch)
	e.WriteSvarint(ev.Time.UnixNano())
	return &Frame{Type: FrameEvent, Payload: e.Bytes()}
}

// DecodeEvent decodes an Event payload.
func DecodeEvent(payload []byte) (lifecycle.Event, error) {
	d := NewDecoder(payload)
	var ev lifecycle.Event

	k, err := d.ReadByte()
	if err != nil {
		return ev, err
	}
	ev.Kind = lifecycle.Kind(k)
	if ev.Kind < lifecycle.KindAdded || ev.Kind > lifecycle.KindRemoved {
		return ev, fmt.Errorf("wire: invalid event kind %d", k)
	}
	if ev.ID, err = d.ReadString(); err != nil {
		return ev, err
	}
	if ev.Tag, err = d.ReadString(); err != nil {
		return ev, err
	}
	if ev.Batch, err = d.ReadUvarint(); err != nil {
		return ev, err
	}
	ns, err := d.ReadSvarint()
	if err != nil {
		return ev, err
	}
	ev.Time = time.Unix(0, ns)
	return ev, d.Done()
}

const (
	flagComponent = 1 << iota
	flagSubscribed
)

var phaseCodes = map[string]byte{
	registry.Registered.String(): 1,
	registry.Attached.String():   2,
	registry.Detached.String():   3,
}

// EncodeSnapshot builds a Snapshot frame.
func EncodeSnapshot(entries []registry.EntryInfo) *Frame {
	e := NewEncoder()
	e.WriteUvarint(uint64(len(entries)))
	for _, info := range entries {
		e.WriteString(info.ID)
		e.WriteByte(phaseCodes[info.Phase])
		e.WriteString(info.Tag)
		var flags byte
		if info.Component {
			flags |= flagComponent
		}
		if info.Subscribed {
			flags |= flagSubscribed
		}
		e.WriteByte(flags)
	}
	return &Frame{Type: FrameSnapshot, Payload: e.Bytes()}
}

// DecodeSnapshot decodes a Snapshot payload.
func DecodeSnapshot(payload []byte) ([]registry.EntryInfo, error) {
	d := NewDecoder(payload)
	// id length, phase, tag length, flags
	n, err := d.ReadCount(4)
	if err != nil {
		return nil, err
	}
	entries := make([]registry.EntryInfo, 0, n)
	for range n {
		var info registry.EntryInfo
		if info.ID, err = d.ReadString(); err != nil {
			return nil, err
		}
		p, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if p >= 1 && p <= 3 {
			info.Phase = registry.Phase(p - 1).String()
		}
		if info.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}
		flags, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		info.Component = flags&flagComponent != 0
		info.Subscribed = flags&flagSubscribed != 0
		entries = append(entries, info)
	}
	return entries, d.Done()
}

// ErrorMessage reports a server-side failure to a stream reader.
type ErrorMessage struct {
	Code    string
	Message string
}

func (m ErrorMessage) Error() string {
	if m.Code == "" {
		return m.Message
	}
	return m.Code + ": " + m.Message
}

// EncodeError builds an Error frame.
func EncodeError(m ErrorMessage) *Frame {
	e := NewEncoder()
	e.WriteString(m.Code)
	e.WriteString(m.Message)
	return &Frame{Type: FrameError, Payload: e.Bytes()}
}

// DecodeError decodes an Error payload.
func DecodeError(payload []byte) (ErrorMessage, error) {
	d := NewDecoder(payload)
	var m ErrorMessage
	var err error
	if m.Code, err = d.ReadString(); err != nil {
		return m, err
	}
	if m.Message, err = d.ReadString(); err != nil {
		return m, err
	}
	return m, d.Done()
}
