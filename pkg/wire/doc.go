// Package wire is the binary encoding of the lifecycle event stream served
// by the inspect server.
//
// Every message is a frame: a 4-byte header followed by the payload.
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// Payloads use varints for integers and length-prefixed UTF-8 strings.
//
//	Hello:    version(varint) + runtime start(svarint, unix nanos)
//	Event:    kind(byte) + id(string) + tag(string) + batch(varint) + time(svarint)
//	Snapshot: count(varint) + count × [id(string) + phase(byte) + tag(string) + flags(byte)]
//	Error:    code(string) + message(string)
package wire
