package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// marker opens every frame. Buffers that don't start with it are not
// isotun packets.
var marker = [4]byte{'i', 's', 'o', '1'}

// HeaderLen is the fixed header size: marker + source + destination.
const HeaderLen = len(marker) + 2*AddrLen

var (
	// ErrShortBuffer reports a buffer smaller than the fixed header.
	ErrShortBuffer = errors.New("wire: buffer shorter than packet header")
	// ErrBadMarker reports a buffer that does not open with the frame marker.
	ErrBadMarker = errors.New("wire: bad frame marker")
)

// Packet is the framed unit exchanged between endpoints. The payload is
// opaque to the framing layer.
type Packet struct {
	Source      Address
	Destination Address
	Payload     []byte
}

// Encode serializes the packet: marker, source, destination, payload.
func (p *Packet) Encode() []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(p.Payload))
	copy(buf, marker[:])
	binary.LittleEndian.PutUint16(buf[len(marker):], uint16(p.Source))
	binary.LittleEndian.PutUint16(buf[len(marker)+AddrLen:], uint16(p.Destination))
	return append(buf, p.Payload...)
}

// DecodePacket parses a serialized packet. The buffer must hold at least
// the fixed header; everything after it becomes the payload.
func DecodePacket(b []byte) (*Packet, error) {
	if len(b) < HeaderLen {
		return nil, fmt.Errorf("wire: got %d bytes, need %d: %w", len(b), HeaderLen, ErrShortBuffer)
	}
	if !bytes.Equal(b[:len(marker)], marker[:]) {
		return nil, ErrBadMarker
	}
	src := Address(binary.LittleEndian.Uint16(b[len(marker):]))
	dst := Address(binary.LittleEndian.Uint16(b[len(marker)+AddrLen:]))

	// Copy the payload so the packet does not alias the caller's buffer.
	payload := make([]byte, len(b)-HeaderLen)
	copy(payload, b[HeaderLen:])

	return &Packet{Source: src, Destination: dst, Payload: payload}, nil
}
