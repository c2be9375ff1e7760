package wire

import (
	"encoding/binary"
	"fmt"
)

// AddrLen is the encoded width of an Address.
const AddrLen = 2

// Address identifies one endpoint of the tunnel.
type Address uint16

// Reserved addresses. Everything above AddrUnknown is an ordinary peer
// address; routing for those is not implemented yet.
const (
	AddrServer    Address = 0
	AddrBroadcast Address = 1
	AddrUnknown   Address = 2
)

// AddressRangeError reports an address value that does not fit in
// AddrLen bytes.
type AddressRangeError struct {
	Value int
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("wire: address %d does not fit in %d bytes", e.Value, AddrLen)
}

// NewAddress validates v and converts it to an Address.
func NewAddress(v int) (Address, error) {
	if v < 0 || v > 0xFFFF {
		return 0, &AddressRangeError{Value: v}
	}
	return Address(v), nil
}

// DecodeAddress parses exactly AddrLen little-endian bytes.
func DecodeAddress(b []byte) (Address, error) {
	if len(b) != AddrLen {
		return 0, fmt.Errorf("wire: address needs exactly %d bytes, got %d: %w", AddrLen, len(b), ErrShortBuffer)
	}
	return Address(binary.LittleEndian.Uint16(b)), nil
}

// Encode returns the AddrLen-byte little-endian form.
func (a Address) Encode() []byte {
	b := make([]byte, AddrLen)
	binary.LittleEndian.PutUint16(b, uint16(a))
	return b
}

func (a Address) String() string {
	switch a {
	case AddrServer:
		return "server"
	case AddrBroadcast:
		return "broadcast"
	case AddrUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("peer(%d)", uint16(a))
	}
}
