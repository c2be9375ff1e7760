package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		pkt  Packet
	}{
		{name: "hello", pkt: Packet{Source: AddrServer, Destination: 42, Payload: []byte("hello")}},
		{name: "empty payload", pkt: Packet{Source: 7, Destination: AddrBroadcast, Payload: nil}},
		{name: "binary payload", pkt: Packet{Source: 0xFFFF, Destination: AddrUnknown, Payload: []byte{0, 1, 2, 0xFF, 0, 'i', 's', 'o', '1'}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.pkt.Encode()
			if len(raw) != HeaderLen+len(tt.pkt.Payload) {
				t.Fatalf("encoded length = %d, want %d", len(raw), HeaderLen+len(tt.pkt.Payload))
			}
			got, err := DecodePacket(raw)
			if err != nil {
				t.Fatalf("DecodePacket: %v", err)
			}
			if got.Source != tt.pkt.Source || got.Destination != tt.pkt.Destination {
				t.Fatalf("addresses = %v->%v, want %v->%v", got.Source, got.Destination, tt.pkt.Source, tt.pkt.Destination)
			}
			if !bytes.Equal(got.Payload, tt.pkt.Payload) {
				t.Fatalf("payload = %q, want %q", got.Payload, tt.pkt.Payload)
			}
		})
	}
}

func TestDecodePacketShortBuffer(t *testing.T) {
	t.Parallel()
	for n := 0; n < HeaderLen; n++ {
		if _, err := DecodePacket(make([]byte, n)); !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("DecodePacket(%d bytes) = %v, want ErrShortBuffer", n, err)
		}
	}
}

func TestDecodePacketBadMarker(t *testing.T) {
	t.Parallel()
	raw := (&Packet{Source: 1, Destination: 2, Payload: []byte("x")}).Encode()
	raw[0] ^= 0xFF
	if _, err := DecodePacket(raw); !errors.Is(err, ErrBadMarker) {
		t.Fatalf("DecodePacket = %v, want ErrBadMarker", err)
	}
}

func TestDecodePacketDoesNotAliasInput(t *testing.T) {
	t.Parallel()
	raw := (&Packet{Source: 3, Destination: 4, Payload: []byte("abc")}).Encode()
	pkt, err := DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	raw[HeaderLen] = 'z'
	if string(pkt.Payload) != "abc" {
		t.Fatalf("payload mutated through input buffer: %q", pkt.Payload)
	}
}
