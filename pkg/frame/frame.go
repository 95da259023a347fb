// Package frame implements the self-delimiting transmission frame shared by
// the audio and RF paths: preamble, sync word, 16-bit payload length,
// payload, and a CRC-16 checksum. Both media frame a payload identically;
// only the mapping of bits to physical symbols differs.
package frame

import (
	"errors"
	"fmt"
)

// Frame layout constants. The preamble is the alternating 1010... pattern a
// receiver hunts for before trusting any bit timing; the sync word confirms
// exact alignment before the length field is read.
const (
	Preamble uint32 = 0xAAAAAAAA
	SyncWord byte   = 0xD3

	PreambleBits = 32
	SyncBits     = 8
	LengthBits   = 16
	ChecksumBits = 16

	// HeaderBits covers everything before the payload.
	HeaderBits = PreambleBits + SyncBits + LengthBits

	// OverheadBits is the fixed framing cost around any payload.
	OverheadBits = HeaderBits + ChecksumBits

	// MaxPayloadLen is the largest payload the 16-bit length field can carry.
	MaxPayloadLen = 65535
)

// Typed decode/encode failures. All are recoverable; the caller decides
// whether to keep listening, ask for a retransmit, or give up.
var (
	ErrPayloadTooLarge  = errors.New("payload exceeds 65535 bytes")
	ErrPreambleNotFound = errors.New("no preamble found in bitstream")
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
	ErrTruncated        = errors.New("bitstream truncated before frame end")
)

// CRC-16/CCITT lookup table (polynomial 0x1021)
var crc16Table = buildCRC16Table()

func buildCRC16Table() [256]uint16 {
	const poly = 0x1021
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Checksum computes the CRC-16/CCITT over the big-endian length field
// followed by the payload. Encode and decode use this identical definition.
func Checksum(length uint16, payload []byte) uint16 {
	crc := uint16(0xFFFF)
	update := func(b byte) {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}

	update(byte(length >> 8))
	update(byte(length))
	for _, b := range payload {
		update(b)
	}
	return crc
}

// BitCount returns the total number of framed bits for a payload of the
// given byte length.
func BitCount(payloadLen int) int {
	return OverheadBits + payloadLen*8
}

// EncodeBits frames a payload as an unpacked bit sequence ready for a
// modulator. Fails with ErrPayloadTooLarge when the payload does not fit
// the 16-bit length field.
func EncodeBits(payload []byte) (BitStream, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	length := uint16(len(payload))
	bits := make(BitStream, 0, BitCount(len(payload)))
	bits.AppendUint32(Preamble)
	bits.AppendByte(SyncWord)
	bits.AppendUint16(length)
	for _, b := range payload {
		bits.AppendByte(b)
	}
	bits.AppendUint16(Checksum(length, payload))

	return bits, nil
}

// Encode frames a payload as packed bytes, MSB first. The framed bit count
// is always a multiple of 8 so no padding is needed.
func Encode(payload []byte) ([]byte, error) {
	bits, err := EncodeBits(payload)
	if err != nil {
		return nil, err
	}
	return bits.Bytes(), nil
}

// matchPreamble reports whether the 32 bits at pos match the preamble
// pattern exactly. Tolerance is zero: a single flipped preamble bit means
// this alignment is not trusted.
func matchPreamble(bits BitStream, pos int) bool {
	for i := 0; i < PreambleBits; i++ {
		want := byte((Preamble >> uint(PreambleBits-1-i)) & 1)
		if bits[pos+i] != want {
			return false
		}
	}
	return true
}

// FindSync scans a bitstream for a preamble immediately followed by the
// sync word and returns the bit index of the preamble start. Demodulators
// use this to confirm bit alignment before committing to a slicing phase.
func FindSync(bits BitStream) (int, bool) {
	for pos := 0; pos+PreambleBits+SyncBits <= len(bits); pos++ {
		if !matchPreamble(bits, pos) {
			continue
		}
		if sync, ok := bits.ByteAt(pos + PreambleBits); ok && sync == SyncWord {
			return pos, true
		}
	}
	return 0, false
}

// Decode scans a bitstream for a framed payload and returns it. The scan
// slides bit-by-bit until the preamble and sync word match, so the stream
// does not need to start on a frame boundary.
//
// Failure modes: ErrPreambleNotFound when no preamble/sync alignment exists
// anywhere in the stream, ErrTruncated when the stream ends inside a located
// frame, and ErrChecksumMismatch when a fully read frame fails its CRC. A
// corrupted frame is discarded rather than partially surfaced.
func Decode(bits BitStream) ([]byte, error) {
	for pos := 0; pos+PreambleBits <= len(bits); pos++ {
		if !matchPreamble(bits, pos) {
			continue
		}

		sync, ok := bits.ByteAt(pos + PreambleBits)
		if !ok {
			// Preamble matched at the very end of the stream; nothing after
			// it can re-match with more room.
			return nil, ErrTruncated
		}
		if sync != SyncWord {
			continue
		}

		return decodeAt(bits, pos)
	}

	return nil, ErrPreambleNotFound
}

// decodeAt reads one complete frame whose preamble starts at pos.
func decodeAt(bits BitStream, pos int) ([]byte, error) {
	length, ok := bits.Uint16At(pos + PreambleBits + SyncBits)
	if !ok {
		return nil, ErrTruncated
	}

	payloadPos := pos + HeaderBits
	checksumPos := payloadPos + int(length)*8
	if checksumPos+ChecksumBits > len(bits) {
		return nil, ErrTruncated
	}

	payload := make([]byte, length)
	for i := range payload {
		payload[i], _ = bits.ByteAt(payloadPos + i*8)
	}

	got, _ := bits.Uint16At(checksumPos)
	if got != Checksum(length, payload) {
		return nil, ErrChecksumMismatch
	}

	return payload, nil
}
