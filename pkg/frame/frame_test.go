package frame

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	payload := []byte(`{"amt":1}`)

	bits, err := EncodeBits(payload)
	if err != nil {
		t.Fatalf("EncodeBits failed: %v", err)
	}

	// 32 preamble + 8 sync + 16 length + 72 payload + 16 checksum
	if len(bits) != 144 {
		t.Errorf("Expected 144 bits, got %d", len(bits))
	}

	if !matchPreamble(bits, 0) {
		t.Error("Frame does not start with the preamble pattern")
	}

	sync, _ := bits.ByteAt(PreambleBits)
	if sync != SyncWord {
		t.Errorf("Expected sync word 0x%02X, got 0x%02X", SyncWord, sync)
	}

	length, _ := bits.Uint16At(PreambleBits + SyncBits)
	if int(length) != len(payload) {
		t.Errorf("Expected length %d, got %d", len(payload), length)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	payload := make([]byte, MaxPayloadLen+1)
	if _, err := EncodeBits(payload); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}

	// Exactly at the limit must still encode.
	payload = payload[:MaxPayloadLen]
	if _, err := EncodeBits(payload); err != nil {
		t.Errorf("Expected max-size payload to encode, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x00},
		{0xFF},
		[]byte(`{"amt":1}`),
		[]byte(`{"from":"node-a","to":"node-b","amount":42,"nonce":7}`),
		bytes.Repeat([]byte{0xAA}, 300),
	}

	for _, payload := range payloads {
		bits, err := EncodeBits(payload)
		if err != nil {
			t.Fatalf("EncodeBits(%d bytes) failed: %v", len(payload), err)
		}

		decoded, err := Decode(bits)
		if err != nil {
			t.Fatalf("Decode(%d bytes) failed: %v", len(payload), err)
		}

		if !bytes.Equal(decoded, payload) {
			t.Errorf("Round trip mismatch for %d byte payload", len(payload))
		}
	}
}

func TestDecodeWithLeadingGarbage(t *testing.T) {
	payload := []byte("offline tx")
	bits, err := EncodeBits(payload)
	if err != nil {
		t.Fatalf("EncodeBits failed: %v", err)
	}

	// Prefix noise that never forms a preamble+sync pair.
	prefixed := make(BitStream, 0, len(bits)+40)
	prefixed = append(prefixed, 0, 0, 1, 1, 0, 1, 0, 0, 1, 1, 1, 0, 0)
	prefixed = append(prefixed, bits...)
	prefixed = append(prefixed, 1, 0, 1, 1, 0)

	decoded, err := Decode(prefixed)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("Payload mismatch after leading garbage")
	}
}

func TestDecodeChecksumSensitivity(t *testing.T) {
	payload := []byte(`{"amt":1}`)
	clean, err := EncodeBits(payload)
	if err != nil {
		t.Fatalf("EncodeBits failed: %v", err)
	}

	// Flipping any single bit in the length or payload region must be
	// caught. Exhaustive over the whole region for this small payload.
	start := PreambleBits + SyncBits
	end := len(clean) - ChecksumBits
	for i := start; i < end; i++ {
		corrupted := make(BitStream, len(clean))
		copy(corrupted, clean)
		corrupted[i] ^= 1

		_, err := Decode(corrupted)
		if err == nil {
			t.Fatalf("Decode accepted a frame with bit %d flipped", i)
		}
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	payload := []byte(`{"amt":1}`)
	bits, err := EncodeBits(payload)
	if err != nil {
		t.Fatalf("EncodeBits failed: %v", err)
	}

	// Flip the high bit of the first payload byte.
	bits[HeaderBits] ^= 1

	if _, err := Decode(bits); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}
}

func TestDecodePreambleNotFound(t *testing.T) {
	t.Run("Empty Stream", func(t *testing.T) {
		if _, err := Decode(nil); !errors.Is(err, ErrPreambleNotFound) {
			t.Errorf("Expected ErrPreambleNotFound, got %v", err)
		}
	})

	t.Run("All Zeros", func(t *testing.T) {
		bits := make(BitStream, 1024)
		if _, err := Decode(bits); !errors.Is(err, ErrPreambleNotFound) {
			t.Errorf("Expected ErrPreambleNotFound, got %v", err)
		}
	})

	t.Run("Alternating Without Sync", func(t *testing.T) {
		// A long 1010... run looks like a preamble but is never followed by
		// the sync word.
		bits := make(BitStream, 256)
		for i := range bits {
			bits[i] = byte((i + 1) % 2)
		}
		_, err := Decode(bits)
		if !errors.Is(err, ErrPreambleNotFound) && !errors.Is(err, ErrTruncated) {
			t.Errorf("Expected ErrPreambleNotFound or ErrTruncated, got %v", err)
		}
	})
}

func TestDecodeTruncated(t *testing.T) {
	payload := []byte("truncate me")
	bits, err := EncodeBits(payload)
	if err != nil {
		t.Fatalf("EncodeBits failed: %v", err)
	}

	cases := map[string]int{
		"Inside Payload":  HeaderBits + 8,
		"Inside Checksum": len(bits) - 4,
		"After Length":    HeaderBits,
	}

	for name, cut := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(bits[:cut]); !errors.Is(err, ErrTruncated) {
				t.Errorf("Expected ErrTruncated at cut %d, got %v", cut, err)
			}
		})
	}
}

func TestChecksumKnownValues(t *testing.T) {
	// CRC-16/CCITT-FALSE over the two length bytes then the payload. The
	// same definition must hold on both ends of the link, so pin it down.
	a := Checksum(0, nil)
	b := Checksum(0, nil)
	if a != b {
		t.Error("Checksum is not deterministic")
	}

	if Checksum(1, []byte{0x00}) == Checksum(1, []byte{0x01}) {
		t.Error("Checksum does not distinguish single byte payloads")
	}

	if Checksum(0, nil) == Checksum(1, []byte{0x00}) {
		t.Error("Checksum ignores the length field")
	}
}

func TestEncodeConcurrent(t *testing.T) {
	// Encoding is stateless, so independent goroutines must produce the
	// same frame without coordination.
	payload := []byte(`{"amt":1}`)

	want, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := Encode(payload)
			if err != nil {
				t.Errorf("Encode failed in goroutine %d: %v", i, err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !bytes.Equal(got, want) {
			t.Errorf("Goroutine %d produced a different frame", i)
		}
	}
}

func TestBitCount(t *testing.T) {
	if got := BitCount(9); got != 144 {
		t.Errorf("BitCount(9) = %d, want 144", got)
	}
	if got := BitCount(0); got != OverheadBits {
		t.Errorf("BitCount(0) = %d, want %d", got, OverheadBits)
	}
}
