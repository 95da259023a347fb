// Package wav reads and writes the PCM WAV container used as the audio
// path's interchange artifact: 16-bit signed little-endian samples, mono,
// no compression.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// NumChannels is fixed: transmissions are mono.
	NumChannels = 1

	// BitsPerSample is fixed: 16-bit signed PCM.
	BitsPerSample = 16

	pcmFormatTag = 1
	bytesPerSamp = BitsPerSample / 8
)

// ErrMalformedContainer reports a byte buffer that is not a well-formed
// mono 16-bit PCM WAV file.
var ErrMalformedContainer = errors.New("malformed WAV container")

// WaveBuffer holds one complete sample sequence at a fixed rate. Buffers
// are created fresh per encode call and never mutated after production.
type WaveBuffer struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the playback duration of the buffer.
func (w *WaveBuffer) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// WriteWAV serializes a buffer as a standard RIFF/WAVE file: 12-byte RIFF
// header, 24-byte fmt chunk, data chunk header, then the samples.
func WriteWAV(buffer *WaveBuffer) []byte {
	dataSize := len(buffer.Samples) * bytesPerSamp
	byteRate := buffer.SampleRate * NumChannels * bytesPerSamp
	blockAlign := NumChannels * bytesPerSamp

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmFormatTag))
	binary.Write(&buf, binary.LittleEndian, uint16(NumChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(buffer.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, sample := range buffer.Samples {
		binary.Write(&buf, binary.LittleEndian, sample)
	}

	return buf.Bytes()
}

// ReadWAV parses a WAV file back into a WaveBuffer. Unknown chunks between
// fmt and data are skipped. Fails with ErrMalformedContainer when the
// RIFF/WAVE/fmt/data structure is absent or chunk sizes disagree with the
// buffer length.
func ReadWAV(data []byte) (*WaveBuffer, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformedContainer, len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE markers", ErrMalformedContainer)
	}

	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if int(riffSize)+8 > len(data) {
		return nil, fmt.Errorf("%w: RIFF size %d exceeds buffer", ErrMalformedContainer, riffSize)
	}

	var sampleRate int
	var haveFmt bool

	// Walk chunks after the RIFF header.
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		if chunkSize < 0 || body+chunkSize > len(data) {
			return nil, fmt.Errorf("%w: chunk %q size %d exceeds buffer", ErrMalformedContainer, chunkID, chunkSize)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrMalformedContainer)
			}
			formatTag := binary.LittleEndian.Uint16(data[body : body+2])
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])

			if formatTag != pcmFormatTag {
				return nil, fmt.Errorf("%w: format tag %d is not PCM", ErrMalformedContainer, formatTag)
			}
			if channels != NumChannels {
				return nil, fmt.Errorf("%w: %d channels, want mono", ErrMalformedContainer, channels)
			}
			if bits != BitsPerSample {
				return nil, fmt.Errorf("%w: %d bits per sample, want 16", ErrMalformedContainer, bits)
			}

			sampleRate = int(rate)
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrMalformedContainer)
			}
			if chunkSize%bytesPerSamp != 0 {
				return nil, fmt.Errorf("%w: data size %d is not sample aligned", ErrMalformedContainer, chunkSize)
			}

			samples := make([]int16, chunkSize/bytesPerSamp)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[body+i*2 : body+i*2+2]))
			}

			return &WaveBuffer{SampleRate: sampleRate, Samples: samples}, nil
		}

		// Chunks are word aligned.
		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	return nil, fmt.Errorf("%w: no data chunk found", ErrMalformedContainer)
}
