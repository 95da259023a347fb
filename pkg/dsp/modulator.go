package dsp

import (
	"math"

	"github.com/whispernote/whisperd/pkg/frame"
	"github.com/whispernote/whisperd/pkg/wav"
)

// Modulate converts a framed bitstream into audio samples using binary FSK:
// each bit becomes one bit window of the mark tone (1) or the space tone
// (0). The sine phase accumulates across bit boundaries so tone changes do
// not glitch, although the demodulator does not depend on that.
//
// Same bits and profile always produce the same buffer.
func Modulate(bits frame.BitStream, profile *ModulationProfile) *wav.WaveBuffer {
	samplesPerBit := profile.SamplesPerBit()
	samples := make([]int16, 0, len(bits)*samplesPerBit)

	markStep := 2 * math.Pi * profile.MarkFreq / float64(profile.SampleRate)
	spaceStep := 2 * math.Pi * profile.SpaceFreq / float64(profile.SampleRate)
	scale := profile.Amplitude * 32767

	var phase float64
	for _, bit := range bits {
		step := spaceStep
		if bit != 0 {
			step = markStep
		}

		for i := 0; i < samplesPerBit; i++ {
			v := scale * math.Sin(phase)
			if v > 32767 {
				v = 32767
			} else if v < -32767 {
				v = -32767
			}
			samples = append(samples, int16(v))

			phase += step
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
	}

	return &wav.WaveBuffer{
		SampleRate: profile.SampleRate,
		Samples:    samples,
	}
}

// ModulatePayload frames a payload and modulates it in one step. Fails with
// frame.ErrPayloadTooLarge when the payload exceeds the length field.
func ModulatePayload(payload []byte, profile *ModulationProfile) (*wav.WaveBuffer, error) {
	bits, err := frame.EncodeBits(payload)
	if err != nil {
		return nil, err
	}
	return Modulate(bits, profile), nil
}
