package dsp

import (
	"github.com/whispernote/whisperd/pkg/frame"
	"github.com/whispernote/whisperd/pkg/wav"
)

// Alignment search granularity: candidate slicing phases are spaced
// samplesPerBit/phaseSteps samples apart. The energy comparator tolerates
// an offset of a small fraction of a bit window, so this does not need to
// be per-sample.
const phaseSteps = 16

// classifyWindow decides one bit from one bit window by comparing Goertzel
// energy at the mark and space frequencies. The margin is the absolute
// energy difference, used as a confidence measure during alignment search.
func classifyWindow(window []float64, profile *ModulationProfile) (byte, float64) {
	markEnergy := goertzelPower(window, profile.SampleRate, profile.MarkFreq)
	spaceEnergy := goertzelPower(window, profile.SampleRate, profile.SpaceFreq)

	if markEnergy > spaceEnergy {
		return 1, markEnergy - spaceEnergy
	}
	return 0, spaceEnergy - markEnergy
}

// slicePhase decodes every complete bit window at a fixed stride starting
// from the given sample offset.
func slicePhase(samples []float64, offset int, profile *ModulationProfile) (frame.BitStream, []float64) {
	spb := profile.SamplesPerBit()
	n := 0
	if len(samples) > offset {
		n = (len(samples) - offset) / spb
	}

	bits := make(frame.BitStream, 0, n)
	margins := make([]float64, 0, n)
	for start := offset; start+spb <= len(samples); start += spb {
		bit, margin := classifyWindow(samples[start:start+spb], profile)
		bits = append(bits, bit)
		margins = append(margins, margin)
	}
	return bits, margins
}

// Demodulate recovers a bitstream from audio samples. No alignment is
// assumed: candidate slicing phases across one bit period are each decoded
// and searched for the preamble and sync word, and the phase with the
// strongest tone separation over that span wins. The returned stream starts
// at the preamble, so frame.Decode finds it at position zero.
//
// If no phase yields an exact preamble and sync match anywhere in the
// buffer, Demodulate fails closed with frame.ErrPreambleNotFound rather
// than guessing. Samples are interpreted at the profile's sample rate.
func Demodulate(buffer *wav.WaveBuffer, profile *ModulationProfile) (frame.BitStream, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	samples := normalizeSamples(buffer.Samples)
	spb := profile.SamplesPerBit()

	step := spb / phaseSteps
	if step < 1 {
		step = 1
	}

	syncSpan := frame.PreambleBits + frame.SyncBits

	var bestBits frame.BitStream
	bestConfidence := -1.0

	for offset := 0; offset < spb; offset += step {
		bits, margins := slicePhase(samples, offset, profile)

		pos, ok := frame.FindSync(bits)
		if !ok {
			continue
		}

		confidence := 0.0
		for i := pos; i < pos+syncSpan && i < len(margins); i++ {
			confidence += margins[i]
		}

		if confidence > bestConfidence {
			bestConfidence = confidence
			bestBits = bits[pos:]
		}
	}

	if bestBits == nil {
		return nil, frame.ErrPreambleNotFound
	}
	return bestBits, nil
}

// DecodePayload demodulates a buffer and extracts the framed payload in one
// step: the audio-path inverse of ModulatePayload.
func DecodePayload(buffer *wav.WaveBuffer, profile *ModulationProfile) ([]byte, error) {
	bits, err := Demodulate(buffer, profile)
	if err != nil {
		return nil, err
	}
	return frame.Decode(bits)
}
