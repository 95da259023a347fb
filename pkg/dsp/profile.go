// Package dsp implements the binary FSK modem for the audio path: tone
// synthesis on the encode side and a Goertzel energy comparator with
// preamble hunting on the decode side.
package dsp

import (
	"errors"
	"fmt"
)

// MarkPresets are the selectable mark frequencies exposed to callers, in Hz.
// The space frequency defaults to half the mark.
var MarkPresets = []float64{1000, 2000, 4000}

// ErrInvalidProfile reports a modulation profile that violates the Nyquist
// limit or the integer samples-per-bit requirement. Profiles are rejected
// at construction, never at decode time.
var ErrInvalidProfile = errors.New("invalid modulation profile")

// ModulationProfile holds the immutable FSK parameters shared by modulator
// and demodulator. Both ends of a link must agree on a profile exactly.
type ModulationProfile struct {
	MarkFreq   float64 // tone for bit 1, Hz
	SpaceFreq  float64 // tone for bit 0, Hz
	BaudRate   int     // bit-symbols per second
	SampleRate int     // Hz
	Amplitude  float64 // peak amplitude, fraction of full scale (0, 1]
}

// NewProfile builds and validates a profile with explicit mark and space
// frequencies.
func NewProfile(markFreq, spaceFreq float64, baudRate, sampleRate int, amplitude float64) (*ModulationProfile, error) {
	p := &ModulationProfile{
		MarkFreq:   markFreq,
		SpaceFreq:  spaceFreq,
		BaudRate:   baudRate,
		SampleRate: sampleRate,
		Amplitude:  amplitude,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultProfile builds a profile using the conventional space = mark/2
// tone pairing.
func DefaultProfile(markFreq float64, baudRate, sampleRate int) (*ModulationProfile, error) {
	return NewProfile(markFreq, markFreq/2, baudRate, sampleRate, 0.8)
}

// Validate checks the profile invariants: distinct positive tone
// frequencies, a sample rate satisfying Nyquist for the higher tone, and an
// integer number of samples per bit.
func (p *ModulationProfile) Validate() error {
	if p.MarkFreq <= 0 || p.SpaceFreq <= 0 {
		return fmt.Errorf("%w: tone frequencies must be positive", ErrInvalidProfile)
	}
	if p.MarkFreq == p.SpaceFreq {
		return fmt.Errorf("%w: mark and space frequencies must differ", ErrInvalidProfile)
	}
	if p.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalidProfile)
	}
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidProfile)
	}

	maxFreq := p.MarkFreq
	if p.SpaceFreq > maxFreq {
		maxFreq = p.SpaceFreq
	}
	if float64(p.SampleRate) < 2*maxFreq {
		return fmt.Errorf("%w: sample rate %d below Nyquist for %.0f Hz",
			ErrInvalidProfile, p.SampleRate, maxFreq)
	}

	if p.SampleRate%p.BaudRate != 0 {
		return fmt.Errorf("%w: sample rate %d is not an integer multiple of baud rate %d",
			ErrInvalidProfile, p.SampleRate, p.BaudRate)
	}

	if p.Amplitude <= 0 || p.Amplitude > 1 {
		return fmt.Errorf("%w: amplitude %.2f outside (0, 1]", ErrInvalidProfile, p.Amplitude)
	}

	return nil
}

// SamplesPerBit returns the number of samples in one bit window.
func (p *ModulationProfile) SamplesPerBit() int {
	return p.SampleRate / p.BaudRate
}

// BitDuration returns the duration of one bit in seconds.
func (p *ModulationProfile) BitDuration() float64 {
	return 1.0 / float64(p.BaudRate)
}
