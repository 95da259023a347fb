// Package rf implements the bit-level encoding contract for the RF
// transmission stage. Framing is shared with the audio path; this layer
// only reports the bitstream and its timing metadata. Waveform synthesis
// belongs to the external transmitter hardware.
package rf

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/whispernote/whisperd/pkg/frame"
)

// ModulationScheme selects the RF transmitter's modulation.
type ModulationScheme string

const (
	SchemeFSK  ModulationScheme = "FSK"
	SchemeOOK  ModulationScheme = "OOK"
	SchemeLoRa ModulationScheme = "LoRa"
)

// Baud rate is fixed per scheme, not user-configurable.
var schemeBaudRates = map[ModulationScheme]int{
	SchemeFSK:  4800,
	SchemeOOK:  1200,
	SchemeLoRa: 250,
}

// Profile is the immutable RF transmission configuration.
type Profile struct {
	FrequencyMHz float64          `json:"frequency_mhz"`
	Scheme       ModulationScheme `json:"modulation_scheme"`
}

// NewProfile validates the carrier frequency and modulation scheme.
func NewProfile(frequencyMHz float64, scheme ModulationScheme) (*Profile, error) {
	if frequencyMHz <= 0 {
		return nil, fmt.Errorf("invalid RF carrier frequency: %.3f MHz", frequencyMHz)
	}
	if _, ok := schemeBaudRates[scheme]; !ok {
		return nil, fmt.Errorf("unknown modulation scheme: %q", scheme)
	}
	return &Profile{FrequencyMHz: frequencyMHz, Scheme: scheme}, nil
}

// BaudRate returns the fixed baud rate for the profile's scheme.
func (p *Profile) BaudRate() int {
	return schemeBaudRates[p.Scheme]
}

// EncodedSignal describes a framed payload ready for an RF transmitter:
// the complete framed bitstream plus the timing metadata the transmit
// stage and duration-aware UIs need.
type EncodedSignal struct {
	FrequencyMHz    float64          `json:"frequency_mhz"`
	Scheme          ModulationScheme `json:"modulation_scheme"`
	BaudRate        int              `json:"baud_rate"`
	PayloadBitCount int              `json:"payload_bit_count"`
	TotalBitCount   int              `json:"total_bit_count"`
	DurationMS      float64          `json:"duration_ms"`
	EncodedBits     string           `json:"encoded_bits_base64"`
}

// Encode frames a payload for RF transmission. The framing is bit-identical
// to the audio path; duration_ms is rounded to two decimal places.
func Encode(payload []byte, profile *Profile) (*EncodedSignal, error) {
	framed, err := frame.Encode(payload)
	if err != nil {
		return nil, err
	}

	baudRate := profile.BaudRate()
	totalBits := len(framed) * 8
	durationMS := float64(totalBits) / float64(baudRate) * 1000

	return &EncodedSignal{
		FrequencyMHz:    profile.FrequencyMHz,
		Scheme:          profile.Scheme,
		BaudRate:        baudRate,
		PayloadBitCount: len(payload) * 8,
		TotalBitCount:   totalBits,
		DurationMS:      math.Round(durationMS*100) / 100,
		EncodedBits:     base64.StdEncoding.EncodeToString(framed),
	}, nil
}

// Decode recovers a payload from a received RF bitstream. The receiver
// hands over raw bits; framing errors are the same typed failures as on
// the audio path.
func Decode(encodedBits string) ([]byte, error) {
	framed, err := base64.StdEncoding.DecodeString(encodedBits)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 bitstream: %w", err)
	}
	return frame.Decode(frame.BitsFromBytes(framed))
}
