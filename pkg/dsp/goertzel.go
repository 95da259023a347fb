package dsp

import "math"

// goertzelPower computes the signal energy at a single frequency over a
// sample window using the Goertzel recurrence. This is the narrow-band
// comparator the demodulator runs twice per bit window, once per tone;
// a full FFT would be wasted on two bins.
func goertzelPower(samples []float64, sampleRate int, freq float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var q1, q2 float64
	for _, s := range samples {
		q0 := coeff*q1 - q2 + s
		q2 = q1
		q1 = q0
	}

	return q1*q1 + q2*q2 - coeff*q1*q2
}

// normalizeSamples converts int16 PCM to float64 in [-1, 1).
func normalizeSamples(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}
