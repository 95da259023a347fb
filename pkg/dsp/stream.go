package dsp

import (
	"context"
	"fmt"
	"sync"

	"github.com/whispernote/whisperd/pkg/frame"
)

// StreamState tracks the sliding-window state machine of a live decode.
type StreamState int

const (
	StateSeekingPreamble StreamState = iota
	StateLocked
	StateReadingFrame
	StateDone
	StateFailed
)

// String returns a human-readable state name.
func (s StreamState) String() string {
	switch s {
	case StateSeekingPreamble:
		return "seeking_preamble"
	case StateLocked:
		return "locked"
	case StateReadingFrame:
		return "reading_frame"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StreamDecoder consumes fixed-size sample chunks from a capture producer
// and decodes a single frame across chunk boundaries. One producer, one
// consumer: the producer calls Push and Close, the consumer runs Run.
// Cancellation discards all in-progress state; a partial frame is never
// surfaced.
type StreamDecoder struct {
	profile *ModulationProfile
	chunks  chan []int16

	mu    sync.RWMutex
	state StreamState

	// Decode window. trimmed counts samples dropped from the front so the
	// lock position stays valid as the window slides.
	buf        []float64
	trimmed    int
	lockOffset int // absolute sample index of the preamble start
	frameBits  int // total framed bits once the length field is read
}

// NewStreamDecoder creates a decoder with a bounded chunk queue.
func NewStreamDecoder(profile *ModulationProfile, queueDepth int) (*StreamDecoder, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if queueDepth < 1 {
		queueDepth = 16
	}
	return &StreamDecoder{
		profile: profile,
		chunks:  make(chan []int16, queueDepth),
		state:   StateSeekingPreamble,
	}, nil
}

// Push queues a captured sample chunk, blocking while the queue is full.
// It fails once the context is cancelled.
func (d *StreamDecoder) Push(ctx context.Context, chunk []int16) error {
	select {
	case d.chunks <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals that the producer will push no more chunks.
func (d *StreamDecoder) Close() {
	close(d.chunks)
}

// State returns the current decode state.
func (d *StreamDecoder) State() StreamState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *StreamDecoder) setState(s StreamState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run consumes chunks until a complete frame decodes, the producer closes
// the stream, or the context is cancelled. On cancellation the in-progress
// state is discarded and the context error returned.
func (d *StreamDecoder) Run(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			d.setState(StateFailed)
			return nil, ctx.Err()

		case chunk, ok := <-d.chunks:
			if !ok {
				return d.finish()
			}

			for _, s := range chunk {
				d.buf = append(d.buf, float64(s)/32768.0)
			}

			payload, done, err := d.process()
			if done {
				return payload, err
			}
		}
	}
}

// process advances the state machine against the buffered samples. done is
// true once a terminal state is reached.
func (d *StreamDecoder) process() ([]byte, bool, error) {
	spb := d.profile.SamplesPerBit()
	syncSpan := frame.PreambleBits + frame.SyncBits

	if d.State() == StateSeekingPreamble {
		if len(d.buf) < (syncSpan+1)*spb {
			return nil, false, nil
		}

		offset, ok := d.seekSync()
		if !ok {
			// No lock yet. Keep enough tail that a preamble split across
			// the chunk boundary is still detectable, drop the rest.
			keep := (syncSpan + 2) * spb
			if len(d.buf) > keep {
				drop := len(d.buf) - keep
				d.buf = d.buf[drop:]
				d.trimmed += drop
			}
			return nil, false, nil
		}

		d.lockOffset = d.trimmed + offset
		d.setState(StateLocked)
	}

	rel := d.lockOffset - d.trimmed

	if d.State() == StateLocked {
		if len(d.buf) < rel+frame.HeaderBits*spb {
			return nil, false, nil
		}

		bits, _ := slicePhase(d.buf[rel:], 0, d.profile)
		length, ok := bits.Uint16At(frame.PreambleBits + frame.SyncBits)
		if !ok {
			return nil, false, nil
		}

		d.frameBits = frame.BitCount(int(length))
		d.setState(StateReadingFrame)
	}

	if d.State() == StateReadingFrame {
		needed := rel + d.frameBits*spb
		if len(d.buf) < needed {
			return nil, false, nil
		}

		bits, _ := slicePhase(d.buf[rel:needed], 0, d.profile)
		payload, err := frame.Decode(bits)
		if err != nil {
			d.setState(StateFailed)
			return nil, true, err
		}

		d.setState(StateDone)
		return payload, true, nil
	}

	return nil, false, nil
}

// seekSync hunts for a preamble and sync word across candidate slicing
// phases of the buffered samples and returns the sample offset of the best
// aligned preamble start.
func (d *StreamDecoder) seekSync() (int, bool) {
	spb := d.profile.SamplesPerBit()
	syncSpan := frame.PreambleBits + frame.SyncBits

	step := spb / phaseSteps
	if step < 1 {
		step = 1
	}

	bestConfidence := -1.0
	bestOffset := 0
	found := false

	for phase := 0; phase < spb; phase += step {
		bits, margins := slicePhase(d.buf, phase, d.profile)

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
			bestOffset = phase + pos*spb
			found = true
		}
	}

	return bestOffset, found
}

// finish maps the state at end-of-stream to a terminal result. A stream
// that ends mid-frame is truncation, not a partial success.
func (d *StreamDecoder) finish() ([]byte, error) {
	switch d.State() {
	case StateDone:
		// Run already returned the payload; reaching finish in StateDone
		// means the producer closed after completion.
		return nil, fmt.Errorf("stream already complete")
	case StateLocked, StateReadingFrame:
		d.setState(StateFailed)
		return nil, frame.ErrTruncated
	default:
		d.setState(StateFailed)
		return nil, frame.ErrPreambleNotFound
	}
}
