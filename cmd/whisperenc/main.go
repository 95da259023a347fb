package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/whispernote/whisperd/pkg/dsp"
	"github.com/whispernote/whisperd/pkg/frame"
	"github.com/whispernote/whisperd/pkg/rf"
	"github.com/whispernote/whisperd/pkg/wav"
)

func main() {
	var (
		payload    = flag.String("payload", "", "Payload to encode")
		inputFile  = flag.String("in", "", "Read payload from file instead of -payload")
		markFreq   = flag.Float64("mark", 2000, "Mark tone frequency in Hz (1000, 2000 or 4000)")
		spaceFreq  = flag.Float64("space", 0, "Space tone frequency in Hz (default mark/2)")
		baudRate   = flag.Int("baud", 100, "Bits per second")
		sampleRate = flag.Int("rate", 44100, "Audio sample rate")
		amplitude  = flag.Float64("amplitude", 0.8, "Peak amplitude as fraction of full scale")
		output     = flag.String("output", "", "Output WAV file")
		rfMode     = flag.Bool("rf", false, "Emit an RF signal descriptor instead of audio")
		rfFreq     = flag.Float64("rf-freq", 433.92, "RF carrier frequency in MHz")
		rfScheme   = flag.String("rf-scheme", "FSK", "RF modulation scheme (FSK, OOK, LoRa)")
		showBits   = flag.Bool("bits", false, "Show the framed bit layout")
	)
	flag.Parse()

	data := []byte(*payload)
	if *inputFile != "" {
		var err error
		data, err = os.ReadFile(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read input file: %v\n", err)
			os.Exit(1)
		}
	}

	if len(data) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s -payload '{\"amt\":1}' -output tx.wav [options]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *rfMode {
		encodeRF(data, *rfFreq, *rfScheme)
		return
	}

	if *spaceFreq == 0 {
		*spaceFreq = *markFreq / 2
	}

	profile, err := dsp.NewProfile(*markFreq, *spaceFreq, *baudRate, *sampleRate, *amplitude)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Encoding Payload\n")
	fmt.Printf("================\n")
	fmt.Printf("Payload: %d bytes\n", len(data))
	fmt.Printf("Mark:    %.0f Hz\n", profile.MarkFreq)
	fmt.Printf("Space:   %.0f Hz\n", profile.SpaceFreq)
	fmt.Printf("Baud:    %d bit/s\n", profile.BaudRate)
	fmt.Printf("Rate:    %d Hz (%d samples/bit)\n", profile.SampleRate, profile.SamplesPerBit())
	fmt.Printf("\n")

	bits, err := frame.EncodeBits(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Framing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Framed to %d bits (%d payload + %d overhead)\n",
		len(bits), len(data)*8, frame.OverheadBits)

	if *showBits {
		fmt.Printf("\nFrame Layout:\n")
		fmt.Printf("=============\n")
		fmt.Printf("  Preamble:  %d bits (0xAAAAAAAA)\n", frame.PreambleBits)
		fmt.Printf("  Sync word: %d bits (0x%02X)\n", frame.SyncBits, frame.SyncWord)
		fmt.Printf("  Length:    %d bits (%d)\n", frame.LengthBits, len(data))
		fmt.Printf("  Payload:   %d bits\n", len(data)*8)
		fmt.Printf("  Checksum:  %d bits (CRC-16/CCITT)\n", frame.ChecksumBits)
		fmt.Printf("\n")
	}

	buffer := dsp.Modulate(bits, profile)
	duration := buffer.Duration().Seconds()

	fmt.Printf("✓ Generated %d audio samples (%.2f seconds)\n", len(buffer.Samples), duration)

	// Audio statistics
	var minSample, maxSample int16 = 32767, -32768
	for _, sample := range buffer.Samples {
		if sample < minSample {
			minSample = sample
		}
		if sample > maxSample {
			maxSample = sample
		}
	}

	fmt.Printf("Audio Stats:\n")
	fmt.Printf("  Range: %d to %d\n", minSample, maxSample)
	fmt.Printf("  Peak:  %.1f%% of full scale\n", float64(maxSample)/32767.0*100)

	if *output != "" {
		if err := os.WriteFile(*output, wav.WriteWAV(buffer), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Wrote WAV to %s\n", *output)
		fmt.Printf("  Play with: aplay %s\n", *output)
	}
}

func encodeRF(data []byte, frequencyMHz float64, scheme string) {
	profile, err := rf.NewProfile(frequencyMHz, rf.ModulationScheme(scheme))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid RF profile: %v\n", err)
		os.Exit(1)
	}

	signal, err := rf.Encode(data, profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encoding failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(signal, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal signal: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "✓ %d bits at %d baud, %.2f ms on air\n",
		signal.TotalBitCount, signal.BaudRate, signal.DurationMS)
}
