package engine

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/whispernote/whisperd/pkg/audio"
	"github.com/whispernote/whisperd/pkg/config"
	"github.com/whispernote/whisperd/pkg/dsp"
	"github.com/whispernote/whisperd/pkg/frame"
	"github.com/whispernote/whisperd/pkg/logging"
	"github.com/whispernote/whisperd/pkg/protocol"
	"github.com/whispernote/whisperd/pkg/rf"
	"github.com/whispernote/whisperd/pkg/storage"
	"github.com/whispernote/whisperd/pkg/wav"
)

const monitorFFTSize = 4096

// Version is the daemon version string reported in STATUS responses
const Version = "0.1.0"

// CoreEngine is the codec core: it owns the active modulation profile,
// runs the Unix socket command server, and records every encode/decode
// in the transmission store.
type CoreEngine struct {
	config     *config.Config
	socketPath string
	listener   net.Listener
	running    bool
	mutex      sync.RWMutex
	startTime  time.Time

	profile   *dsp.ModulationProfile
	rfProfile *rf.Profile
	store     *storage.TransmissionStore
	monitor   *audio.LevelMonitor
}

// NewCoreEngine creates a core engine from configuration
func NewCoreEngine(cfg *config.Config, store *storage.TransmissionStore) (*CoreEngine, error) {
	profile, err := dsp.NewProfile(
		cfg.Audio.MarkFrequency,
		cfg.Audio.SpaceFrequency,
		cfg.Audio.BaudRate,
		cfg.Audio.SampleRate,
		cfg.Audio.Amplitude,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid audio profile: %w", err)
	}

	rfProfile, err := rf.NewProfile(cfg.RF.FrequencyMHz, rf.ModulationScheme(cfg.RF.Modulation))
	if err != nil {
		return nil, fmt.Errorf("invalid RF profile: %w", err)
	}

	return &CoreEngine{
		config:     cfg,
		socketPath: cfg.API.UnixSocket,
		startTime:  time.Now(),
		profile:    profile,
		rfProfile:  rfProfile,
		store:      store,
		monitor:    audio.NewLevelMonitor(profile, monitorFFTSize),
	}, nil
}

// Profile returns the active modulation profile
func (e *CoreEngine) Profile() *dsp.ModulationProfile {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.profile
}

// RFProfile returns the active RF transmission profile
func (e *CoreEngine) RFProfile() *rf.Profile {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.rfProfile
}

// Monitor returns the audio level monitor
func (e *CoreEngine) Monitor() *audio.LevelMonitor {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.monitor
}

// Store returns the transmission store
func (e *CoreEngine) Store() *storage.TransmissionStore {
	return e.store
}

// Start starts the core engine and Unix socket server
func (e *CoreEngine) Start() error {
	e.mutex.Lock()
	e.running = true
	e.mutex.Unlock()

	if err := e.monitor.Start(); err != nil {
		return fmt.Errorf("failed to start audio monitor: %w", err)
	}

	// Remove existing socket file
	os.Remove(e.socketPath)

	// Create Unix domain socket
	listener, err := net.Listen("unix", e.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create Unix socket: %w", err)
	}
	e.listener = listener

	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(e.socketPath, 0660); err != nil {
		logging.Warnf("engine", "failed to set socket permissions: %v", err)
	}

	logging.Infof("engine", "core engine listening on %s", e.socketPath)

	// Accept connections
	go e.acceptConnections()

	return nil
}

// Stop stops the core engine
func (e *CoreEngine) Stop() error {
	e.mutex.Lock()
	e.running = false
	e.mutex.Unlock()

	if e.listener != nil {
		e.listener.Close()
	}

	if e.monitor != nil && e.monitor.IsRunning() {
		e.monitor.Stop()
	}

	// Clean up socket file
	os.Remove(e.socketPath)

	return nil
}

// acceptConnections accepts and handles socket connections
func (e *CoreEngine) acceptConnections() {
	for e.isRunning() {
		conn, err := e.listener.Accept()
		if err != nil {
			if e.isRunning() {
				logging.Warnf("engine", "socket accept error: %v", err)
			}
			continue
		}

		go e.handleConnection(conn)
	}
}

// handleConnection handles a single socket connection
func (e *CoreEngine) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		// Parse command
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			response := protocol.NewErrorResponse(fmt.Sprintf("parse error: %v", err))
			conn.Write([]byte(response.String() + "\n"))
			continue
		}

		// Handle command
		response := e.HandleCommand(cmd)
		conn.Write([]byte(response.String() + "\n"))

		// Close connection after QUIT command
		if cmd.Type == protocol.CmdQuit {
			break
		}
	}
}

// HandleCommand processes a single command
func (e *CoreEngine) HandleCommand(cmd *protocol.Command) *protocol.Response {
	switch cmd.Type {
	case protocol.CmdStatus:
		return e.handleStatus()

	case protocol.CmdEncode:
		return e.handleEncode(cmd)

	case protocol.CmdEncodeRF:
		return e.handleEncodeRF(cmd)

	case protocol.CmdDecode:
		return e.handleDecode(cmd)

	case protocol.CmdTransmissions:
		return e.handleTransmissions(cmd)

	case protocol.CmdProfile:
		return e.handleProfile(cmd)

	case protocol.CmdPing:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"pong": time.Now().Unix(),
		})

	case protocol.CmdQuit:
		return protocol.NewSuccessResponse(map[string]interface{}{
			"message": "goodbye",
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown command: %s", cmd.Type))
	}
}

// handleStatus returns current daemon status
func (e *CoreEngine) handleStatus() *protocol.Response {
	e.mutex.RLock()
	profile := e.profile
	rfProfile := e.rfProfile
	e.mutex.RUnlock()

	status := protocol.Status{
		NodeID:         e.config.Station.NodeID,
		MarkFrequency:  profile.MarkFreq,
		SpaceFrequency: profile.SpaceFreq,
		BaudRate:       profile.BaudRate,
		SampleRate:     profile.SampleRate,
		RFFrequencyMHz: rfProfile.FrequencyMHz,
		RFModulation:   string(rfProfile.Scheme),
		Uptime:         time.Since(e.startTime).String(),
		StartTime:      e.startTime,
		Version:        Version,
	}

	data := map[string]interface{}{
		"status": status,
	}

	if stats, err := e.store.GetTransmissionStats(); err == nil {
		data["stats"] = stats
	}

	return protocol.NewSuccessResponse(data)
}

// handleEncode frames a payload, synthesizes the FSK waveform and writes
// it to a WAV file on disk
func (e *CoreEngine) handleEncode(cmd *protocol.Command) *protocol.Response {
	payload, resp := e.decodePayloadArg(cmd)
	if resp != nil {
		return resp
	}

	profile := e.Profile()
	buffer, err := dsp.ModulatePayload(payload, profile)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("encode failed: %v", err))
	}

	outputPath, _ := cmd.Args["output"].(string)
	if outputPath == "" {
		dir := e.config.Audio.SaveDirectory
		if dir == "" {
			dir = "."
		}
		outputPath = filepath.Join(dir, fmt.Sprintf("tx-%d.wav", time.Now().UnixNano()))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to create output directory: %v", err))
	}
	if err := os.WriteFile(outputPath, wav.WriteWAV(buffer), 0644); err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to write WAV file: %v", err))
	}

	e.Monitor().ProcessSamples(buffer.Samples)

	record := protocol.Transmission{
		Timestamp:   time.Now(),
		Direction:   "TX",
		Medium:      "audio",
		NodeID:      e.config.Station.NodeID,
		Payload:     base64.StdEncoding.EncodeToString(payload),
		PayloadSize: len(payload),
		DurationMS:  buffer.Duration().Seconds() * 1000,
		Status:      "ok",
	}
	e.recordTransmission(record)

	logging.Infof("engine", "TX audio: %d bytes -> %s (%.0f ms)",
		len(payload), outputPath, record.DurationMS)

	return protocol.NewSuccessResponse(map[string]interface{}{
		"transmission": record,
		"file":         outputPath,
		"sample_count": len(buffer.Samples),
	})
}

// handleEncodeRF frames a payload for the RF transmit stage
func (e *CoreEngine) handleEncodeRF(cmd *protocol.Command) *protocol.Response {
	payload, resp := e.decodePayloadArg(cmd)
	if resp != nil {
		return resp
	}

	signal, err := rf.Encode(payload, e.RFProfile())
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("encode failed: %v", err))
	}

	record := protocol.Transmission{
		Timestamp:   time.Now(),
		Direction:   "TX",
		Medium:      "rf",
		NodeID:      e.config.Station.NodeID,
		Payload:     base64.StdEncoding.EncodeToString(payload),
		PayloadSize: len(payload),
		DurationMS:  signal.DurationMS,
		Status:      "ok",
	}
	e.recordTransmission(record)

	logging.Infof("engine", "TX rf: %d bytes, %s at %.3f MHz (%.2f ms)",
		len(payload), signal.Scheme, signal.FrequencyMHz, signal.DurationMS)

	return protocol.NewSuccessResponse(map[string]interface{}{
		"transmission": record,
		"signal":       signal,
	})
}

// handleDecode reads a WAV capture from disk and recovers the payload
func (e *CoreEngine) handleDecode(cmd *protocol.Command) *protocol.Response {
	path, _ := cmd.Args["path"].(string)
	if path == "" {
		return protocol.NewErrorResponse("decode requires a file path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("failed to read capture: %v", err))
	}

	buffer, err := wav.ReadWAV(data)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("invalid capture: %v", err))
	}

	e.Monitor().ProcessSamples(buffer.Samples)

	record := protocol.Transmission{
		Timestamp:  time.Now(),
		Direction:  "RX",
		Medium:     "audio",
		NodeID:     e.config.Station.NodeID,
		DurationMS: buffer.Duration().Seconds() * 1000,
	}

	payload, err := e.streamDecode(buffer)
	if err != nil {
		record.Status = statusForError(err)
		e.recordTransmission(record)
		logging.Warnf("engine", "RX decode failed for %s: %v", path, err)
		return protocol.NewErrorResponse(fmt.Sprintf("decode failed: %v", err))
	}

	record.Payload = base64.StdEncoding.EncodeToString(payload)
	record.PayloadSize = len(payload)
	record.Status = "ok"
	e.recordTransmission(record)

	logging.Infof("engine", "RX audio: %d bytes from %s", len(payload), path)

	return protocol.NewSuccessResponse(map[string]interface{}{
		"transmission": record,
		"payload":      record.Payload,
	})
}

// streamDecode runs a complete capture through the chunked decode
// pipeline, the same path a live sample feed would take.
func (e *CoreEngine) streamDecode(buffer *wav.WaveBuffer) ([]byte, error) {
	decoder, err := dsp.NewStreamDecoder(e.Profile(), e.config.Audio.QueueDepth)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunkSize := e.config.Audio.ChunkSize
	if chunkSize < 1 {
		chunkSize = 1024
	}

	go func() {
		defer decoder.Close()
		samples := buffer.Samples
		for start := 0; start < len(samples); start += chunkSize {
			end := start + chunkSize
			if end > len(samples) {
				end = len(samples)
			}
			if err := decoder.Push(ctx, samples[start:end]); err != nil {
				return
			}
		}
	}()

	return decoder.Run(ctx)
}

// handleTransmissions returns transmission history
func (e *CoreEngine) handleTransmissions(cmd *protocol.Command) *protocol.Response {
	query := storage.TransmissionQuery{Limit: 50}

	if limitStr, ok := cmd.Args["limit"].(string); ok && limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return protocol.NewErrorResponse(fmt.Sprintf("invalid limit: %q", limitStr))
		}
		query.Limit = limit
	}

	if sinceStr, ok := cmd.Args["since"].(string); ok && sinceStr != "" {
		seconds, err := strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			return protocol.NewErrorResponse(fmt.Sprintf("invalid since timestamp: %q", sinceStr))
		}
		since := time.Unix(seconds, 0)
		query.Since = &since
	}

	if direction, ok := cmd.Args["direction"].(string); ok && direction != "" {
		if direction != "TX" && direction != "RX" {
			return protocol.NewErrorResponse(fmt.Sprintf("invalid direction: %q", direction))
		}
		query.Direction = direction
	}

	records, err := e.store.GetTransmissions(query)
	if err != nil {
		return protocol.NewErrorResponse(fmt.Sprintf("query failed: %v", err))
	}

	return protocol.NewSuccessResponse(map[string]interface{}{
		"transmissions": records,
		"count":         len(records),
	})
}

// handleProfile gets or updates the active modulation profile
func (e *CoreEngine) handleProfile(cmd *protocol.Command) *protocol.Response {
	action, _ := cmd.Args["action"].(string)

	switch action {
	case "", "get":
		profile := e.Profile()
		return protocol.NewSuccessResponse(map[string]interface{}{
			"mark_frequency":  profile.MarkFreq,
			"space_frequency": profile.SpaceFreq,
			"baud_rate":       profile.BaudRate,
			"sample_rate":     profile.SampleRate,
			"amplitude":       profile.Amplitude,
			"samples_per_bit": profile.SamplesPerBit(),
		})

	case "set":
		key, _ := cmd.Args["key"].(string)
		value, _ := cmd.Args["value"].(string)
		if err := e.setProfileField(key, value); err != nil {
			return protocol.NewErrorResponse(err.Error())
		}
		return protocol.NewSuccessResponse(map[string]interface{}{
			"status": "profile updated",
			"key":    key,
			"value":  value,
		})

	default:
		return protocol.NewErrorResponse(fmt.Sprintf("unknown profile action: %q", action))
	}
}

// setProfileField validates and applies a single profile change. The
// candidate profile is validated as a whole before it replaces the
// active one.
func (e *CoreEngine) setProfileField(key, value string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	candidate := *e.profile

	switch key {
	case "mark_frequency":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid mark_frequency: %q", value)
		}
		candidate.MarkFreq = v
	case "space_frequency":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid space_frequency: %q", value)
		}
		candidate.SpaceFreq = v
	case "baud_rate":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid baud_rate: %q", value)
		}
		candidate.BaudRate = v
	case "sample_rate":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid sample_rate: %q", value)
		}
		candidate.SampleRate = v
	case "amplitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid amplitude: %q", value)
		}
		candidate.Amplitude = v
	default:
		return fmt.Errorf("unknown profile key: %q", key)
	}

	if err := candidate.Validate(); err != nil {
		return err
	}

	e.profile = &candidate
	// The monitor's tone bins follow the profile
	if e.monitor.IsRunning() {
		e.monitor.Stop()
	}
	e.monitor = audio.NewLevelMonitor(&candidate, monitorFFTSize)
	if err := e.monitor.Start(); err != nil {
		logging.Warnf("engine", "failed to restart audio monitor: %v", err)
	}

	logging.Infof("engine", "profile updated: %s = %s", key, value)
	return nil
}

// decodePayloadArg extracts and base64-decodes the payload argument
func (e *CoreEngine) decodePayloadArg(cmd *protocol.Command) ([]byte, *protocol.Response) {
	encoded, _ := cmd.Args["payload"].(string)
	if encoded == "" {
		return nil, protocol.NewErrorResponse("payload is required")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, protocol.NewErrorResponse(fmt.Sprintf("payload is not valid base64: %v", err))
	}

	return payload, nil
}

// recordTransmission persists a transmission record, logging on failure
func (e *CoreEngine) recordTransmission(record protocol.Transmission) {
	if err := e.store.StoreTransmission(record); err != nil {
		logging.Errorf("engine", "failed to record transmission: %v", err)
	}
}

// statusForError maps codec failures to transmission record statuses
func statusForError(err error) string {
	switch {
	case errors.Is(err, frame.ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, frame.ErrTruncated):
		return "truncated"
	case errors.Is(err, frame.ErrPreambleNotFound):
		return "no_preamble"
	default:
		return "error"
	}
}

// isRunning checks if the engine is running
func (e *CoreEngine) isRunning() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running
}
