package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Command represents a command sent to the core engine
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the core engine
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Transmission represents one encoded or decoded payload transfer
type Transmission struct {
	ID          int       `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Direction   string    `json:"direction"` // TX or RX
	Medium      string    `json:"medium"`    // audio or rf
	NodeID      string    `json:"node_id"`
	Payload     string    `json:"payload"` // base64
	PayloadSize int       `json:"payload_size"`
	DurationMS  float64   `json:"duration_ms"`
	Status      string    `json:"status"` // ok, checksum_mismatch, truncated, no_preamble
}

// Status represents the current daemon status
type Status struct {
	NodeID         string    `json:"node_id"`
	MarkFrequency  float64   `json:"mark_frequency"`
	SpaceFrequency float64   `json:"space_frequency"`
	BaudRate       int       `json:"baud_rate"`
	SampleRate     int       `json:"sample_rate"`
	RFFrequencyMHz float64   `json:"rf_frequency_mhz"`
	RFModulation   string    `json:"rf_modulation"`
	Uptime         string    `json:"uptime"`
	StartTime      time.Time `json:"start_time"`
	Version        string    `json:"version"`
}

// ParseCommand parses a text command into a Command struct
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(parts[0]),
		Args: make(map[string]interface{}),
	}

	if len(parts) > 1 {
		args := parts[1]

		switch cmd.Type {
		case CmdEncode, CmdEncodeRF:
			// ENCODE:<base64 payload> or ENCODE:<base64 payload> <output path>
			encodeParts := strings.SplitN(args, " ", 2)
			cmd.Args["payload"] = encodeParts[0]
			if len(encodeParts) > 1 {
				cmd.Args["output"] = encodeParts[1]
			}

		case CmdDecode:
			// DECODE:/path/to/capture.wav
			cmd.Args["path"] = args

		case CmdTransmissions:
			// TRANSMISSIONS:10 or TRANSMISSIONS:since:123 or TRANSMISSIONS:direction:TX
			switch {
			case strings.HasPrefix(args, "since:"):
				cmd.Args["since"] = strings.TrimPrefix(args, "since:")
			case strings.HasPrefix(args, "direction:"):
				cmd.Args["direction"] = strings.TrimPrefix(args, "direction:")
			default:
				cmd.Args["limit"] = args
			}

		case CmdProfile:
			// PROFILE:set:mark_frequency:4000 or PROFILE:get
			profileParts := strings.SplitN(args, ":", 3)
			if len(profileParts) >= 1 {
				cmd.Args["action"] = profileParts[0]
			}
			if len(profileParts) >= 2 {
				cmd.Args["key"] = profileParts[1]
			}
			if len(profileParts) >= 3 {
				cmd.Args["value"] = profileParts[2]
			}
		}
	}

	return cmd, nil
}

// FormatResponse converts a Response to JSON string
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// Protocol commands
const (
	CmdStatus        = "STATUS"
	CmdEncode        = "ENCODE"
	CmdEncodeRF      = "ENCODERF"
	CmdDecode        = "DECODE"
	CmdTransmissions = "TRANSMISSIONS"
	CmdProfile       = "PROFILE"
	CmdQuit          = "QUIT"
	CmdPing          = "PING"
)
