package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	t.Run("STATUS Command", func(t *testing.T) {
		cmd, err := ParseCommand("STATUS")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "STATUS" {
			t.Errorf("Expected type STATUS, got %s", cmd.Type)
		}
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for STATUS, got %d", len(cmd.Args))
		}
	})

	t.Run("ENCODE Command", func(t *testing.T) {
		cmd, err := ParseCommand("ENCODE:eyJhbXQiOjF9")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "ENCODE" {
			t.Errorf("Expected type ENCODE, got %s", cmd.Type)
		}
		if cmd.Args["payload"] != "eyJhbXQiOjF9" {
			t.Errorf("Expected payload eyJhbXQiOjF9, got %v", cmd.Args["payload"])
		}
		if _, exists := cmd.Args["output"]; exists {
			t.Errorf("Expected no output arg, got %v", cmd.Args["output"])
		}
	})

	t.Run("ENCODE Command with Output Path", func(t *testing.T) {
		cmd, err := ParseCommand("ENCODE:eyJhbXQiOjF9 /tmp/out.wav")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Args["payload"] != "eyJhbXQiOjF9" {
			t.Errorf("Expected payload eyJhbXQiOjF9, got %v", cmd.Args["payload"])
		}
		if cmd.Args["output"] != "/tmp/out.wav" {
			t.Errorf("Expected output /tmp/out.wav, got %v", cmd.Args["output"])
		}
	})

	t.Run("ENCODERF Command", func(t *testing.T) {
		cmd, err := ParseCommand("ENCODERF:eyJhbXQiOjF9")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "ENCODERF" {
			t.Errorf("Expected type ENCODERF, got %s", cmd.Type)
		}
		if cmd.Args["payload"] != "eyJhbXQiOjF9" {
			t.Errorf("Expected payload eyJhbXQiOjF9, got %v", cmd.Args["payload"])
		}
	})

	t.Run("DECODE Command", func(t *testing.T) {
		cmd, err := ParseCommand("DECODE:/var/captures/rx-001.wav")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "DECODE" {
			t.Errorf("Expected type DECODE, got %s", cmd.Type)
		}
		if cmd.Args["path"] != "/var/captures/rx-001.wav" {
			t.Errorf("Expected path /var/captures/rx-001.wav, got %v", cmd.Args["path"])
		}
	})

	t.Run("TRANSMISSIONS Command with Limit", func(t *testing.T) {
		cmd, err := ParseCommand("TRANSMISSIONS:20")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "TRANSMISSIONS" {
			t.Errorf("Expected type TRANSMISSIONS, got %s", cmd.Type)
		}
		if cmd.Args["limit"] != "20" {
			t.Errorf("Expected limit 20, got %v", cmd.Args["limit"])
		}
	})

	t.Run("TRANSMISSIONS Command with Since", func(t *testing.T) {
		cmd, err := ParseCommand("TRANSMISSIONS:since:123456789")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Args["since"] != "123456789" {
			t.Errorf("Expected since 123456789, got %v", cmd.Args["since"])
		}
	})

	t.Run("TRANSMISSIONS Command with Direction", func(t *testing.T) {
		cmd, err := ParseCommand("TRANSMISSIONS:direction:TX")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Args["direction"] != "TX" {
			t.Errorf("Expected direction TX, got %v", cmd.Args["direction"])
		}
	})

	t.Run("PROFILE Command Set", func(t *testing.T) {
		cmd, err := ParseCommand("PROFILE:set:mark_frequency:4000")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Type != "PROFILE" {
			t.Errorf("Expected type PROFILE, got %s", cmd.Type)
		}
		if cmd.Args["action"] != "set" {
			t.Errorf("Expected action set, got %v", cmd.Args["action"])
		}
		if cmd.Args["key"] != "mark_frequency" {
			t.Errorf("Expected key mark_frequency, got %v", cmd.Args["key"])
		}
		if cmd.Args["value"] != "4000" {
			t.Errorf("Expected value 4000, got %v", cmd.Args["value"])
		}
	})

	t.Run("PROFILE Command Get", func(t *testing.T) {
		cmd, err := ParseCommand("PROFILE:get:baud_rate")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if cmd.Args["action"] != "get" {
			t.Errorf("Expected action get, got %v", cmd.Args["action"])
		}
		if cmd.Args["key"] != "baud_rate" {
			t.Errorf("Expected key baud_rate, got %v", cmd.Args["key"])
		}
		if _, exists := cmd.Args["value"]; exists {
			t.Errorf("Expected no value for get command, got %v", cmd.Args["value"])
		}
	})

	t.Run("Simple Commands", func(t *testing.T) {
		commands := []string{"QUIT", "PING"}
		for _, cmdText := range commands {
			t.Run(cmdText, func(t *testing.T) {
				cmd, err := ParseCommand(cmdText)
				if err != nil {
					t.Fatalf("Expected no error for %s, got: %v", cmdText, err)
				}
				if cmd.Type != cmdText {
					t.Errorf("Expected type %s, got %s", cmdText, cmd.Type)
				}
				if len(cmd.Args) != 0 {
					t.Errorf("Expected no args for %s, got %d", cmdText, len(cmd.Args))
				}
			})
		}
	})

	t.Run("Case Insensitive", func(t *testing.T) {
		cmd, err := ParseCommand("status")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "STATUS" {
			t.Errorf("Expected uppercase STATUS, got %s", cmd.Type)
		}
	})

	t.Run("Whitespace Handling", func(t *testing.T) {
		cmd, err := ParseCommand("  PING  ")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if cmd.Type != "PING" {
			t.Errorf("Expected type PING, got %s", cmd.Type)
		}
	})

	t.Run("Unknown Command", func(t *testing.T) {
		cmd, err := ParseCommand("UNKNOWN:test")
		if err != nil {
			t.Fatalf("Expected no error for unknown command, got: %v", err)
		}
		if cmd.Type != "UNKNOWN" {
			t.Errorf("Expected type UNKNOWN, got %s", cmd.Type)
		}
		// Unknown commands should not parse args specially
		if len(cmd.Args) != 0 {
			t.Errorf("Expected no args for unknown command, got %d", len(cmd.Args))
		}
	})

	t.Run("Empty Command", func(t *testing.T) {
		cmd, err := ParseCommand("")
		if err != nil {
			t.Fatalf("Expected no error for empty command, got: %v", err)
		}
		if cmd.Type != "" {
			t.Errorf("Expected empty type, got %s", cmd.Type)
		}
	})
}

func TestResponse(t *testing.T) {
	t.Run("Success Response JSON", func(t *testing.T) {
		data := map[string]interface{}{
			"node_id":   "node-7f3a",
			"baud_rate": 100,
			"connected": true,
		}
		resp := NewSuccessResponse(data)

		if !resp.Success {
			t.Error("Expected success to be true")
		}
		if resp.Error != "" {
			t.Errorf("Expected no error, got %s", resp.Error)
		}
		if resp.Data["node_id"] != "node-7f3a" {
			t.Errorf("Expected node_id node-7f3a, got %v", resp.Data["node_id"])
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != true {
			t.Error("Expected success true in JSON")
		}
		if parsed["data"] == nil {
			t.Error("Expected data in JSON")
		}
	})

	t.Run("Error Response JSON", func(t *testing.T) {
		resp := NewErrorResponse("invalid command")

		if resp.Success {
			t.Error("Expected success to be false")
		}
		if resp.Error != "invalid command" {
			t.Errorf("Expected error 'invalid command', got %s", resp.Error)
		}
		if resp.Data != nil {
			t.Errorf("Expected no data for error response, got %v", resp.Data)
		}

		jsonStr := resp.String()
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != false {
			t.Error("Expected success false in JSON")
		}
		if parsed["error"] != "invalid command" {
			t.Errorf("Expected error in JSON, got %v", parsed["error"])
		}
	})

	t.Run("Empty Success Response", func(t *testing.T) {
		resp := NewSuccessResponse(nil)
		jsonStr := resp.String()

		// Should still be valid JSON
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		if parsed["success"] != true {
			t.Error("Expected success true in JSON")
		}
	})

	t.Run("Response with Complex Data", func(t *testing.T) {
		data := map[string]interface{}{
			"transmissions": []map[string]interface{}{
				{
					"id":        1,
					"direction": "TX",
					"medium":    "audio",
					"timestamp": "2023-01-01T12:00:00Z",
				},
				{
					"id":        2,
					"direction": "RX",
					"medium":    "rf",
					"timestamp": "2023-01-01T12:01:00Z",
				},
			},
			"count": 2,
		}
		resp := NewSuccessResponse(data)
		jsonStr := resp.String()

		// Should be valid JSON with nested structures
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Failed to parse JSON: %v", err)
		}

		dataField := parsed["data"].(map[string]interface{})
		if dataField["count"] != float64(2) { // JSON numbers become float64
			t.Errorf("Expected count 2, got %v", dataField["count"])
		}
	})
}

func TestTransmission(t *testing.T) {
	t.Run("Transmission JSON Serialization", func(t *testing.T) {
		timestamp := time.Now()
		tx := Transmission{
			ID:          123,
			Timestamp:   timestamp,
			Direction:   "TX",
			Medium:      "audio",
			NodeID:      "node-7f3a",
			Payload:     "eyJhbXQiOjF9",
			PayloadSize: 9,
			DurationMS:  1440.0,
			Status:      "ok",
		}

		data, err := json.Marshal(tx)
		if err != nil {
			t.Fatalf("Failed to marshal transmission: %v", err)
		}

		var parsed Transmission
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("Failed to unmarshal transmission: %v", err)
		}

		if parsed.ID != 123 {
			t.Errorf("Expected ID 123, got %d", parsed.ID)
		}
		if parsed.Direction != "TX" {
			t.Errorf("Expected direction TX, got %s", parsed.Direction)
		}
		if parsed.Medium != "audio" {
			t.Errorf("Expected medium audio, got %s", parsed.Medium)
		}
		if parsed.PayloadSize != 9 {
			t.Errorf("Expected payload size 9, got %d", parsed.PayloadSize)
		}
		if parsed.DurationMS != 1440.0 {
			t.Errorf("Expected duration 1440, got %f", parsed.DurationMS)
		}
		if parsed.Status != "ok" {
			t.Errorf("Expected status ok, got %s", parsed.Status)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("Status JSON Serialization", func(t *testing.T) {
		startTime := time.Now()
		status := Status{
			NodeID:         "node-7f3a",
			MarkFrequency:  2000,
			SpaceFrequency: 1000,
			BaudRate:       100,
			SampleRate:     44100,
			RFFrequencyMHz: 433.92,
			RFModulation:   "FSK",
			Uptime:         "1h30m",
			StartTime:      startTime,
			Version:        "0.1.0",
		}

		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("Failed to marshal status: %v", err)
		}

		var parsed Status
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("Failed to unmarshal status: %v", err)
		}

		if parsed.NodeID != "node-7f3a" {
			t.Errorf("Expected node_id node-7f3a, got %s", parsed.NodeID)
		}
		if parsed.MarkFrequency != 2000 {
			t.Errorf("Expected mark frequency 2000, got %f", parsed.MarkFrequency)
		}
		if parsed.BaudRate != 100 {
			t.Errorf("Expected baud rate 100, got %d", parsed.BaudRate)
		}
		if parsed.RFModulation != "FSK" {
			t.Errorf("Expected RF modulation FSK, got %s", parsed.RFModulation)
		}
	})
}

func TestConstants(t *testing.T) {
	// Test that all command constants are defined
	constants := map[string]string{
		"STATUS":        CmdStatus,
		"ENCODE":        CmdEncode,
		"ENCODERF":      CmdEncodeRF,
		"DECODE":        CmdDecode,
		"TRANSMISSIONS": CmdTransmissions,
		"PROFILE":       CmdProfile,
		"QUIT":          CmdQuit,
		"PING":          CmdPing,
	}

	for expected, constant := range constants {
		if constant != expected {
			t.Errorf("Expected constant %s to equal %s, got %s", expected, expected, constant)
		}
	}
}

func TestProtocolIntegration(t *testing.T) {
	// Test a complete protocol flow: parse command -> generate response -> serialize
	t.Run("Complete Flow", func(t *testing.T) {
		// Parse a command
		cmd, err := ParseCommand("ENCODE:eyJmcm9tIjoibm9kZS1hIn0=")
		if err != nil {
			t.Fatalf("Failed to parse command: %v", err)
		}

		// Simulate processing and create response
		responseData := map[string]interface{}{
			"status": "encoded",
			"transmission": map[string]interface{}{
				"id":          456,
				"payload":     cmd.Args["payload"],
				"direction":   "TX",
				"medium":      "audio",
				"duration_ms": 1440.0,
			},
		}
		resp := NewSuccessResponse(responseData)

		// Serialize response
		jsonStr := resp.String()

		// Verify the complete flow
		if !strings.Contains(jsonStr, "encoded") {
			t.Error("Expected 'encoded' in response JSON")
		}
		if !strings.Contains(jsonStr, "eyJmcm9tIjoibm9kZS1hIn0=") {
			t.Error("Expected payload in response JSON")
		}

		// Verify it's valid JSON
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Response is not valid JSON: %v", err)
		}
	})

	t.Run("Error Flow", func(t *testing.T) {
		// Test error response flow
		resp := NewErrorResponse("command parsing failed: invalid syntax")
		jsonStr := resp.String()

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			t.Fatalf("Error response is not valid JSON: %v", err)
		}

		if parsed["success"] != false {
			t.Error("Expected success false for error response")
		}
		if !strings.Contains(parsed["error"].(string), "command parsing failed") {
			t.Error("Expected error message in response")
		}
	})
}
