package client

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/whispernote/whisperd/pkg/protocol"
)

// SocketClient represents a client connection to the core engine
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SendCommand sends a command and returns the response
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	// Connect to Unix socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	// Set read/write timeout
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Send command
	_, err = conn.Write([]byte(cmd + "\n"))
	if err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	// Encoded frames for large payloads exceed the default line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return nil, fmt.Errorf("no response received")
	}

	responseText := scanner.Text()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	// Parse JSON response
	var response protocol.Response
	if err := json.Unmarshal([]byte(responseText), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// GetStatus gets the current daemon status
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.SendCommand("STATUS")
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("status error: %s", resp.Error)
	}

	// Extract status from response
	statusData, ok := resp.Data["status"]
	if !ok {
		return nil, fmt.Errorf("status not found in response")
	}

	// Convert to JSON and back to parse properly
	statusJSON, _ := json.Marshal(statusData)
	var status protocol.Status
	if err := json.Unmarshal(statusJSON, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}

	return &status, nil
}

// GetTransmissions gets recent transmission records
func (c *SocketClient) GetTransmissions(limit int) ([]protocol.Transmission, error) {
	cmd := "TRANSMISSIONS"
	if limit > 0 {
		cmd = fmt.Sprintf("TRANSMISSIONS:%d", limit)
	}

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("transmissions error: %s", resp.Error)
	}

	// Extract transmissions from response
	recordsData, ok := resp.Data["transmissions"]
	if !ok {
		return []protocol.Transmission{}, nil
	}

	// Convert to JSON and back to parse properly
	recordsJSON, _ := json.Marshal(recordsData)
	var records []protocol.Transmission
	if err := json.Unmarshal(recordsJSON, &records); err != nil {
		return nil, fmt.Errorf("failed to parse transmissions: %w", err)
	}

	return records, nil
}

// EncodeAudio frames a payload, synthesizes the waveform and writes it to
// outputPath on the daemon host. It returns the transmission record.
func (c *SocketClient) EncodeAudio(payload []byte, outputPath string) (*protocol.Transmission, error) {
	cmd := fmt.Sprintf("ENCODE:%s", base64.StdEncoding.EncodeToString(payload))
	if outputPath != "" {
		cmd += " " + outputPath
	}
	return c.sendTransmissionCommand(cmd)
}

// EncodeRF frames a payload for RF transmission and returns the
// transmission record. The encoded signal is in the response data.
func (c *SocketClient) EncodeRF(payload []byte) (*protocol.Response, error) {
	cmd := fmt.Sprintf("ENCODERF:%s", base64.StdEncoding.EncodeToString(payload))

	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("encode error: %s", resp.Error)
	}

	return resp, nil
}

// DecodeFile asks the daemon to decode a WAV capture on its filesystem
func (c *SocketClient) DecodeFile(path string) (*protocol.Transmission, error) {
	return c.sendTransmissionCommand(fmt.Sprintf("DECODE:%s", path))
}

func (c *SocketClient) sendTransmissionCommand(cmd string) (*protocol.Transmission, error) {
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("command error: %s", resp.Error)
	}

	recordData, ok := resp.Data["transmission"]
	if !ok {
		return nil, fmt.Errorf("transmission not found in response")
	}

	recordJSON, _ := json.Marshal(recordData)
	var record protocol.Transmission
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		return nil, fmt.Errorf("failed to parse transmission: %w", err)
	}

	return &record, nil
}

// GetProfile gets the active modulation profile
func (c *SocketClient) GetProfile() (map[string]interface{}, error) {
	resp, err := c.SendCommand("PROFILE:get")
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("profile error: %s", resp.Error)
	}

	return resp.Data, nil
}

// Ping tests the connection
func (c *SocketClient) Ping() error {
	resp, err := c.SendCommand("PING")
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("ping error: %s", resp.Error)
	}

	return nil
}

// IsConnected tests if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
