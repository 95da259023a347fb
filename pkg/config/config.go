package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the whisperd configuration
type Config struct {
	Station struct {
		NodeID string `yaml:"node_id"`
	} `yaml:"station"`

	Audio struct {
		// FSK profile
		MarkFrequency  float64 `yaml:"mark_frequency"`
		SpaceFrequency float64 `yaml:"space_frequency"` // 0 = mark/2
		BaudRate       int     `yaml:"baud_rate"`
		SampleRate     int     `yaml:"sample_rate"`
		Amplitude      float64 `yaml:"amplitude"`

		// Advanced Options
		SaveDirectory string `yaml:"save_directory"`
		ChunkSize     int    `yaml:"chunk_size"`
		QueueDepth    int    `yaml:"queue_depth"`
	} `yaml:"audio"`

	RF struct {
		FrequencyMHz float64 `yaml:"frequency_mhz"`
		Modulation   string  `yaml:"modulation"`
	} `yaml:"rf"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	API struct {
		UnixSocket string `yaml:"unix_socket"`
	} `yaml:"api"`

	Storage struct {
		DatabasePath     string `yaml:"database_path"`
		MaxTransmissions int    `yaml:"max_transmissions"`
	} `yaml:"storage"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.Audio.MarkFrequency == 0 {
		config.Audio.MarkFrequency = 2000
	}
	if config.Audio.SpaceFrequency == 0 {
		config.Audio.SpaceFrequency = config.Audio.MarkFrequency / 2
	}
	if config.Audio.BaudRate == 0 {
		config.Audio.BaudRate = 100
	}
	if config.Audio.SampleRate == 0 {
		config.Audio.SampleRate = 44100
	}
	if config.Audio.Amplitude == 0 {
		config.Audio.Amplitude = 0.8
	}
	if config.Audio.ChunkSize == 0 {
		config.Audio.ChunkSize = 1024
	}
	if config.Audio.QueueDepth == 0 {
		config.Audio.QueueDepth = 16
	}
	if config.RF.FrequencyMHz == 0 {
		config.RF.FrequencyMHz = 433.92
	}
	if config.RF.Modulation == "" {
		config.RF.Modulation = "FSK"
	}
	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "0.0.0.0"
	}
	if config.API.UnixSocket == "" {
		config.API.UnixSocket = "/tmp/whisperd.sock"
	}
	if config.Storage.DatabasePath == "" {
		config.Storage.DatabasePath = "./whisperd.db"
	}
	if config.Storage.MaxTransmissions == 0 {
		config.Storage.MaxTransmissions = 10000
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 5
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 30
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Station.NodeID == "" {
		return fmt.Errorf("station node_id is required")
	}
	if c.Audio.MarkFrequency == c.Audio.SpaceFrequency {
		return fmt.Errorf("audio mark and space frequencies must differ")
	}
	if float64(c.Audio.SampleRate) < 2*c.Audio.MarkFrequency || float64(c.Audio.SampleRate) < 2*c.Audio.SpaceFrequency {
		return fmt.Errorf("audio sample rate %d violates Nyquist for configured tones", c.Audio.SampleRate)
	}
	if c.Audio.BaudRate <= 0 || c.Audio.SampleRate%c.Audio.BaudRate != 0 {
		return fmt.Errorf("audio sample rate %d is not an integer multiple of baud rate %d",
			c.Audio.SampleRate, c.Audio.BaudRate)
	}
	switch c.RF.Modulation {
	case "FSK", "OOK", "LoRa":
	default:
		return fmt.Errorf("unknown rf modulation %q", c.RF.Modulation)
	}
	return nil
}
