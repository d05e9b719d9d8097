package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultMaxGridPoints caps the grid size of one series
const DefaultMaxGridPoints = 5000000

// Config holds the application configuration
type Config struct {
	LogLevel   string                  `yaml:"log_level,omitempty"` // Fallback: info
	Conversion ConversionConfig        `yaml:"conversion,omitempty"`
	Calendar   CalendarConfig          `yaml:"calendar,omitempty"`
	MQTT       MQTTConfig              `yaml:"mqtt,omitempty"`
	Platform   PlatformConfig          `yaml:"platform,omitempty"`
	Sources    map[string]SourceConfig `yaml:"sources,omitempty"` // Keyed by source file name
}

// ConversionConfig holds the defaults of the convert command
type ConversionConfig struct {
	Frequency           string   `yaml:"frequency,omitempty"`      // e.g. "15min", "hourly", empty infers it
	Strategy            string   `yaml:"strategy,omitempty"`       // auto, distribute, zero or nan
	Classification      string   `yaml:"classification,omitempty"` // auto, cumulative or interval
	MaxGridPoints       int      `yaml:"max_grid_points,omitempty"`
	DatetimeKeywords    []string `yaml:"datetime_keywords,omitempty"`
	ConsumptionKeywords []string `yaml:"consumption_keywords,omitempty"`
}

// CalendarConfig holds the on-peak window and occupancy profiles of a site
type CalendarConfig struct {
	OnPeakStart    string             `yaml:"on_peak_start,omitempty"` // "HH:MM", fallback 07:00
	OnPeakEnd      string             `yaml:"on_peak_end,omitempty"`   // "HH:MM", fallback 22:00
	WeekendsOnPeak bool               `yaml:"weekends_on_peak,omitempty"`
	Occupancy      []OccupancyProfile `yaml:"occupancy,omitempty"`
}

// OccupancyProfile is a set of weekdays sharing opening hours
type OccupancyProfile struct {
	Days  []string `yaml:"days"`            // e.g. ["Monday", "Tuesday"]
	Open  string   `yaml:"open,omitempty"`  // "HH:MM", fallback 08:00
	Close string   `yaml:"close,omitempty"` // "HH:MM", fallback 18:00
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Fallback: "gridconvert"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

// PlatformConfig holds the time-series platform HTTP API configuration
type PlatformConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`   // Endpoint receiving standard records
	Token   string `yaml:"token"` // Bearer token
}

// SourceConfig maps a source file to its platform ids
type SourceConfig struct {
	SourceID   string `yaml:"source_id"`
	VariableID string `yaml:"variable_id"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Example returns a starter configuration with every section filled in
func Example() *Config {
	return &Config{
		LogLevel: "info",
		Conversion: ConversionConfig{
			Strategy:       "auto",
			Classification: "auto",
			MaxGridPoints:  DefaultMaxGridPoints,
		},
		Calendar: CalendarConfig{
			OnPeakStart: "07:00",
			OnPeakEnd:   "22:00",
			Occupancy: []OccupancyProfile{
				{Days: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, Open: "08:00", Close: "18:00"},
			},
		},
		MQTT: MQTTConfig{
			Broker:      "localhost:1883",
			TopicPrefix: "gridconvert",
		},
		Sources: map[string]SourceConfig{
			"meter.csv": {SourceID: "", VariableID: ""},
		},
	}
}

// GetLogLevel returns the log level with a default of info
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetMaxGridPoints returns the grid size cap with a default of 5,000,000 points
func (c *Config) GetMaxGridPoints() int {
	if c.Conversion.MaxGridPoints <= 0 {
		return DefaultMaxGridPoints
	}
	return c.Conversion.MaxGridPoints
}

// GetOnPeakStart returns the on-peak start time, falling back to 07:00
func (c *Config) GetOnPeakStart() string {
	if c.Calendar.OnPeakStart == "" {
		return "07:00"
	}
	return c.Calendar.OnPeakStart
}

// GetOnPeakEnd returns the on-peak end time, falling back to 22:00
func (c *Config) GetOnPeakEnd() string {
	if c.Calendar.OnPeakEnd == "" {
		return "22:00"
	}
	return c.Calendar.OnPeakEnd
}

// GetTopicPrefix returns the MQTT topic prefix, falling back to "gridconvert"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "gridconvert"
	}
	return c.MQTT.TopicPrefix
}

// GetSource returns the platform ids of a source file, if configured
func (c *Config) GetSource(file string) (SourceConfig, bool) {
	src, ok := c.Sources[file]
	if !ok || src.SourceID == "" || src.VariableID == "" {
		return SourceConfig{}, false
	}
	return src, true
}

// GetOpen returns the opening time, falling back to 08:00
func (p OccupancyProfile) GetOpen() string {
	if p.Open == "" {
		return "08:00"
	}
	return p.Open
}

// GetClose returns the closing time, falling back to 18:00
func (p OccupancyProfile) GetClose() string {
	if p.Close == "" {
		return "18:00"
	}
	return p.Close
}
