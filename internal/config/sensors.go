package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical sensor defaults file.
const DefaultConfigPath = "config/sensors.defaults.json"

// SensorConfig is the root configuration for the sensor acquisition core.
// Every field is optional; the Get* accessors supply the defaults used on
// the robot when a key is absent.
type SensorConfig struct {
	// Acquisition loop
	TickPeriod            *string `json:"tick_period,omitempty"` // duration string like "40ms"
	BufferDepth           *int    `json:"buffer_depth,omitempty"`
	PrimingCycles         *int    `json:"priming_cycles,omitempty"`
	OffsetCheckMultiplier *int    `json:"offset_check_multiplier,omitempty"`

	// Breadcrumb trail
	BreadcrumbCapacity   *int `json:"breadcrumb_capacity,omitempty"`
	BreadcrumbDecimation *int `json:"breadcrumb_decimation,omitempty"`

	// Beacon servo sweep (servo units)
	ServoLimit  *int `json:"servo_limit,omitempty"`
	ServoBuffer *int `json:"servo_buffer,omitempty"`
	ServoStep   *int `json:"servo_step,omitempty"`

	// IR rangefinder calibration
	ObstacleFloor    *int     `json:"obstacle_floor,omitempty"`
	ObstacleOffset   *int     `json:"obstacle_offset,omitempty"`
	ObstacleConstant *float64 `json:"obstacle_constant,omitempty"`
	ObstacleMax      *float64 `json:"obstacle_max,omitempty"`

	// MCU link
	Serial         *SerialConfig `json:"serial,omitempty"`
	RequestTimeout *string       `json:"request_timeout,omitempty"` // duration string like "200ms"
}

// SerialConfig mirrors serialmux.PortOptions so the same JSON can be passed
// through without translation.
type SerialConfig struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// EmptySensorConfig returns a SensorConfig with all fields set to nil.
func EmptySensorConfig() *SensorConfig {
	return &SensorConfig{}
}

// LoadSensorConfig loads a SensorConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to the Get* defaults, so partial configs are safe.
func LoadSensorConfig(path string) (*SensorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySensorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repo root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SensorConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSensorConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *SensorConfig) Validate() error {
	if c.TickPeriod != nil && *c.TickPeriod != "" {
		d, err := time.ParseDuration(*c.TickPeriod)
		if err != nil {
			return fmt.Errorf("invalid tick_period '%s': %w", *c.TickPeriod, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_period must be positive, got %s", d)
		}
	}

	if c.RequestTimeout != nil && *c.RequestTimeout != "" {
		if _, err := time.ParseDuration(*c.RequestTimeout); err != nil {
			return fmt.Errorf("invalid request_timeout '%s': %w", *c.RequestTimeout, err)
		}
	}

	positive := []struct {
		name string
		v    *int
	}{
		{"buffer_depth", c.BufferDepth},
		{"priming_cycles", c.PrimingCycles},
		{"offset_check_multiplier", c.OffsetCheckMultiplier},
		{"breadcrumb_capacity", c.BreadcrumbCapacity},
		{"breadcrumb_decimation", c.BreadcrumbDecimation},
		{"servo_limit", c.ServoLimit},
		{"servo_buffer", c.ServoBuffer},
		{"servo_step", c.ServoStep},
	}
	for _, p := range positive {
		if p.v != nil && *p.v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", p.name, *p.v)
		}
	}

	// normalization converts these to unsigned counts
	for _, p := range []struct {
		name string
		v    *int
	}{
		{"obstacle_floor", c.ObstacleFloor},
		{"obstacle_offset", c.ObstacleOffset},
	} {
		if p.v != nil && *p.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", p.name, *p.v)
		}
	}

	if c.ObstacleConstant != nil && *c.ObstacleConstant <= 0 {
		return fmt.Errorf("obstacle_constant must be positive, got %f", *c.ObstacleConstant)
	}
	if c.ObstacleMax != nil && *c.ObstacleMax <= 0 {
		return fmt.Errorf("obstacle_max must be positive, got %f", *c.ObstacleMax)
	}

	if c.Serial != nil && c.Serial.Parity != "" {
		switch strings.ToUpper(strings.TrimSpace(c.Serial.Parity)) {
		case "N", "NONE", "E", "EVEN", "O", "ODD":
		default:
			return fmt.Errorf("unsupported serial parity %q", c.Serial.Parity)
		}
	}

	return nil
}

// GetTickPeriod parses and returns the TickPeriod as a time.Duration.
func (c *SensorConfig) GetTickPeriod() time.Duration {
	if c.TickPeriod == nil || *c.TickPeriod == "" {
		return 40 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.TickPeriod)
	if err != nil || d <= 0 {
		return 40 * time.Millisecond // default on parse error
	}
	return d
}

// GetRequestTimeout parses and returns the RequestTimeout as a time.Duration.
func (c *SensorConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == nil || *c.RequestTimeout == "" {
		return 200 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.RequestTimeout)
	if err != nil {
		return 200 * time.Millisecond // default on parse error
	}
	return d
}

// GetBufferDepth returns the buffer_depth value or the default.
func (c *SensorConfig) GetBufferDepth() int {
	if c.BufferDepth == nil {
		return 5
	}
	return *c.BufferDepth
}

// GetPrimingCycles returns the priming_cycles value or the default.
func (c *SensorConfig) GetPrimingCycles() int {
	if c.PrimingCycles == nil {
		return 5
	}
	return *c.PrimingCycles
}

// GetOffsetCheckMultiplier returns the offset_check_multiplier value or the default.
func (c *SensorConfig) GetOffsetCheckMultiplier() int {
	if c.OffsetCheckMultiplier == nil {
		return 4
	}
	return *c.OffsetCheckMultiplier
}

// GetBreadcrumbCapacity returns the breadcrumb_capacity value or the default.
func (c *SensorConfig) GetBreadcrumbCapacity() int {
	if c.BreadcrumbCapacity == nil {
		return 100
	}
	return *c.BreadcrumbCapacity
}

// GetBreadcrumbDecimation returns the breadcrumb_decimation value or the default.
func (c *SensorConfig) GetBreadcrumbDecimation() int {
	if c.BreadcrumbDecimation == nil {
		return 10
	}
	return *c.BreadcrumbDecimation
}

// GetServoLimit returns the servo_limit value or the default.
func (c *SensorConfig) GetServoLimit() int {
	if c.ServoLimit == nil {
		return 15
	}
	return *c.ServoLimit
}

// GetServoBuffer returns the servo_buffer value or the default.
func (c *SensorConfig) GetServoBuffer() int {
	if c.ServoBuffer == nil {
		return 3
	}
	return *c.ServoBuffer
}

// GetServoStep returns the servo_step value or the default.
func (c *SensorConfig) GetServoStep() int {
	if c.ServoStep == nil {
		return 2
	}
	return *c.ServoStep
}

// GetObstacleFloor returns the obstacle_floor value or the default.
func (c *SensorConfig) GetObstacleFloor() int {
	if c.ObstacleFloor == nil {
		return 160
	}
	return *c.ObstacleFloor
}

// GetObstacleOffset returns the obstacle_offset value or the default.
func (c *SensorConfig) GetObstacleOffset() int {
	if c.ObstacleOffset == nil {
		return 80
	}
	return *c.ObstacleOffset
}

// GetObstacleConstant returns the obstacle_constant value or the default.
func (c *SensorConfig) GetObstacleConstant() float64 {
	if c.ObstacleConstant == nil {
		return 6200.0
	}
	return *c.ObstacleConstant
}

// GetObstacleMax returns the obstacle_max value or the default.
func (c *SensorConfig) GetObstacleMax() float64 {
	if c.ObstacleMax == nil {
		return 70.0
	}
	return *c.ObstacleMax
}

// GetSerial returns the serial section or the MR32 link defaults
// (115200 8N1).
func (c *SensorConfig) GetSerial() SerialConfig {
	if c.Serial == nil {
		return SerialConfig{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
	}
	return *c.Serial
}
