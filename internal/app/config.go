// Package app provides configuration management and wiring for the emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gointv/internal/stic"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Scale      int  `json:"scale"` // multiplier of the 160x200 display
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend     string  `json:"backend"` // "ebitengine", "headless", "terminal"
	Palette     string  `json:"palette"` // "", "ntsc", "pal", "classic"
	FrameSkip   int     `json:"frame_skip"`
	Filter      string  `json:"filter"`       // "nearest", "linear"
	AspectRatio string  `json:"aspect_ratio"` // "4:3", "stretch"
	VSync       bool    `json:"vsync"`
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	Saturation  float64 `json:"saturation"`
	Overlay     bool    `json:"overlay"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	Region    string  `json:"region"`    // "NTSC", "PAL"
	STICType  string  `json:"stic_type"` // "8900", "STIC1A"
	GRAMSize  int     `json:"gram_size"` // 0, 1 or 2 for 64, 128 or 256 cards
	RandomMem bool    `json:"random_mem"`
	Seed      int64   `json:"seed"`
	GROMPath  string  `json:"grom_path"` // empty selects the built-in test pattern
	ExecPath  string  `json:"exec_path"` // optional Executive ROM image
	Speed     float64 `json:"speed"`     // 1.0 is real time
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging  bool   `json:"enable_logging"`
	LogLevel       string `json:"log_level"`  // "DEBUG", "INFO", "WARN", "ERROR"
	STICDebug      string `json:"stic_debug"` // comma separated chip debug flags
	GRAMCapture    bool   `json:"gram_capture"`
	DumpFrames     int    `json:"dump_frames"` // text dumps of the first N frames, 0 disables
	RequestLogging bool   `json:"request_logging"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	Screenshots string `json:"screenshots"`
	Captures    string `json:"captures"` // movies, GRAM shots and frame dumps
	States      string `json:"states"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      640,
			Height:     480,
			Fullscreen: false,
			Scale:      3,
		},
		Video: VideoConfig{
			Backend:     "ebitengine",
			Palette:     "",
			FrameSkip:   0,
			Filter:      "nearest",
			AspectRatio: "4:3",
			VSync:       true,
			Brightness:  1.0,
			Contrast:    1.0,
			Saturation:  1.0,
		},
		Emulation: EmulationConfig{
			Region:   "NTSC",
			STICType: "8900",
			GRAMSize: 0,
			Speed:    1.0,
		},
		Debug: DebugConfig{
			LogLevel:  "INFO",
			STICDebug: "",
		},
		Paths: PathsConfig{
			Screenshots: "./screenshots",
			Captures:    "./captures",
			States:      "./states",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	// A missing file is created with the defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate rejects settings the chip cannot run with and clamps the rest
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window dimensions: %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}
	if c.Video.Contrast < 0.1 || c.Video.Contrast > 3.0 {
		c.Video.Contrast = 1.0
	}
	if c.Video.Saturation < 0.0 || c.Video.Saturation > 3.0 {
		c.Video.Saturation = 1.0
	}
	if c.Video.FrameSkip < 0 {
		c.Video.FrameSkip = 0
	}

	if _, err := c.Region(); err != nil {
		return &ConfigError{Field: "emulation.region", Value: c.Emulation.Region, Err: err}
	}
	if _, err := c.ChipType(); err != nil {
		return &ConfigError{Field: "emulation.stic_type", Value: c.Emulation.STICType, Err: err}
	}
	if c.Emulation.GRAMSize < 0 || c.Emulation.GRAMSize > 2 {
		return &ConfigError{Field: "emulation.gram_size", Value: c.Emulation.GRAMSize, Err: fmt.Errorf("must be 0, 1 or 2")}
	}
	if c.Emulation.Speed <= 0 {
		c.Emulation.Speed = 1.0
	}

	if _, unknown := stic.ParseDebugFlags(c.Debug.STICDebug); len(unknown) > 0 {
		return &ConfigError{Field: "debug.stic_debug", Value: c.Debug.STICDebug, Err: fmt.Errorf("unknown flags %s", strings.Join(unknown, ","))}
	}
	if c.Debug.DumpFrames < 0 {
		c.Debug.DumpFrames = 0
	}

	return nil
}

// Region returns the configured video standard
func (c *Config) Region() (stic.Region, error) {
	switch strings.ToUpper(c.Emulation.Region) {
	case "", "NTSC":
		return stic.NTSC, nil
	case "PAL":
		return stic.PAL, nil
	}
	return stic.NTSC, fmt.Errorf("unknown region %q", c.Emulation.Region)
}

// ChipType returns the configured chip revision
func (c *Config) ChipType() (stic.ChipType, error) {
	switch strings.ToUpper(c.Emulation.STICType) {
	case "", "8900", "AY-3-8900", "AY38900":
		return stic.AY38900, nil
	case "STIC1A", "1A":
		return stic.STIC1A, nil
	}
	return stic.AY38900, fmt.Errorf("unknown chip type %q", c.Emulation.STICType)
}

// STICConfig translates the emulation and debug sections into a chip
// configuration
func (c *Config) STICConfig() (stic.Config, error) {
	region, err := c.Region()
	if err != nil {
		return stic.Config{}, err
	}
	chip, err := c.ChipType()
	if err != nil {
		return stic.Config{}, err
	}
	flags, unknown := stic.ParseDebugFlags(c.Debug.STICDebug)
	if len(unknown) > 0 {
		return stic.Config{}, fmt.Errorf("unknown debug flags %s", strings.Join(unknown, ","))
	}
	if c.Debug.GRAMCapture {
		flags |= stic.GRAMShot
	}
	return stic.Config{
		Region:    region,
		Type:      chip,
		GRAMSize:  c.Emulation.GRAMSize,
		RandomMem: c.Emulation.RandomMem,
		Seed:      c.Emulation.Seed,
		Debug:     flags,
	}, nil
}

// Verbose reports whether debug logging is on
func (c *Config) Verbose() bool {
	return c.Debug.EnableLogging || strings.EqualFold(c.Debug.LogLevel, "DEBUG")
}

// GetDisplayResolution returns the composed frame size
func (c *Config) GetDisplayResolution() (int, int) {
	return stic.FrameWidth, stic.FrameHeight
}

// GetWindowResolution returns the window resolution based on scale. The
// display's pixels are twice as wide as they are tall.
func (c *Config) GetWindowResolution() (int, int) {
	w, h := c.GetDisplayResolution()
	return w * 2 * c.Window.Scale, h * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded
	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/gointv.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}
