package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes one headless fly-over run.
type Config struct {
	World  WorldConfig  `yaml:"world"`
	Camera CameraConfig `yaml:"camera"`
	Stream StreamConfig `yaml:"stream"`

	// Frames is the number of frames to simulate.
	Frames int `yaml:"frames"`

	// ResetAt regenerates the level at this frame. 0 disables the switch.
	ResetAt int `yaml:"reset_at"`

	// Report is the path of the JSON run report. Empty disables it.
	Report string `yaml:"report"`
}

// WorldConfig describes the terrain.
type WorldConfig struct {
	Size       float32 `yaml:"size"`
	Height     float32 `yaml:"height"`
	LeafSize   float32 `yaml:"leaf_size"`
	Resolution int     `yaml:"resolution"`

	// Heightmap is a PNG/JPEG or zstd raw heightmap. Empty generates one
	// with Samples x Samples samples from Seed.
	Heightmap string `yaml:"heightmap"`
	Samples   int    `yaml:"samples"`
	Seed      uint64 `yaml:"seed"`
}

// CameraConfig describes the fly-over path.
type CameraConfig struct {
	Altitude  float32 `yaml:"altitude"`
	LookAhead float32 `yaml:"look_ahead"`
	FovY      float32 `yaml:"fov_y"`
	Far       float32 `yaml:"far"`

	// Speed is the forward distance per frame in world units.
	Speed float32 `yaml:"speed"`
}

// StreamConfig tunes the streamer.
type StreamConfig struct {
	Workers           int  `yaml:"workers"`
	MaxBuildsPerFrame int  `yaml:"max_builds_per_frame"`
	ReserveAttempts   int  `yaml:"reserve_attempts"`
	RemoveAttempts    int  `yaml:"remove_attempts"`
	Prefetch          bool `yaml:"prefetch"`
}

// Load reads a YAML config. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		World: WorldConfig{
			Size:       1024,
			Height:     96,
			LeafSize:   64,
			Resolution: 16,
			Samples:    256,
			Seed:       1,
		},
		Camera: CameraConfig{
			Altitude:  120,
			LookAhead: 200,
			FovY:      60,
			Far:       600,
			Speed:     8,
		},
		Stream: StreamConfig{
			ReserveAttempts: 4,
			RemoveAttempts:  8,
		},
		Frames: 120,
	}
}

// Normalize fills zero values that have an obvious default.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	d := defaults()
	if c.World.LeafSize <= 0 {
		c.World.LeafSize = d.World.LeafSize
	}
	if c.World.Resolution <= 0 {
		c.World.Resolution = d.World.Resolution
	}
	if c.World.Samples <= 0 {
		c.World.Samples = d.World.Samples
	}
	if c.Camera.FovY <= 0 {
		c.Camera.FovY = d.Camera.FovY
	}
	if c.Camera.Far <= 0 {
		c.Camera.Far = d.Camera.Far
	}
	if c.Stream.ReserveAttempts <= 0 {
		c.Stream.ReserveAttempts = d.Stream.ReserveAttempts
	}
	c.World.Heightmap = strings.TrimSpace(c.World.Heightmap)
	c.Report = strings.TrimSpace(c.Report)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	c.Normalize()
	if c.World.Size <= 0 {
		return fmt.Errorf("world.size must be > 0")
	}
	if c.World.Height < 0 {
		return fmt.Errorf("world.height must be >= 0")
	}
	if c.World.LeafSize > c.World.Size {
		return fmt.Errorf("world.leaf_size must be <= world.size")
	}
	if c.World.Resolution > 1024 {
		return fmt.Errorf("world.resolution must be <= 1024")
	}
	if c.Camera.FovY >= 180 {
		return fmt.Errorf("camera.fov_y must be in (0, 180)")
	}
	if c.Camera.Speed < 0 {
		return fmt.Errorf("camera.speed must be >= 0")
	}
	if c.Frames <= 0 {
		return fmt.Errorf("frames must be > 0")
	}
	if c.ResetAt < 0 || c.ResetAt > c.Frames {
		return fmt.Errorf("reset_at must be in [0, frames]")
	}
	if c.Stream.Workers < 0 || c.Stream.MaxBuildsPerFrame < 0 || c.Stream.RemoveAttempts < 0 {
		return fmt.Errorf("stream settings must be >= 0")
	}
	return nil
}
