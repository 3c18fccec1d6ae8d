// ABOUTME: Layout tuning parameters with defaults matching the classic force-directed configuration.
// ABOUTME: LoadConfig overlays an optional YAML file onto the defaults.
package layout

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config tunes the force simulation and its frame loop.
type Config struct {
	LinkDistance    float64 `yaml:"link_distance"`
	Charge          float64 `yaml:"charge"`
	DistanceMin     float64 `yaml:"distance_min"`
	CollideRadius   float64 `yaml:"collide_radius"`
	CollideStrength float64 `yaml:"collide_strength"`
	AlphaMin        float64 `yaml:"alpha_min"`
	AlphaDecay      float64 `yaml:"alpha_decay"`
	VelocityDecay   float64 `yaml:"velocity_decay"`

	// DragAlphaTarget is the alpha target held while a node is dragged.
	DragAlphaTarget float64 `yaml:"drag_alpha_target"`
	// FrameRate is the runner's ticks per second.
	FrameRate int `yaml:"frame_rate"`
	// MaxTicks caps synchronous settling for headless rendering.
	MaxTicks int `yaml:"max_ticks"`
}

// DefaultConfig returns the standard layout parameters.
func DefaultConfig() Config {
	const alphaMin = 0.001
	return Config{
		LinkDistance:    150,
		Charge:          -400,
		DistanceMin:     1,
		CollideRadius:   40,
		CollideStrength: 1,
		AlphaMin:        alphaMin,
		AlphaDecay:      1 - math.Pow(alphaMin, 1.0/300),
		VelocityDecay:   0.4,
		DragAlphaTarget: 0.3,
		FrameRate:       60,
		MaxTicks:        300,
	}
}

// LoadConfig reads a YAML file and applies it on top of DefaultConfig. An
// empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading layout config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing layout config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("layout config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects parameters that would make the simulation diverge or stall.
func (c Config) Validate() error {
	var errs []error
	if c.LinkDistance <= 0 {
		errs = append(errs, errors.New("link_distance must be positive"))
	}
	if c.DistanceMin <= 0 {
		errs = append(errs, errors.New("distance_min must be positive"))
	}
	if c.CollideRadius < 0 {
		errs = append(errs, errors.New("collide_radius must not be negative"))
	}
	if c.AlphaMin <= 0 || c.AlphaMin >= 1 {
		errs = append(errs, errors.New("alpha_min must be in (0, 1)"))
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay >= 1 {
		errs = append(errs, errors.New("alpha_decay must be in (0, 1)"))
	}
	if c.VelocityDecay < 0 || c.VelocityDecay > 1 {
		errs = append(errs, errors.New("velocity_decay must be in [0, 1]"))
	}
	if c.FrameRate <= 0 {
		errs = append(errs, errors.New("frame_rate must be positive"))
	}
	if c.MaxTicks <= 0 {
		errs = append(errs, errors.New("max_ticks must be positive"))
	}
	return errors.Join(errs...)
}
