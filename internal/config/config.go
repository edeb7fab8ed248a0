package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MANGA-like observational defaults.
const (
	DefaultRedshift    = 0.03
	DefaultWidthKpc    = 30.0
	DefaultPixelScale  = 0.5
	DefaultFWHM        = 2.5
	DefaultScalebarKpc = 5.0
	DefaultStarCmap    = "PuOr"
	DefaultGasCmap     = "RdBu"
)

type Config struct {
	Snapshot         string  `yaml:"snapshot"`
	Family           string  `yaml:"family"`
	Orientation      string  `yaml:"orientation"`
	Cosmology        string  `yaml:"cosmology"`
	Redshift         float64 `yaml:"redshift"`
	ImageWidthKpc    float64 `yaml:"image_width_kpc"`
	PixelScaleArcsec float64 `yaml:"pixel_scale_arcsec"`
	FWHMArcsec       float64 `yaml:"fwhm_arcsec"`

	// ApertureKpc of zero derives the aperture from the stellar
	// half-mass radius.
	ApertureKpc float64 `yaml:"aperture_kpc"`

	Cmap        string  `yaml:"cmap"`
	VMin        float64 `yaml:"vmin"`
	VMax        float64 `yaml:"vmax"`
	ScalebarKpc float64 `yaml:"scalebar_kpc"`
	OutDir      string  `yaml:"out_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Family:           "star",
		Orientation:      "sideon",
		Cosmology:        "planck13",
		Redshift:         DefaultRedshift,
		ImageWidthKpc:    DefaultWidthKpc,
		PixelScaleArcsec: DefaultPixelScale,
		FWHMArcsec:       DefaultFWHM,
		ScalebarKpc:      DefaultScalebarKpc,
		OutDir:           "runs",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultCmap picks the usual scale for a particle family when the
// config does not name one.
func (c *Config) DefaultCmap() string {
	if c.Cmap != "" {
		return c.Cmap
	}
	if c.Family == "gas" {
		return DefaultGasCmap
	}
	return DefaultStarCmap
}

// Validate catches config combinations the pipeline cannot run.
func (c *Config) Validate() error {
	if c.Redshift < 0 {
		return fmt.Errorf("config: negative redshift %g", c.Redshift)
	}
	if c.ImageWidthKpc <= 0 {
		return fmt.Errorf("config: image width must be positive, got %g", c.ImageWidthKpc)
	}
	if c.PixelScaleArcsec <= 0 {
		return fmt.Errorf("config: pixel scale must be positive, got %g", c.PixelScaleArcsec)
	}
	if c.FWHMArcsec < 0 {
		return fmt.Errorf("config: negative FWHM %g", c.FWHMArcsec)
	}
	if c.ApertureKpc < 0 {
		return fmt.Errorf("config: negative aperture %g", c.ApertureKpc)
	}
	return nil
}
