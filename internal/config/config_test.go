package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Family != "star" {
		t.Errorf("expected family star, got %s", cfg.Family)
	}
	if cfg.PixelScaleArcsec <= 0 {
		t.Error("pixel scale should be positive")
	}
	if cfg.FWHMArcsec <= 0 {
		t.Error("fwhm should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velmaps.yaml")
	if err := Save(path, &Config{Family: "gas", Redshift: 0.1, ImageWidthKpc: 50, PixelScaleArcsec: 0.5}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Family != "gas" || cfg.Redshift != 0.1 || cfg.ImageWidthKpc != 50 {
		t.Errorf("loaded values wrong: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	bad := []*Config{
		{Redshift: -1, ImageWidthKpc: 30, PixelScaleArcsec: 0.5},
		{ImageWidthKpc: 0, PixelScaleArcsec: 0.5},
		{ImageWidthKpc: 30, PixelScaleArcsec: -0.5},
		{ImageWidthKpc: 30, PixelScaleArcsec: 0.5, FWHMArcsec: -2},
		{ImageWidthKpc: 30, PixelScaleArcsec: 0.5, ApertureKpc: -1},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected a validation error", i)
		}
	}
}

func TestDefaultCmap(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DefaultCmap() != "PuOr" {
		t.Errorf("star cmap = %s", cfg.DefaultCmap())
	}
	cfg.Family = "gas"
	if cfg.DefaultCmap() != "RdBu" {
		t.Errorf("gas cmap = %s", cfg.DefaultCmap())
	}
	cfg.Cmap = "RdBu_r"
	if cfg.DefaultCmap() != "RdBu_r" {
		t.Error("explicit cmap not honored")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("manga")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.FWHMArcsec != 2.5 {
		t.Errorf("expected fwhm 2.5, got %f", cfg.FWHMArcsec)
	}

	// Presets come back as copies.
	cfg.FWHMArcsec = 99
	if GetPreset("manga").FWHMArcsec == 99 {
		t.Error("preset mutated through a returned copy")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) < 3 {
		t.Errorf("expected at least 3 presets, got %d", len(names))
	}
}
