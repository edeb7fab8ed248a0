package config

// Presets are named observational setups, keyed by instrument style.
var Presets = map[string]*Config{
	// MaNGA-like IFU observation at the survey's median redshift.
	"manga": {
		Family:           "star",
		Orientation:      "sideon",
		Cosmology:        "planck13",
		Redshift:         0.03,
		ImageWidthKpc:    30,
		PixelScaleArcsec: 0.5,
		FWHMArcsec:       2.5,
		ScalebarKpc:      5,
		OutDir:           "runs",
	},
	// Finer sampling, narrower PSF; useful for well-resolved halos.
	"manga-hires": {
		Family:           "star",
		Orientation:      "sideon",
		Cosmology:        "planck13",
		Redshift:         0.03,
		ImageWidthKpc:    30,
		PixelScaleArcsec: 0.25,
		FWHMArcsec:       1.0,
		ScalebarKpc:      5,
		OutDir:           "runs",
	},
	// Coarse grid with no PSF, for quick looks at large samples.
	"quick": {
		Family:           "star",
		Orientation:      "sideon",
		Cosmology:        "planck13",
		Redshift:         0.03,
		ImageWidthKpc:    30,
		PixelScaleArcsec: 1.0,
		FWHMArcsec:       0,
		ScalebarKpc:      5,
		OutDir:           "runs",
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
