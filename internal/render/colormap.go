package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"
)

// Colormap linearly interpolates a diverging color scale over [0, 1].
type Colormap struct {
	Name   string
	stops  []color.RGBA
	invert bool
}

// ColorBrewer 11-class diverging scales, dark-to-dark through white.
var (
	PuOr = &Colormap{Name: "PuOr", stops: []color.RGBA{
		{127, 59, 8, 255}, {179, 88, 6, 255}, {224, 130, 20, 255},
		{253, 184, 99, 255}, {254, 224, 182, 255}, {247, 247, 247, 255},
		{216, 218, 235, 255}, {178, 171, 210, 255}, {128, 115, 172, 255},
		{84, 39, 136, 255}, {45, 0, 75, 255},
	}}

	RdBu = &Colormap{Name: "RdBu", stops: []color.RGBA{
		{103, 0, 31, 255}, {178, 24, 43, 255}, {214, 96, 77, 255},
		{244, 165, 130, 255}, {253, 219, 199, 255}, {247, 247, 247, 255},
		{209, 229, 240, 255}, {146, 197, 222, 255}, {67, 147, 195, 255},
		{33, 102, 172, 255}, {5, 48, 97, 255},
	}}
)

var colormaps = map[string]*Colormap{
	"puor": PuOr,
	"rdbu": RdBu,
}

// ColormapByName looks a scale up case-insensitively; a trailing "_r"
// reverses it, matching the usual naming convention.
func ColormapByName(name string) (*Colormap, error) {
	key := strings.ToLower(name)
	invert := strings.HasSuffix(key, "_r")
	key = strings.TrimSuffix(key, "_r")

	cm, ok := colormaps[key]
	if !ok {
		return nil, fmt.Errorf("render: unknown colormap %q (have %s)", name, strings.Join(ColormapNames(), ", "))
	}
	if invert {
		return &Colormap{Name: cm.Name + "_r", stops: cm.stops, invert: true}, nil
	}
	return cm, nil
}

// ColormapNames lists the registered scales, sorted.
func ColormapNames() []string {
	names := make([]string, 0, len(colormaps))
	for _, cm := range colormaps {
		names = append(names, cm.Name)
	}
	sort.Strings(names)
	return names
}

// At maps t in [0, 1] to a color, clamping out-of-range values.
func (c *Colormap) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0.5
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if c.invert {
		t = 1 - t
	}

	seg := t * float64(len(c.stops)-1)
	i := int(seg)
	if i >= len(c.stops)-1 {
		return c.stops[len(c.stops)-1]
	}
	f := seg - float64(i)
	a, b := c.stops[i], c.stops[i+1]
	return color.RGBA{
		R: lerp8(a.R, b.R, f),
		G: lerp8(a.G, b.G, f),
		B: lerp8(a.B, b.B, f),
		A: 255,
	}
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}
