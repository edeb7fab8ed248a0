// Package render draws velocity-map figures: the colored pixel grid, the
// aperture circle, kinematic overlays, a physical scalebar and a colorbar,
// written out as PNG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/astrokit/velmaps/internal/velmap"
)

// Options configures a figure. Zero VMin and VMax mean symmetric limits
// around zero from the map data. Scale is the integer pixel upscale.
type Options struct {
	Cmap        *Colormap
	VMin, VMax  float64
	Scale       int
	ScalebarKpc float64
	Colorbar    bool
	Title       string

	// PAAngle draws the kinematic overlay when PAShow is set: the dashed
	// zero-velocity line and the major axis at PAAngle+90 degrees.
	PAShow  bool
	PAAngle float64 // degrees

	// BHPositions marks black-hole sky positions, in kpc.
	BHPositions [][2]float64
}

const (
	marginPx   = 12
	colorbarPx = 18
	labelPx    = 52
)

var (
	background = color.RGBA{255, 255, 255, 255}
	ink        = color.RGBA{20, 20, 20, 255}
	axisGreen  = color.RGBA{0, 140, 60, 255}
)

// Figure renders a velocity map into an RGBA image.
func Figure(m *velmap.VelocityMap, o Options) *image.RGBA {
	if o.Cmap == nil {
		o.Cmap = RdBu
	}
	if o.Scale < 1 {
		o.Scale = 1
	}

	vmin, vmax := o.VMin, o.VMax
	if vmin == 0 && vmax == 0 {
		lo, hi := m.Limits()
		v := math.Max(math.Abs(lo), math.Abs(hi))
		vmin, vmax = -v, v
	}
	if vmax <= vmin {
		vmax = vmin + 1
	}

	mapPx := m.NPixels * o.Scale
	width := marginPx + mapPx + marginPx
	if o.Colorbar {
		width += colorbarPx + labelPx
	}
	height := marginPx + mapPx + marginPx

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	f := &figure{
		img:   img,
		m:     m,
		o:     o,
		vmin:  vmin,
		vmax:  vmax,
		mapX0: marginPx,
		mapY0: marginPx,
		mapPx: mapPx,
	}

	f.drawMap()
	f.drawAperture()
	if o.PAShow {
		f.drawPA()
	}
	f.drawBH()
	if o.ScalebarKpc > 0 {
		f.drawScalebar()
	}
	if o.Colorbar {
		f.drawColorbar()
	}
	if o.Title != "" {
		f.text(f.mapX0+2, f.mapY0-2, o.Title)
	}
	return img
}

// SavePNG renders and writes the figure to a file.
func SavePNG(path string, m *velmap.VelocityMap, o Options) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	defer fd.Close()

	if err := png.Encode(fd, Figure(m, o)); err != nil {
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	return nil
}

type figure struct {
	img        *image.RGBA
	m          *velmap.VelocityMap
	o          Options
	vmin, vmax float64
	mapX0      int
	mapY0      int
	mapPx      int
}

// drawMap paints the upscaled pixel grid, +y up, masked pixels blank.
func (f *figure) drawMap() {
	m, s := f.m, f.o.Scale
	for iy := 0; iy < m.NPixels; iy++ {
		row := m.NPixels - 1 - iy
		for ix := 0; ix < m.NPixels; ix++ {
			if !m.Mask[row][ix] || math.IsNaN(m.Data[row][ix]) {
				continue
			}
			c := f.o.Cmap.At((m.Data[row][ix] - f.vmin) / (f.vmax - f.vmin))
			for dy := 0; dy < s; dy++ {
				for dx := 0; dx < s; dx++ {
					f.img.SetRGBA(f.mapX0+ix*s+dx, f.mapY0+iy*s+dy, c)
				}
			}
		}
	}
}

// kpcToFig maps sky-plane kpc to figure pixel coordinates.
func (f *figure) kpcToFig(x, y float64) (int, int) {
	half := f.m.ImageWidthKpc / 2
	fx := (x + half) / f.m.ImageWidthKpc * float64(f.mapPx)
	fy := (half - y) / f.m.ImageWidthKpc * float64(f.mapPx)
	return f.mapX0 + int(fx), f.mapY0 + int(fy)
}

func (f *figure) drawAperture() {
	r := f.m.ApertureRadius
	if r <= 0 {
		return
	}
	rpx := r / f.m.ImageWidthKpc * float64(f.mapPx)
	cx, cy := f.kpcToFig(0, 0)

	// Dashed circle: alternate short arcs.
	steps := int(2 * math.Pi * rpx)
	if steps < 64 {
		steps = 64
	}
	for i := 0; i < steps; i++ {
		if (i/4)%2 == 1 {
			continue
		}
		a := 2 * math.Pi * float64(i) / float64(steps)
		f.set(cx+int(rpx*math.Cos(a)), cy+int(rpx*math.Sin(a)), ink)
	}
}

// drawPA overlays the zero-velocity line (dashed, ink) and the kinematic
// major axis (solid, green), both clipped to the aperture.
func (f *figure) drawPA() {
	rad := f.m.ApertureRadius
	if rad <= 0 {
		rad = f.m.ImageWidthKpc / 2
	}
	a := f.o.PAAngle * math.Pi / 180

	zx, zy := rad*math.Cos(a), rad*math.Sin(a)
	f.line(-zx, -zy, zx, zy, ink, true)

	mx, my := -rad*math.Sin(a), rad*math.Cos(a)
	f.line(-mx, -my, mx, my, axisGreen, false)
}

func (f *figure) drawBH() {
	for _, p := range f.o.BHPositions {
		cx, cy := f.kpcToFig(p[0], p[1])
		for d := -3; d <= 3; d++ {
			f.set(cx+d, cy, ink)
			f.set(cx, cy+d, ink)
		}
	}
}

// drawScalebar draws a horizontal bar of the given physical length in the
// lower left corner with its label.
func (f *figure) drawScalebar() {
	lenPx := int(f.o.ScalebarKpc / f.m.ImageWidthKpc * float64(f.mapPx))
	if lenPx < 2 || lenPx > f.mapPx {
		return
	}
	x0 := f.mapX0 + f.mapPx/16
	y := f.mapY0 + f.mapPx - f.mapPx/16
	for d := 0; d < lenPx; d++ {
		f.set(x0+d, y, ink)
		f.set(x0+d, y-1, ink)
	}
	f.text(x0, y-4, fmt.Sprintf("%g kpc", f.o.ScalebarKpc))
}

func (f *figure) drawColorbar() {
	x0 := f.mapX0 + f.mapPx + marginPx
	for iy := 0; iy < f.mapPx; iy++ {
		t := 1 - float64(iy)/float64(f.mapPx-1)
		c := f.o.Cmap.At(t)
		for dx := 0; dx < colorbarPx; dx++ {
			f.img.SetRGBA(x0+dx, f.mapY0+iy, c)
		}
	}

	f.text(x0+colorbarPx+3, f.mapY0+8, fmt.Sprintf("%.0f", f.vmax))
	f.text(x0+colorbarPx+3, f.mapY0+f.mapPx/2+4, "km/s")
	f.text(x0+colorbarPx+3, f.mapY0+f.mapPx, fmt.Sprintf("%.0f", f.vmin))
}

// line draws a segment between two kpc coordinates, optionally dashed.
func (f *figure) line(x0, y0, x1, y1 float64, c color.RGBA, dashed bool) {
	px0, py0 := f.kpcToFig(x0, y0)
	px1, py1 := f.kpcToFig(x1, y1)

	steps := intMax(abs(px1-px0), abs(py1-py0))
	if steps == 0 {
		f.set(px0, py0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		if dashed && (i/5)%2 == 1 {
			continue
		}
		t := float64(i) / float64(steps)
		f.set(px0+int(t*float64(px1-px0)), py0+int(t*float64(py1-py0)), c)
	}
}

// set writes a pixel if it lies inside the map area.
func (f *figure) set(x, y int, c color.RGBA) {
	if x < f.mapX0 || x >= f.mapX0+f.mapPx || y < f.mapY0 || y >= f.mapY0+f.mapPx {
		return
	}
	f.img.SetRGBA(x, y, c)
}

func (f *figure) text(x, y int, s string) {
	d := &font.Drawer{
		Dst:  f.img,
		Src:  &image.Uniform{ink},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}
