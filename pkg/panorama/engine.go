// Package panorama reprojects six co-located camera frames onto an
// equirectangular panorama. The GPU path is the embedded fragment shader;
// Engine is its CPU reference and backs frame export and tests.
package panorama

import (
	"image"
	"image/color"
	"math"

	"github.com/teslashibe/go-teslacam/pkg/rig"
)

// Vec3 is a world-space direction. +Z is forward, +Y up.
type Vec3 struct {
	X, Y, Z float64
}

// DirectionFromUV maps equirectangular texture coordinates to a unit
// direction. u=0.5 looks forward, v=0 is the nadir.
func DirectionFromUV(u, v float64) Vec3 {
	lon := (1 - 2*u) * math.Pi
	lat := (v - 0.5) * math.Pi
	return Vec3{
		X: -math.Sin(lon) * math.Cos(lat),
		Y: math.Sin(lat),
		Z: math.Cos(lon) * math.Cos(lat),
	}
}

// UVFromDirection is the inverse of DirectionFromUV.
func UVFromDirection(d Vec3) (u, v float64) {
	n := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	if n == 0 {
		return 0.5, 0.5
	}
	lon := math.Atan2(-d.X, d.Z)
	lat := math.Asin(clampUnit(d.Y / n))
	return (1 - lon/math.Pi) / 2, lat/math.Pi + 0.5
}

type camera struct {
	enabled      bool
	cos, sin     float64
	halfH, halfV float64
	tanH, tanV   float64
}

// Engine evaluates the blend for one set of uniforms and textures.
// It is not safe for concurrent Configure calls; Shade may run in parallel.
type Engine struct {
	cams     [rig.NumCameras]camera
	overlap  float64
	priority int
	textures *TextureSet
}

// NewEngine returns an engine sampling from textures.
func NewEngine(textures *TextureSet) *Engine {
	return &Engine{textures: textures, priority: PriorityNone}
}

// Configure caches per-camera trigonometry for u.
func (e *Engine) Configure(u Uniforms) {
	e.overlap = u.Overlap
	e.priority = u.PriorityCam
	for i := range e.cams {
		halfH, halfV := u.FOVH[i]/2, u.FOVV[i]/2
		e.cams[i] = camera{
			enabled: u.Enabled[i] && halfH > 0 && halfV > 0,
			cos:     math.Cos(u.Yaw[i]),
			sin:     math.Sin(u.Yaw[i]),
			halfH:   halfH,
			halfV:   halfV,
			tanH:    math.Tan(halfH),
			tanV:    math.Tan(halfV),
		}
	}
}

// Project returns the geometric blend weight of camera i for dir and the
// texture coordinates to sample. ok is false when the camera is disabled or
// dir lies outside its extended coverage.
func (e *Engine) Project(i int, dir Vec3) (weight, u, v float64, ok bool) {
	c := &e.cams[i]
	if !c.enabled {
		return 0, 0, 0, false
	}

	lx := dir.X*c.cos - dir.Z*c.sin
	ly := dir.Y
	lz := dir.X*c.sin + dir.Z*c.cos

	h := math.Atan2(lx, lz)
	vert := math.Atan2(ly, math.Hypot(lx, lz))
	ah, av := math.Abs(h), math.Abs(vert)
	if ah > c.halfH+e.overlap || av > PoleStretch*c.halfV {
		return 0, 0, 0, false
	}

	wh := 1 - smoothstep(c.halfH, c.halfH+math.Max(e.overlap, 1e-5), ah)
	wv := 1 - smoothstep(c.halfV, PoleStretch*c.halfV, av)

	hs := clamp(h, -c.halfH, c.halfH)
	vs := clamp(vert, -c.halfV, c.halfV)
	u = 0.5 + 0.5*math.Tan(hs)/c.tanH
	v = 0.5 + 0.5*math.Tan(vs)/c.tanV
	return wh * wv, u, v, true
}

// Weight returns the geometric blend weight of camera i for dir, ignoring
// texture alpha.
func (e *Engine) Weight(i int, dir Vec3) float64 {
	w, _, _, ok := e.Project(i, dir)
	if !ok {
		return 0
	}
	return w
}

// Shade returns the blended colour for a world direction. The result is
// always opaque; no coverage yields black.
func (e *Engine) Shade(dir Vec3) color.RGBA {
	var r, g, b, wsum float64
	for i := range e.cams {
		geo, u, v, ok := e.Project(i, dir)
		if !ok {
			continue
		}
		tr, tg, tb, ta := e.sample(i, u, v)
		w := geo * ta
		if w < MinWeight {
			continue
		}
		if i == e.priority {
			return color.RGBA{R: to8(tr), G: to8(tg), B: to8(tb), A: 0xff}
		}
		r += tr * w
		g += tg * w
		b += tb * w
		wsum += w
	}
	if wsum <= 0 {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: to8(r / wsum), G: to8(g / wsum), B: to8(b / wsum), A: 0xff}
}

// ShadeUV shades the equirectangular texel at (u, v).
func (e *Engine) ShadeUV(u, v float64) color.RGBA {
	return e.Shade(DirectionFromUV(u, v))
}

// sample reads slot i bilinearly with clamp-to-edge addressing. v runs
// bottom-to-top as in GL, so it is flipped against image rows.
func (e *Engine) sample(i int, u, v float64) (r, g, b, a float64) {
	if e.textures == nil {
		return 0, 0, 0, 0
	}
	img := e.textures.Texture(i)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	x := clamp(u, 0, 1)*float64(w) - 0.5
	y := (1-clamp(v, 0, 1))*float64(h) - 0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0

	ix0, iy0 := clampInt(int(x0), 0, w-1), clampInt(int(y0), 0, h-1)
	ix1, iy1 := clampInt(int(x0)+1, 0, w-1), clampInt(int(y0)+1, 0, h-1)

	p00 := texel(img, bounds.Min.X+ix0, bounds.Min.Y+iy0)
	p10 := texel(img, bounds.Min.X+ix1, bounds.Min.Y+iy0)
	p01 := texel(img, bounds.Min.X+ix0, bounds.Min.Y+iy1)
	p11 := texel(img, bounds.Min.X+ix1, bounds.Min.Y+iy1)

	var out [4]float64
	for k := 0; k < 4; k++ {
		top := p00[k]*(1-fx) + p10[k]*fx
		bot := p01[k]*(1-fx) + p11[k]*fx
		out[k] = top*(1-fy) + bot*fy
	}
	// Stored premultiplied; return straight colour like a GL texture fetch.
	if out[3] > 0 {
		return out[0] / out[3], out[1] / out[3], out[2] / out[3], out[3]
	}
	return 0, 0, 0, 0
}

func texel(img *image.RGBA, x, y int) [4]float64 {
	off := img.PixOffset(x, y)
	p := img.Pix[off : off+4 : off+4]
	return [4]float64{
		float64(p[0]) / 255,
		float64(p[1]) / 255,
		float64(p[2]) / 255,
		float64(p[3]) / 255,
	}
}

func smoothstep(edge0, edge1, x float64) float64 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clampUnit(x float64) float64 {
	return clamp(x, -1, 1)
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func to8(x float64) uint8 {
	return uint8(math.Round(clamp(x, 0, 1) * 255))
}
