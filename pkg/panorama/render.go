package panorama

import (
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/teslashibe/go-teslacam/pkg/motion"
)

// DefaultViewFOV is the vertical FOV of the default viewport (75°).
const DefaultViewFOV = 75.0 * math.Pi / 180.0

// View is the user's camera: where they look inside the sphere.
// Yaw is positive to the right, Pitch positive up, FOV is vertical.
type View struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	FOV   float64 `json:"fov"`
}

// DefaultView looks straight ahead.
func DefaultView() View {
	return View{FOV: DefaultViewFOV}
}

// Orientation is applied to the panorama sphere, never to the View, so user
// orbit input and motion effects compose without fighting.
type Orientation struct {
	Yaw    float64 `json:"yaw"`
	Pitch  float64 `json:"pitch"`
	Roll   float64 `json:"roll"`
	ShakeX float64 `json:"shake_x"` // image-plane offset, fraction of width
	ShakeY float64 `json:"shake_y"` // image-plane offset, fraction of height
}

// OrientationFrom converts motion offsets into a panorama orientation. The
// sphere yaws against the auto-steer direction so the view appears to turn
// into the curve.
func OrientationFrom(o motion.Offsets) Orientation {
	return Orientation{
		Yaw:    -o.AutoSteerYaw,
		Pitch:  o.Pitch,
		Roll:   o.Roll,
		ShakeX: o.ShakeX,
		ShakeY: o.ShakeY,
	}
}

// RenderEquirect fills dst with the full equirectangular panorama. Row 0 is
// the zenith.
func (e *Engine) RenderEquirect(dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	parallelRows(h, func(y int) {
		v := 1 - (float64(y)+0.5)/float64(h)
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, e.ShadeUV(u, v))
		}
	})
}

// RenderView renders a perspective viewport of the panorama as seen from
// view, with the sphere rotated by o.
func (e *Engine) RenderView(dst *image.RGBA, view View, o Orientation) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	fov := view.FOV
	if fov <= 0 || fov >= math.Pi {
		fov = DefaultViewFOV
	}
	tanV := math.Tan(fov / 2)
	aspect := float64(w) / float64(h)

	parallelRows(h, func(y int) {
		sy := 1 - 2*((float64(y)+0.5)/float64(h)-o.ShakeY)
		for x := 0; x < w; x++ {
			sx := 2*((float64(x)+0.5)/float64(w)-o.ShakeX) - 1
			ray := Vec3{X: sx * tanV * aspect, Y: sy * tanV, Z: 1}
			ray = rotateY(rotateX(ray, view.Pitch), view.Yaw)
			dir := o.toPanorama(ray)
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, e.Shade(dir))
		}
	})
}

// toPanorama applies the inverse of Ry(yaw)·Rx(pitch)·Rz(roll) to a world ray.
func (o Orientation) toPanorama(d Vec3) Vec3 {
	return rotateZ(rotateX(rotateY(d, -o.Yaw), -o.Pitch), -o.Roll)
}

// Rotations follow the world axes: +yaw turns right, +pitch tilts up,
// +roll banks clockwise as seen from behind.
func rotateY(d Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{X: d.X*c + d.Z*s, Y: d.Y, Z: d.Z*c - d.X*s}
}

func rotateX(d Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{X: d.X, Y: d.Y*c + d.Z*s, Z: d.Z*c - d.Y*s}
}

func rotateZ(d Vec3, a float64) Vec3 {
	c, s := math.Cos(a), math.Sin(a)
	return Vec3{X: d.X*c + d.Y*s, Y: d.Y*c - d.X*s, Z: d.Z}
}

func parallelRows(h int, fn func(y int)) {
	workers := min(runtime.GOMAXPROCS(0), h)
	if workers <= 1 {
		for y := 0; y < h; y++ {
			fn(y)
		}
		return
	}
	var wg sync.WaitGroup
	rows := make(chan int)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				fn(y)
			}
		}()
	}
	for y := 0; y < h; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()
}
