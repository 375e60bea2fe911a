package panorama

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/teslashibe/go-teslacam/pkg/rig"
)

// TextureSet holds one texture per camera slot. A slot without a bound frame
// holds a fully transparent 1×1 placeholder, so sampling never reads
// undefined memory and the slot contributes zero weight.
type TextureSet struct {
	maxWidth int
	slots    [rig.NumCameras]*image.RGBA
	bound    [rig.NumCameras]bool
	uploads  uint64
}

// NewTextureSet creates a set whose uploads are downscaled to at most
// maxWidth pixels wide (0 keeps the source size).
func NewTextureSet(maxWidth int) *TextureSet {
	t := &TextureSet{maxWidth: maxWidth}
	t.Release()
	return t
}

// Placeholder returns a new fully transparent 1×1 texture.
func Placeholder() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// Upload copies a decoded frame into slot i. A nil frame unbinds the slot.
func (t *TextureSet) Upload(i int, frame image.Image) {
	if i < 0 || i >= rig.NumCameras {
		return
	}
	if frame == nil {
		t.Unbind(i)
		return
	}

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		t.Unbind(i)
		return
	}
	if t.maxWidth > 0 && w > t.maxWidth {
		h = max(1, h*t.maxWidth/w)
		w = t.maxWidth
	}

	dst := t.slots[i]
	if !t.bound[i] || dst.Bounds().Dx() != w || dst.Bounds().Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, b, xdraw.Src, nil)
	}

	t.slots[i] = dst
	t.bound[i] = true
	t.uploads++
}

// Unbind replaces slot i with the placeholder.
func (t *TextureSet) Unbind(i int) {
	if i < 0 || i >= rig.NumCameras {
		return
	}
	t.slots[i] = Placeholder()
	t.bound[i] = false
}

// Bound reports whether slot i holds a real frame.
func (t *TextureSet) Bound(i int) bool {
	return i >= 0 && i < rig.NumCameras && t.bound[i]
}

// Texture returns the texture of slot i.
func (t *TextureSet) Texture(i int) *image.RGBA {
	return t.slots[i]
}

// Uploads returns the number of frames uploaded since creation.
func (t *TextureSet) Uploads() uint64 {
	return t.uploads
}

// Release drops every frame and restores placeholders. Safe to call at any time.
func (t *TextureSet) Release() {
	for i := range t.slots {
		t.Unbind(i)
	}
}
