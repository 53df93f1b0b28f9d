// Package imaging holds the raster operations run over decomposed part
// masks and exported sprites: trimming, alignment, LOD generation, and
// collision-box extraction.
package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// minLODSize is the smallest edge length an LOD level may shrink to.
const minLODSize = 32

// OpaqueBounds returns the bounding box of all pixels with nonzero alpha.
// The second return is false when the image is fully transparent.
func OpaqueBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	found := false

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			found = true
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x >= maxX {
				maxX = x + 1
			}
			if y >= maxY {
				maxY = y + 1
			}
		}
	}

	if !found {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX, maxY), true
}

// Trim crops the image to its opaque bounds. Fully transparent images are
// returned unchanged.
func Trim(img image.Image) image.Image {
	bounds, ok := OpaqueBounds(img)
	if !ok {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// AlignBottom moves the opaque region to the bottom center of the canvas,
// keeping the canvas size. Characters exported to game engines stand on the
// frame's bottom edge.
func AlignBottom(img image.Image, padding int) image.Image {
	bounds, ok := OpaqueBounds(img)
	if !ok {
		return img
	}

	b := img.Bounds()
	offsetX := (b.Dx() - bounds.Dx()) / 2
	offsetY := b.Dy() - bounds.Dy() - padding

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	dst := image.Rect(offsetX, offsetY, offsetX+bounds.Dx(), offsetY+bounds.Dy())
	draw.Draw(out, dst, img, bounds.Min, draw.Src)
	return out
}

// Resize scales the image to the given dimensions.
func Resize(img image.Image, width, height int) image.Image {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}

// ResizeSquare center-crops the image to a square and scales it to
// target x target.
func ResizeSquare(img image.Image, target int) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}

	left := b.Min.X + (b.Dx()-side)/2
	top := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(left, top, left+side, top+side)

	out := image.NewNRGBA(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(out, out.Bounds(), img, crop, draw.Over, nil)
	return out
}

// GenerateLODs returns the image followed by levels-1 halved versions.
// Each level halves the previous dimensions, clamped at minLODSize.
func GenerateLODs(img image.Image, levels int) []image.Image {
	if levels < 1 {
		levels = 1
	}

	lods := make([]image.Image, 0, levels)
	lods = append(lods, img)

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	for i := 1; i < levels; i++ {
		width = max(minLODSize, width/2)
		height = max(minLODSize, height/2)
		lods = append(lods, Resize(img, width, height))
	}
	return lods
}

// CollisionBox returns the opaque bounding box, or the full frame when the
// image has no opaque pixels.
func CollisionBox(img image.Image) image.Rectangle {
	bounds, ok := OpaqueBounds(img)
	if !ok {
		return img.Bounds()
	}
	return bounds
}

// GenerateShadow composites a semi-transparent elliptical ground shadow
// under the opaque region.
func GenerateShadow(img image.Image, size int) image.Image {
	bounds, ok := OpaqueBounds(img)
	if !ok {
		return img
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	cx := float64(bounds.Min.X+bounds.Max.X) / 2
	cy := float64(bounds.Max.Y)
	rx := float64(size) / 2
	ry := float64(size) / 4
	shadow := color.NRGBA{A: 100}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1 {
				out.SetNRGBA(x, y, shadow)
			}
		}
	}

	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// Sharpen applies a 3x3 edge enhancement kernel, leaving alpha untouched.
func Sharpen(img image.Image) image.Image {
	b := img.Bounds()
	src := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	out := image.NewNRGBA(src.Bounds())
	copy(out.Pix, src.Pix)

	kernel := [3][3]float64{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, bl float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px := src.NRGBAAt(x+kx, y+ky)
					k := kernel[ky+1][kx+1]
					r += float64(px.R) * k
					g += float64(px.G) * k
					bl += float64(px.B) * k
				}
			}
			a := src.NRGBAAt(x, y).A
			out.SetNRGBA(x, y, color.NRGBA{R: clamp8(r), G: clamp8(g), B: clamp8(bl), A: a})
		}
	}
	return out
}

// MakeSeamless blends each border pixel with its opposite edge so the
// texture tiles without visible seams.
func MakeSeamless(img image.Image) image.Image {
	b := img.Bounds()
	src := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for x := 0; x < w; x++ {
		blendPixels(src, x, 0, x, h-1)
	}
	for y := 0; y < h; y++ {
		blendPixels(src, 0, y, w-1, y)
	}
	return src
}

func blendPixels(img *image.NRGBA, x1, y1, x2, y2 int) {
	a := img.NRGBAAt(x1, y1)
	b := img.NRGBAAt(x2, y2)
	avg := color.NRGBA{
		R: uint8((uint16(a.R) + uint16(b.R)) / 2),
		G: uint8((uint16(a.G) + uint16(b.G)) / 2),
		B: uint8((uint16(a.B) + uint16(b.B)) / 2),
		A: uint8((uint16(a.A) + uint16(b.A)) / 2),
	}
	img.SetNRGBA(x1, y1, avg)
	img.SetNRGBA(x2, y2, avg)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// NewMask builds a binary alpha mask: opaque source pixels become white,
// transparent pixels stay transparent.
func NewMask(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a > 0 {
				out.Set(x-b.Min.X, y-b.Min.Y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return out
}
