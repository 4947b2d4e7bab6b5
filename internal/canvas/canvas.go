// Package canvas is an in-memory RGBA drawing surface with the handful of
// operations the snapshot and waveform components need.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Point is a position in canvas pixel space.
type Point struct {
	X, Y float64
}

type Canvas struct {
	img *image.RGBA
}

// New returns a transparent canvas of w x h pixels.
func New(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

// Resize reallocates the backing image. Like an HTML canvas, resizing clears
// the content even when the size is unchanged.
func (c *Canvas) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (c *Canvas) Width() int  { return c.img.Bounds().Dx() }
func (c *Canvas) Height() int { return c.img.Bounds().Dy() }

// Image exposes the backing image. Callers must not retain it across a
// Resize.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Fill paints the whole canvas with col.
func (c *Canvas) Fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawFrame scales src to cover the whole canvas.
func (c *Canvas) DrawFrame(src image.Image) {
	if src == nil || c.img.Bounds().Empty() {
		return
	}
	draw.ApproxBiLinear.Scale(c.img, c.img.Bounds(), src, src.Bounds(), draw.Src, nil)
}

// StrokePolyline draws connected segments through points with the given
// line width.
func (c *Canvas) StrokePolyline(points []Point, width float64, col color.Color) {
	b := c.img.Bounds()
	if len(points) < 2 || b.Empty() {
		return
	}

	z := vector.NewRasterizer(b.Dx(), b.Dy())
	hw := width / 2
	for i := 1; i < len(points); i++ {
		strokeSegment(z, points[i-1], points[i], hw)
	}
	z.Draw(c.img, b, image.NewUniform(col), image.Point{})
}

// strokeSegment adds the quad covering the segment p-q to z. Every quad has
// the same winding so overlapping joints do not cancel out.
func strokeSegment(z *vector.Rasterizer, p, q Point, hw float64) {
	dx, dy := q.X-p.X, q.Y-p.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw

	z.MoveTo(float32(p.X+nx), float32(p.Y+ny))
	z.LineTo(float32(q.X+nx), float32(q.Y+ny))
	z.LineTo(float32(q.X-nx), float32(q.Y-ny))
	z.LineTo(float32(p.X-nx), float32(p.Y-ny))
	z.ClosePath()
}

// EncodePNG encodes the current content.
func (c *Canvas) EncodePNG() ([]byte, error) {
	return EncodePNG(c.img)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales img to fit within max x max pixels, keeping its aspect
// ratio.
func Thumbnail(img image.Image, max int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || max <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	if w >= h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
