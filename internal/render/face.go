package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Face is the text capability the layout engine needs.
type Face interface {
	// MeasureText returns the pixel width of s's ink bounding box.
	MeasureText(s string) int
	// DrawText draws s so that its ink box starts at x and its line box
	// starts at y.
	DrawText(dst draw.Image, x, y int, s string, c color.Color)
	Close() error
}

// TrueTypeFace renders with real font metrics.
type TrueTypeFace struct {
	face   font.Face
	ascent int
}

// NewTrueTypeFace builds a face of the given pixel size (72 DPI).
func NewTrueTypeFace(f *opentype.Font, size float64) (*TrueTypeFace, error) {
	if f == nil {
		return nil, fmt.Errorf("nil font")
	}
	if size <= 0 {
		return nil, fmt.Errorf("font size must be positive")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return &TrueTypeFace{face: face, ascent: face.Metrics().Ascent.Ceil()}, nil
}

func (f *TrueTypeFace) MeasureText(s string) int {
	if s == "" {
		return 0
	}
	b, _ := font.BoundString(f.face, s)
	return (b.Max.X - b.Min.X).Ceil()
}

func (f *TrueTypeFace) DrawText(dst draw.Image, x, y int, s string, c color.Color) {
	if s == "" {
		return
	}
	b, _ := font.BoundString(f.face, s)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: f.face,
		// Shift by the left bearing so the ink, not the pen, starts at x.
		Dot: fixed.Point26_6{X: fixed.I(x) - b.Min.X, Y: fixed.I(y + f.ascent)},
	}
	d.DrawString(s)
}

func (f *TrueTypeFace) Close() error {
	if f == nil || f.face == nil {
		return nil
	}
	return f.face.Close()
}

// FixedFace is the built-in fallback: the 7x13 bitmap font scaled up by an
// integer factor. Every rune advances by the same width.
type FixedFace struct {
	Scale int
}

const (
	fixedAdvance = 7
	fixedHeight  = 13
	fixedAscent  = 11
)

func (f FixedFace) scale() int {
	if f.Scale <= 0 {
		return 1
	}
	return f.Scale
}

func (f FixedFace) MeasureText(s string) int {
	return utf8.RuneCountInString(s) * fixedAdvance * f.scale()
}

func (f FixedFace) DrawText(dst draw.Image, x, y int, s string, c color.Color) {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return
	}
	small := image.NewAlpha(image.Rect(0, 0, n*fixedAdvance, fixedHeight))
	d := &font.Drawer{
		Dst:  small,
		Src:  image.Opaque,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, fixedAscent),
	}
	d.DrawString(s)

	k := f.scale()
	mask := image.NewAlpha(image.Rect(0, 0, small.Bounds().Dx()*k, small.Bounds().Dy()*k))
	xdraw.NearestNeighbor.Scale(mask, mask.Bounds(), small, small.Bounds(), draw.Src, nil)

	r := mask.Bounds().Add(image.Pt(x, y))
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

func (FixedFace) Close() error { return nil }
