// Package render synthesizes quote images: cover-fit background, translucent
// overlay, and centered caption text.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Config is the fixed canvas and styling.
type Config struct {
	Width        int
	Height       int
	OverlayAlpha uint8
	Quality      int

	Background  color.Color // used when no background image is available
	QuoteColor  color.Color
	AuthorColor color.Color
}

// DefaultConfig is a 4:5 portrait canvas.
func DefaultConfig() Config {
	return Config{
		Width:        1080,
		Height:       1350,
		OverlayAlpha: 120,
		Quality:      85,
		Background:   color.RGBA{R: 0x14, G: 0x14, B: 0x14, A: 0xff},
		QuoteColor:   color.White,
		AuthorColor:  color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff},
	}
}

// Compositor draws quote images with one font set.
type Compositor struct {
	cfg   Config
	fonts FontSet
}

func NewCompositor(cfg Config, fonts FontSet) (*Compositor, error) {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("canvas must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	if cfg.Background == nil {
		cfg.Background = def.Background
	}
	if cfg.QuoteColor == nil {
		cfg.QuoteColor = def.QuoteColor
	}
	if cfg.AuthorColor == nil {
		cfg.AuthorColor = def.AuthorColor
	}
	if fonts.Quote == nil || fonts.Author == nil {
		fonts = FallbackFonts()
	}
	return &Compositor{cfg: cfg, fonts: fonts}, nil
}

// Fonts returns the font set in use.
func (c *Compositor) Fonts() FontSet { return c.fonts }

// Compose returns a Width×Height canvas: bg cover-fitted (or the flat
// background color when bg is nil), the overlay, then the centered text.
func (c *Compositor) Compose(quote, author string, bg image.Image) (*image.RGBA, error) {
	rect := image.Rect(0, 0, c.cfg.Width, c.cfg.Height)
	canvas := image.NewRGBA(rect)

	if bg != nil && !bg.Bounds().Empty() {
		fitted := CoverFit(bg, c.cfg.Width, c.cfg.Height)
		draw.Draw(canvas, rect, fitted, fitted.Bounds().Min, draw.Src)
	} else {
		draw.Draw(canvas, rect, image.NewUniform(c.cfg.Background), image.Point{}, draw.Src)
	}

	if c.cfg.OverlayAlpha > 0 {
		overlay := image.NewUniform(color.NRGBA{A: c.cfg.OverlayAlpha})
		draw.Draw(canvas, rect, overlay, image.Point{}, draw.Over)
	}

	block := Layout(quote, author, c.cfg.Width, c.cfg.Height, c.fonts.Quote, c.fonts.Author, c.fonts.Params)
	if len(block.Lines) == 0 {
		return nil, errors.New("empty quote")
	}
	for _, l := range block.Lines {
		c.fonts.Quote.DrawText(canvas, l.X, l.Y, l.Text, c.cfg.QuoteColor)
	}
	if block.Author != nil {
		c.fonts.Author.DrawText(canvas, block.Author.X, block.Author.Y, block.Author.Text, c.cfg.AuthorColor)
	}
	return canvas, nil
}

// Save writes img as JPEG at the configured quality.
func (c *Compositor) Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(c.cfg.Quality)); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return f.Close()
}

// CoverSize returns the size src must be scaled to so it covers dst while
// keeping its aspect ratio: both sides are scaled by max(dstW/srcW, dstH/srcH).
func CoverSize(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return dstW, dstH
	}
	scale := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := int(math.Ceil(float64(srcW)*scale - 1e-9))
	h := int(math.Ceil(float64(srcH)*scale - 1e-9))
	if w < dstW {
		w = dstW
	}
	if h < dstH {
		h = dstH
	}
	return w, h
}

// CoverFit scales src to cover w×h and crops the center. It never
// letterboxes and never distorts.
func CoverFit(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	sw, sh := CoverSize(b.Dx(), b.Dy(), w, h)
	scaled := src
	if sw != b.Dx() || sh != b.Dy() {
		scaled = imaging.Resize(src, sw, sh, imaging.Lanczos)
	}
	return imaging.CropCenter(scaled, w, h)
}
