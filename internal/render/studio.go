package render

import (
	"context"
	"image"
	"sync"
)

// Studio renders quote images to disk. Fonts are resolved on first use so
// runs that never synthesize an image never touch the font sources.
type Studio struct {
	cfg    Config
	loader *FontLoader

	mu   sync.Mutex
	comp *Compositor
}

func NewStudio(cfg Config, loader *FontLoader) *Studio {
	return &Studio{cfg: cfg, loader: loader}
}

func (s *Studio) compositor(ctx context.Context) (*Compositor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comp != nil {
		return s.comp, nil
	}
	fonts := FallbackFonts()
	if s.loader != nil {
		fonts = s.loader.Load(ctx)
	}
	c, err := NewCompositor(s.cfg, fonts)
	if err != nil {
		return nil, err
	}
	s.comp = c
	return c, nil
}

// Render composes quote/author over bg (nil for a flat background) and
// saves the JPEG at path.
func (s *Studio) Render(ctx context.Context, quote, author string, bg image.Image, path string) error {
	c, err := s.compositor(ctx)
	if err != nil {
		return err
	}
	img, err := c.Compose(quote, author, bg)
	if err != nil {
		return err
	}
	return c.Save(img, path)
}
