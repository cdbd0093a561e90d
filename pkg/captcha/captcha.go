package captcha

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer produces a human-solvable image for a challenge string. The rest
// of the application treats the rendering as opaque bytes.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// ImageRenderer rasterises challenge text into a PNG with decorative noise.
type ImageRenderer struct {
	Width  int
	Height int
	Noise  int
}

// NewImageRenderer returns a renderer with the default canvas size.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{Width: 200, Height: 70, Noise: 6}
}

// Render draws the text with per-glyph vertical jitter plus random noise
// lines and returns the encoded PNG.
func (r *ImageRenderer) Render(text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("captcha: text is required")
	}

	width, height := r.Width, r.Height
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 70
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	background := color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, background)
		}
	}

	noise := r.Noise
	if noise <= 0 {
		noise = 6
	}
	for i := 0; i < noise; i++ {
		drawLine(img,
			rand.Intn(width), rand.Intn(height),
			rand.Intn(width), rand.Intn(height),
			color.RGBA{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256)), A: 0xff},
		)
	}

	face := basicfont.Face7x13
	ink := image.NewUniform(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})

	advance := face.Advance + 6
	startX := (width - advance*len(text)) / 2
	if startX < 4 {
		startX = 4
	}

	for i, ch := range text {
		jitter := rand.Intn(13) - 6
		drawer := &font.Drawer{
			Dst:  img,
			Src:  ink,
			Face: face,
			Dot: fixed.P(
				startX+i*advance,
				height/2+face.Ascent/2+jitter,
			),
		}
		// Double strike one pixel apart fakes a heavier weight.
		drawer.DrawString(string(ch))
		drawer.Dot = fixed.P(startX+i*advance+1, height/2+face.Ascent/2+jitter)
		drawer.DrawString(string(ch))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
