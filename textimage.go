package md2diagram

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Text image layout in pixels.
const (
	textImagePadding  = 20
	textImageMinWidth = 400
	textImageMaxRunes = 90
	textImageBorder   = 2
)

var (
	textImageBackground = color.RGBA{R: 0xfd, G: 0xec, B: 0xea, A: 0xff}
	textImageBorderCol  = color.RGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff}
	textImageInk        = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// ErrorImageLines returns the text drawn on a fallback image for title.
func ErrorImageLines(title string) []string {
	lines := []string{"Error: Could not render diagram"}
	if title != "" {
		lines = append(lines, truncateRunes(title, textImageMaxRunes))
	}
	return append(lines, "Please check the Mermaid syntax")
}

// DrawTextImage renders lines with the basic 7x13 font on a bordered card.
func DrawTextImage(lines []string) *image.RGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil() + 4

	width := textImageMinWidth
	for _, l := range lines {
		if w := d.MeasureString(l).Ceil() + 2*textImagePadding; w > width {
			width = w
		}
	}
	height := len(lines)*lineHeight + 2*textImagePadding

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(textImageBorderCol), image.Point{}, draw.Src)
	inner := image.Rect(textImageBorder, textImageBorder, width-textImageBorder, height-textImageBorder)
	draw.Draw(img, inner, image.NewUniform(textImageBackground), image.Point{}, draw.Src)

	d.Dst = img
	d.Src = image.NewUniform(textImageInk)
	for i, l := range lines {
		baseline := textImagePadding + i*lineHeight + metrics.Ascent.Ceil()
		d.Dot = fixed.P(textImagePadding, baseline)
		d.DrawString(l)
	}
	return img
}

// writeTextImage encodes DrawTextImage(lines) as PNG at path.
func writeTextImage(path string, lines []string) (err error) {
	f, err := os.Create(path) // #nosec G304 -- output path built by the pipeline
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close png: %w", closeErr)
		}
	}()
	if err := png.Encode(f, DrawTextImage(lines)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
