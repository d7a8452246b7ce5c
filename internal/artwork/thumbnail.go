// Package artwork renders the embedded cover picture of a file as a square
// thumbnail with the track title as a caption.
package artwork

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/linuxmatters/spindle/internal/config"
)

// ErrEmptyPicture is returned when there is no picture data to decode
var ErrEmptyPicture = errors.New("empty picture data")

// placeholder is the background used when a file has no cover
var placeholder = color.RGBA{R: 24, G: 24, B: 28, A: 255}

// Thumbnail scales pic to a square of rt's thumbnail size and overlays
// title along the bottom edge. A nil pic renders the caption on a plain
// background.
func Thumbnail(pic []byte, title string, rt *config.Runtime) (*image.RGBA, error) {
	if rt == nil {
		rt = &config.Runtime{}
	}
	size := rt.GetThumbnailSize()

	img, err := background(pic, size)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		return img, nil
	}

	parsedFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	line1, line2 := splitTitle(title)
	fontSize := findOptimalFontSize(parsedFont, line1, line2, size)
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size: fontSize,
		DPI:  72,
	})
	defer face.Close()

	r, g, b := rt.GetCaptionColor()
	drawCaption(img, face, line1, line2, color.RGBA{R: r, G: g, B: b, A: 255})
	return img, nil
}

// background decodes and scales the cover, or fills a placeholder.
func background(pic []byte, size int) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if pic == nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(placeholder), image.Point{}, draw.Src)
		return dst, nil
	}
	if len(pic) == 0 {
		return nil, ErrEmptyPicture
	}

	src, _, err := image.Decode(bytes.NewReader(pic))
	if err != nil {
		return nil, fmt.Errorf("failed to decode picture: %w", err)
	}

	// Centre-crop to a square before scaling
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, side, side).Add(b.Min).Add(image.Pt((b.Dx()-side)/2, (b.Dy()-side)/2))

	draw.BiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst, nil
}

// splitTitle splits the title into 2 roughly equal lines
func splitTitle(title string) (string, string) {
	words := strings.Fields(title)
	if len(words) == 0 {
		return "", ""
	}
	if len(words) == 1 {
		return words[0], ""
	}

	mid := len(words) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " ")
}

// findOptimalFontSize finds the largest size at which both lines fit
// between the side margins and within the bottom third of the image.
func findOptimalFontSize(parsedFont *truetype.Font, line1, line2 string, size int) float64 {
	maxWidth := size - 2*config.ThumbnailMargin
	maxHeight := size/3 - config.ThumbnailMargin

	for fontSize := config.CaptionFontSize * float64(size) / config.ThumbnailSize; fontSize > 6.0; fontSize -= 1.0 {
		face := truetype.NewFace(parsedFont, &truetype.Options{
			Size: fontSize,
			DPI:  72,
		})
		width1, bounds1 := measureText(face, line1)
		width2, bounds2 := measureText(face, line2)
		face.Close()

		if width1 > maxWidth || width2 > maxWidth {
			continue
		}
		height := (bounds1.Max.Y - bounds1.Min.Y).Ceil() + int(fontSize*0.3) + (bounds2.Max.Y - bounds2.Min.Y).Ceil()
		if height <= maxHeight {
			return fontSize
		}
	}
	return 6.0
}

// measureText returns the width and bounds of rendered text. Bounds Min.Y is
// negative (ascent) and Max.Y positive (descent).
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	if text == "" {
		return 0, fixed.Rectangle26_6{}
	}
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	return (bounds.Max.X - bounds.Min.X).Ceil(), bounds
}

// drawCaption shades a band along the bottom edge and draws both lines
// centred in it.
func drawCaption(img *image.RGBA, face font.Face, line1, line2 string, textColor color.RGBA) {
	size := img.Bounds().Dx()
	metrics := face.Metrics()
	lineSpacing := int(float64(metrics.Height) / 64.0 * 0.3)

	_, bounds1 := measureText(face, line1)
	_, bounds2 := measureText(face, line2)
	height1 := (bounds1.Max.Y - bounds1.Min.Y).Ceil()
	height2 := (bounds2.Max.Y - bounds2.Min.Y).Ceil()

	total := height1
	if line2 != "" {
		total += lineSpacing + height2
	}

	bandTop := size - total - 2*config.ThumbnailMargin
	band := image.Rect(0, bandTop, size, size)
	draw.Draw(img, band, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	line1Top := bandTop + config.ThumbnailMargin
	drawCenteredLine(img, face, line1, textColor, line1Top-bounds1.Min.Y.Floor())
	if line2 != "" {
		line2Top := line1Top + height1 + lineSpacing
		drawCenteredLine(img, face, line2, textColor, line2Top-bounds2.Min.Y.Floor())
	}
}

// drawCenteredLine draws a line of text centred horizontally at baselineY
func drawCenteredLine(img *image.RGBA, face font.Face, text string, textColor color.RGBA, baselineY int) {
	if text == "" {
		return
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
	}
	bounds, _ := d.BoundString(text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()

	d.Dot = freetype.Pt((img.Bounds().Dx()-textWidth)/2, baselineY)
	d.DrawString(text)
}

// Save writes img to path as PNG.
func Save(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}
