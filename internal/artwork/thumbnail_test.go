package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/spindle/internal/config"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test picture: %v", err)
	}
	return buf.Bytes()
}

// near allows for rounding in the bilinear scaler.
func near(a, b color.RGBA) bool {
	diff := func(x, y uint8) int {
		if x > y {
			return int(x - y)
		}
		return int(y - x)
	}
	return diff(a.R, b.R) <= 2 && diff(a.G, b.G) <= 2 && diff(a.B, b.B) <= 2 && diff(a.A, b.A) <= 2
}

// TestThumbnail_ScalesCover checks that a non-square cover is cropped and
// scaled to the configured size, and that the untouched top half keeps the
// cover colour.
func TestThumbnail_ScalesCover(t *testing.T) {
	red := color.RGBA{R: 200, A: 255}
	rt := &config.Runtime{ThumbnailSize: 128}

	img, err := Thumbnail(solidPNG(t, 300, 200, red), "", rt)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 128 {
		t.Fatalf("thumbnail is %dx%d, want 128x128", b.Dx(), b.Dy())
	}
	if got := img.RGBAAt(64, 10); !near(got, red) {
		t.Errorf("pixel = %v, want %v", got, red)
	}
}

// TestThumbnail_Caption checks the caption band darkens the bottom edge and
// that some pixels carry the caption colour.
func TestThumbnail_Caption(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	r, g, b := uint8(10), uint8(250), uint8(10)
	rt := &config.Runtime{ThumbnailSize: 256, CaptionColorR: &r, CaptionColorG: &g, CaptionColorB: &b}

	img, err := Thumbnail(solidPNG(t, 64, 64, white), "High Precision Solid Metal Balls", rt)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}

	if got := img.RGBAAt(2, 254); near(got, white) {
		t.Error("bottom edge was not shaded")
	}
	if got := img.RGBAAt(128, 10); !near(got, white) {
		t.Errorf("top of the cover changed: %v", got)
	}

	greenish := 0
	bounds := img.Bounds()
	for y := bounds.Dy() * 2 / 3; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			p := img.RGBAAt(x, y)
			if p.G > 200 && p.R < 100 && p.B < 100 {
				greenish++
			}
		}
	}
	if greenish == 0 {
		t.Error("no caption pixels found in the bottom third")
	}
	t.Logf("%d caption pixels", greenish)
}

func TestThumbnail_NoCover(t *testing.T) {
	img, err := Thumbnail(nil, "Untitled", nil)
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != config.ThumbnailSize {
		t.Errorf("width = %d, want %d", b.Dx(), config.ThumbnailSize)
	}
	if got := img.RGBAAt(5, 5); got != placeholder {
		t.Errorf("background = %v, want placeholder %v", got, placeholder)
	}
}

func TestThumbnail_JPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 40))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	if _, err := Thumbnail(buf.Bytes(), "", &config.Runtime{ThumbnailSize: 32}); err != nil {
		t.Errorf("Thumbnail(JPEG) failed: %v", err)
	}
}

func TestThumbnail_BadPicture(t *testing.T) {
	if _, err := Thumbnail([]byte{}, "x", nil); err != ErrEmptyPicture {
		t.Errorf("empty picture error = %v, want ErrEmptyPicture", err)
	}
	if _, err := Thumbnail([]byte("not an image"), "x", nil); err == nil {
		t.Error("expected decode error for garbage data")
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		title, line1, line2 string
	}{
		{"", "", ""},
		{"Solo", "Solo", ""},
		{"Panache, for Men", "Panache,", "for Men"},
		{"Frankenstein's Ubuntu Server Framework", "Frankenstein's Ubuntu", "Server Framework"},
	}
	for _, tt := range tests {
		l1, l2 := splitTitle(tt.title)
		if l1 != tt.line1 || l2 != tt.line2 {
			t.Errorf("splitTitle(%q) = %q, %q; want %q, %q", tt.title, l1, l2, tt.line1, tt.line2)
		}
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	img, err := Thumbnail(nil, "", &config.Runtime{ThumbnailSize: 16})
	if err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if err := Save(path, img); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open saved file: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("saved file is not a PNG: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 16 {
		t.Errorf("saved PNG is %dx%d, want 16x16", cfg.Width, cfg.Height)
	}
}
