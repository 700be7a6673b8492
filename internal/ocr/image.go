package ocr

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// needsReencode lists formats tesseract builds often lack.
func needsReencode(ext string) bool {
	switch ext {
	case "webp", "bmp":
		return true
	}
	return false
}

// prepareImage decodes path and writes a PNG copy into dir, optionally
// cleaned up for recognition. It returns the new path.
func prepareImage(path, dir string, preprocess bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if preprocess {
		img = Preprocess(img)
	}

	out := filepath.Join(dir, "prepared-"+format+".png")
	w, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := png.Encode(w, img); err != nil {
		_ = w.Close()
		return "", err
	}
	return out, w.Close()
}

// Preprocess applies the scan cleanup the upload screen used to do in the
// browser: grayscale, contrast stretch, binarize, then a 2x upscale so
// small table text reaches tesseract's preferred glyph height.
func Preprocess(src image.Image) image.Image {
	b := src.Bounds()
	gray := image.NewGray(b)
	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y
			gray.SetGray(x, y, color.Gray{Y: v})
			lo, hi = min(lo, v), max(hi, v)
		}
	}

	span := int(hi) - int(lo)
	for i, v := range gray.Pix {
		stretched := uint8(255)
		if span > 0 {
			stretched = uint8((int(v) - int(lo)) * 255 / span)
		}
		if stretched < 128 {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}

	up := image.NewGray(image.Rect(0, 0, b.Dx()*2, b.Dy()*2))
	draw.CatmullRom.Scale(up, up.Bounds(), gray, b, draw.Src, nil)
	return up
}
