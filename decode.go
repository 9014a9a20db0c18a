package comicrepack

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeGray reads the image file at path and returns it as 8-bit grayscale.
// The content type is sniffed from magic bytes, not the file name; anything
// that is not an image yields an error wrapping ErrPageFailure.
func DecodeGray(path string) (*image.Gray, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("comicrepack: read %s: %w: %w", path, ErrPageFailure, err)
	}
	return decodeGrayBytes(data, path)
}

func decodeGrayBytes(data []byte, name string) (*image.Gray, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("comicrepack: %s is %s, not an image: %w", name, mt.String(), ErrPageFailure)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("comicrepack: decode %s: %w: %w", name, ErrPageFailure, err)
	}
	return toGray(img), nil
}

// toGray converts img to grayscale with ITU-R 601 luma weights. Transparent
// areas are flattened onto white first, as comic pages are printed on paper.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), image.NewUniform(color.Gray{Y: 0xff}), image.Point{}, draw.Src)
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Over)
	return gray
}

// EncodeJPEG writes img to w as a baseline JPEG at the given quality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("comicrepack: encode jpeg: %w", err)
	}
	return nil
}

// writeJPEG encodes img into a new file at path.
func writeJPEG(path string, img image.Image, quality int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("comicrepack: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("comicrepack: close %s: %w", path, cerr)
		}
	}()
	return EncodeJPEG(f, img, quality)
}
