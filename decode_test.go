package comicrepack

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDecodeGray_PNG(t *testing.T) {
	p := writeFile(t, "page.png", pngData(t, solidImage(20, 10, 77)))
	got, err := DecodeGray(p)
	if err != nil {
		t.Fatalf("DecodeGray: %v", err)
	}
	if b := got.Bounds(); b != image.Rect(0, 0, 20, 10) {
		t.Errorf("bounds = %v, want 20x10", b)
	}
	if v := got.GrayAt(5, 5).Y; v != 77 {
		t.Errorf("pixel = %d, want 77", v)
	}
}

func TestDecodeGray_ColourUsesLuma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 0xff, 0xff
	}
	got, err := DecodeGray(writeFile(t, "red.png", pngData(t, img)))
	if err != nil {
		t.Fatalf("DecodeGray: %v", err)
	}
	if v := got.GrayAt(1, 1).Y; v < 74 || v > 78 {
		t.Errorf("red luma = %d, want about 76", v)
	}
}

func TestDecodeGray_TransparencyFlattenedOntoWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.SetNRGBA(0, 0, color.NRGBA{A: 0xff})
	got, err := DecodeGray(writeFile(t, "alpha.png", pngData(t, img)))
	if err != nil {
		t.Fatalf("DecodeGray: %v", err)
	}
	if v := got.GrayAt(4, 4).Y; v != 0xff {
		t.Errorf("transparent pixel = %d, want 255", v)
	}
	if v := got.GrayAt(0, 0).Y; v != 0 {
		t.Errorf("opaque black pixel = %d, want 0", v)
	}
}

func TestDecodeGray_SniffsContentNotExtension(t *testing.T) {
	var bmpBuf, tiffBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, solidImage(12, 12, 200)); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, solidImage(12, 12, 30), nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, file, data string
		want             uint8
	}{
		{"bmp named jpg", "page.jpg", bmpBuf.String(), 200},
		{"tiff without extension", "page", tiffBuf.String(), 30},
		{"png named gif", "page.gif", pngData(t, solidImage(12, 12, 9)), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGray(writeFile(t, tt.file, tt.data))
			if err != nil {
				t.Fatalf("DecodeGray: %v", err)
			}
			if v := got.GrayAt(6, 6).Y; v != tt.want {
				t.Errorf("pixel = %d, want %d", v, tt.want)
			}
		})
	}
}

func TestDecodeGray_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.jpg") }},
		{"text file", func(t *testing.T) string { return writeFile(t, "page.jpg", "not an image at all") }},
		{"truncated png", func(t *testing.T) string { return writeFile(t, "page.png", "\x89PNG\r\n\x1a\n\x00\x00") }},
		{"empty file", func(t *testing.T) string { return writeFile(t, "page.jpg", "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeGray(tt.path(t))
			if !errors.Is(err, ErrPageFailure) {
				t.Errorf("err = %v, want ErrPageFailure", err)
			}
			if got != nil {
				t.Error("image is non-nil on error")
			}
		})
	}
}

func TestToGray_NormalisesOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 15, 25))
	got := toGray(img)
	if b := got.Bounds(); b != image.Rect(0, 0, 10, 20) {
		t.Errorf("bounds = %v, want (0,0)-(10,20)", b)
	}
}

func TestEncodeJPEG(t *testing.T) {
	page := checkerImage(64, 64, 4)

	var low, high bytes.Buffer
	if err := EncodeJPEG(&low, page, 10); err != nil {
		t.Fatalf("EncodeJPEG(10): %v", err)
	}
	if err := EncodeJPEG(&high, page, 95); err != nil {
		t.Fatalf("EncodeJPEG(95): %v", err)
	}
	if low.Len() >= high.Len() {
		t.Errorf("quality 10 size %d >= quality 95 size %d", low.Len(), high.Len())
	}

	img, err := jpeg.Decode(&high)
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	if img.Bounds() != page.Bounds() {
		t.Errorf("bounds = %v, want %v", img.Bounds(), page.Bounds())
	}
}

func TestWriteJPEG(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page_0000.jpg")
	if err := writeJPEG(p, solidImage(16, 16, 0xff), 90); err != nil {
		t.Fatalf("writeJPEG: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Errorf("output does not start with a JPEG SOI marker")
	}

	if err := writeJPEG(filepath.Join(t.TempDir(), "no", "dir.jpg"), solidImage(1, 1, 0), 90); err == nil {
		t.Error("writeJPEG into missing directory succeeded")
	}
}
