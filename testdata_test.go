package comicrepack

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := zipBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestZipFile writes a ZIP archive to a temporary file and returns its
// path. A "mimetype" entry, if present, is written first as ePub requires.
func buildTestZipFile(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, zipBytes(t, files), 0o644); err != nil {
		t.Fatalf("buildTestZipFile: %v", err)
	}
	return p
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, names...)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("zip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip: close writer: %v", err)
	}
	return buf.Bytes()
}

// writeTree writes files (slash-separated relative path → content) beneath root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("writeTree: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("writeTree: %v", err)
		}
	}
}

// testOPF renders a package description. items are "id href media-type"
// triples; spine lists idrefs.
func testOPF(items [][3]string, spine []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
<metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Test Comic</dc:title>
<dc:creator> Jane Artist </dc:creator>
<dc:publisher>Panel House</dc:publisher>
<dc:language>ja</dc:language>
</metadata>
<manifest>
`)
	for _, it := range items {
		fmt.Fprintf(&b, "<item id=%q href=%q media-type=%q/>\n", it[0], it[1], it[2])
	}
	b.WriteString("</manifest>\n<spine>\n")
	for _, id := range spine {
		fmt.Fprintf(&b, "<itemref idref=%q/>\n", id)
	}
	b.WriteString("</spine>\n</package>\n")
	return b.String()
}

// testPage renders an XHTML fragment referencing srcs with <img>.
func testPage(srcs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>p</title></head><body>`)
	for _, s := range srcs {
		fmt.Fprintf(&b, `<div><img src=%q alt=""/></div>`, s)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// solidImage returns a w×h image filled with intensity v.
func solidImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// checkerImage returns a w×h black and white checkerboard with cell-pixel
// squares, the stand-in for a page of line art.
func checkerImage(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	return img
}

// pngData encodes img as PNG.
func pngData(t testing.TB, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.String()
}

// treeExtractor is an Extractor that writes a fixed tree instead of
// unpacking the input.
type treeExtractor struct {
	files map[string]string
	err   error
}

func (e treeExtractor) Extract(_ context.Context, _, dest string) error {
	if e.err != nil {
		return e.err
	}
	for name, content := range e.files {
		p := filepath.Join(dest, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// fakeCompiler is a Compiler that records the package description it was
// given and writes a placeholder output next to it.
type fakeCompiler struct {
	opf      *string
	noOutput bool
}

func (c fakeCompiler) Compile(_ context.Context, opfPath, outputName string) (string, error) {
	data, err := os.ReadFile(opfPath)
	if err != nil {
		return "", err
	}
	if c.opf != nil {
		*c.opf = string(data)
	}
	if c.noOutput {
		return "", ErrCompilationFailed
	}
	out := filepath.Join(filepath.Dir(opfPath), outputName)
	if err := os.WriteFile(out, []byte("BOOKMOBI"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}
