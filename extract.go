package comicrepack

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Extractor unpacks an input container into the directory dest, producing
// the document tree the Spine Resolver walks.
type Extractor interface {
	Extract(ctx context.Context, path, dest string) error
}

// ZipExtractor unpacks ZIP-based containers (ePub, zipped comic books).
// Entries that would escape dest or exceed Limit bytes after decompression
// are rejected, and DRM-protected ePubs fail with ErrDRMProtected.
type ZipExtractor struct {
	// Limit is the per-entry decompressed size limit. Zero means 256 MB.
	Limit int64
}

// Extract implements Extractor.
func (z ZipExtractor) Extract(ctx context.Context, path, dest string) error {
	limit := z.Limit
	if limit <= 0 {
		limit = maxDecompressSize
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("comicrepack: open %s: %w: %w", path, ErrExtraction, err)
	}
	defer zr.Close()

	obfuscated, err := inspectDRM(&zr.Reader)
	if err != nil {
		if errors.Is(err, ErrDRMProtected) {
			return fmt.Errorf("comicrepack: %s: %w: %w", path, ErrExtraction, err)
		}
		return fmt.Errorf("comicrepack: inspect %s: %w: %w", path, ErrExtraction, err)
	}
	if obfuscated {
		zerolog.Ctx(ctx).Debug().Str("input", path).Msg("container uses font obfuscation")
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeZipEntry(f, dest, limit); err != nil {
			return fmt.Errorf("comicrepack: extract %s: %w: %w", path, ErrExtraction, err)
		}
	}
	return nil
}

// DefaultUnpackerArgs is the argument template of CommandExtractor.
// "{input}" and "{output}" are replaced by the container path and the
// destination directory.
var DefaultUnpackerArgs = []string{"{input}", "{output}"}

// CommandExtractor unpacks compiled device formats (.mobi, .azw3) with an
// external unpacker.
type CommandExtractor struct {
	Path string   // binary; "mobiunpack" resolved via PATH when empty
	Args []string // nil means DefaultUnpackerArgs
}

// Extract implements Extractor.
func (c CommandExtractor) Extract(ctx context.Context, path, dest string) error {
	bin := c.Path
	if bin == "" {
		bin = "mobiunpack"
	}
	tmpl := c.Args
	if tmpl == nil {
		tmpl = DefaultUnpackerArgs
	}
	r := strings.NewReplacer("{input}", path, "{output}", dest)
	args := make([]string, len(tmpl))
	for i, a := range tmpl {
		args[i] = r.Replace(a)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return fmt.Errorf("comicrepack: %s %s: %w: %w (%s)", bin, path, ErrExtraction, err, lastLine(out.String()))
	}

	entries, err := os.ReadDir(dest)
	if err != nil || len(entries) == 0 {
		return fmt.Errorf("comicrepack: %s left %s empty: %w", bin, dest, ErrExtraction)
	}
	return nil
}

// AutoExtractor routes each container by its sniffed content type: ZIP
// archives go to Zip, everything else to Command.
type AutoExtractor struct {
	Zip     Extractor
	Command Extractor
}

// Extract implements Extractor.
func (a AutoExtractor) Extract(ctx context.Context, path, dest string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("comicrepack: detect %s: %w: %w", path, ErrExtraction, err)
	}

	var ex Extractor
	if isZipType(mt) {
		ex = a.Zip
		if ex == nil {
			ex = ZipExtractor{}
		}
	} else {
		ex = a.Command
		if ex == nil {
			ex = CommandExtractor{}
		}
	}
	zerolog.Ctx(ctx).Debug().Str("input", path).Str("mime", mt.String()).Msg("detected container type")
	return ex.Extract(ctx, path, dest)
}

// isZipType reports whether mt is a ZIP archive or a ZIP-based format.
func isZipType(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
