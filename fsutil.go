package comicrepack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// moveIntoPlace moves src to dst, replacing any existing file. A plain rename
// is tried first; across filesystems the file is copied to a temporary name
// in dst's directory and renamed from there, so dst is never observed
// partially written.
func moveIntoPlace(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("comicrepack: create output directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("comicrepack: open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".comicrepack-*")
	if err != nil {
		return fmt.Errorf("comicrepack: create temporary output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("comicrepack: copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("comicrepack: close temporary output: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("comicrepack: rename into %s: %w", dst, err)
	}
	return nil
}
