package comicrepack

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Package is an opened package description (.opf) on the local filesystem,
// together with the extracted tree around it. Use OpenPackage to create one.
//
// A Package is not safe for concurrent use by multiple goroutines.
type Package struct {
	path         string // absolute path of the .opf file
	opf          *opfPackage
	manifestByID map[string]*manifestItem
	spine        []spineItem
	metadata     Metadata
	images       []string
	resolved     bool
	warnings     []string
}

// OpenPackage reads and parses the package description at opfPath.
// A missing file yields a wrapped ErrMissingManifest. Content that is not
// well-formed XML is parsed permissively rather than rejected.
func OpenPackage(opfPath string) (*Package, error) {
	abs, err := filepath.Abs(opfPath)
	if err != nil {
		return nil, fmt.Errorf("comicrepack: resolve %s: %w", opfPath, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("comicrepack: open %s: %w", opfPath, ErrMissingManifest)
		}
		return nil, fmt.Errorf("comicrepack: read %s: %w", opfPath, err)
	}

	pkg, strict := decodeOPF(data)
	p := &Package{path: abs, opf: pkg}
	if !strict {
		p.warnings = append(p.warnings, "package description is not well-formed XML; parsed permissively")
	}
	p.manifestByID = buildManifestIndex(pkg.Manifest)
	p.spine = buildSpine(pkg.Spine, p.manifestByID)
	p.metadata = extractMetadata(data, pkg)

	return p, nil
}

// Resolve opens the package description at opfPath and returns its page
// images in reading order together with the descriptive metadata.
func Resolve(opfPath string) ([]string, Metadata, error) {
	p, err := OpenPackage(opfPath)
	if err != nil {
		return nil, Metadata{}, err
	}
	return p.Images(), p.Metadata(), nil
}

// Path returns the absolute path of the package description.
func (p *Package) Path() string { return p.path }

// Metadata returns the descriptive metadata of the source package.
func (p *Package) Metadata() Metadata { return p.metadata }

// Warnings returns the non-fatal problems met while parsing and resolving.
func (p *Package) Warnings() []string {
	return append([]string(nil), p.warnings...)
}

// Images returns the absolute paths of the page images in reading order.
//
// The spine is walked in document order. Each itemref that names a manifest
// item resolves to a markup fragment relative to the package description;
// fragments missing on disk are skipped. Every image a fragment references
// is taken in document order, resolved relative to the fragment, and kept
// only if the file exists and the path has not been seen before. Spine
// items that are themselves images are taken directly.
//
// The result is computed once and cached.
func (p *Package) Images() []string {
	if p.resolved {
		return append([]string(nil), p.images...)
	}

	seen := make(map[string]bool)
	add := func(img string) {
		if img == "" || seen[img] || !isRegularFile(img) {
			return
		}
		seen[img] = true
		p.images = append(p.images, img)
	}

	for _, si := range p.spine {
		fragPath := resolveAssetPath(p.path, si.Href)
		if fragPath == "" {
			continue
		}
		if mi := p.manifestByID[si.IDRef]; mi != nil && isImageMediaType(mi.MediaType) {
			add(fragPath)
			continue
		}
		data, err := os.ReadFile(fragPath)
		if err != nil {
			p.warnings = append(p.warnings, fmt.Sprintf("spine item %q: fragment %s unreadable", si.IDRef, si.Href))
			continue
		}
		for _, ref := range extractImageRefs(data) {
			add(resolveAssetPath(fragPath, ref))
		}
	}

	p.resolved = true
	return append([]string(nil), p.images...)
}

// isRegularFile reports whether path names an existing regular file.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// isImageMediaType reports whether mediaType is an image/* MIME type.
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
