package comicrepack

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerPath is the well-known location of container.xml in an ePub tree.
const containerPath = "META-INF/container.xml"

// errStopWalk ends a directory walk early once a match is found.
var errStopWalk = errors.New("stop walk")

// FindPackageDescription locates the package description (.opf) inside an
// extracted document tree rooted at root.
//
// If META-INF/container.xml exists and names a rootfile that is present on
// disk, that file is returned. Otherwise the tree is walked in lexical order
// and the first file with an ".opf" extension (case-insensitive) wins.
// Returns a wrapped ErrMissingManifest when nothing is found.
func FindPackageDescription(root string) (string, error) {
	if p, ok := packageFromContainer(root); ok {
		return p, nil
	}

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".opf") {
			found = path
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return "", fmt.Errorf("comicrepack: search %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("comicrepack: no .opf file under %s: %w", root, ErrMissingManifest)
	}
	return found, nil
}

// packageFromContainer reads root/META-INF/container.xml (case-insensitive
// on the file name) and returns the first rootfile that exists on disk,
// preferring the OPF media type.
func packageFromContainer(root string) (string, bool) {
	data, err := readFileInsensitive(root, containerPath)
	if err != nil {
		return "", false
	}

	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", false
	}

	var fallbackPath string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" || !isSafePath(fullPath) {
			continue
		}
		candidate := filepath.Join(root, filepath.FromSlash(fullPath))
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), "application/oebps-package+xml") {
			return candidate, true
		}
		if fallbackPath == "" {
			fallbackPath = candidate
		}
	}
	return fallbackPath, fallbackPath != ""
}

// readFileInsensitive reads rel (slash-separated) beneath root, matching each
// path element case-insensitively when an exact match does not exist.
func readFileInsensitive(root, rel string) ([]byte, error) {
	dir := root
	for _, part := range strings.Split(rel, "/") {
		exact := filepath.Join(dir, part)
		if _, err := os.Stat(exact); err == nil {
			dir = exact
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		next := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				next = filepath.Join(dir, e.Name())
				break
			}
		}
		if next == "" {
			return nil, fs.ErrNotExist
		}
		dir = next
	}
	return os.ReadFile(dir)
}
