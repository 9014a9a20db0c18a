package comicrepack

import (
	"os"
	"slices"
	"strings"
)

// Cover locates the source book's cover image and returns its absolute path.
// Strategies are tried in priority order:
//  1. ePub 3 manifest item with properties="cover-image"
//  2. <meta name="cover" content="ID"/> → manifest lookup; a non-image
//     target is read as a cover page and its first image is used
//  3. <guide> reference type="cover" → first image of that page
//  4. Manifest image item whose ID or href contains "cover"
//
// Converters commonly keep the cover outside the spine, so it never shows
// up in Images. Returns ErrNoCover if no strategy finds an existing file.
func (p *Package) Cover() (string, error) {
	strategies := []func() string{
		p.coverFromManifestProperties,
		p.coverFromMetaCover,
		p.coverFromGuide,
		p.coverFromManifestHeuristic,
	}
	for _, find := range strategies {
		if img := find(); img != "" && isRegularFile(img) {
			return img, nil
		}
	}
	return "", ErrNoCover
}

// coverFromManifestProperties returns the first manifest item, in document
// order, whose properties include "cover-image".
func (p *Package) coverFromManifestProperties() string {
	for _, raw := range p.opf.Manifest.Items {
		item, ok := p.manifestByID[strings.TrimSpace(raw.ID)]
		if !ok {
			continue
		}
		if slices.Contains(strings.Fields(item.Properties), "cover-image") {
			return resolveAssetPath(p.path, item.Href)
		}
	}
	return ""
}

// coverFromMetaCover resolves <meta name="cover" content="ID"/> through the
// manifest.
func (p *Package) coverFromMetaCover() string {
	for _, m := range p.opf.Metadata.Metas {
		if !strings.EqualFold(m.Name, "cover") || m.Content == "" {
			continue
		}
		item, ok := p.manifestByID[strings.TrimSpace(m.Content)]
		if !ok {
			continue
		}
		target := resolveAssetPath(p.path, item.Href)
		if isImageMediaType(item.MediaType) {
			return target
		}
		if img := firstImageOf(target); img != "" {
			return img
		}
	}
	return ""
}

// coverFromGuide returns the first image of the guide's cover page.
func (p *Package) coverFromGuide() string {
	for _, ref := range p.opf.Guide.References {
		if !strings.EqualFold(strings.TrimSpace(ref.Type), "cover") {
			continue
		}
		if img := firstImageOf(resolveAssetPath(p.path, ref.Href)); img != "" {
			return img
		}
	}
	return ""
}

// coverFromManifestHeuristic returns the first image item whose ID or href
// mentions "cover".
func (p *Package) coverFromManifestHeuristic() string {
	for _, raw := range p.opf.Manifest.Items {
		item, ok := p.manifestByID[strings.TrimSpace(raw.ID)]
		if !ok || !isImageMediaType(item.MediaType) {
			continue
		}
		if containsFold(item.ID, "cover") || containsFold(item.Href, "cover") {
			return resolveAssetPath(p.path, item.Href)
		}
	}
	return ""
}

// firstImageOf returns the resolved path of the first image referenced by
// the markup fragment at fragPath, or "" if none.
func firstImageOf(fragPath string) string {
	if fragPath == "" {
		return ""
	}
	data, err := os.ReadFile(fragPath)
	if err != nil {
		return ""
	}
	for _, ref := range extractImageRefs(data) {
		if img := resolveAssetPath(fragPath, ref); img != "" {
			return img
		}
	}
	return ""
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
