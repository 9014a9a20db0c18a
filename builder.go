package comicrepack

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

// packageFileName is the name of the rebuilt package description.
const packageFileName = "content.opf"

// pageNames returns the image and markup file names for page index i.
func pageNames(i int) (image, markup string) {
	base := fmt.Sprintf("page_%04d", i)
	return base + ".jpg", base + ".html"
}

// itemID derives a manifest id from a file name ("page_0001.jpg" → "page_0001_jpg").
func itemID(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// pageTemplate renders a single-image fixed-layout page. The viewport meta,
// zero margins and an image sized to the full viewport make the device
// render the page borderless and full-screen.
var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"escape": escapeText,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{escape .Title}}</title>
<meta name="viewport" content="width={{.Width}}, height={{.Height}}" />
<style>body, div, img { margin: 0; padding: 0; border: 0; } body { width: {{.Width}}px; height: {{.Height}}px; overflow: hidden; } img { width: {{.Width}}px; height: {{.Height}}px; display: block; }</style>
</head>
<body><img src="{{escape .Image}}" alt="comic page"/></body></html>
`))

// writePageMarkup writes the XHTML fragment of rec into dir.
func writePageMarkup(dir string, rec PageRecord) error {
	f, err := os.Create(filepath.Join(dir, rec.Markup))
	if err != nil {
		return fmt.Errorf("comicrepack: create %s: %w", rec.Markup, err)
	}
	err = pageTemplate.Execute(f, struct {
		Title         string
		Image         string
		Width, Height int
	}{
		Title:  fmt.Sprintf("Page %d", rec.Index+1),
		Image:  rec.Image,
		Width:  rec.Width,
		Height: rec.Height,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("comicrepack: write %s: %w", rec.Markup, err)
	}
	return nil
}

// --- Rebuilt OPF (package description) encoding structs ---

type outPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata outMetadata `xml:"metadata"`
	Manifest []outItem   `xml:"manifest>item"`
	Spine    outSpine    `xml:"spine"`
}

type outMetadata struct {
	XmlnsDC    string        `xml:"xmlns:dc,attr"`
	Title      string        `xml:"dc:title"`
	Language   string        `xml:"dc:language"`
	Identifier outIdentifier `xml:"dc:identifier"`
	Creator    string        `xml:"dc:creator,omitempty"`
	Publisher  string        `xml:"dc:publisher,omitempty"`
	Metas      []ncxMeta     `xml:"meta"`
}

type outIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type outItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type outSpine struct {
	Toc       string       `xml:"toc,attr"`
	Direction string       `xml:"page-progression-direction,attr,omitempty"`
	ItemRefs  []outItemRef `xml:"itemref"`
}

type outItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// buildPackage assembles the package description of the rebuilt book.
// The spine lists the page fragments in final order; the manifest declares
// each fragment followed by its image.
func buildPackage(pages []PageRecord, md Metadata, prof Profile, uid string) outPackage {
	metas := []ncxMeta{
		{Name: "fixed-layout", Content: "true"},
		{Name: "original-resolution", Content: fmt.Sprintf("%dx%d", prof.Width, prof.Height)},
		{Name: "book-type", Content: "comic"},
		{Name: "zero-gutter", Content: "true"},
		{Name: "zero-margin", Content: "true"},
	}
	if len(pages) > 0 {
		metas = append(metas, ncxMeta{Name: "cover", Content: itemID(pages[0].Image)})
	}
	spine := outSpine{Toc: "ncx"}
	if prof.RightToLeft {
		metas = append(metas, ncxMeta{Name: "primary-writing-mode", Content: "horizontal-rl"})
		spine.Direction = "rtl"
	}

	lang := md.Language
	if lang == "" {
		lang = "en"
	}

	manifest := make([]outItem, 0, 2*len(pages)+1)
	manifest = append(manifest, outItem{ID: "ncx", Href: ncxFileName, MediaType: "application/x-dtbncx+xml"})
	for _, p := range pages {
		manifest = append(manifest,
			outItem{ID: itemID(p.Markup), Href: p.Markup, MediaType: "application/xhtml+xml"},
			outItem{ID: itemID(p.Image), Href: p.Image, MediaType: "image/jpeg"},
		)
		spine.ItemRefs = append(spine.ItemRefs, outItemRef{IDRef: itemID(p.Markup)})
	}

	return outPackage{
		Xmlns:    "http://www.idpf.org/2007/opf",
		Version:  "2.0",
		UniqueID: "uid",
		Metadata: outMetadata{
			XmlnsDC:    "http://purl.org/dc/elements/1.1/",
			Title:      md.Title,
			Language:   lang,
			Identifier: outIdentifier{ID: "uid", Value: uid},
			Creator:    md.Creator,
			Publisher:  md.Publisher,
			Metas:      metas,
		},
		Manifest: manifest,
		Spine:    spine,
	}
}

// writeBook writes every page fragment, the NCX and the package description
// into dir and returns the path of the package description.
func writeBook(dir string, pages []PageRecord, md Metadata, prof Profile) (string, error) {
	if len(pages) == 0 {
		return "", ErrEmptySpine
	}
	for _, p := range pages {
		if err := writePageMarkup(dir, p); err != nil {
			return "", err
		}
	}

	uid := "urn:uuid:" + uuid.NewString()
	if _, err := writeXMLFile(dir, ncxFileName, buildNCX(uid, md.Title, pages[0].Markup)); err != nil {
		return "", err
	}
	return writeXMLFile(dir, packageFileName, buildPackage(pages, md, prof, uid))
}
