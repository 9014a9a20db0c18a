package comicrepack

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
	Guide    opfGuide    `xml:"guide"`

	// scanned holds Dublin Core values recovered by scanOPF. It is only
	// populated when the document was not well-formed XML.
	scanned *Metadata
}

// opfMetadata holds the metadata elements the resolver needs directly.
// Dublin Core fields are read separately (see metadata.go).
type opfMetadata struct {
	Metas []opfMeta `xml:"meta"`
}

// opfMeta represents a <meta> element in the OPF metadata.
// ePub 2: <meta name="..." content="..."/>
// ePub 3: <meta property="...">value</meta>
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// opfGuide wraps the <guide> element.
type opfGuide struct {
	References []opfGuideReference `xml:"reference"`
}

// opfGuideReference represents a single <reference> in the guide.
type opfGuideReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

// parseOPF parses well-formed OPF content.
func parseOPF(data []byte) (*opfPackage, error) {
	data = preprocessHTMLEntities(stripBOM(data))

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("comicrepack: parse OPF: %w", err)
	}
	if pkg.Version == "" {
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// decodeOPF parses OPF content, falling back to a permissive tag scan when
// the document is not well-formed XML. Converted books frequently carry
// stray entities, unclosed tags or bad encodings; the scan recovers the
// manifest, spine and Dublin Core fields from such input.
func decodeOPF(data []byte) (pkg *opfPackage, strict bool) {
	if p, err := parseOPF(data); err == nil {
		return p, true
	}
	return scanOPF(data), false
}

// scanOPF extracts manifest items, spine itemrefs, metas, guide references
// and Dublin Core values from OPF content using the HTML tokenizer, which
// never rejects input. Namespace prefixes on tag names are ignored.
func scanOPF(data []byte) *opfPackage {
	pkg := &opfPackage{Version: "2.0", scanned: &Metadata{}}
	z := html.NewTokenizer(bytes.NewReader(expandSelfClosingRawText(stripBOM(data))))

	var textTarget *string
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error; either way keep what was recovered.
			return pkg

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := map[string]string{}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				attrs[localName(string(k))] = string(v)
			}
			textTarget = nil
			switch localName(string(name)) {
			case "package":
				if v := attrs["version"]; v != "" {
					pkg.Version = v
				}
			case "item":
				pkg.Manifest.Items = append(pkg.Manifest.Items, opfManifestItem{
					ID:         attrs["id"],
					Href:       attrs["href"],
					MediaType:  attrs["media-type"],
					Properties: attrs["properties"],
				})
			case "itemref":
				pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfSpineItemRef{IDRef: attrs["idref"]})
			case "spine":
				pkg.Spine.Toc = attrs["toc"]
			case "meta":
				pkg.Metadata.Metas = append(pkg.Metadata.Metas, opfMeta{
					Name:     attrs["name"],
					Content:  attrs["content"],
					Property: attrs["property"],
				})
			case "reference":
				pkg.Guide.References = append(pkg.Guide.References, opfGuideReference{
					Type:  attrs["type"],
					Title: attrs["title"],
					Href:  attrs["href"],
				})
			case "creator":
				if tt == html.StartTagToken && pkg.scanned.Creator == "" {
					textTarget = &pkg.scanned.Creator
				}
			case "publisher":
				if tt == html.StartTagToken && pkg.scanned.Publisher == "" {
					textTarget = &pkg.scanned.Publisher
				}
			case "language":
				if tt == html.StartTagToken && pkg.scanned.Language == "" {
					textTarget = &pkg.scanned.Language
				}
			case "title":
				if tt == html.StartTagToken && pkg.scanned.Title == "" {
					textTarget = &pkg.scanned.Title
				}
			}

		case html.TextToken:
			if textTarget != nil {
				*textTarget += string(z.Text())
			}

		case html.EndTagToken:
			if textTarget != nil {
				*textTarget = strings.TrimSpace(*textTarget)
			}
			textTarget = nil
		}
	}
}

// localName strips an XML namespace prefix ("opf:item" → "item") and lowercases.
func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// buildManifestIndex indexes the parsed OPF manifest by item id. Items are
// inserted in document order, so a repeated id keeps the last declaration.
func buildManifestIndex(manifest opfManifest) map[string]*manifestItem {
	byID := make(map[string]*manifestItem, len(manifest.Items))

	for _, item := range manifest.Items {
		mi := &manifestItem{
			ID:         strings.TrimSpace(item.ID),
			Href:       strings.TrimSpace(item.Href),
			MediaType:  strings.TrimSpace(item.MediaType),
			Properties: item.Properties,
		}
		if mi.ID == "" || mi.Href == "" {
			continue
		}
		byID[mi.ID] = mi
	}

	return byID
}

// buildSpine resolves the spine itemrefs against the manifest in document
// order. Itemrefs whose id is not declared in the manifest are dropped.
func buildSpine(spine opfSpine, manifestByID map[string]*manifestItem) []spineItem {
	items := make([]spineItem, 0, len(spine.ItemRefs))

	for _, ref := range spine.ItemRefs {
		idref := strings.TrimSpace(ref.IDRef)
		mi, ok := manifestByID[idref]
		if !ok {
			continue
		}
		items = append(items, spineItem{IDRef: idref, Href: mi.Href})
	}

	return items
}
