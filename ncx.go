package comicrepack

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// ncxDocument represents the root <ncx> element of an NCX file.
type ncxDocument struct {
	XMLName  xml.Name    `xml:"ncx"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	Head     []ncxMeta   `xml:"head>meta"`
	DocTitle ncxNavLabel `xml:"docTitle"`
	NavMap   ncxNavMap   `xml:"navMap"`
}

// ncxMeta represents a <meta name="..." content="..."/> in the NCX head.
type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// ncxNavMap represents the <navMap> element containing top-level navPoints.
type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a <navPoint> element.
type ncxNavPoint struct {
	ID        string      `xml:"id,attr"`
	PlayOrder int         `xml:"playOrder,attr"`
	Label     ncxNavLabel `xml:"navLabel"`
	Content   ncxContent  `xml:"content"`
}

// ncxNavLabel represents a label element containing display text.
type ncxNavLabel struct {
	Text string `xml:"text"`
}

// ncxContent represents the <content> element with its src attribute.
type ncxContent struct {
	Src string `xml:"src,attr"`
}

// ncxFileName is the name of the navigation file in the rebuilt package.
const ncxFileName = "toc.ncx"

// buildNCX returns the navigation document of a rebuilt book: a single
// "Start" entry pointing at the first page. Comics carry no chapter
// structure worth preserving once pages have been renumbered.
func buildNCX(uid, title, firstMarkup string) ncxDocument {
	return ncxDocument{
		Xmlns:    "http://www.daisy.org/z3986/2005/ncx/",
		Version:  "2005-1",
		Head:     []ncxMeta{{Name: "dtb:uid", Content: uid}},
		DocTitle: ncxNavLabel{Text: title},
		NavMap: ncxNavMap{NavPoints: []ncxNavPoint{{
			ID:        "navPoint-1",
			PlayOrder: 1,
			Label:     ncxNavLabel{Text: "Start"},
			Content:   ncxContent{Src: firstMarkup},
		}}},
	}
}

// writeXMLFile marshals v with an XML declaration into dir/name.
func writeXMLFile(dir, name string, v any) (string, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("comicrepack: marshal %s: %w", name, err)
	}
	p := filepath.Join(dir, name)
	data := append([]byte(xml.Header), out...)
	if err := os.WriteFile(p, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("comicrepack: write %s: %w", name, err)
	}
	return p, nil
}
