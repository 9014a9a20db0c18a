package comicrepack

import (
	"testing"
)

// --- OPF test data ---

const testOPFv2 = `<?xml version="1.0" encoding="UTF-8"?>
<package version="2.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Comic v2</dc:title>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="p1" href="Text/page1.xhtml" media-type="application/xhtml+xml"/>
    <item id="p2" href="Text/page2.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="Images/cover.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="p1"/>
    <itemref idref="p2" linear="yes"/>
  </spine>
  <guide>
    <reference type="cover" title="Cover" href="Text/cover.xhtml"/>
  </guide>
</package>`

// Typical of converter output: a bare ampersand and an unclosed tag.
const testOPFMalformed = `<?xml version="1.0" encoding="UTF-8"?>
<package version="2.0" xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Tom & Jerry</dc:title>
    <dc:creator>  Studio A </dc:creator>
    <dc:publisher>Pub & Co</dc:publisher>
    <dc:language>fr</dc:language>
  <manifest>
    <item id="p1" href="p1.html" media-type="application/xhtml+xml">
    <item id="p2" href="p2.html" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="p2"/>
    <itemref idref="p1"/>
  </spine>
</package>`

// --- parseOPF / decodeOPF tests ---

func TestParseOPF_V2(t *testing.T) {
	pkg, err := parseOPF([]byte(testOPFv2))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q, want %q", pkg.Version, "2.0")
	}
	if got := len(pkg.Manifest.Items); got != 4 {
		t.Errorf("manifest items = %d, want 4", got)
	}
	if got := len(pkg.Spine.ItemRefs); got != 2 {
		t.Fatalf("spine itemrefs = %d, want 2", got)
	}
	if pkg.Spine.ItemRefs[1].IDRef != "p2" {
		t.Errorf("spine[1] = %q, want %q", pkg.Spine.ItemRefs[1].IDRef, "p2")
	}
	if pkg.Spine.Toc != "ncx" {
		t.Errorf("spine toc = %q, want %q", pkg.Spine.Toc, "ncx")
	}
	if len(pkg.Guide.References) != 1 || pkg.Guide.References[0].Type != "cover" {
		t.Errorf("guide = %+v, want one cover reference", pkg.Guide.References)
	}
	if len(pkg.Metadata.Metas) != 1 || pkg.Metadata.Metas[0].Name != "cover" {
		t.Errorf("metas = %+v, want cover meta", pkg.Metadata.Metas)
	}
}

func TestParseOPF_DefaultVersion(t *testing.T) {
	pkg, err := parseOPF([]byte(`<package><manifest/><spine/></package>`))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if pkg.Version != "2.0" {
		t.Errorf("Version = %q, want default %q", pkg.Version, "2.0")
	}
}

func TestParseOPF_HTMLEntities(t *testing.T) {
	data := `<package version="2.0"><metadata><meta name="x" content="Caf&eacute;"/></metadata></package>`
	pkg, err := parseOPF([]byte(data))
	if err != nil {
		t.Fatalf("parseOPF: %v", err)
	}
	if got := pkg.Metadata.Metas[0].Content; got != "Café" {
		t.Errorf("content = %q, want %q", got, "Café")
	}
}

func TestParseOPF_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(testOPFv2)...)
	if _, err := parseOPF(data); err != nil {
		t.Fatalf("parseOPF with BOM: %v", err)
	}
}

func TestDecodeOPF_Strict(t *testing.T) {
	pkg, strict := decodeOPF([]byte(testOPFv2))
	if !strict {
		t.Fatal("strict = false, want true for well-formed input")
	}
	if pkg.scanned != nil {
		t.Error("scanned metadata set for well-formed input")
	}
}

func TestDecodeOPF_Malformed(t *testing.T) {
	if _, err := parseOPF([]byte(testOPFMalformed)); err == nil {
		t.Fatal("parseOPF accepted malformed input; fixture no longer exercises the fallback")
	}

	pkg, strict := decodeOPF([]byte(testOPFMalformed))
	if strict {
		t.Fatal("strict = true, want false")
	}
	if got := len(pkg.Manifest.Items); got != 2 {
		t.Fatalf("manifest items = %d, want 2", got)
	}
	var order []string
	for _, ref := range pkg.Spine.ItemRefs {
		order = append(order, ref.IDRef)
	}
	if len(order) != 2 || order[0] != "p2" || order[1] != "p1" {
		t.Errorf("spine = %v, want [p2 p1]", order)
	}
	if pkg.scanned == nil {
		t.Fatal("scanned metadata is nil")
	}
	if pkg.scanned.Creator != "Studio A" {
		t.Errorf("creator = %q, want %q", pkg.scanned.Creator, "Studio A")
	}
	if pkg.scanned.Publisher != "Pub & Co" {
		t.Errorf("publisher = %q, want %q", pkg.scanned.Publisher, "Pub & Co")
	}
	if pkg.scanned.Language != "fr" {
		t.Errorf("language = %q, want %q", pkg.scanned.Language, "fr")
	}
}

func TestScanOPF_NamespacePrefixes(t *testing.T) {
	data := `<opf:package><opf:manifest><opf:item id="a" href="a.html"/></opf:manifest>` +
		`<opf:spine><opf:itemref idref="a"/></opf:spine></opf:package>`
	pkg := scanOPF([]byte(data))
	if len(pkg.Manifest.Items) != 1 || pkg.Manifest.Items[0].Href != "a.html" {
		t.Errorf("items = %+v, want a.html", pkg.Manifest.Items)
	}
	if len(pkg.Spine.ItemRefs) != 1 || pkg.Spine.ItemRefs[0].IDRef != "a" {
		t.Errorf("itemrefs = %+v, want a", pkg.Spine.ItemRefs)
	}
}

func TestLocalName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"item", "item"},
		{"opf:item", "item"},
		{"DC:Creator", "creator"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := localName(tt.in); got != tt.want {
			t.Errorf("localName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- manifest and spine tests ---

func TestBuildManifestIndex(t *testing.T) {
	m := opfManifest{Items: []opfManifestItem{
		{ID: "a", Href: "first.html", MediaType: "application/xhtml+xml"},
		{ID: " b ", Href: " b.html ", MediaType: "application/xhtml+xml"},
		{ID: "a", Href: "second.html", MediaType: "application/xhtml+xml"},
		{ID: "", Href: "orphan.html"},
		{ID: "nohref", Href: ""},
	}}
	byID := buildManifestIndex(m)

	if len(byID) != 2 {
		t.Fatalf("byID has %d entries, want 2", len(byID))
	}
	if got := byID["a"].Href; got != "second.html" {
		t.Errorf("duplicate id: href = %q, want last declaration %q", got, "second.html")
	}
	if got := byID["b"].Href; got != "b.html" {
		t.Errorf("trimmed href = %q, want %q", got, "b.html")
	}
	for id, item := range byID {
		if item.Href == "orphan.html" || item.Href == "" {
			t.Errorf("byID[%q] = %+v, want items without id or href skipped", id, item)
		}
	}
}

func TestBuildSpine(t *testing.T) {
	byID := buildManifestIndex(opfManifest{Items: []opfManifestItem{
		{ID: "a", Href: "a.html"},
		{ID: "b", Href: "b.html"},
	}})
	spine := opfSpine{ItemRefs: []opfSpineItemRef{
		{IDRef: "b"}, {IDRef: "ghost"}, {IDRef: " a "}, {IDRef: "b"},
	}}

	got := buildSpine(spine, byID)
	want := []string{"b.html", "a.html", "b.html"}
	if len(got) != len(want) {
		t.Fatalf("spine = %+v, want hrefs %v", got, want)
	}
	for i := range want {
		if got[i].Href != want[i] {
			t.Errorf("spine[%d].Href = %q, want %q", i, got[i].Href, want[i])
		}
	}
}
