package comicrepack

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Dublin Core lookups match on local name only, and case-insensitively:
// Mobipocket-era packages write <dc:Creator> inside <dc-metadata> wrappers,
// ePub packages write <dc:creator> directly under <metadata>.
var (
	creatorExpr   = mustCompileDC("creator")
	publisherExpr = mustCompileDC("publisher")
	languageExpr  = mustCompileDC("language")
	titleExpr     = mustCompileDC("title")
)

func mustCompileDC(field string) *xpath.Expr {
	return xpath.MustCompile(
		"//*[translate(local-name(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')='" + field + "']")
}

// extractMetadata reads creator, publisher, language and title from OPF
// content. Each field is the first matching element's text, trimmed; an
// element with only whitespace is skipped. When the content is not
// well-formed XML the values recovered by the permissive scan are used.
func extractMetadata(data []byte, pkg *opfPackage) Metadata {
	if pkg != nil && pkg.scanned != nil {
		return *pkg.scanned
	}

	doc, err := xmlquery.Parse(bytes.NewReader(preprocessHTMLEntities(stripBOM(data))))
	if err != nil {
		return *scanOPF(data).scanned
	}

	return Metadata{
		Creator:   firstText(doc, creatorExpr),
		Publisher: firstText(doc, publisherExpr),
		Language:  firstText(doc, languageExpr),
		Title:     firstText(doc, titleExpr),
	}
}

// firstText returns the trimmed text of the first node matching expr that
// has non-blank content.
func firstText(doc *xmlquery.Node, expr *xpath.Expr) string {
	for _, n := range xmlquery.QuerySelectorAll(doc, expr) {
		if v := strings.TrimSpace(n.InnerText()); v != "" {
			return v
		}
	}
	return ""
}
