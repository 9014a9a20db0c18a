package comicrepack

import (
	"bytes"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// entityNameToNumeric maps lowercase HTML entity names to their XML numeric
// character references. encoding/xml does not recognise HTML named entities,
// so we convert them before parsing OPF/NCX files.
var entityNameToNumeric = map[string][]byte{
	"nbsp": []byte("&#160;"), "mdash": []byte("&#8212;"), "ndash": []byte("&#8211;"),
	"hellip": []byte("&#8230;"),
	"lsquo": []byte("&#8216;"), "rsquo": []byte("&#8217;"),
	"ldquo": []byte("&#8220;"), "rdquo": []byte("&#8221;"),
	"copy": []byte("&#169;"), "reg": []byte("&#174;"), "trade": []byte("&#8482;"),
	"bull": []byte("&#8226;"), "middot": []byte("&#183;"),
	"eacute": []byte("&#233;"), "egrave": []byte("&#232;"),
	"ecirc": []byte("&#234;"), "euml": []byte("&#235;"),
	"aacute": []byte("&#225;"), "agrave": []byte("&#224;"),
	"acirc": []byte("&#226;"), "auml": []byte("&#228;"),
	"iacute": []byte("&#237;"), "igrave": []byte("&#236;"),
	"icirc": []byte("&#238;"), "iuml": []byte("&#239;"),
	"oacute": []byte("&#243;"), "ograve": []byte("&#242;"),
	"ocirc": []byte("&#244;"), "ouml": []byte("&#246;"),
	"uacute": []byte("&#250;"), "ugrave": []byte("&#249;"),
	"ucirc": []byte("&#251;"), "uuml": []byte("&#252;"),
	"ntilde": []byte("&#241;"), "ccedil": []byte("&#231;"),
	"times": []byte("&#215;"), "divide": []byte("&#247;"),
	"deg": []byte("&#176;"), "para": []byte("&#182;"), "sect": []byte("&#167;"),
	"laquo": []byte("&#171;"), "raquo": []byte("&#187;"),
	"iexcl": []byte("&#161;"), "iquest": []byte("&#191;"),
}

// htmlEntityPattern matches common HTML named entities case-insensitively.
var htmlEntityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|bull|middot|` +
		`eacute|egrave|ecirc|euml|aacute|agrave|acirc|auml|iacute|igrave|icirc|iuml|` +
		`oacute|ograve|ocirc|ouml|uacute|ugrave|ucirc|uuml|ntilde|ccedil|` +
		`times|divide|deg|para|sect|laquo|raquo|iexcl|iquest);`)

// preprocessHTMLEntities replaces common HTML named entities with their
// numeric character references so that encoding/xml can parse the data.
// The matching is case-insensitive to handle non-standard ePub content.
func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		// Extract entity name between & and ;, lowercase for lookup.
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return replacement
		}
		return match
	})
}

// imageRefAttrs lists, per image-bearing element, the attributes that may
// carry the image location, in lookup order.
var imageRefAttrs = map[atom.Atom][]string{
	atom.Img:   {"src"},
	atom.Image: {"xlink:href", "href"},
}

// selfClosingRawTextPattern matches self-closing forms of the elements the
// HTML tokenizer reads as raw text. Left alone, <title/> would swallow the
// rest of the fragment while the tokenizer waits for </title>.
var selfClosingRawTextPattern = regexp.MustCompile(
	`(?i)<(iframe|noembed|noframes|noscript|plaintext|script|style|textarea|title|xmp)((?:\s[^<>]*?)?)\s*/>`)

// expandSelfClosingRawText rewrites <title/> style tags as an empty
// start/end pair so the tokenizer leaves raw-text mode immediately.
func expandSelfClosingRawText(data []byte) []byte {
	return selfClosingRawTextPattern.ReplaceAll(data, []byte("<$1$2></$1>"))
}

// extractImageRefs returns every image reference in an XHTML fragment, in
// document order, as written in the markup. It handles <img src="..."> and
// SVG <image xlink:href="...">, the form fixed-layout converters emit for
// full-page artwork. The tokenizer never fails on malformed markup; it stops
// at the first read error and returns what it found.
func extractImageRefs(data []byte) []string {
	z := html.NewTokenizer(bytes.NewReader(expandSelfClosingRawText(stripBOM(data))))

	var refs []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return refs

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			keys, ok := imageRefAttrs[atom.Lookup(name)]
			if !ok || !hasAttr {
				continue
			}
			attrs := make(map[string]string, 4)
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				key := string(k)
				if _, seen := attrs[key]; !seen {
					attrs[key] = string(v)
				}
			}
			for _, key := range keys {
				if v := strings.TrimSpace(attrs[key]); v != "" {
					refs = append(refs, v)
					break
				}
			}
		}
	}
}

// resolveAssetPath resolves href relative to the directory that contains
// basePath on the local filesystem. References with a URI scheme (http:,
// data:, ...) or an empty path yield "". Query and fragment suffixes are
// removed and percent-escapes decoded before joining.
func resolveAssetPath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || hasURIScheme(href) || strings.HasPrefix(href, "//") {
		return ""
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	if href == "" {
		return ""
	}
	joined := filepath.Join(filepath.Dir(basePath), filepath.FromSlash(href))
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return filepath.Clean(joined)
}

// escapeText escapes s for use in XHTML text or attribute values.
func escapeText(s string) string {
	return html.EscapeString(s)
}

// hasURIScheme reports whether s starts with a URI scheme like "mailto:" or
// "javascript:".
func hasURIScheme(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	// RFC 3986: URI scheme must start with a letter.
	if !((s[0] >= 'A' && s[0] <= 'Z') || (s[0] >= 'a' && s[0] <= 'z')) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' {
			return i > 1
		}
		if !(c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return false
}
