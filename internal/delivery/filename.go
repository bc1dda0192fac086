package delivery

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// Content-Disposition strategies, tried in order.
var (
	rfc5987Re  = regexp.MustCompile(`(?i)filename\*\s*=\s*UTF-8''([^;]+)`)
	quotedRe   = regexp.MustCompile(`(?i)filename\s*=\s*"([^"]+)"`)
	unquotedRe = regexp.MustCompile(`(?i)filename\s*=\s*([^;"]+)`)
)

// FilenameFromHeader extracts the filename from a Content-Disposition value.
// The result is percent-decoded and reduced to its base name. It returns ""
// when no strategy yields a usable name; a name carrying control characters
// is not usable.
func FilenameFromHeader(header string) string {
	for _, re := range []*regexp.Regexp{rfc5987Re, quotedRe, unquotedRe} {
		m := re.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		if name := cleanFilename(m[1]); name != "" {
			return name
		}
	}
	return ""
}

func cleanFilename(raw string) string {
	raw = strings.TrimSpace(raw)
	if dec, err := url.PathUnescape(raw); err == nil {
		raw = dec
	}
	raw = strings.ReplaceAll(raw, `\`, "/")
	name := path.Base(raw)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return ""
	}
	return name
}

// PathSegments are the naming parts recovered from a stored document path.
type PathSegments struct {
	Category     string
	Subcategory  string
	DocumentType string
}

// SegmentsFromPath reads segments 1, 2 and 3 of a slash-separated path
// after dropping empty ones, e.g. /documents/amoa/preliminary-study/etude/x.docx.
// Missing segments are left empty.
func SegmentsFromPath(p string) PathSegments {
	var parts []string
	for _, s := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return PathSegments{Category: at(1), Subcategory: at(2), DocumentType: at(3)}
}
