package nomenclature

import (
	"regexp"
	"strings"
	"time"
)

// Fields carries the values a filename pattern may reference.
type Fields struct {
	Category     string
	Subcategory  string
	DocumentType string
	Client       Client
}

var placeholderRe = regexp.MustCompile(`%([a-zA-Z]+)%`)

// Render expands pattern placeholders:
//
//	%category% %subcategory% %doctype% %client% %clientname% %date%
//
// Unknown placeholders expand to nothing. The expansion is sanitized; when
// it is empty (or the pattern is), the canonical Generate name is returned.
func Render(pattern string, f Fields, at time.Time) string {
	if strings.TrimSpace(pattern) == "" {
		return Generate(f.Category, f.Subcategory, f.DocumentType, f.Client, at)
	}

	expanded := placeholderRe.ReplaceAllStringFunc(pattern, func(m string) string {
		switch strings.ToLower(m[1 : len(m)-1]) {
		case "category":
			return strings.ToUpper(f.Category)
		case "subcategory":
			return f.Subcategory
		case "doctype", "documenttype":
			return f.DocumentType
		case "client":
			return f.Client.Fragment()
		case "clientname":
			return strings.ToLower(f.Client.Name)
		case "date":
			return at.Format(DateLayout)
		default:
			return ""
		}
	})

	if out := Sanitize(expanded); out != "" {
		return out
	}
	return Generate(f.Category, f.Subcategory, f.DocumentType, f.Client, at)
}
