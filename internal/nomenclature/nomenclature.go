// Package nomenclature builds the canonical filenames used for generated
// documents. The same rule names a file at generation time and serves as the
// fallback name at delivery time, so it never fails.
package nomenclature

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the day-granularity date token embedded in every filename.
const DateLayout = "20060102"

// Fallback values used when an input part is empty after sanitizing.
const (
	fallbackCategory    = "DOC"
	fallbackSubcategory = "general"
	fallbackDocType     = "document"
	fallbackClient      = "client"
)

// Client identifies the client a document is produced for.
type Client struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Fragment returns the client part of a filename: the numeric id when set,
// otherwise a slug of the name, otherwise a generic token.
func (c Client) Fragment() string {
	if c.ID > 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	if slug := Sanitize(strings.ToLower(strings.TrimSpace(c.Name))); slug != "" {
		return slug
	}
	return fallbackClient
}

// Generate returns the canonical filename (without extension):
//
//	CATEGORY_subcategory_documentType_client_YYYYMMDD
//
// Identical inputs on the same calendar day yield identical names.
func Generate(category, subcategory, documentType string, client Client, at time.Time) string {
	parts := []string{
		orDefault(Sanitize(strings.ToUpper(strings.TrimSpace(category))), fallbackCategory),
		orDefault(Sanitize(strings.TrimSpace(subcategory)), fallbackSubcategory),
		orDefault(Sanitize(strings.TrimSpace(documentType)), fallbackDocType),
		client.Fragment(),
		at.Format(DateLayout),
	}
	return strings.Join(parts, "_")
}

// Generator binds Generate to a clock.
type Generator struct {
	Now func() time.Time
}

// NewGenerator returns a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{Now: time.Now}
}

// Generate is Generate evaluated at the generator's current time.
func (g *Generator) Generate(category, subcategory, documentType string, client Client) string {
	return Generate(category, subcategory, documentType, client, g.now())
}

// Render expands a casier filename pattern, falling back to Generate when
// the pattern is empty or expands to nothing usable.
func (g *Generator) Render(pattern string, f Fields) string {
	return Render(pattern, f, g.now())
}

func (g *Generator) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// Sanitize replaces every rune outside [A-Za-z0-9._-] with '-', collapses
// runs of '-', and trims leading and trailing separators. The result never
// contains path separators or control characters and is never "." or "..".
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastDash := false
	for _, r := range s {
		ok := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-')
		if !ok {
			r = '-'
		}
		if r == '-' {
			if lastDash {
				continue
			}
			lastDash = true
		} else {
			lastDash = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "-_.")
	if out == "." || out == ".." {
		return ""
	}
	return out
}

// WithExtension appends the extension for format unless name already ends
// with it. Unknown formats leave name untouched.
func WithExtension(name, format string) string {
	ext := strings.ToLower(strings.TrimSpace(format))
	switch ext {
	case "docx", "pdf", "xlsx":
	default:
		return name
	}
	if strings.HasSuffix(strings.ToLower(name), "."+ext) {
		return name
	}
	return name + "." + ext
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
