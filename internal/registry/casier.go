package registry

import (
	"fmt"
	"strings"
)

// Format is the file format a casier produces.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	switch f {
	case FormatDOCX, FormatPDF, FormatXLSX:
		return true
	default:
		return false
	}
}

// Key is the composite identity of a casier.
type Key struct {
	Category     string `json:"category" yaml:"category"`
	Subcategory  string `json:"subcategory" yaml:"subcategory"`
	DocumentType string `json:"documentType" yaml:"documentType"`
}

// NewKey returns a normalised key (trimmed, lower-cased).
func NewKey(category, subcategory, documentType string) Key {
	return Key{
		Category:     normalise(category),
		Subcategory:  normalise(subcategory),
		DocumentType: normalise(documentType),
	}
}

func (k Key) String() string {
	return k.Category + "/" + k.Subcategory + "/" + k.DocumentType
}

// ContentRefs points at the predefined source documents a casier is built
// from. Both references are required for the casier to be dispatched.
type ContentRefs struct {
	PromptDocID  *int64 `json:"promptDocId,omitempty" yaml:"promptDocId,omitempty"`
	SummaryDocID *int64 `json:"summaryDocId,omitempty" yaml:"summaryDocId,omitempty"`
}

// Missing returns the names of absent references, in a fixed order.
func (c ContentRefs) Missing() []string {
	var missing []string
	if c.PromptDocID == nil {
		missing = append(missing, "promptDocId")
	}
	if c.SummaryDocID == nil {
		missing = append(missing, "summaryDocId")
	}
	return missing
}

// Section describes one entry of a casier's document structure.
type Section struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Subsections []Section `json:"subsections,omitempty" yaml:"subsections,omitempty"`
}

// Casier is a registered template slot.
type Casier struct {
	Key             `yaml:",inline"`
	TemplateID      string      `json:"templateId" yaml:"templateId"`
	DisplayName     string      `json:"displayName" yaml:"displayName"`
	FilenamePattern string      `json:"filenamePattern,omitempty" yaml:"filenamePattern,omitempty"`
	Content         ContentRefs `json:"content" yaml:"content"`
	Format          Format      `json:"format" yaml:"format"`
	TemplatePath    string      `json:"templatePath,omitempty" yaml:"templatePath,omitempty"`
	Structure       []Section   `json:"structure,omitempty" yaml:"structure,omitempty"`
	Description     string      `json:"description,omitempty" yaml:"description,omitempty"`
	Tags            []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Active          *bool       `json:"active,omitempty" yaml:"active,omitempty"`
}

// IsActive reports whether the casier participates in resolution. Casiers
// default to active.
func (c Casier) IsActive() bool {
	return c.Active == nil || *c.Active
}

// validate checks the fields that must hold for a casier to be registered at
// all. Missing content references are not a registration error; they are
// reported at resolution time.
func (c Casier) validate() error {
	if c.Category == "" || c.Subcategory == "" || c.DocumentType == "" {
		return fmt.Errorf("casier %q: category, subcategory and documentType are required", c.TemplateID)
	}
	if c.Format != "" && !c.Format.Valid() {
		return fmt.Errorf("casier %s: unsupported format %q", c.Key, c.Format)
	}
	return nil
}

// clone returns a copy that shares no mutable state with c.
func (c Casier) clone() Casier {
	out := c
	if c.Content.PromptDocID != nil {
		v := *c.Content.PromptDocID
		out.Content.PromptDocID = &v
	}
	if c.Content.SummaryDocID != nil {
		v := *c.Content.SummaryDocID
		out.Content.SummaryDocID = &v
	}
	if c.Active != nil {
		v := *c.Active
		out.Active = &v
	}
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	out.Structure = cloneSections(c.Structure)
	return out
}

func cloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Subsections = cloneSections(s.Subsections)
	}
	return out
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
