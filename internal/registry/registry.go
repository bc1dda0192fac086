// Package registry resolves (category, subcategory, documentType) triples to
// registered template slots ("casiers").
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

// Source is the persistence contract the registry reloads from.
type Source interface {
	ListCasiers(ctx context.Context) ([]Casier, error)
}

// Registry is safe for concurrent use. Reads go through an atomic pointer to
// an immutable map; Replace swaps the whole map so readers never observe a
// partially updated casier.
type Registry struct {
	casiers atomic.Pointer[map[Key]Casier]
}

// New returns a Registry holding casiers. It fails when casiers contains an
// invalid entry or a duplicate key.
func New(casiers []Casier) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(casiers); err != nil {
		return nil, err
	}
	return r, nil
}

// Resolve returns the casier registered for the key. It returns a
// *TemplateNotFoundError when nothing active matches and a
// *TemplateIncompleteError when the casier lacks source content.
func (r *Registry) Resolve(category, subcategory, documentType string) (Casier, error) {
	key := NewKey(category, subcategory, documentType)

	m := r.casiers.Load()
	if m == nil {
		return Casier{}, &TemplateNotFoundError{Key: key}
	}
	c, ok := (*m)[key]
	if !ok || !c.IsActive() {
		return Casier{}, &TemplateNotFoundError{Key: key}
	}
	if missing := c.Content.Missing(); len(missing) > 0 {
		return Casier{}, &TemplateIncompleteError{Key: key, TemplateID: c.TemplateID, Missing: missing}
	}
	return c.clone(), nil
}

// Replace validates casiers and atomically installs them as the new
// registry contents. On error the previous contents stay in place.
func (r *Registry) Replace(casiers []Casier) error {
	next := make(map[Key]Casier, len(casiers))
	for _, c := range casiers {
		c = c.clone()
		c.Key = NewKey(c.Category, c.Subcategory, c.DocumentType)
		if err := c.validate(); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		if prev, dup := next[c.Key]; dup {
			return fmt.Errorf("registry: duplicate casier for %s (%q and %q)", c.Key, prev.TemplateID, c.TemplateID)
		}
		next[c.Key] = c
	}
	r.casiers.Store(&next)
	return nil
}

// Reload replaces the registry contents with what src currently holds.
func (r *Registry) Reload(ctx context.Context, src Source) error {
	casiers, err := src.ListCasiers(ctx)
	if err != nil {
		return fmt.Errorf("registry: reload: %w", err)
	}
	return r.Replace(casiers)
}

// List returns every registered casier ordered by key.
func (r *Registry) List() []Casier {
	m := r.casiers.Load()
	if m == nil {
		return nil
	}
	out := make([]Casier, 0, len(*m))
	for _, c := range *m {
		out = append(out, c.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Len returns the number of registered casiers.
func (r *Registry) Len() int {
	m := r.casiers.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}
