package registry

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of the casier set.
type Catalog struct {
	Casiers []Casier `yaml:"casiers"`
}

// LoadCatalog reads a YAML casier catalog from path.
func LoadCatalog(path string) ([]Casier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML casier catalog.
func ParseCatalog(data []byte) ([]Casier, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("registry: decode catalog: %w", err)
	}
	return cat.Casiers, nil
}

// FileSource serves casiers from a catalog file, re-reading it on each call.
type FileSource struct {
	Path string
}

// ListCasiers implements Source.
func (f FileSource) ListCasiers(_ context.Context) ([]Casier, error) {
	return LoadCatalog(f.Path)
}
