package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"amplie/internal/domain"
)

// LoadSeedFile parses a JSON or YAML array of catalog items.
func LoadSeedFile(path string) ([]domain.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []domain.CatalogItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &items)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		return nil, fmt.Errorf("unsupported seed file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("%s: item %d has no id", path, i)
		}
	}
	return items, nil
}

// LoadSeeds walks root and loads every seed file it finds. An id appearing
// twice across the loaded files is an error.
func (w *Walker) LoadSeeds(root string) ([]domain.CatalogItem, error) {
	files, err := w.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	seen := make(map[string]string)
	var all []domain.CatalogItem
	for _, f := range files {
		items, err := LoadSeedFile(f.Path)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if prev, ok := seen[item.ID]; ok {
				return nil, fmt.Errorf("duplicate item id %q in %s (first seen in %s)", item.ID, f.Path, prev)
			}
			seen[item.ID] = f.Path
			all = append(all, item)
		}
	}
	return all, nil
}
