package usecase

import (
	"errors"
	"fmt"
	"log/slog"

	"amplie/internal/adapter/fs"
	"amplie/internal/port"
)

// ErrNothingToPrune is returned when pruning against a root without seed items.
var ErrNothingToPrune = errors.New("no seed items found, refusing to prune the whole catalog")

// ImportUseCase loads seed files into the local catalog.
type ImportUseCase struct {
	catalog port.CatalogStore
	walker  *fs.Walker
	logger  *slog.Logger
}

func NewImportUseCase(catalog port.CatalogStore, walker *fs.Walker, logger *slog.Logger) *ImportUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportUseCase{
		catalog: catalog,
		walker:  walker,
		logger:  logger,
	}
}

// ImportResult contains the results of an import.
type ImportResult struct {
	ItemsImported int
	ItemsDeleted  int
	Total         int
}

// Import reads every seed file under root and stores its items. With prune,
// catalog items that no seed file mentions any more are deleted. Pruning only
// touches the local catalog; deleted ids stay in the vector store.
func (u *ImportUseCase) Import(root string, prune bool) (*ImportResult, error) {
	items, err := u.walker.LoadSeeds(root)
	if err != nil {
		return nil, err
	}
	if prune && len(items) == 0 {
		return nil, ErrNothingToPrune
	}

	if err := u.catalog.PutItems(items); err != nil {
		return nil, fmt.Errorf("failed to store items: %w", err)
	}
	result := &ImportResult{ItemsImported: len(items)}

	if prune {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			seen[item.ID] = true
		}

		existing, err := u.catalog.ListItems()
		if err != nil {
			return nil, fmt.Errorf("failed to list catalog: %w", err)
		}
		for _, item := range existing {
			if seen[item.ID] {
				continue
			}
			if err := u.catalog.DeleteItem(item.ID); err != nil {
				return nil, fmt.Errorf("failed to delete %s: %w", item.ID, err)
			}
			result.ItemsDeleted++
		}
		if result.ItemsDeleted > 0 {
			u.logger.Warn("pruned tracks remain in the vector collection", "deleted", result.ItemsDeleted)
		}
	}

	result.Total, err = u.catalog.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog: %w", err)
	}

	u.logger.Info("catalog imported", "root", root, "imported", result.ItemsImported, "deleted", result.ItemsDeleted, "total", result.Total)
	return result, nil
}
