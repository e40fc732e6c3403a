package port

import "amplie/internal/domain"

type CatalogStore interface {
	PutItems(items []domain.CatalogItem) error

	GetItem(id string) (domain.CatalogItem, error)

	ListItems() ([]domain.CatalogItem, error)

	DeleteItem(id string) error

	Count() (int, error)

	// PendingItems returns items whose content changed since they were last
	// embedded. Changed items already live in the vector store, see PendingChanges.
	PendingItems() ([]domain.CatalogItem, error)

	// PendingChanges splits pending items into never-embedded and changed ones.
	PendingChanges() (fresh, changed []domain.CatalogItem, err error)

	MarkEmbedded(items []domain.CatalogItem) error

	Close() error
}
