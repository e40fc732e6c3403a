package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"amplie/internal/adapter/catalog"
	"amplie/internal/domain"
	"amplie/internal/port"
)

// schemeStore is implemented by catalogs that remember how their items were embedded.
type schemeStore interface {
	CheckScheme(want catalog.SchemeInfo) (catalog.SchemeCheck, error)
	SetSchemeInfo(info catalog.SchemeInfo) error
	ResetLedger() error
}

// EmbedUseCase writes catalog items into the vector store in batches.
type EmbedUseCase struct {
	store      port.VectorStore
	catalog    port.CatalogStore
	encoder    port.PolicyEncoder
	collection string
	batchSize  int
	logger     *slog.Logger
}

func NewEmbedUseCase(
	store port.VectorStore,
	catalog port.CatalogStore,
	encoder port.PolicyEncoder,
	collection string,
	batchSize int,
	logger *slog.Logger,
) *EmbedUseCase {
	if batchSize < 1 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedUseCase{
		store:      store,
		catalog:    catalog,
		encoder:    encoder,
		collection: collection,
		batchSize:  batchSize,
		logger:     logger,
	}
}

type EmbedOptions struct {
	// Force writes every catalog item, not only pending ones.
	Force bool
	// Progress is called after each batch with the number of items written so far.
	Progress func(done, total int)
}

type EmbedResult struct {
	Collection domain.Collection
	Written    int
	Total      int
	Batches    int
	Reembedded bool // the encoder or collection changed since the last run
}

// Embed writes pending catalog items. Items already present in the vector
// store are overwritten when the store supports it, new ones are added. On
// error the result reports what was written before the failing batch; those
// items stay marked as embedded.
func (u *EmbedUseCase) Embed(ctx context.Context, opts EmbedOptions) (*EmbedResult, error) {
	result := &EmbedResult{Collection: domain.Collection{Name: u.collection}}
	want := catalog.SchemeInfo{
		Version:    catalog.CurrentSchemaVersion,
		Encoder:    u.encoder.Scheme(),
		Collection: u.collection,
	}

	ss, hasScheme := u.catalog.(schemeStore)
	if hasScheme {
		check, err := ss.CheckScheme(want)
		if err != nil {
			return nil, err
		}
		if check.NeedsReembed {
			u.logger.Warn("re-embedding catalog", "reason", check.Reason)
			if err := ss.ResetLedger(); err != nil {
				return nil, fmt.Errorf("failed to reset ledger: %w", err)
			}
			result.Reembedded = true
		}
	}

	var fresh, changed []domain.CatalogItem
	var err error
	switch {
	case opts.Force:
		changed, err = u.catalog.ListItems()
	case result.Reembedded:
		// The ledger was just reset, so it no longer tells which ids the store holds.
		changed, err = u.catalog.PendingItems()
	default:
		fresh, changed, err = u.catalog.PendingChanges()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	result.Total = len(fresh) + len(changed)

	write := u.store.Upsert
	if ow, ok := u.store.(port.Overwriter); ok {
		write = ow.Overwrite
	}
	done := 0
	if err := u.writeBatches(ctx, write, changed, &done, result, opts.Progress); err != nil {
		return result, err
	}
	if err := u.writeBatches(ctx, u.store.Upsert, fresh, &done, result, opts.Progress); err != nil {
		return result, err
	}

	if hasScheme {
		if err := ss.SetSchemeInfo(want); err != nil {
			return result, fmt.Errorf("failed to save scheme info: %w", err)
		}
	}

	u.logger.Info("embed complete", "collection", u.collection, "written", result.Written, "batches", result.Batches)
	return result, nil
}

type writeFunc func(ctx context.Context, collection string, items []domain.CatalogItem) (domain.UpsertResult, error)

func (u *EmbedUseCase) writeBatches(
	ctx context.Context,
	write writeFunc,
	items []domain.CatalogItem,
	done *int,
	result *EmbedResult,
	progress func(done, total int),
) error {
	for start := 0; start < len(items); start += u.batchSize {
		end := min(start+u.batchSize, len(items))
		batch := items[start:end]

		res, err := write(ctx, u.collection, batch)
		if err != nil {
			return fmt.Errorf("failed to write batch %d-%d: %w", *done, *done+len(batch), err)
		}
		if err := u.catalog.MarkEmbedded(batch); err != nil {
			return fmt.Errorf("failed to update ledger: %w", err)
		}

		*done += len(batch)
		result.Collection = res.Collection
		result.Written += res.Count
		result.Batches++
		u.logger.Debug("batch embedded", "collection", res.Collection.Name, "count", res.Count, "done", *done, "total", result.Total)
		if progress != nil {
			progress(*done, result.Total)
		}
	}
	return nil
}
