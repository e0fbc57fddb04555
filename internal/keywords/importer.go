package keywords

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
)

// Product is the slice of a storefront product the importer cares about.
type Product struct {
	ID   int64
	Name string
}

// ProductSource pages through the storefront catalog.
type ProductSource interface {
	ListProducts(ctx context.Context, page, perPage int) ([]Product, error)
}

// VolumeSource looks up monthly search volume for a phrase. Cached probes
// are free; Fetch spends an external API call and so must be budget-gated
// by the caller.
type VolumeSource interface {
	Cached(ctx context.Context, phrase string) (int, bool)
	Fetch(ctx context.Context, phrase string) (int, error)
}

// Importer walks the product catalog, extracts a keyword per product, and
// seeds the keyword table. Initial volumes are fetched only while the daily
// keyword budget lasts; the rest start at zero and are picked up by the
// next monitoring run.
type Importer struct {
	products ProductSource
	volumes  VolumeSource
	budget   ledger.Ledger
	store    *Store
	pageSize int
	logger   *slog.Logger
}

// NewImporter wires an importer over the catalog, the volume API, and the
// keyword store.
func NewImporter(products ProductSource, volumes VolumeSource, budget ledger.Ledger, store *Store) *Importer {
	return &Importer{
		products: products,
		volumes:  volumes,
		budget:   budget,
		store:    store,
		pageSize: 100,
		logger:   slog.Default().With("component", "keyword_importer"),
	}
}

// ImportSummary reports one catalog pass.
type ImportSummary struct {
	Products  int
	Imported  int
	Skipped   int
	VolumeHit int
}

// Run imports keywords for every product in the catalog. Products whose
// titles yield no usable phrase are skipped and logged, never fatal.
func (im *Importer) Run(ctx context.Context) (ImportSummary, error) {
	var sum ImportSummary
	for page := 1; ; page++ {
		products, err := im.products.ListProducts(ctx, page, im.pageSize)
		if err != nil {
			return sum, fmt.Errorf("list products page %d: %w", page, err)
		}
		if len(products) == 0 {
			break
		}
		sum.Products += len(products)

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			phrase := ExtractKeyword(p.Name)
			if phrase == "" {
				sum.Skipped++
				im.logger.Warn("no keyword extracted", "product_id", p.ID, "title", p.Name)
				continue
			}

			id, err := im.store.Upsert(ctx, p.ID, p.Name, phrase)
			if err != nil {
				return sum, err
			}
			sum.Imported++

			if vol, ok := im.seedVolume(ctx, phrase); ok {
				if _, err := im.store.UpdateVolume(ctx, id, vol); err != nil {
					return sum, err
				}
				sum.VolumeHit++
			}
		}
	}

	im.logger.Info("catalog import complete",
		"products", sum.Products, "imported", sum.Imported,
		"skipped", sum.Skipped, "volumes", sum.VolumeHit)
	return sum, nil
}

func (im *Importer) seedVolume(ctx context.Context, phrase string) (int, bool) {
	if vol, ok := im.volumes.Cached(ctx, phrase); ok {
		return vol, true
	}
	ok, err := im.budget.TryConsume(ctx, ledger.APIKeyword)
	if err != nil || !ok {
		return 0, false
	}
	vol, err := im.volumes.Fetch(ctx, phrase)
	if err != nil {
		im.logger.Warn("initial volume lookup failed", "phrase", phrase, "error", err)
		return 0, false
	}
	return vol, true
}
