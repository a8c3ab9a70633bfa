// Package entries persists directory entries in the object store and keeps
// them coherent across concurrent writers and historical layouts.
package entries

import (
	"context"

	"github.com/reseauechanges/annuaire/internal/server/models"
)

// Layout selects the storage strategy.
type Layout string

const (
	// LayoutPerEntry stores one document per entry under Config.EntryPrefix,
	// keyed by id. Creates target fresh keys and cannot race each other;
	// concurrent updates to the same entry are last-write-wins.
	LayoutPerEntry Layout = "per-entry"

	// LayoutAggregate keeps every entry inside a single document at
	// Config.AggregateKey. Mutations are read-modify-write with one
	// post-write verification pass; a narrow lost-update window remains.
	LayoutAggregate Layout = "aggregate"
)

// Config fixes the store locations. All values must be set; see
// server/config for the deployment defaults.
type Config struct {
	Layout       Layout
	EntryPrefix  string
	AggregateKey string
	BackupPrefix string
}

// Repository is the entry persistence contract.
//
// Errors follow the common sentinels: ErrValidation for rejected drafts,
// ErrNotFound for unknown ids, ErrStoreUnavailable for backend failures.
type Repository interface {
	// ListAll returns every stored entry, normalized. Individual unreadable
	// documents are skipped, not fatal. Ordering: newest first for the
	// per-entry layout, last name then first name for the aggregate layout.
	ListAll(ctx context.Context) ([]models.Entry, error)

	// Create validates the draft, assigns id and createdAt, persists and
	// returns the stored entry. A draft carrying an id keeps it, so a retry
	// after a timed-out create stays idempotent.
	Create(ctx context.Context, draft models.Entry) (models.Entry, error)

	// Update merges the patch over the stored entry. Omitted fields keep
	// their prior values; Items, when provided, replaces the stored list
	// wholesale. CreatedAt is preserved, UpdatedAt refreshed.
	Update(ctx context.Context, id string, patch models.Patch) (models.Entry, error)

	// Delete removes the entry. Returns false, not an error, when nothing
	// matched, so deletes are idempotent.
	Delete(ctx context.Context, id string) (bool, error)

	// OverwriteAll replaces the whole data set with the normalized records.
	// A timestamped backup of the current data is written first. Returns
	// the number of records written.
	OverwriteAll(ctx context.Context, raws []map[string]any) (int, error)
}
