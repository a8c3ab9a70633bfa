package entries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reseauechanges/annuaire/internal/server/blob"
	"github.com/reseauechanges/annuaire/internal/server/models"
	"github.com/reseauechanges/annuaire/internal/server/normalize"
)

// migrateFromAggregate rewrites a legacy aggregate document into per-entry
// documents. It runs lazily, only when the per-entry listing came back
// empty. Once every per-entry document is confirmed readable the aggregate
// is deleted, so an entry deleted later cannot come back through a re-read
// of stale aggregate data.
//
// A propagation lag in the backend can make the per-entry listing read
// empty shortly after a migration; the documents themselves stay fetchable
// and reappear once the listing catches up.
func (r *BlobRepository) migrateFromAggregate(ctx context.Context) ([]models.Entry, bool, error) {
	legacy, found, err := r.readAggregate(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found || len(legacy) == 0 {
		return nil, false, nil
	}

	r.logger.Info(ctx, "migrating legacy aggregate to per-entry layout", "count", len(legacy))

	if err := r.writeBackupSet(ctx, legacy); err != nil {
		return nil, false, err
	}

	now := timeNow().UTC().Truncate(time.Millisecond)
	migrated := make([]models.Entry, 0, len(legacy))
	for _, e := range legacy {
		if e.ID == "" {
			e.ID = NewEntryID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if err := r.writeEntry(ctx, e); err != nil {
			return nil, false, err
		}
		migrated = append(migrated, e)
	}

	// confirm every document is readable before destroying the source
	for _, e := range migrated {
		if _, err := r.store.Fetch(ctx, r.entryKey(e.ID)); err != nil {
			return nil, false, fmt.Errorf("verifying migrated entry %s: %w", e.ID, err)
		}
	}
	if err := r.store.Delete(ctx, r.cfg.AggregateKey); err != nil {
		return nil, false, fmt.Errorf("deleting migrated aggregate: %w", err)
	}

	return migrated, true, nil
}

// backup snapshots the current full data set (whichever layout it lives in)
// before a destructive bulk operation.
func (r *BlobRepository) backup(ctx context.Context) error {
	all := make([]models.Entry, 0)
	seen := make(map[string]struct{})

	infos, err := r.store.List(ctx, r.cfg.EntryPrefix)
	if err != nil {
		return fmt.Errorf("listing entries for backup: %w", err)
	}
	for _, info := range infos {
		data, err := r.store.Fetch(ctx, info.Locator)
		if err != nil {
			r.logger.Warn(ctx, "skipping unreadable document in backup", "key", info.Key, "error", err)
			continue
		}
		e, err := normalize.FromJSON(data)
		if err != nil {
			r.logger.Warn(ctx, "skipping malformed document in backup", "key", info.Key, "error", err)
			continue
		}
		if e.ID == "" {
			e.ID = r.idFromKey(info.Key)
		}
		seen[e.ID] = struct{}{}
		all = append(all, e)
	}

	aggregate, found, err := r.readAggregate(ctx)
	if err != nil {
		return err
	}
	if found {
		for _, e := range aggregate {
			if _, dup := seen[e.ID]; dup && e.ID != "" {
				continue
			}
			all = append(all, e)
		}
	}

	return r.writeBackupSet(ctx, all)
}

// writeBackupSet writes a timestamped, non-public snapshot of the given
// entries under the backup prefix.
func (r *BlobRepository) writeBackupSet(ctx context.Context, all []models.Entry) error {
	doc := struct {
		SavedAt time.Time      `json:"savedAt"`
		Entries []models.Entry `json:"entries"`
	}{
		SavedAt: timeNow().UTC(),
		Entries: all,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}

	key := fmt.Sprintf("%s%s-%s.json",
		r.cfg.BackupPrefix,
		timeNow().UTC().Format("20060102T150405"),
		uuid.NewString()[:5])

	if _, err := r.store.Put(ctx, key, data, blob.PutOptions{Public: false}); err != nil {
		return fmt.Errorf("writing backup %s: %w", key, err)
	}

	r.logger.Info(ctx, "backup snapshot written", "key", key, "count", len(all))
	return nil
}
