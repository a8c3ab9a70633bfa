package entries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reseauechanges/annuaire/internal/common"
	"github.com/reseauechanges/annuaire/internal/logging"
	"github.com/reseauechanges/annuaire/internal/server/blob"
	"github.com/reseauechanges/annuaire/internal/server/models"
	"github.com/reseauechanges/annuaire/internal/server/normalize"
)

// test seams
var timeNow = time.Now

// BlobRepository implements Repository over an object store. It holds no
// in-process cache: every call re-reads from the store, trading latency for
// freedom from stale-cache bugs.
type BlobRepository struct {
	store  blob.Store
	cfg    Config
	logger logging.Logger
}

var _ Repository = (*BlobRepository)(nil)

func NewBlobRepository(store blob.Store, cfg Config, logger logging.Logger) *BlobRepository {
	return &BlobRepository{
		store:  store,
		cfg:    cfg,
		logger: logger.With("module", "entries_repository"),
	}
}

// NewEntryID generates a unique entry id: creation time in unix
// milliseconds plus a random suffix to avoid collisions between concurrent
// writers.
func NewEntryID() string {
	return fmt.Sprintf("%d-%s", timeNow().UnixMilli(), uuid.NewString()[:5])
}

func (r *BlobRepository) ListAll(ctx context.Context) ([]models.Entry, error) {
	if r.cfg.Layout == LayoutAggregate {
		result, found, err := r.readAggregate(ctx)
		if err != nil {
			return nil, err
		}
		repaired := false
		for i := range result {
			if result[i].ID == "" {
				result[i].ID = NewEntryID()
				repaired = true
			}
		}
		// persist assigned ids, otherwise the records stay unaddressable
		if found && repaired {
			if err := r.writeAggregate(ctx, result); err != nil {
				r.logger.Warn(ctx, "persisting assigned ids failed", "error", err)
			}
		}
		sortByName(result)
		return result, nil
	}

	infos, err := r.store.List(ctx, r.cfg.EntryPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	if len(infos) == 0 {
		migrated, ok, err := r.migrateFromAggregate(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []models.Entry{}, nil
		}
		sortNewestFirst(migrated)
		return migrated, nil
	}

	result := make([]models.Entry, 0, len(infos))
	for _, info := range infos {
		data, err := r.store.Fetch(ctx, info.Locator)
		if err != nil {
			r.logger.Warn(ctx, "skipping unreadable entry document", "key", info.Key, "error", err)
			continue
		}
		e, err := normalize.FromJSON(data)
		if err != nil {
			r.logger.Warn(ctx, "skipping malformed entry document", "key", info.Key, "error", err)
			continue
		}
		if e.ID == "" {
			e.ID = r.idFromKey(info.Key)
		}
		result = append(result, e)
	}

	sortNewestFirst(result)
	return result, nil
}

func (r *BlobRepository) Create(ctx context.Context, draft models.Entry) (models.Entry, error) {
	e, err := prepareDraft(draft)
	if err != nil {
		return models.Entry{}, err
	}

	if r.cfg.Layout == LayoutAggregate {
		if err := r.createAggregate(ctx, e); err != nil {
			return models.Entry{}, err
		}
		return e, nil
	}

	// per-entry: a single fresh-key write, no read dependency
	if err := r.writeEntry(ctx, e); err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

func (r *BlobRepository) Update(ctx context.Context, id string, patch models.Patch) (models.Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Entry{}, fmt.Errorf("%w: missing id", common.ErrValidation)
	}

	if r.cfg.Layout == LayoutAggregate {
		return r.updateAggregate(ctx, id, patch)
	}

	data, err := r.store.Fetch(ctx, r.entryKey(id))
	if errors.Is(err, common.ErrNotFound) {
		return models.Entry{}, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("fetching entry %s: %w", id, err)
	}

	stored, err := normalize.FromJSON(data)
	if err != nil {
		return models.Entry{}, fmt.Errorf("%w: entry %s: %w", common.ErrStoreUnavailable, id, err)
	}
	stored.ID = id

	updated, err := applyPatch(stored, patch)
	if err != nil {
		return models.Entry{}, err
	}

	if err := r.writeEntry(ctx, updated); err != nil {
		return models.Entry{}, err
	}
	return updated, nil
}

func (r *BlobRepository) Delete(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("%w: missing id", common.ErrValidation)
	}

	if r.cfg.Layout == LayoutAggregate {
		return r.deleteAggregate(ctx, id)
	}

	key := r.entryKey(id)
	if _, err := r.store.Fetch(ctx, key); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetching entry %s: %w", id, err)
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("deleting entry %s: %w", id, err)
	}
	return true, nil
}

func (r *BlobRepository) OverwriteAll(ctx context.Context, raws []map[string]any) (int, error) {
	now := timeNow().UTC().Truncate(time.Millisecond)

	replacement := make([]models.Entry, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		e := normalize.Entry(raw)
		if e.ID == "" {
			e.ID = NewEntryID()
		}
		if _, dup := seen[e.ID]; dup {
			r.logger.Warn(ctx, "dropping duplicate id in import", "id", e.ID)
			continue
		}
		seen[e.ID] = struct{}{}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		replacement = append(replacement, e)
	}

	// snapshot the current data set before destroying it
	if err := r.backup(ctx); err != nil {
		return 0, err
	}

	infos, err := r.store.List(ctx, r.cfg.EntryPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}
	for _, info := range infos {
		if err := r.store.Delete(ctx, info.Locator); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", info.Key, err)
		}
	}
	if err := r.store.Delete(ctx, r.cfg.AggregateKey); err != nil {
		return 0, fmt.Errorf("deleting aggregate: %w", err)
	}

	if r.cfg.Layout == LayoutAggregate {
		if err := r.writeAggregate(ctx, replacement); err != nil {
			return 0, err
		}
		return len(replacement), nil
	}

	for _, e := range replacement {
		if err := r.writeEntry(ctx, e); err != nil {
			return 0, err
		}
	}
	return len(replacement), nil
}

// --- aggregate layout ---

// createAggregate appends the entry with a read-modify-write cycle and one
// post-write verification read. Two writers can still race between the
// verification and the reapply; the window is narrow and documented, not
// eliminated.
func (r *BlobRepository) createAggregate(ctx context.Context, e models.Entry) error {
	current, _, err := r.readAggregate(ctx)
	if err != nil {
		return err
	}
	if err := r.writeAggregate(ctx, prepend(e, current)); err != nil {
		return err
	}

	// verify our id survived; another writer's snapshot may have won
	latest, found, err := r.readAggregate(ctx)
	if err != nil || !found {
		r.logger.Warn(ctx, "post-write verification read failed", "id", e.ID, "error", err)
		return nil
	}
	for _, stored := range latest {
		if stored.ID == e.ID {
			return nil
		}
	}

	r.logger.Warn(ctx, "lost update detected, reapplying create", "id", e.ID)
	return r.writeAggregate(ctx, prepend(e, latest))
}

func (r *BlobRepository) updateAggregate(ctx context.Context, id string, patch models.Patch) (models.Entry, error) {
	current, found, err := r.readAggregate(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	if !found {
		return models.Entry{}, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}

	idx := -1
	for i := range current {
		if current[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Entry{}, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}

	updated, err := applyPatch(current[idx], patch)
	if err != nil {
		return models.Entry{}, err
	}
	current[idx] = updated

	if err := r.writeAggregate(ctx, current); err != nil {
		return models.Entry{}, err
	}
	return updated, nil
}

func (r *BlobRepository) deleteAggregate(ctx context.Context, id string) (bool, error) {
	current, found, err := r.readAggregate(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	remaining := make([]models.Entry, 0, len(current))
	for _, e := range current {
		if e.ID != id {
			remaining = append(remaining, e)
		}
	}
	if len(remaining) == len(current) {
		return false, nil
	}

	if err := r.writeAggregate(ctx, remaining); err != nil {
		return false, err
	}
	return true, nil
}

// readAggregate locates and decodes the aggregate document. The exact-key
// match on the listing mirrors how the original deployment resolved the
// document among same-prefixed keys.
func (r *BlobRepository) readAggregate(ctx context.Context) ([]models.Entry, bool, error) {
	infos, err := r.store.List(ctx, r.cfg.AggregateKey)
	if err != nil {
		return nil, false, fmt.Errorf("listing aggregate: %w", err)
	}

	locator := ""
	for _, info := range infos {
		if info.Key == r.cfg.AggregateKey {
			locator = info.Locator
			break
		}
	}
	if locator == "" {
		return []models.Entry{}, false, nil
	}

	data, err := r.store.Fetch(ctx, locator)
	if errors.Is(err, common.ErrNotFound) {
		return []models.Entry{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fetching aggregate: %w", err)
	}

	var doc struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: decoding aggregate document: %w", common.ErrStoreUnavailable, err)
	}

	result := make([]models.Entry, 0, len(doc.Entries))
	for _, raw := range doc.Entries {
		result = append(result, normalize.Entry(raw))
	}
	return result, true, nil
}

func (r *BlobRepository) writeAggregate(ctx context.Context, all []models.Entry) error {
	doc := struct {
		Entries []models.Entry `json:"entries"`
	}{Entries: all}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding aggregate: %w", err)
	}
	if _, err := r.store.Put(ctx, r.cfg.AggregateKey, data, blob.PutOptions{Public: true}); err != nil {
		return fmt.Errorf("writing aggregate: %w", err)
	}
	return nil
}

// --- per-entry layout helpers ---

func (r *BlobRepository) entryKey(id string) string {
	return r.cfg.EntryPrefix + id + ".json"
}

func (r *BlobRepository) idFromKey(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, r.cfg.EntryPrefix), ".json")
}

func (r *BlobRepository) writeEntry(ctx context.Context, e models.Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry %s: %w", e.ID, err)
	}
	if _, err := r.store.Put(ctx, r.entryKey(e.ID), data, blob.PutOptions{Public: true}); err != nil {
		return fmt.Errorf("writing entry %s: %w", e.ID, err)
	}
	return nil
}

// --- shared helpers ---

// prepareDraft turns an inbound draft into a storable entry. The normalizer
// has already mapped the request body shape; this enforces the creation
// invariants on top.
func prepareDraft(draft models.Entry) (models.Entry, error) {
	e := models.Entry{
		ID:        strings.TrimSpace(draft.ID),
		FirstName: strings.TrimSpace(draft.FirstName),
		LastName:  strings.TrimSpace(draft.LastName),
		Phone:     strings.TrimSpace(draft.Phone),
		Items:     normalize.Items(draft.Items),
	}

	if e.FirstName == "" || e.LastName == "" {
		return models.Entry{}, fmt.Errorf("%w: firstName and lastName are required", common.ErrValidation)
	}
	if len(e.Items) == 0 {
		return models.Entry{}, fmt.Errorf("%w: at least one item with a non-empty skill is required", common.ErrValidation)
	}

	if e.ID == "" {
		e.ID = NewEntryID()
	}
	e.CreatedAt = timeNow().UTC().Truncate(time.Millisecond)
	return e, nil
}

func applyPatch(stored models.Entry, patch models.Patch) (models.Entry, error) {
	e := stored

	if patch.FirstName != nil {
		e.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		e.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Phone != nil {
		e.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Items != nil {
		items := normalize.Items(*patch.Items)
		if len(items) == 0 {
			return models.Entry{}, fmt.Errorf("%w: items empty after normalization", common.ErrValidation)
		}
		e.Items = items
	}

	if e.FirstName == "" || e.LastName == "" {
		return models.Entry{}, fmt.Errorf("%w: firstName and lastName are required", common.ErrValidation)
	}

	e.UpdatedAt = timeNow().UTC().Truncate(time.Millisecond)
	return e, nil
}

func prepend(e models.Entry, rest []models.Entry) []models.Entry {
	return append([]models.Entry{e}, rest...)
}

func sortNewestFirst(all []models.Entry) {
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
}

func sortByName(all []models.Entry) {
	sort.SliceStable(all, func(i, j int) bool {
		li, lj := strings.ToLower(all[i].LastName), strings.ToLower(all[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(all[i].FirstName) < strings.ToLower(all[j].FirstName)
	})
}
