package metrics

import (
	"context"
	"errors"

	"github.com/reseauechanges/annuaire/internal/common"
	"github.com/reseauechanges/annuaire/internal/server/blob"
)

// InstrumentedStore wraps a blob.Store and counts every primitive call.
type InstrumentedStore struct {
	inner blob.Store
	m     *ServerMetrics
}

var _ blob.Store = (*InstrumentedStore)(nil)

func InstrumentStore(inner blob.Store, m *ServerMetrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, m: m}
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	out, err := s.inner.List(ctx, prefix)
	s.count("list", err)
	return out, err
}

func (s *InstrumentedStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := s.inner.Fetch(ctx, locator)
	s.count("fetch", err)
	return data, err
}

func (s *InstrumentedStore) Put(ctx context.Context, key string, data []byte, opts blob.PutOptions) (string, error) {
	loc, err := s.inner.Put(ctx, key, data, opts)
	s.count("put", err)
	return loc, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, locator string) error {
	err := s.inner.Delete(ctx, locator)
	s.count("delete", err)
	return err
}

func (s *InstrumentedStore) count(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, common.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	s.m.StoreOps.WithLabelValues(op, outcome).Inc()
}
