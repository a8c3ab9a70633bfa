package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseauechanges/annuaire/internal/common"
)

func TestMemoryStore_PutFetchDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	loc, err := s.Put(ctx, "a/b.json", []byte(`{"x":1}`), PutOptions{Public: true})
	require.NoError(t, err)

	data, err := s.Fetch(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(data))

	require.NoError(t, s.Delete(ctx, loc))

	_, err = s.Fetch(ctx, loc)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// delete of a missing locator is not an error
	require.NoError(t, s.Delete(ctx, loc))
}

func TestMemoryStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Put(ctx, "entries/2.json", []byte("b"), PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "entries/1.json", []byte("a"), PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "backups/1.json", []byte("c"), PutOptions{})
	require.NoError(t, err)

	got, err := s.List(ctx, "entries/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "entries/1.json", got[0].Key)
	assert.Equal(t, "entries/2.json", got[1].Key)
}

func TestMemoryStore_ManualPropagation(t *testing.T) {
	ctx := context.Background()
	s := NewLaggingMemoryStore()

	loc, err := s.Put(ctx, "entries/1.json", []byte("a"), PutOptions{})
	require.NoError(t, err)

	// read-after-write holds for the locator itself
	_, err = s.Fetch(ctx, loc)
	require.NoError(t, err)

	// but List does not see the key yet
	got, err := s.List(ctx, "entries/")
	require.NoError(t, err)
	assert.Empty(t, got)

	s.Propagate()

	got, err = s.List(ctx, "entries/")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryStore_FailWith(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")
	s.FailWith(boom)

	_, err := s.List(ctx, "")
	assert.ErrorIs(t, err, boom)
	_, err = s.Put(ctx, "k", nil, PutOptions{})
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	_, err = s.List(ctx, "")
	assert.NoError(t, err)
}
