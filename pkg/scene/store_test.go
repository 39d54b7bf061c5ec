package scene

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
)

func cube(center math3d.Vec3, size float64, name string) *models.Entity {
	return models.NewEntity(models.NewBoxMesh(center, math3d.V3(size, size, size)), models.WithName(name))
}

func filled(t *testing.T, n int) (*Store, []*models.Entity) {
	t.Helper()
	s := NewStore()
	var entities []*models.Entity
	for i := range n {
		e := cube(math3d.V3(float64(i)*3, 0, 0), 1, string(rune('a'+i)))
		require.NoError(t, s.Add(e))
		entities = append(entities, e)
	}
	return s, entities
}

func TestStoreAdd(t *testing.T) {
	s := NewStore()
	e := cube(math3d.Zero3(), 1, "a")

	require.NoError(t, s.Add(e))
	require.NoError(t, s.Add(nil))
	assert.Equal(t, 1, s.Len())
	assert.Same(t, e, s.At(0))
	assert.True(t, s.Contains(e))

	empty := models.NewEntity(&models.Mesh{})
	assert.ErrorIs(t, s.Add(empty), ErrEmptyMesh)
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s, es := filled(t, 3)

	s.Remove(es[1])
	assert.Equal(t, []*models.Entity{es[0], es[2]}, s.Snapshot())

	s.Remove(es[1])
	s.Remove(nil)
	assert.Equal(t, 2, s.Len())
}

func TestStoreReplacePreservesOrder(t *testing.T) {
	s, es := filled(t, 4)
	replacement := cube(math3d.V3(0, 5, 0), 2, "new")

	require.NoError(t, s.Replace(es[2], replacement))

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 2, s.Index(replacement))
	assert.Equal(t, -1, s.Index(es[2]))
	assert.Same(t, es[0], s.At(0))
	assert.Same(t, es[3], s.At(3))
}

func TestStoreReplaceFallbackAppends(t *testing.T) {
	s, es := filled(t, 2)
	missing := cube(math3d.Zero3(), 1, "missing")
	replacement := cube(math3d.Zero3(), 1, "new")

	require.NoError(t, s.Replace(missing, replacement))

	assert.Equal(t, 3, s.Len())
	assert.Same(t, replacement, s.At(2))
	assert.Same(t, es[0], s.At(0))

	require.NoError(t, s.Replace(es[0], nil))
	assert.Equal(t, 3, s.Len())
}

func TestStoreClear(t *testing.T) {
	s, _ := filled(t, 3)
	s.Clear()
	assert.Zero(t, s.Len())
	assert.True(t, s.Bounds().IsEmpty())
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s, es := filled(t, 2)
	snap := s.Snapshot()
	snap[0] = nil
	assert.Same(t, es[0], s.At(0))
}

func TestStoreBounds(t *testing.T) {
	s, _ := filled(t, 2)
	b := s.Bounds()
	assert.Equal(t, math3d.V3(-0.5, -0.5, -0.5), b.Min)
	assert.Equal(t, math3d.V3(3.5, 0.5, 0.5), b.Max)
}

func TestMutateIsAtomic(t *testing.T) {
	s, es := filled(t, 3)
	before := s.Snapshot()
	boom := errors.New("boom")

	err := s.Mutate(context.Background(), func(tx *Tx) error {
		tx.Clear()
		require.NoError(t, tx.Add(cube(math3d.Zero3(), 1, "x")))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, s.Snapshot())

	err = s.Mutate(context.Background(), func(tx *Tx) error {
		assert.True(t, tx.Remove(es[0]))
		assert.False(t, tx.Remove(es[0]))
		// Not visible until commit.
		assert.Equal(t, 3, s.Len())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestMutateCanceled(t *testing.T) {
	s, _ := filled(t, 2)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Mutate(ctx, func(tx *Tx) error {
		tx.Clear()
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, s.Len())

	called := false
	err = s.Mutate(ctx, func(*Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStoreConcurrentReadsAndWrites(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				assert.NoError(t, s.Add(cube(math3d.V3(float64(i), 0, 0), 1, "c")))
			}
		}()
		go func() {
			defer wg.Done()
			for range 20 {
				_ = s.Bounds()
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 160, s.Len())
}
