// Package scene holds the ordered collection of mesh entities shown by the
// viewer and the bulk editing operations over it.
//
// Reads (Snapshot, Len, At, Bounds) are safe from any goroutine. Writes are
// serialized: each one runs as a transaction over a private copy of the
// entity list that is swapped in only when the transaction succeeds, so a
// failed edit leaves the scene exactly as it was.
package scene

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMesh is returned when adding an entity without triangles.
	ErrEmptyMesh = errors.New("mesh has no triangles")
	// ErrNotFound is returned by operations that need an entity in the scene.
	ErrNotFound = errors.New("entity not in scene")
)

// Store is the scene: an ordered list of entities where order is display
// order and identity is pointer identity.
type Store struct {
	writeMu  sync.Mutex // serializes transactions
	mu       sync.RWMutex
	entities []*models.Entity
}

// NewStore creates an empty scene.
func NewStore() *Store {
	return &Store{}
}

// Mutate runs fn as one transaction. Changes become visible together when
// fn returns nil and are discarded otherwise. ctx is checked before fn runs
// and before the commit.
func (s *Store) Mutate(ctx context.Context, fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Only writers replace s.entities and writeMu is held, so no read lock.
	tx := &Tx{entities: append([]*models.Entity(nil), s.entities...)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entities = tx.entities
	s.mu.Unlock()
	return nil
}

func (s *Store) mutate(fn func(tx *Tx) error) error {
	return s.Mutate(context.Background(), fn)
}

// Add appends e. A nil entity is ignored.
func (s *Store) Add(e *models.Entity) error {
	return s.mutate(func(tx *Tx) error { return tx.Add(e) })
}

// Remove deletes e if present.
func (s *Store) Remove(e *models.Entity) {
	_ = s.mutate(func(tx *Tx) error {
		tx.Remove(e)
		return nil
	})
}

// Replace puts replacement at old's position, or appends it when old is no
// longer in the scene.
func (s *Store) Replace(old, replacement *models.Entity) error {
	return s.mutate(func(tx *Tx) error { return tx.Replace(old, replacement) })
}

// Clear removes every entity.
func (s *Store) Clear() {
	_ = s.mutate(func(tx *Tx) error {
		tx.Clear()
		return nil
	})
}

// Len returns the number of entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// At returns the entity at display index i.
func (s *Store) At(i int) *models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities[i]
}

// Index returns the display index of e, or -1.
func (s *Store) Index(e *models.Entity) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.IndexOf(s.entities, e)
}

// Contains reports whether e is in the scene.
func (s *Store) Contains(e *models.Entity) bool {
	return s.Index(e) >= 0
}

// Snapshot returns a copy of the entity list in display order.
func (s *Store) Snapshot() []*models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.Entity(nil), s.entities...)
}

// Bounds returns the union of every entity's bounding box. An empty scene
// yields math3d.EmptyBox.
func (s *Store) Bounds() math3d.Box {
	return unionBounds(s.Snapshot())
}

func unionBounds(entities []*models.Entity) math3d.Box {
	box := math3d.EmptyBox()
	for _, e := range entities {
		box = box.Union(e.Bounds())
	}
	return box
}

// Tx is the working copy handed to Mutate callbacks. It must not be kept
// after the callback returns.
type Tx struct {
	entities []*models.Entity
}

// Add appends e. A nil entity is ignored; an entity without triangles is
// rejected with ErrEmptyMesh.
func (tx *Tx) Add(e *models.Entity) error {
	if e == nil {
		return nil
	}
	if e.Mesh().IsEmpty() {
		return ErrEmptyMesh
	}
	tx.entities = append(tx.entities, e)
	return nil
}

// Remove deletes e and reports whether it was present.
func (tx *Tx) Remove(e *models.Entity) bool {
	i := lo.IndexOf(tx.entities, e)
	if i < 0 {
		return false
	}
	tx.entities = append(tx.entities[:i], tx.entities[i+1:]...)
	return true
}

// Replace puts replacement at old's index. If old is absent the
// replacement is appended instead, which is logged but not an error.
// A nil replacement is ignored.
func (tx *Tx) Replace(old, replacement *models.Entity) error {
	if replacement == nil {
		return nil
	}
	if replacement.Mesh().IsEmpty() {
		return ErrEmptyMesh
	}
	i := lo.IndexOf(tx.entities, old)
	if i < 0 {
		if old != nil {
			logger.Info("replace target not in scene, appending",
				zap.Stringer("old", old.ID()),
				zap.Stringer("new", replacement.ID()),
				zap.String("name", replacement.Name()))
		}
		tx.entities = append(tx.entities, replacement)
		return nil
	}
	tx.entities[i] = replacement
	return nil
}

// Clear removes every entity.
func (tx *Tx) Clear() {
	tx.entities = nil
}

// Len returns the number of entities in the working copy.
func (tx *Tx) Len() int {
	return len(tx.entities)
}

// Entities returns the working copy in display order. The slice is only
// valid until the next Tx call.
func (tx *Tx) Entities() []*models.Entity {
	return tx.entities
}

// Index returns the index of e in the working copy, or -1.
func (tx *Tx) Index(e *models.Entity) int {
	return lo.IndexOf(tx.entities, e)
}
