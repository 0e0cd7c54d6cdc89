// Package projection pairs a stored entity with the timestamps its repository keeps for it.
package projection

import "time"

// Metadata is the bookkeeping a repository attaches to a saved row.
type Metadata struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch records a save at now. The first save also sets CreatedAt, later ones keep it.
func (m Metadata) Touch(now time.Time) Metadata {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return m
}

// LastModified is the latest known write, or the zero time for an unsaved entity.
func (m Metadata) LastModified() time.Time {
	if m.UpdatedAt.After(m.CreatedAt) {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

// Projection is an entity as a repository returned it.
type Projection[T any] struct {
	Entity   T
	Metadata Metadata
}

// Of builds a projection from a repository row.
func Of[T any](entity T, createdAt, updatedAt time.Time) *Projection[T] {
	return &Projection[T]{Entity: entity, Metadata: Metadata{CreatedAt: createdAt, UpdatedAt: updatedAt}}
}
