// Package storage provides the P3IF pattern/relationship store and its
// pluggable persistence backends.
//
// The Store owns the primary collections, drives the secondary indexes and
// invalidates the query and metrics caches on every mutation. Persistence is
// an optional collaborator invoked synchronously from inside each mutation:
//   - BadgerPersistence: embedded key-value store on disk (or in memory)
//   - RedisPersistence: remote Redis keyspace
//
// Example Usage:
//
//	store := storage.NewStore(storage.Options{})
//
//	temp := model.NewProperty("Temperature")
//	temp.Domain = "Manufacturing"
//	store.AddPattern(temp)
//
//	heat := model.NewProcess("Heat Treatment")
//	store.AddPattern(heat)
//
//	rel, _ := model.NewRelationship(temp.ID, heat.ID, "", 0.8, 0.9)
//	if _, err := store.AddRelationship(rel); err != nil {
//		var ref *storage.ReferentialIntegrityError
//		if errors.As(err, &ref) {
//			log.Printf("missing pattern %s", ref.PatternID)
//		}
//	}
//
//	// Cascade: the relationship goes with the pattern.
//	store.RemovePattern(temp.ID)
package storage

import (
	"errors"
	"fmt"

	"github.com/orneryd/p3if/pkg/model"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownFormat = errors.New("unknown document format")
	ErrStorageClosed = errors.New("storage closed")
)

// Entity kinds used in errors and batch results.
const (
	KindPattern      = "pattern"
	KindRelationship = "relationship"
)

// DuplicateIDError is returned when an insert collides with a stored id.
type DuplicateIDError struct {
	Kind string
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %s", e.Kind, e.ID)
}

// ReferentialIntegrityError is returned when a relationship slot names a
// pattern that is not in the store. PatternID is the first missing id in
// dimension order.
type ReferentialIntegrityError struct {
	RelationshipID string
	Slot           model.Dimension
	PatternID      string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("relationship %s: %s slot references unknown pattern %s",
		e.RelationshipID, e.Slot, e.PatternID)
}

// Persistence is the optional backend mirrored by the store.
//
// Every method is called with the store lock held. Implementations should be
// safe to retry; the store does not retry on its own.
type Persistence interface {
	SavePattern(p *model.Pattern) error
	SaveRelationship(r *model.Relationship) error
	DeletePattern(id string) error
	DeleteRelationship(id string) error
	Clear() error
}

// Loader is implemented by backends that can hand their contents back for
// rehydration at startup.
type Loader interface {
	LoadAll() ([]*model.Pattern, []*model.Relationship, error)
}

// BatchError records one failed batch item.
type BatchError struct {
	Item    string `json:"item" yaml:"item"`
	Message string `json:"message" yaml:"message"`
}

// BatchResult aggregates a batch call. Batches never stop at the first
// failure; callers inspect Errors.
type BatchResult struct {
	Successful int          `json:"successful" yaml:"successful"`
	Failed     int          `json:"failed" yaml:"failed"`
	Errors     []BatchError `json:"errors" yaml:"errors"`
	Total      int          `json:"total" yaml:"total"`
}

func (b *BatchResult) record(item string, err error) {
	b.Total++
	if err == nil {
		b.Successful++
		return
	}
	b.Failed++
	b.Errors = append(b.Errors, BatchError{Item: item, Message: err.Error()})
}

// patternItem names a pattern in batch errors: its id, or its name when the
// id is empty.
func patternItem(p *model.Pattern) string {
	if p == nil {
		return "<nil>"
	}
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

func relationshipItem(r *model.Relationship) string {
	if r == nil {
		return "<nil>"
	}
	return r.ID
}
