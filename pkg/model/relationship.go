package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Relationship connects patterns across dimensions. Each slot holds the id of
// a pattern or "" when the dimension is not connected. At least two slots must
// be set.
type Relationship struct {
	ID            string
	PropertyID    string
	ProcessID     string
	PerspectiveID string
	Strength      float64            `validate:"gte=0,lte=1"`
	Confidence    float64            `validate:"gte=0,lte=1"`
	Type          RelationshipType   `validate:"oneof=general causal dependency composition aggregation specialization"`
	Status        RelationshipStatus `validate:"oneof=active deprecated experimental"`
	Bidirectional bool
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRelationship builds an active, general relationship with a fresh id.
//
// The slot invariant is checked here, before any store sees the value:
// fewer than two non-empty slots returns an InvariantViolationError, as does
// a strength or confidence outside [0,1].
func NewRelationship(propertyID, processID, perspectiveID string, strength, confidence float64) (*Relationship, error) {
	now := time.Now().UTC()
	r := &Relationship{
		ID:            uuid.NewString(),
		PropertyID:    propertyID,
		ProcessID:     processID,
		PerspectiveID: perspectiveID,
		Strength:      strength,
		Confidence:    confidence,
		Type:          RelationshipGeneral,
		Status:        RelationshipActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the slot invariant and the numeric and enum fields.
func (r *Relationship) Validate() error {
	if n := r.ConnectedDimensions(); n < 2 {
		return &InvariantViolationError{
			Entity: "relationship",
			ID:     r.ID,
			Field:  "slots",
			Reason: fmt.Sprintf("must connect at least two dimensions, got %d", n),
		}
	}
	return validateStruct("relationship", r.ID, r)
}

// Slot returns the pattern id held in the slot for d.
func (r *Relationship) Slot(d Dimension) string {
	switch d {
	case DimensionProperty:
		return r.PropertyID
	case DimensionProcess:
		return r.ProcessID
	case DimensionPerspective:
		return r.PerspectiveID
	}
	return ""
}

// SetSlot stores id in the slot for d. Unknown dimensions are ignored.
func (r *Relationship) SetSlot(d Dimension, id string) {
	switch d {
	case DimensionProperty:
		r.PropertyID = id
	case DimensionProcess:
		r.ProcessID = id
	case DimensionPerspective:
		r.PerspectiveID = id
	}
}

// Participants returns the non-empty slot ids in dimension order.
func (r *Relationship) Participants() []string {
	ids := make([]string, 0, 3)
	for _, d := range Dimensions() {
		if id := r.Slot(d); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ConnectedDimensions counts the non-empty slots.
func (r *Relationship) ConnectedDimensions() int {
	n := 0
	for _, d := range Dimensions() {
		if r.Slot(d) != "" {
			n++
		}
	}
	return n
}

// Touches reports whether any slot references patternID.
func (r *Relationship) Touches(patternID string) bool {
	return patternID != "" &&
		(r.PropertyID == patternID || r.ProcessID == patternID || r.PerspectiveID == patternID)
}

// Clone returns a copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
