package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PatternRecord is the serializable form of a Pattern shared by the
// import/export document and the persistence backends. Type is the variant
// discriminator; variant fields are flattened next to the common ones.
type PatternRecord struct {
	Type         string    `json:"type" yaml:"type"`
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Domain       string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	Tags         []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Status       string    `json:"validation_status" yaml:"validation_status"`
	QualityScore *float64  `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	Version      string    `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`

	// Property
	DataType string   `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Unit     string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	MinValue *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`

	// Process
	Steps   []string `json:"steps,omitempty" yaml:"steps,omitempty"`
	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Perspective
	Viewpoint    string   `json:"viewpoint,omitempty" yaml:"viewpoint,omitempty"`
	Concerns     []string `json:"concerns,omitempty" yaml:"concerns,omitempty"`
	Stakeholders []string `json:"stakeholders,omitempty" yaml:"stakeholders,omitempty"`
}

// RelationshipRecord is the serializable form of a Relationship.
type RelationshipRecord struct {
	ID            string    `json:"id" yaml:"id"`
	PropertyID    string    `json:"property_id,omitempty" yaml:"property_id,omitempty"`
	ProcessID     string    `json:"process_id,omitempty" yaml:"process_id,omitempty"`
	PerspectiveID string    `json:"perspective_id,omitempty" yaml:"perspective_id,omitempty"`
	Strength      float64   `json:"strength" yaml:"strength"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
	Type          string    `json:"relationship_type" yaml:"relationship_type"`
	Status        string    `json:"status" yaml:"status"`
	Bidirectional bool      `json:"bidirectional" yaml:"bidirectional"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// ToRecord converts a pattern to its serializable form.
func (p *Pattern) ToRecord() PatternRecord {
	quality := p.QualityScore
	rec := PatternRecord{
		Type:         string(p.Type()),
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Domain:       p.Domain,
		Tags:         cloneStrings(p.Tags),
		Status:       string(p.Status),
		QualityScore: &quality,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}

	switch a := p.Attributes.(type) {
	case *PropertyAttributes:
		rec.DataType = a.DataType
		rec.Unit = a.Unit
		rec.MinValue = a.MinValue
		rec.MaxValue = a.MaxValue
	case *ProcessAttributes:
		rec.Steps = cloneStrings(a.Steps)
		rec.Inputs = cloneStrings(a.Inputs)
		rec.Outputs = cloneStrings(a.Outputs)
	case *PerspectiveAttributes:
		rec.Viewpoint = a.Viewpoint
		rec.Concerns = cloneStrings(a.Concerns)
		rec.Stakeholders = cloneStrings(a.Stakeholders)
	}
	return rec
}

// PatternFromRecord rebuilds a pattern from its serializable form.
//
// Missing status, quality score, version and timestamps get the NewPattern
// defaults. The
// result is not validated; the store does that on insertion.
func PatternFromRecord(rec PatternRecord) (*Pattern, error) {
	dim, err := ParseDimension(rec.Type)
	if err != nil {
		return nil, &InvariantViolationError{
			Entity: "pattern",
			ID:     rec.ID,
			Field:  "type",
			Reason: fmt.Sprintf("unknown pattern type %q", rec.Type),
		}
	}

	var attrs Attributes
	switch dim {
	case DimensionProperty:
		attrs = &PropertyAttributes{DataType: rec.DataType, Unit: rec.Unit, MinValue: rec.MinValue, MaxValue: rec.MaxValue}
	case DimensionProcess:
		attrs = &ProcessAttributes{Steps: cloneStrings(rec.Steps), Inputs: cloneStrings(rec.Inputs), Outputs: cloneStrings(rec.Outputs)}
	case DimensionPerspective:
		attrs = &PerspectiveAttributes{Viewpoint: rec.Viewpoint, Concerns: cloneStrings(rec.Concerns), Stakeholders: cloneStrings(rec.Stakeholders)}
	}

	p := NewPattern(rec.Name, attrs)
	if rec.ID != "" {
		p.ID = rec.ID
	}
	p.Description = rec.Description
	p.Domain = rec.Domain
	p.Tags = cloneStrings(rec.Tags)
	if rec.QualityScore != nil {
		p.QualityScore = *rec.QualityScore
	}
	if rec.Status != "" {
		p.Status = ValidationStatus(rec.Status)
	}
	if rec.Version != "" {
		p.Version = rec.Version
	}
	if !rec.CreatedAt.IsZero() {
		p.CreatedAt = rec.CreatedAt
	}
	if !rec.UpdatedAt.IsZero() {
		p.UpdatedAt = rec.UpdatedAt
	}
	return p, nil
}

// ToRecord converts a relationship to its serializable form.
func (r *Relationship) ToRecord() RelationshipRecord {
	return RelationshipRecord{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		ProcessID:     r.ProcessID,
		PerspectiveID: r.PerspectiveID,
		Strength:      r.Strength,
		Confidence:    r.Confidence,
		Type:          string(r.Type),
		Status:        string(r.Status),
		Bidirectional: r.Bidirectional,
		Description:   r.Description,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// RelationshipFromRecord rebuilds a relationship without validating it, so a
// stored value that has since become invalid can still be loaded and reported.
func RelationshipFromRecord(rec RelationshipRecord) *Relationship {
	now := time.Now().UTC()
	r := &Relationship{
		ID:            rec.ID,
		PropertyID:    rec.PropertyID,
		ProcessID:     rec.ProcessID,
		PerspectiveID: rec.PerspectiveID,
		Strength:      rec.Strength,
		Confidence:    rec.Confidence,
		Type:          RelationshipType(rec.Type),
		Status:        RelationshipStatus(rec.Status),
		Bidirectional: rec.Bidirectional,
		Description:   rec.Description,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Type == "" {
		r.Type = RelationshipGeneral
	}
	if r.Status == "" {
		r.Status = RelationshipActive
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	return r
}
