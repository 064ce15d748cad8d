package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by NewPattern.
const (
	DefaultQualityScore = 0.5
	DefaultVersion      = "1.0"
)

// Attributes is the sealed sum type for variant-specific pattern fields.
// The only implementations are PropertyAttributes, ProcessAttributes and
// PerspectiveAttributes.
type Attributes interface {
	Dimension() Dimension
	cloneAttributes() Attributes
}

// PropertyAttributes describes a measurable characteristic.
type PropertyAttributes struct {
	DataType string
	Unit     string
	MinValue *float64
	MaxValue *float64
}

// Dimension implements Attributes.
func (*PropertyAttributes) Dimension() Dimension { return DimensionProperty }

func (a *PropertyAttributes) cloneAttributes() Attributes {
	if a == nil {
		return nil
	}
	c := *a
	if a.MinValue != nil {
		v := *a.MinValue
		c.MinValue = &v
	}
	if a.MaxValue != nil {
		v := *a.MaxValue
		c.MaxValue = &v
	}
	return &c
}

// ProcessAttributes describes an activity and its flow.
type ProcessAttributes struct {
	Steps   []string
	Inputs  []string
	Outputs []string
}

// Dimension implements Attributes.
func (*ProcessAttributes) Dimension() Dimension { return DimensionProcess }

func (a *ProcessAttributes) cloneAttributes() Attributes {
	if a == nil {
		return nil
	}
	return &ProcessAttributes{
		Steps:   cloneStrings(a.Steps),
		Inputs:  cloneStrings(a.Inputs),
		Outputs: cloneStrings(a.Outputs),
	}
}

// PerspectiveAttributes describes a viewpoint and what it cares about.
type PerspectiveAttributes struct {
	Viewpoint    string
	Concerns     []string
	Stakeholders []string
}

// Dimension implements Attributes.
func (*PerspectiveAttributes) Dimension() Dimension { return DimensionPerspective }

func (a *PerspectiveAttributes) cloneAttributes() Attributes {
	if a == nil {
		return nil
	}
	return &PerspectiveAttributes{
		Viewpoint:    a.Viewpoint,
		Concerns:     cloneStrings(a.Concerns),
		Stakeholders: cloneStrings(a.Stakeholders),
	}
}

// Pattern is a typed entity in one of the three dimensions.
//
// The ID is unique across the whole store regardless of dimension. Tags are
// stored lower-cased and trimmed; Normalize applies that before insertion.
//
// Pattern values are not safe for concurrent mutation. The store hands out
// deep copies, so callers may modify what they receive.
type Pattern struct {
	ID           string
	Name         string `validate:"notblank"`
	Description  string
	Domain       string
	Tags         []string
	Status       ValidationStatus `validate:"oneof=draft validated deprecated"`
	QualityScore float64          `validate:"gte=0,lte=1"`
	Version      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Attributes   Attributes `validate:"required"`
}

// NewPattern creates a draft pattern with a fresh id and the given variant.
func NewPattern(name string, attrs Attributes) *Pattern {
	now := time.Now().UTC()
	return &Pattern{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Status:       StatusDraft,
		QualityScore: DefaultQualityScore,
		Version:      DefaultVersion,
		CreatedAt:    now,
		UpdatedAt:    now,
		Attributes:   attrs,
	}
}

// NewProperty creates a Property pattern with empty attributes.
func NewProperty(name string) *Pattern {
	return NewPattern(name, &PropertyAttributes{})
}

// NewProcess creates a Process pattern with empty attributes.
func NewProcess(name string) *Pattern {
	return NewPattern(name, &ProcessAttributes{})
}

// NewPerspective creates a Perspective pattern with empty attributes.
func NewPerspective(name string) *Pattern {
	return NewPattern(name, &PerspectiveAttributes{})
}

// Type returns the dimension of the attached variant, or "" when the
// pattern has no attributes.
func (p *Pattern) Type() Dimension {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes.Dimension()
}

// Normalize trims text fields and canonicalizes tags in place.
func (p *Pattern) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Domain = strings.TrimSpace(p.Domain)
	p.Tags = normalizeTags(p.Tags)
	if p.Version == "" {
		p.Version = DefaultVersion
	}
}

// Validate checks the field-level invariants of the pattern. Attributes
// holding a nil variant pointer count as missing.
func (p *Pattern) Validate() error {
	if nilAttributes(p.Attributes) {
		return &InvariantViolationError{Entity: "pattern", ID: p.ID, Field: "Attributes", Reason: "must not be empty"}
	}
	return validateStruct("pattern", p.ID, p)
}

func nilAttributes(a Attributes) bool {
	switch v := a.(type) {
	case nil:
		return true
	case *PropertyAttributes:
		return v == nil
	case *ProcessAttributes:
		return v == nil
	case *PerspectiveAttributes:
		return v == nil
	}
	return false
}

// HasTag reports whether the pattern carries the (normalized) tag.
func (p *Pattern) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchText returns the lower-cased text matched by substring search:
// name, description and tags joined by spaces.
func (p *Pattern) SearchText() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte(' ')
	b.WriteString(p.Description)
	for _, t := range p.Tags {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return strings.ToLower(b.String())
}

// Clone returns a deep copy of the pattern.
func (p *Pattern) Clone() *Pattern {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = cloneStrings(p.Tags)
	if p.Attributes != nil {
		c.Attributes = p.Attributes.cloneAttributes()
	}
	return &c
}
