package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPattern(t *testing.T) {
	p := NewProperty("  Temperature  ")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Temperature", p.Name)
	assert.Equal(t, DimensionProperty, p.Type())
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, DefaultQualityScore, p.QualityScore)
	assert.Equal(t, DefaultVersion, p.Version)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	assert.Equal(t, DimensionProcess, NewProcess("x").Type())
	assert.Equal(t, DimensionPerspective, NewPerspective("x").Type())
	assert.NotEqual(t, NewProcess("x").ID, NewProcess("x").ID)
}

func TestPattern_Normalize(t *testing.T) {
	p := NewProcess("Assembly")
	p.Name = "  Assembly  "
	p.Domain = " Manufacturing "
	p.Tags = []string{" Quality ", "quality", "", "  ", "SAFETY"}
	p.Version = ""

	p.Normalize()

	assert.Equal(t, "Assembly", p.Name)
	assert.Equal(t, "Manufacturing", p.Domain)
	assert.Equal(t, []string{"quality", "safety"}, p.Tags)
	assert.Equal(t, DefaultVersion, p.Version)
	assert.True(t, p.HasTag("  QUALITY"))
	assert.False(t, p.HasTag("speed"))
}

func TestPattern_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Pattern)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Pattern) {}},
		{name: "quality zero boundary", mutate: func(p *Pattern) { p.QualityScore = 0.0 }},
		{name: "quality one boundary", mutate: func(p *Pattern) { p.QualityScore = 1.0 }},
		{name: "quality below range", mutate: func(p *Pattern) { p.QualityScore = -0.01 }, field: "QualityScore", wantErr: true},
		{name: "quality above range", mutate: func(p *Pattern) { p.QualityScore = 1.01 }, field: "QualityScore", wantErr: true},
		{name: "blank name", mutate: func(p *Pattern) { p.Name = "   " }, field: "Name", wantErr: true},
		{name: "unknown status", mutate: func(p *Pattern) { p.Status = "archived" }, field: "Status", wantErr: true},
		{name: "missing attributes", mutate: func(p *Pattern) { p.Attributes = nil }, field: "Attributes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProperty("Pressure")
			tt.mutate(p)

			err := p.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var inv *InvariantViolationError
			require.True(t, errors.As(err, &inv), "want InvariantViolationError, got %v", err)
			assert.Equal(t, "pattern", inv.Entity)
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}

func TestPattern_Clone(t *testing.T) {
	lo, hi := 0.0, 100.0
	p := NewPattern("Humidity", &PropertyAttributes{DataType: "float", Unit: "%", MinValue: &lo, MaxValue: &hi})
	p.Tags = []string{"env"}

	c := p.Clone()
	require.Equal(t, p, c)

	c.Tags[0] = "changed"
	*c.Attributes.(*PropertyAttributes).MinValue = 5
	assert.Equal(t, "env", p.Tags[0])
	assert.Equal(t, 0.0, *p.Attributes.(*PropertyAttributes).MinValue)

	proc := NewPattern("Cut", &ProcessAttributes{Steps: []string{"measure", "cut"}})
	pc := proc.Clone()
	pc.Attributes.(*ProcessAttributes).Steps[0] = "guess"
	assert.Equal(t, "measure", proc.Attributes.(*ProcessAttributes).Steps[0])

	var nilPattern *Pattern
	assert.Nil(t, nilPattern.Clone())
}

func TestPattern_NilAttributeVariant(t *testing.T) {
	for _, attrs := range []Attributes{
		(*PropertyAttributes)(nil),
		(*ProcessAttributes)(nil),
		(*PerspectiveAttributes)(nil),
	} {
		p := &Pattern{ID: "p1", Name: "Broken", QualityScore: DefaultQualityScore, Attributes: attrs}

		var c *Pattern
		require.NotPanics(t, func() { c = p.Clone() })
		assert.Nil(t, c.Attributes)

		err := p.Validate()
		var iv *InvariantViolationError
		require.True(t, errors.As(err, &iv), "%T", attrs)
		assert.Equal(t, "Attributes", iv.Field)
	}
}

func TestPattern_SearchText(t *testing.T) {
	p := NewPerspective("Operator View")
	p.Description = "Shop FLOOR concerns"
	p.Tags = []string{"ergonomics"}

	text := p.SearchText()
	assert.Contains(t, text, "operator view")
	assert.Contains(t, text, "shop floor")
	assert.Contains(t, text, "ergonomics")
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension(" Process ")
	require.NoError(t, err)
	assert.Equal(t, DimensionProcess, d)

	_, err = ParseDimension("structure")
	var inv *InvariantViolationError
	assert.ErrorAs(t, err, &inv)
}
