package growth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func nanValue() float64 { return math.NaN() }

func TestFrame(t *testing.T) {
	var nilFrame *Frame
	assert.Zero(t, nilFrame.Len())
	_, ok := nilFrame.Column("age")
	assert.False(t, ok)

	f := NewFrame().
		SetColumn("age", []float64{1, 2, 3}).
		SetLabel("tissue", []string{"WM", "GM", "WM", "GM"})
	assert.Equal(t, 4, f.Len())

	col, ok := f.Column("age")
	assert.True(t, ok)
	assert.Len(t, col, 3)
	_, ok = f.Label("sex")
	assert.False(t, ok)
}

func TestTable_Transform(t *testing.T) {
	plain := &Table{}
	v, ok := plain.Transform(-2)
	assert.True(t, ok)
	assert.Equal(t, -2.0, v)

	_, ok = plain.Transform(math.NaN())
	assert.False(t, ok)

	logged := &Table{LogTransformed: true}
	v, ok = logged.Transform(math.E)
	assert.True(t, ok)
	assert.InDelta(t, 1, v, 1e-12)

	_, ok = logged.Transform(0)
	assert.False(t, ok)
}

func TestModeAndStrategy(t *testing.T) {
	assert.True(t, ModeFixed.Valid())
	assert.True(t, ModeSearch.Valid())
	assert.False(t, Mode("grid").Valid())
	assert.True(t, CleanDoubleZScore.Valid())
	assert.False(t, CleaningStrategy("").Valid())
	assert.Equal(t, "biomarker FA, sex F, tissue WM", Unit{Sex: "F", Tissue: "WM", Biomarker: "FA"}.String())
}
