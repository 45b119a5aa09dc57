package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	require.NoError(t, tbl.AddTextColumn("make", []string{"Toyota", "BMW", "Fiat"}))
	require.NoError(t, tbl.AddFloatColumn("engine_hp", []Float{
		FloatFrom(140), Missing(), FloatFrom(69),
	}))
	return tbl
}

func TestTableAddAndAccess(t *testing.T) {
	tbl := buildTestTable(t)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 2, tbl.NumCols())
	assert.Equal(t, []string{"make", "engine_hp"}, tbl.Names())

	assert.Equal(t, "BMW", tbl.Text("make", 1))
	assert.Equal(t, FloatFrom(140), tbl.Float("engine_hp", 0))
	assert.False(t, tbl.Float("engine_hp", 1).Valid)

	// Unknown columns degrade to zero values, not panics.
	assert.Equal(t, "", tbl.Text("nope", 0))
	assert.False(t, tbl.Float("nope", 0).Valid)
}

func TestTableRejectsMismatchedLengths(t *testing.T) {
	tbl := buildTestTable(t)
	err := tbl.AddFloatColumn("co2", []Float{FloatFrom(120)})
	assert.Error(t, err)
}

func TestTableRejectsDuplicateNames(t *testing.T) {
	tbl := buildTestTable(t)
	err := tbl.AddTextColumn("make", []string{"a", "b", "c"})
	assert.Error(t, err)
}

func TestTableCloneIsDeep(t *testing.T) {
	tbl := buildTestTable(t)
	clone := tbl.Clone()

	require.NoError(t, clone.ReplaceFloats("engine_hp", []Float{
		FloatFrom(1), FloatFrom(2), FloatFrom(3),
	}))
	require.NoError(t, clone.Rename("make", "brand"))

	assert.Equal(t, FloatFrom(140), tbl.Float("engine_hp", 0))
	assert.True(t, tbl.Has("make"))
	assert.False(t, tbl.Has("brand"))
	assert.True(t, clone.Has("brand"))
}

func TestTableReplaceFloatsKeepsPosition(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddTextColumn("hp", []string{"100", "200"}))
	require.NoError(t, tbl.AddTextColumn("model", []string{"a", "b"}))

	require.NoError(t, tbl.ReplaceFloats("hp", []Float{FloatFrom(100), FloatFrom(200)}))

	assert.Equal(t, []string{"hp", "model"}, tbl.Names())
	c, ok := tbl.Column("hp")
	require.True(t, ok)
	assert.Equal(t, KindFloat, c.Kind())
}

func TestTableFilterRows(t *testing.T) {
	tbl := buildTestTable(t)
	hp, _ := tbl.Column("engine_hp")

	out := tbl.FilterRows(func(i int) bool { return hp.Float(i).Valid })

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "Toyota", out.Text("make", 0))
	assert.Equal(t, "Fiat", out.Text("make", 1))
	// Source unchanged.
	assert.Equal(t, 3, tbl.NumRows())
}

func TestTableSelect(t *testing.T) {
	tbl := buildTestTable(t)

	out, err := tbl.Select("engine_hp")
	require.NoError(t, err)
	assert.Equal(t, []string{"engine_hp"}, out.Names())
	assert.Equal(t, 3, out.NumRows())

	_, err = tbl.Select("missing_col")
	assert.Error(t, err)
}

func TestTableSetNames(t *testing.T) {
	tbl := buildTestTable(t)

	require.NoError(t, tbl.SetNames([]string{"brand", "hp"}))
	assert.Equal(t, []string{"brand", "hp"}, tbl.Names())
	assert.Equal(t, "Toyota", tbl.Text("brand", 0))

	assert.Error(t, tbl.SetNames([]string{"one"}))
	assert.Error(t, tbl.SetNames([]string{"dup", "dup"}))
}

func TestTableRecord(t *testing.T) {
	tbl := buildTestTable(t)

	rec := tbl.Record(1)
	assert.Equal(t, "BMW", rec["make"])
	assert.Nil(t, rec["engine_hp"])

	rec = tbl.Record(0)
	assert.Equal(t, 140.0, rec["engine_hp"])
}

func TestColumnMissingCount(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddTextColumn("model", []string{"a", "", ""}))
	require.NoError(t, tbl.AddFloatColumn("hp", []Float{Missing(), FloatFrom(0), Missing()}))

	model, _ := tbl.Column("model")
	hp, _ := tbl.Column("hp")
	assert.Equal(t, 2, model.MissingCount())
	// A present zero is not missing.
	assert.Equal(t, 2, hp.MissingCount())
}
