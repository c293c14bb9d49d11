package projection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/aggregate"
	"cteview/internal/table"
)

var years = []string{"2021", "2030"}

func projections() *table.Table {
	return table.MustNew(
		[]string{"Industry Title", "2021", "2030", "Change"},
		[][]any{
			{"Construction", 100.0, nil, nil},
			{"Manufacturing", 200.0, 210.0, 10.0},
			{"Construction", 120.0, 140.0, 20.0},
			{"Construction ", 1.0, 2.0, 1.0},
			{"Retail Trade", nil, 80.0, nil},
		},
	)
}

func TestFilterByCategoryExactMatchOnly(t *testing.T) {
	t.Parallel()

	sub, err := FilterByCategory(projections(), "Industry Title", "Construction")
	require.NoError(t, err)
	require.Equal(t, 2, sub.Len())
	for i := 0; i < sub.Len(); i++ {
		assert.Equal(t, "Construction", sub.Value(i, 0))
	}

	again, err := FilterByCategory(sub, "Industry Title", "Construction")
	require.NoError(t, err)
	assert.Equal(t, sub.Len(), again.Len(), "re-filtering must be idempotent")
}

func TestFilterByCategoryNoMatchIsEmptyNotError(t *testing.T) {
	t.Parallel()

	sub, err := FilterByCategory(projections(), "Industry Title", "Mining")
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Len())
}

func TestDropIncompleteRequiresAllFields(t *testing.T) {
	t.Parallel()

	out, err := DropIncomplete(projections(), years...)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.NotNil(t, out.Value(i, out.Index("2021")))
		assert.NotNil(t, out.Value(i, out.Index("2030")))
	}
}

func TestMissingColumns(t *testing.T) {
	t.Parallel()

	var mc *aggregate.MissingColumnError

	_, err := FilterByCategory(projections(), "Industry", "x")
	require.True(t, errors.As(err, &mc))

	_, err = DropIncomplete(projections(), "2021", "2040")
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "2040", mc.Column)
}

// A Construction row with 2021 present and 2030 missing is excluded entirely.
func TestBuildExcludesIncompleteRow(t *testing.T) {
	t.Parallel()

	v, err := Build(projections(), "Industry Title", "Construction", years...)
	require.NoError(t, err)
	require.Equal(t, 1, v.Rows.Len())
	assert.Equal(t, 120.0, v.Rows.Value(0, 1))
	assert.Equal(t, []Point{
		{Category: "Construction", Year: "2021", Value: 120},
		{Category: "Construction", Year: "2030", Value: 140},
	}, v.Long)
	assert.False(t, v.Empty())
}

func TestBuildOnlyIncompleteRowYieldsNoData(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(
		[]string{"Industry Title", "2021", "2030"},
		[][]any{{"Construction", 100.0, nil}},
	)
	v, err := Build(tb, "Industry Title", "Construction", years...)
	require.ErrorIs(t, err, ErrNoData)
	assert.True(t, v.Empty())
	assert.Empty(t, v.Long)
}

func TestBuildZeroMatchesYieldsNoData(t *testing.T) {
	t.Parallel()

	v, err := Build(projections(), "Industry Title", "Mining", years...)
	require.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, "no data found for Industry Title = Mining", err.Error())
	assert.True(t, v.Empty())
}

func TestCategoriesFirstSeenOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"Construction", "Manufacturing", "Construction ", "Retail Trade"},
		Categories(projections(), "Industry Title"),
	)
	assert.Nil(t, Categories(projections(), "nope"))
}
