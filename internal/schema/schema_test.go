package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/table"
)

func TestRenamePreservesRowsAndPassesUnmappedThrough(t *testing.T) {
	t.Parallel()

	in := table.MustNew(
		[]string{"county", "unique_career_clusters_y", "extra"},
		[][]any{
			{"Wake", 3.0, "x"},
			{"Ashe", 1.0, "y"},
		},
	)

	out, err := Rename(in, CTEMapping())
	require.NoError(t, err)

	assert.Equal(t, []string{"County", "Unique Career Clusters in County", "extra"}, out.Columns())
	require.Equal(t, in.Len(), out.Len())
	for i := 0; i < in.Len(); i++ {
		assert.Equal(t, in.Row(i), out.Row(i), "row %d must keep its cells and position", i)
	}

	// Input is untouched.
	assert.Equal(t, []string{"county", "unique_career_clusters_y", "extra"}, in.Columns())
}

func TestRenameIgnoresMappingKeysAbsentFromTable(t *testing.T) {
	t.Parallel()

	in := table.MustNew([]string{"other"}, [][]any{{1.0}})
	out, err := Rename(in, CTEMapping())
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, out.Columns())
}

func TestRenameCollisionIsReported(t *testing.T) {
	t.Parallel()

	m := MustMapping(map[string]string{"a": "b"})
	in := table.MustNew([]string{"a", "b"}, nil)
	_, err := Rename(in, m)
	require.Error(t, err)
}

func TestNewMappingRejectsCollidingDisplayNames(t *testing.T) {
	t.Parallel()

	_, err := NewMapping(map[string]string{"a": "X", "b": "X"})
	require.Error(t, err)

	_, err = NewMapping(map[string]string{"a": ""})
	require.Error(t, err)
}

func TestAliases(t *testing.T) {
	t.Parallel()

	m := CTEMapping()
	assert.Equal(t, []string{"year", "Year"}, m.Aliases("year"))
	assert.Equal(t, []string{"year", "Year"}, m.Aliases("Year"))
	assert.Equal(t, []string{"other"}, m.Aliases("other"))
	assert.Equal(t, 10, m.Len())
}

func TestContractValidate(t *testing.T) {
	t.Parallel()

	tb := table.MustNew(
		[]string{"County", "Year", "Student Enrollment"},
		[][]any{
			{"Wake", 2023.0, "lots"},
			{"Ashe", nil, nil},
		},
	)

	rep := CTEContract().Validate(tb)
	assert.False(t, rep.OK())
	assert.Equal(t, []string{"Unique Career Clusters in County"}, rep.Missing)
	assert.Equal(t, []string{"Student Enrollment"}, rep.Mistyped)
	assert.Contains(t, rep.Absent, "District Code")
	assert.True(t, rep.Has("County"))
	assert.False(t, rep.Has("District Code"))
	assert.Contains(t, rep.String(), "missing=Unique Career Clusters in County")
}

func TestProjectionsContractRequiresYears(t *testing.T) {
	t.Parallel()

	tb := table.MustNew([]string{"Industry Title", "2021"}, [][]any{{"Construction", 100.0}})
	rep := ProjectionsContract().Validate(tb)
	assert.Equal(t, []string{"2030"}, rep.Missing)
}
