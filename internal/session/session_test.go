package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cteview/internal/config"
	"cteview/internal/dataset"
	"cteview/internal/table"
)

func TestReduce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      State
		ev      Event
		want    State
		wantErr error
	}{
		{name: "navigate", in: NewState(), ev: Navigate{TargetView: ViewAnalysis}, want: State{View: ViewAnalysis}},
		{name: "navigate unknown view is kept", in: NewState(), ev: Navigate{TargetView: "nowhere"}, want: State{View: "nowhere"}},
		{name: "select x", in: NewState(), ev: Select{Field: FieldX, Value: "CTE Course Enrollment"}, want: State{View: ViewHome, X: "CTE Course Enrollment"}},
		{name: "select y", in: State{View: ViewAnalysis, X: "a"}, ev: Select{Field: FieldY, Value: "b"}, want: State{View: ViewAnalysis, X: "a", Y: "b"}},
		{name: "select industry", in: NewState(), ev: Select{Field: FieldIndustry, Value: "Construction"}, want: State{View: ViewHome, Industry: "Construction"}},
		{name: "unknown field", in: State{View: ViewAnalysis, X: "a"}, ev: Select{Field: "z", Value: "1"}, want: State{View: ViewAnalysis, X: "a"}, wantErr: ErrUnknownField},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Reduce(tc.in, tc.ev)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReduceSelectionsSurviveNavigation(t *testing.T) {
	t.Parallel()

	s := State{View: ViewAnalysis, X: "a", Y: "b", Industry: "c"}
	s, err := Reduce(s, Navigate{TargetView: ViewHome})
	require.NoError(t, err)
	s, err = Reduce(s, Navigate{TargetView: ViewAnalysis})
	require.NoError(t, err)
	assert.Equal(t, State{View: ViewAnalysis, X: "a", Y: "b", Industry: "c"}, s)
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	ev, err := DecodeEvent([]byte(`{"type":"navigate","target_view":"analysis"}`))
	require.NoError(t, err)
	assert.Equal(t, Navigate{TargetView: "analysis"}, ev)

	ev, err = DecodeEvent([]byte(`{"type":"select","field":"industry","value":"Retail Trade"}`))
	require.NoError(t, err)
	assert.Equal(t, Select{Field: "industry", Value: "Retail Trade"}, ev)

	_, err = DecodeEvent([]byte(`{"type":"jump"}`))
	assert.EqualError(t, err, `session: unknown event type "jump"`)

	_, err = DecodeEvent([]byte(`{`))
	assert.ErrorContains(t, err, "session: decode event")
}

func nopLoader() dataset.Loader {
	return dataset.LoaderFunc(func(_ context.Context, src config.Source) (*table.Table, error) {
		return nil, errors.New("unused")
	})
}

func TestSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(nopLoader()), New(nopLoader())
	require.NotEqual(t, a.ID, b.ID)
	assert.NotSame(t, a.Data, b.Data)

	_, err := a.Apply(Select{Field: FieldX, Value: "Student Enrollment"})
	require.NoError(t, err)
	assert.Equal(t, "Student Enrollment", a.State().X)
	assert.Equal(t, NewState(), b.State())
}

func TestApplyRejectedEventKeepsState(t *testing.T) {
	t.Parallel()

	s := New(nopLoader())
	_, err := s.Apply(Navigate{TargetView: ViewAnalysis})
	require.NoError(t, err)

	st, err := s.Apply(Select{Field: "colour", Value: "red"})
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, State{View: ViewAnalysis}, st)
	assert.Equal(t, st, s.State())
}

func TestApplySerialisesConcurrentEvents(t *testing.T) {
	t.Parallel()

	s := New(nopLoader())
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			field := FieldX
			if i%2 == 1 {
				field = FieldY
			}
			_, _ = s.Apply(Select{Field: field, Value: "v"})
		}()
	}
	wg.Wait()
	assert.Equal(t, State{View: ViewHome, X: "v", Y: "v"}, s.State())

	var seen State
	s.Do(func(st State) { seen = st })
	assert.Equal(t, s.State(), seen)
}
