package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStore_PutGet(t *testing.T) {
	s := NewResultStore()
	rs := NewResultSet([]Record{{"region": "NA", "unique_visitors": 5000}})
	s.Put(GeographyVisitors, rs)

	got, ok := s.Get(GeographyVisitors)
	require.True(t, ok)
	assert.Equal(t, rs, got)

	_, ok = s.Get(ChannelVisitors)
	assert.False(t, ok)
}

func TestResultStore_OverwriteKeepsPosition(t *testing.T) {
	s := NewResultStore()
	s.Put(GeographyVisitors, NewResultSet([]Record{{"a": 1}}))
	s.Put(ChannelVisitors, NewResultSet([]Record{{"b": 2}}))
	s.Put(GeographyVisitors, NewResultSet([]Record{{"a": 3}, {"a": 4}}))

	assert.Equal(t, []string{GeographyVisitors, ChannelVisitors}, s.Names())
	assert.Equal(t, 2, s.Len())

	got, _ := s.Get(GeographyVisitors)
	assert.Equal(t, 2, got.Len())
}

func TestResultStore_NamesIsCopy(t *testing.T) {
	s := NewResultStore()
	s.Put(RevenueSegments, ResultSet{})
	names := s.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{RevenueSegments}, s.Names())
}

func TestNewResultSet_ColumnUnion(t *testing.T) {
	rs := NewResultSet([]Record{{"b": 1, "a": 2}, {"c": 3}})
	assert.Equal(t, []string{"a", "b", "c"}, rs.Columns)
	assert.False(t, rs.Empty())
	assert.Len(t, rs.Head(1), 1)
	assert.Len(t, rs.Head(10), 2)
	assert.True(t, ResultSet{}.Empty())
}

func TestRunSummary_Counts(t *testing.T) {
	sum := RunSummary{
		Queries: []QueryOutcome{{Status: QueryOK}, {Status: QueryEmpty}, {Status: QueryFailed}},
		Files:   []FileResult{{Success: true}, {Success: false}},
	}
	assert.Equal(t, 1, sum.SucceededQueries())
	assert.Equal(t, 1, sum.FailedFiles())
}
