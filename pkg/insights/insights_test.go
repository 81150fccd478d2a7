package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-sauced/benchtrend/pkg/trends"
)

func TestBetter(t *testing.T) {
	assert.Equal(t, 1, Better("iter/sec"))
	assert.Equal(t, 1, Better("MB/s"))
	assert.Equal(t, 1, Better("ops"))
	assert.Equal(t, -1, Better("ns/op"))
	assert.Equal(t, -1, Better("ms"))
	assert.Equal(t, -1, Better(""))
}

func TestCompareNeedsTwoCommits(t *testing.T) {
	_, ok := Compare("t", nil, Options{})
	assert.False(t, ok)

	_, ok = Compare("t", []trends.Point{
		{Date: 1, CommitID: "a", Value: 1},
		{Date: 2, CommitID: "a", Value: 2},
	}, Options{})
	assert.False(t, ok)
}

func TestCompareThroughputRegression(t *testing.T) {
	points := []trends.Point{
		{Date: 1, CommitID: "old", Value: 10, Unit: "iter/sec"},
		{Date: 2, CommitID: "base", Value: 500, Unit: "iter/sec"},
		{Date: 3, CommitID: "head", Value: 200, Unit: "iter/sec"},
	}

	in, ok := Compare("t", points, Options{})
	require.True(t, ok)

	assert.Equal(t, "base", in.BaseCommit)
	assert.Equal(t, "head", in.HeadCommit)
	assert.Equal(t, 1, in.BaseSamples)
	assert.Equal(t, 1, in.HeadSamples)
	assert.Equal(t, 500.0, in.BaseCenter)
	assert.Equal(t, 200.0, in.HeadCenter)
	assert.InDelta(t, -60.0, in.DeltaPct, 0.001)
	assert.InDelta(t, 2.5, in.Ratio, 0.001)
	assert.True(t, in.Regression)

	// a single run per commit can never be significant
	assert.False(t, in.Significant)

	in, ok = Compare("t", points, Options{RequireSignificance: true})
	require.True(t, ok)
	assert.False(t, in.Regression)
}

func TestCompareLatencyImprovement(t *testing.T) {
	points := []trends.Point{
		{Date: 1, CommitID: "base", Value: 100, Unit: "ns/op"},
		{Date: 2, CommitID: "head", Value: 40, Unit: "ns/op"},
	}

	in, ok := Compare("t", points, Options{})
	require.True(t, ok)
	assert.InDelta(t, 0.4, in.Ratio, 0.001)
	assert.False(t, in.Regression)
}

func TestCompareUsesRerunsAsSamples(t *testing.T) {
	points := []trends.Point{
		{Date: 1, CommitID: "base", Value: 1, Unit: "ns/op"},
		{Date: 2, CommitID: "base", Value: 2, Unit: "ns/op"},
		{Date: 3, CommitID: "base", Value: 3, Unit: "ns/op"},
		{Date: 4, CommitID: "head", Value: 9, Unit: "ns/op"},
		{Date: 5, CommitID: "head", Value: 10, Unit: "ns/op"},
		{Date: 6, CommitID: "head", Value: 11, Unit: "ns/op"},
	}

	in, ok := Compare("t", points, Options{AlertRatio: 3})
	require.True(t, ok)
	assert.Equal(t, 3, in.BaseSamples)
	assert.Equal(t, 3, in.HeadSamples)
	assert.Equal(t, 2.0, in.BaseCenter)
	assert.Equal(t, 10.0, in.HeadCenter)
	assert.InDelta(t, 5.0, in.Ratio, 0.001)
	assert.True(t, in.Regression)
}

func TestCompareZeroBase(t *testing.T) {
	points := []trends.Point{
		{Date: 1, CommitID: "base", Value: 0, Unit: "ns/op"},
		{Date: 2, CommitID: "head", Value: 5, Unit: "ns/op"},
	}

	in, ok := Compare("t", points, Options{})
	require.True(t, ok)
	assert.Equal(t, 0.0, in.Ratio)
	assert.Equal(t, 0.0, in.DeltaPct)
	assert.False(t, in.Regression)
}

func TestCompareAllAndRegressions(t *testing.T) {
	tr := trends.Trends{
		"slow": {
			{Date: 1, CommitID: "a", Value: 100, Unit: "iter/sec"},
			{Date: 2, CommitID: "b", Value: 10, Unit: "iter/sec"},
		},
		"fine": {
			{Date: 1, CommitID: "a", Value: 100, Unit: "iter/sec"},
			{Date: 2, CommitID: "b", Value: 101, Unit: "iter/sec"},
		},
		"single": {
			{Date: 2, CommitID: "b", Value: 1, Unit: "iter/sec"},
		},
	}

	all := CompareAll(tr, Options{})
	require.Len(t, all, 2)
	assert.Equal(t, "fine", all[0].Metric)
	assert.Equal(t, "slow", all[1].Metric)

	flagged := Regressions(all)
	require.Len(t, flagged, 1)
	assert.Equal(t, "slow", flagged[0].Metric)
}
