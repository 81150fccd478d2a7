// package trends derives per-metric time series from benchmark snapshots.
package trends

import (
	"sort"

	"github.com/open-sauced/benchtrend/pkg/history"
)

// Point is one measurement of a metric, positioned by its capture date.
type Point struct {
	Date     int64   `json:"date"`
	Value    float64 `json:"value"`
	CommitID string  `json:"commitId"`
	Unit     string  `json:"unit"`
	Range    string  `json:"range,omitempty"`
	Extra    string  `json:"extra,omitempty"`
}

// Trends maps a metric name to its chronologically ordered points.
type Trends map[string][]Point

// Extract turns the snapshots of one series into trends.
//
// Snapshots are ordered by capture date with a stable sort, so records that
// share a date keep their input order. Points are never de-duplicated: a
// commit benchmarked twice yields two points. A metric missing from some
// snapshots simply has fewer points.
func Extract(snapshots []history.SnapshotRecord) Trends {
	order := make([]int, len(snapshots))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		return snapshots[order[i]].Date < snapshots[order[j]].Date
	})

	out := make(Trends)
	for _, idx := range order {
		snap := snapshots[idx]
		for _, m := range snap.Benches {
			out[m.Name] = append(out[m.Name], Point{
				Date:     snap.Date,
				Value:    m.Value,
				CommitID: snap.Commit.ID,
				Unit:     m.Unit,
				Range:    m.Range,
				Extra:    m.Extra,
			})
		}
	}

	return out
}

// ExtractAll extracts the trends of every series in the store, keyed by
// series name.
func ExtractAll(store *history.Store) map[string]Trends {
	out := make(map[string]Trends)
	for _, series := range store.SeriesNames() {
		out[series] = Extract(store.Snapshots(series))
	}

	return out
}

// Names returns the metric names, sorted.
func (t Trends) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Len returns the number of points of a metric.
func (t Trends) Len(name string) int {
	return len(t[name])
}

// DedupeByCommit applies DedupeByCommit to every metric and returns new
// trends. The receiver is left untouched.
func (t Trends) DedupeByCommit(policy Policy) Trends {
	out := make(Trends, len(t))
	for name, points := range t {
		out[name] = DedupeByCommit(points, policy)
	}

	return out
}
