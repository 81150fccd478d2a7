package trends

import (
	"fmt"
	"sort"
	"strings"
)

// Policy selects which point survives when a commit was measured more than
// once.
type Policy int

const (
	// KeepLatestByDate keeps the most recent measurement of each commit. On
	// equal dates the point that comes later in the series wins.
	KeepLatestByDate Policy = iota

	// KeepEarliestByDate keeps the first measurement of each commit. On equal
	// dates the point that comes first in the series wins.
	KeepEarliestByDate
)

func (p Policy) String() string {
	switch p {
	case KeepLatestByDate:
		return "latest"
	case KeepEarliestByDate:
		return "earliest"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "latest" and "earliest" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latest":
		return KeepLatestByDate, nil
	case "earliest":
		return KeepEarliestByDate, nil
	default:
		return 0, fmt.Errorf("unknown dedupe policy: %s", s)
	}
}

// DedupeByCommit keeps one point per commit id according to policy. The
// result is ordered by date (ties in input order) and applying it again
// yields the same points.
func DedupeByCommit(points []Point, policy Policy) []Point {
	chosen := make(map[string]int, len(points))
	for i, p := range points {
		j, ok := chosen[p.CommitID]
		if !ok {
			chosen[p.CommitID] = i
			continue
		}

		prev := points[j]
		switch policy {
		case KeepEarliestByDate:
			if p.Date < prev.Date {
				chosen[p.CommitID] = i
			}
		default:
			if p.Date >= prev.Date {
				chosen[p.CommitID] = i
			}
		}
	}

	keep := make([]int, 0, len(chosen))
	for _, i := range chosen {
		keep = append(keep, i)
	}
	sort.Ints(keep)

	out := make([]Point, 0, len(keep))
	for _, i := range keep {
		out = append(out, points[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})

	return out
}
