package trends

// UnitChange marks the point at which a metric's unit differs from the one
// before it.
type UnitChange struct {
	Index    int
	From, To string
	CommitID string
}

// UnitChanges lists every unit switch within points. Units are never
// converted; callers that plot values should check this first.
func UnitChanges(points []Point) []UnitChange {
	var changes []UnitChange
	for i := 1; i < len(points); i++ {
		if points[i].Unit != points[i-1].Unit {
			changes = append(changes, UnitChange{
				Index:    i,
				From:     points[i-1].Unit,
				To:       points[i].Unit,
				CommitID: points[i].CommitID,
			})
		}
	}

	return changes
}

// StableUnit returns the unit shared by all points. ok is false when the unit
// changes somewhere along the series or there are no points.
func StableUnit(points []Point) (unit string, ok bool) {
	if len(points) == 0 {
		return "", false
	}

	if len(UnitChanges(points)) > 0 {
		return "", false
	}

	return points[0].Unit, true
}
