package history

import "fmt"

// FormatError is returned by Load when the document does not have the shape
// of a benchmark feed. It is fatal to the whole load.
type FormatError struct {
	// Path locates the offending value, e.g. "entries" or "entries.Benchmark".
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "malformed benchmark feed"
	if e.Path != "" {
		msg += " at " + e.Path
	}

	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// RecordWarning reports a malformed snapshot record or measurement which was
// skipped. Warnings never abort a load.
type RecordWarning struct {
	Series string

	// Record is the index of the record within its series, as received.
	Record int

	// Measurement is the index within the record's benches, or -1 when the
	// warning concerns the whole record.
	Measurement int

	// CommitID is set when the record carried a readable commit id.
	CommitID string

	Reason string
}

func (w RecordWarning) String() string {
	loc := fmt.Sprintf("%s[%d]", w.Series, w.Record)
	if w.Measurement >= 0 {
		loc += fmt.Sprintf(".benches[%d]", w.Measurement)
	}

	if w.CommitID != "" {
		loc += " (commit " + w.CommitID + ")"
	}

	return loc + ": " + w.Reason
}
