package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode reads a whole feed from r and loads it, see Load.
func Decode(r io.Reader) (*Store, []RecordWarning, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read benchmark feed: %w", err)
	}

	return Load(raw)
}

// Load parses a benchmark feed. raw is either plain JSON or the contents of
// a "data.js" file, in which case the leading variable assignment and the
// trailing semicolon are stripped.
//
// A *FormatError is returned when the document itself is unusable. Malformed
// individual records and measurements are skipped and reported through the
// returned warnings so one bad run never blanks the whole history.
func Load(raw []byte) (*Store, []RecordWarning, error) {
	doc := stripAssignment(raw)

	if !json.Valid(doc) {
		return nil, nil, &FormatError{Reason: "document is not valid JSON"}
	}

	top, ok := decodeObject(doc)
	if !ok {
		return nil, nil, &FormatError{Reason: "document is not a JSON object"}
	}

	entriesRaw, ok := top.take("entries")
	if !ok {
		return nil, nil, &FormatError{Path: "entries", Reason: "required key is missing"}
	}

	entries, ok := decodeObject(entriesRaw)
	if !ok {
		return nil, nil, &FormatError{Path: "entries", Reason: "expected an object of series"}
	}

	feed := Feed{Entries: make(map[string][]SnapshotRecord, len(entries))}

	if v, ok := top.take("lastUpdate"); ok {
		n, ok := number(v)
		if !ok {
			return nil, nil, &FormatError{Path: "lastUpdate", Reason: "expected a number"}
		}
		lastUpdate, err := epochMillis(n)
		if err != nil {
			return nil, nil, &FormatError{Path: "lastUpdate", Reason: "expected epoch milliseconds", Err: err}
		}
		feed.LastUpdate = lastUpdate
	}

	top.takeString("repoUrl", &feed.RepoURL)
	feed.Unknown = top.rest()

	var warnings []RecordWarning

	for series, seriesRaw := range entries {
		if !isKind(seriesRaw, '[') {
			return nil, nil, &FormatError{Path: "entries." + series, Reason: "expected an array of snapshot records"}
		}

		var items []json.RawMessage
		if err := json.Unmarshal(seriesRaw, &items); err != nil {
			return nil, nil, &FormatError{Path: "entries." + series, Reason: "expected an array of snapshot records", Err: err}
		}

		records := make([]SnapshotRecord, 0, len(items))
		for i, item := range items {
			rec, recWarnings, ok := parseRecord(series, i, item)
			warnings = append(warnings, recWarnings...)
			if ok {
				records = append(records, rec)
			}
		}

		feed.Entries[series] = records
	}

	sortWarnings(warnings)

	return &Store{feed: feed}, warnings, nil
}

// DecodeRecord parses a single snapshot record, such as one previously
// written with SnapshotRecord.MarshalJSON. A record that Load would skip is an
// error; measurement level warnings are returned alongside the record.
func DecodeRecord(raw []byte) (SnapshotRecord, []RecordWarning, error) {
	rec, warnings, ok := parseRecord("", 0, raw)
	if !ok {
		return SnapshotRecord{}, nil, &FormatError{Path: "record", Reason: warnings[0].Reason}
	}

	return rec, warnings, nil
}

func parseRecord(series string, index int, raw json.RawMessage) (SnapshotRecord, []RecordWarning, bool) {
	warn := func(measurement int, commitID, reason string) RecordWarning {
		return RecordWarning{
			Series:      series,
			Record:      index,
			Measurement: measurement,
			CommitID:    commitID,
			Reason:      reason,
		}
	}

	o, ok := decodeObject(raw)
	if !ok {
		return SnapshotRecord{}, []RecordWarning{warn(-1, "", "record is not an object")}, false
	}

	var rec SnapshotRecord

	if v, ok := o.take("commit"); ok {
		if err := json.Unmarshal(v, &rec.Commit); err != nil {
			// keep the unreadable commit verbatim
			o["commit"] = v
		}
	}

	dateRaw, ok := o.take("date")
	if !ok {
		return SnapshotRecord{}, []RecordWarning{warn(-1, rec.Commit.ID, "missing date")}, false
	}

	n, ok := number(dateRaw)
	if !ok {
		return SnapshotRecord{}, []RecordWarning{warn(-1, rec.Commit.ID, "date is not a number")}, false
	}

	date, err := epochMillis(n)
	if err != nil {
		return SnapshotRecord{}, []RecordWarning{warn(-1, rec.Commit.ID, "date is not epoch milliseconds")}, false
	}
	rec.Date = date

	benchesRaw, ok := o.take("benches")
	if !ok {
		return SnapshotRecord{}, []RecordWarning{warn(-1, rec.Commit.ID, "missing benches")}, false
	}

	var items []json.RawMessage
	if !isKind(benchesRaw, '[') || json.Unmarshal(benchesRaw, &items) != nil {
		return SnapshotRecord{}, []RecordWarning{warn(-1, rec.Commit.ID, "benches is not an array")}, false
	}

	var warnings []RecordWarning
	seen := make(map[string]bool, len(items))

	rec.Benches = make([]Measurement, 0, len(items))
	for i, item := range items {
		m, reason := parseMeasurement(item)
		if reason != "" {
			warnings = append(warnings, warn(i, rec.Commit.ID, reason))
			continue
		}

		if seen[m.Name] {
			warnings = append(warnings, warn(i, rec.Commit.ID, fmt.Sprintf("duplicate measurement name %q", m.Name)))
			continue
		}

		seen[m.Name] = true
		rec.Benches = append(rec.Benches, m)
	}

	o.takeString("tool", &rec.Tool)
	rec.Unknown = o.rest()

	return rec, warnings, true
}

// parseMeasurement returns a non-empty reason when the measurement must be
// skipped.
func parseMeasurement(raw json.RawMessage) (Measurement, string) {
	o, ok := decodeObject(raw)
	if !ok {
		return Measurement{}, "measurement is not an object"
	}

	var m Measurement

	nameRaw, ok := o.take("name")
	if !ok {
		return Measurement{}, "missing measurement name"
	}
	if err := json.Unmarshal(nameRaw, &m.Name); err != nil {
		return Measurement{}, "measurement name is not a string"
	}

	valueRaw, ok := o.take("value")
	if !ok {
		return Measurement{}, "missing measurement value"
	}

	n, ok := number(valueRaw)
	if !ok {
		return Measurement{}, "measurement value is not a number"
	}

	v, err := n.Float64()
	if err != nil {
		return Measurement{}, "measurement value is out of range"
	}
	m.Value = v

	o.takeString("unit", &m.Unit)
	o.takeString("range", &m.Range)
	o.takeString("extra", &m.Extra)
	m.Unknown = o.rest()

	return m, ""
}

func epochMillis(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}

	f, err := n.Float64()
	if err != nil {
		return 0, err
	}

	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s overflows int64", n)
	}

	return int64(f), nil
}

// stripAssignment turns `window.BENCHMARK_DATA = {...};` into `{...}`.
func stripAssignment(raw []byte) []byte {
	doc := bytes.TrimSpace(bytes.TrimPrefix(raw, utf8BOM))

	if len(doc) > 0 && doc[0] != '{' {
		if i := bytes.IndexByte(doc, '='); i >= 0 {
			doc = bytes.TrimSpace(doc[i+1:])
		}
	}

	return bytes.TrimSpace(bytes.TrimSuffix(doc, []byte(";")))
}
