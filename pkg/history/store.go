package history

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// dataJSPrefix is the assignment benchmark dashboards expect at the top of a
// data.js file.
const dataJSPrefix = "window.BENCHMARK_DATA = "

// Store is a loaded, read-only benchmark history. It is safe for concurrent
// use since nothing mutates it after Load or NewStore returns.
type Store struct {
	feed Feed
}

// NewStore builds a Store from an already assembled feed. The feed is copied
// so later changes by the caller do not leak into the store.
func NewStore(feed Feed) *Store {
	entries := make(map[string][]SnapshotRecord, len(feed.Entries))
	for name, records := range feed.Entries {
		entries[name] = cloneRecords(records)
	}

	feed.Entries = entries
	feed.Unknown = feed.Unknown.clone()

	return &Store{feed: feed}
}

// SeriesNames returns the distinct series identifiers found under "entries",
// sorted.
func (s *Store) SeriesNames() []string {
	names := make([]string, 0, len(s.feed.Entries))
	for name := range s.feed.Entries {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Snapshots returns all records of a series in input order. The result is a
// copy. Unknown series yield nil.
func (s *Store) Snapshots(series string) []SnapshotRecord {
	records, ok := s.feed.Entries[series]
	if !ok {
		return nil
	}

	return cloneRecords(records)
}

// HasSeries reports whether the series exists, even if it has no records.
func (s *Store) HasSeries(series string) bool {
	_, ok := s.feed.Entries[series]
	return ok
}

func (s *Store) LastUpdate() int64 {
	return s.feed.LastUpdate
}

func (s *Store) RepoURL() string {
	return s.feed.RepoURL
}

// Feed returns a deep copy of the underlying feed.
func (s *Store) Feed() Feed {
	return NewStore(s.feed).feed
}

// MarshalJSON serializes the store back into the feed shape it was loaded
// from, unknown keys included.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.feed)
}

// WriteDataJS writes the store as a data.js file consumable by benchmark
// dashboards.
func (s *Store) WriteDataJS(w io.Writer) error {
	b, err := json.MarshalIndent(s.feed, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal benchmark feed: %w", err)
	}

	if _, err := io.WriteString(w, dataJSPrefix); err != nil {
		return err
	}

	if _, err := w.Write(b); err != nil {
		return err
	}

	_, err = io.WriteString(w, "\n")
	return err
}

func sortWarnings(warnings []RecordWarning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Series != b.Series {
			return a.Series < b.Series
		}
		if a.Record != b.Record {
			return a.Record < b.Record
		}
		return a.Measurement < b.Measurement
	})
}
