// package history provides the data model for benchmark history feeds and
// the loader which turns a raw feed (a "data.js" file or plain JSON) into a
// read-only Store.
//
// A feed has the shape:
//
//	{
//	  "lastUpdate": 1690000000000,
//	  "repoUrl": "https://github.com/user/repo",
//	  "entries": {
//	    "Benchmark": [ <SnapshotRecord>, ... ]
//	  }
//	}
//
// Keys the loader does not know about are kept verbatim and written back out
// when the feed is serialized again.
package history

import "encoding/json"

// Fields holds object keys that were not recognised while decoding, with
// their compacted raw JSON values.
type Fields map[string]json.RawMessage

// Person is a commit author or committer.
type Person struct {
	Name     string
	Username string
	Email    string
	Unknown  Fields
}

// Commit identifies the code state that was benchmarked. ID is the primary
// identity: records sharing an ID describe the same logical commit.
type Commit struct {
	ID        string
	Message   string
	Timestamp string
	URL       string
	Author    Person
	Committer Person
	Unknown   Fields
}

// Measurement is one named metric within a snapshot. Range and Extra are
// opaque annotations passed through untouched.
type Measurement struct {
	Name    string
	Value   float64
	Unit    string
	Range   string
	Extra   string
	Unknown Fields
}

// SnapshotRecord is the result of one CI benchmark run.
type SnapshotRecord struct {
	Commit Commit

	// Date is the capture time of the run in Unix milliseconds. It is
	// distinct from Commit.Timestamp, which is authoring time.
	Date int64

	Tool    string
	Benches []Measurement
	Unknown Fields
}

// Feed is the whole history document.
type Feed struct {
	LastUpdate int64
	RepoURL    string
	Entries    map[string][]SnapshotRecord
	Unknown    Fields
}

// Bench returns the measurement with the given name.
func (s SnapshotRecord) Bench(name string) (Measurement, bool) {
	for _, m := range s.Benches {
		if m.Name == name {
			return m, true
		}
	}

	return Measurement{}, false
}

func (p Person) isZero() bool {
	return p.Name == "" && p.Username == "" && p.Email == "" && len(p.Unknown) == 0
}

func (c Commit) isZero() bool {
	return c.ID == "" && c.Message == "" && c.Timestamp == "" && c.URL == "" &&
		c.Author.isZero() && c.Committer.isZero() && len(c.Unknown) == 0
}

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}

	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}

	return out
}

func (p Person) clone() Person {
	p.Unknown = p.Unknown.clone()
	return p
}

func (c Commit) clone() Commit {
	c.Author = c.Author.clone()
	c.Committer = c.Committer.clone()
	c.Unknown = c.Unknown.clone()
	return c
}

func (m Measurement) clone() Measurement {
	m.Unknown = m.Unknown.clone()
	return m
}

func (s SnapshotRecord) clone() SnapshotRecord {
	s.Commit = s.Commit.clone()
	s.Unknown = s.Unknown.clone()

	benches := make([]Measurement, len(s.Benches))
	for i, m := range s.Benches {
		benches[i] = m.clone()
	}
	s.Benches = benches

	return s
}

func cloneRecords(records []SnapshotRecord) []SnapshotRecord {
	out := make([]SnapshotRecord, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}

	return out
}
