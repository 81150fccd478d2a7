package history

import (
	"encoding/json"
	"errors"
)

// UnmarshalJSON decodes a person leniently. Fields of the wrong type are kept
// as unknown rather than rejected.
func (p *Person) UnmarshalJSON(raw []byte) error {
	o, ok := decodeObject(raw)
	if !ok {
		return errors.New("person is not an object")
	}

	var out Person
	o.takeString("name", &out.Name)
	o.takeString("username", &out.Username)
	o.takeString("email", &out.Email)
	out.Unknown = o.rest()

	*p = out
	return nil
}

func (p Person) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if p.Name != "" {
		known["name"] = p.Name
	}
	if p.Username != "" {
		known["username"] = p.Username
	}
	if p.Email != "" {
		known["email"] = p.Email
	}

	return encodeObject(known, p.Unknown)
}

// UnmarshalJSON decodes a commit leniently, see Person.UnmarshalJSON.
func (c *Commit) UnmarshalJSON(raw []byte) error {
	o, ok := decodeObject(raw)
	if !ok {
		return errors.New("commit is not an object")
	}

	var out Commit
	o.takeString("id", &out.ID)
	o.takeString("message", &out.Message)
	o.takeString("timestamp", &out.Timestamp)
	o.takeString("url", &out.URL)

	for key, dst := range map[string]*Person{"author": &out.Author, "committer": &out.Committer} {
		v, ok := o[key]
		if !ok {
			continue
		}
		if isNull(v) {
			delete(o, key)
			continue
		}
		if err := json.Unmarshal(v, dst); err == nil {
			delete(o, key)
		}
	}

	out.Unknown = o.rest()

	*c = out
	return nil
}

func (c Commit) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if c.ID != "" {
		known["id"] = c.ID
	}
	if c.Message != "" {
		known["message"] = c.Message
	}
	if c.Timestamp != "" {
		known["timestamp"] = c.Timestamp
	}
	if c.URL != "" {
		known["url"] = c.URL
	}
	if !c.Author.isZero() {
		known["author"] = c.Author
	}
	if !c.Committer.isZero() {
		known["committer"] = c.Committer
	}

	return encodeObject(known, c.Unknown)
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"name":  m.Name,
		"value": m.Value,
	}
	if m.Unit != "" {
		known["unit"] = m.Unit
	}
	if m.Range != "" {
		known["range"] = m.Range
	}
	if m.Extra != "" {
		known["extra"] = m.Extra
	}

	return encodeObject(known, m.Unknown)
}

func (s SnapshotRecord) MarshalJSON() ([]byte, error) {
	benches := s.Benches
	if benches == nil {
		benches = []Measurement{}
	}

	known := map[string]any{
		"date":    s.Date,
		"benches": benches,
	}

	// an unreadable commit was kept verbatim in Unknown
	if _, raw := s.Unknown["commit"]; !raw || !s.Commit.isZero() {
		known["commit"] = s.Commit
	}
	if s.Tool != "" {
		known["tool"] = s.Tool
	}

	return encodeObject(known, s.Unknown)
}

func (f Feed) MarshalJSON() ([]byte, error) {
	entries := f.Entries
	if entries == nil {
		entries = map[string][]SnapshotRecord{}
	}

	normalized := make(map[string][]SnapshotRecord, len(entries))
	for name, records := range entries {
		if records == nil {
			records = []SnapshotRecord{}
		}
		normalized[name] = records
	}

	known := map[string]any{
		"lastUpdate": f.LastUpdate,
		"entries":    normalized,
	}
	if f.RepoURL != "" {
		known["repoUrl"] = f.RepoURL
	}

	return encodeObject(known, f.Unknown)
}
