package history

import (
	"bytes"
	"encoding/json"
)

// object is a decoded JSON object whose known keys are consumed one by one.
// Whatever is left afterwards becomes the Unknown passthrough.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (object, bool) {
	if !isKind(raw, '{') {
		return nil, false
	}

	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}

	return o, true
}

// take removes key and returns its value. A JSON null counts as absent.
func (o object) take(key string) (json.RawMessage, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}

	delete(o, key)
	if isNull(v) {
		return nil, false
	}

	return v, true
}

// takeString consumes key into dst only if it holds a string. Values of the
// wrong type stay in the object and are preserved as unknown.
func (o object) takeString(key string, dst *string) {
	v, ok := o[key]
	if !ok {
		return
	}

	if isNull(v) {
		delete(o, key)
		return
	}

	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return
	}

	*dst = s
	delete(o, key)
}

func (o object) rest() Fields {
	if len(o) == 0 {
		return nil
	}

	out := make(Fields, len(o))
	for k, v := range o {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			out[k] = v
			continue
		}
		out[k] = buf.Bytes()
	}

	return out
}

// encodeObject merges known keys over the unknown passthrough and marshals
// the result. Known keys win on collision.
func encodeObject(known map[string]any, unknown Fields) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(known)+len(unknown))
	for k, v := range unknown {
		out[k] = v
	}

	for k, v := range known {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}

	return json.Marshal(out)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isKind(raw json.RawMessage, first byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == first
}

// number reads a JSON number. Strings holding a number are accepted as well.
func number(raw json.RawMessage) (json.Number, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return "", false
	}

	return n, true
}
