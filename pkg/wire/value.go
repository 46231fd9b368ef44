// Package wire converts the document store's typed wire format into plain
// Go values and back. The store disambiguates value types with single-key
// envelopes ({"stringValue": ...}, {"integerValue": ...}, etc.); decoding
// dispatches on the envelope key, encoding is the structural inverse.
package wire

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Kind identifies which variant of a Value is set.
type Kind int

const (
	// KindNull is the sentinel for missing or unrecognized envelopes.
	KindNull Kind = iota
	KindString
	KindInteger
	KindDouble
	KindBool
	KindTimestamp
	KindArray
	KindMap
)

// String returns the kind name for logging and test output.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the tagged union decoded from a wire envelope. Exactly one
// variant field is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Str  string
	Int  int64
	Dbl  float64
	Bool bool
	Time time.Time
	Arr  []Value
	Map  []Field
}

// Field is one entry of a map value. Fields keep the key order as received
// from the wire; duplicate keys collapse with last write wins.
type Field struct {
	Key   string
	Value Value
}

// Constructors for each variant.

func Null() Value                 { return Value{Kind: KindNull} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Integer(i int64) Value       { return Value{Kind: KindInteger, Int: i} }
func Double(f float64) Value      { return Value{Kind: KindDouble, Dbl: f} }
func Boolean(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t} }
func Array(vs ...Value) Value     { return Value{Kind: KindArray, Arr: vs} }
func Map(fs ...Field) Value       { return Value{Kind: KindMap, Map: fs} }

// IsNull reports whether the value is the null sentinel.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Get returns the map entry for key. The second return is false when the
// value is not a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Null(), false
	}
	for _, f := range v.Map {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Equal reports semantic equality. Timestamps compare with time.Equal,
// map fields compare irrespective of key order.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == o.Str
	case KindInteger:
		return v.Int == o.Int
	case KindDouble:
		return v.Dbl == o.Dbl
	case KindBool:
		return v.Bool == o.Bool
	case KindTimestamp:
		return v.Time.Equal(o.Time)
	case KindArray:
		if len(v.Arr) != len(o.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(o.Arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for _, f := range v.Map {
			ov, ok := o.Get(f.Key)
			if !ok || !f.Value.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Plain converts the value to plain Go types (string, int64, float64, bool,
// time.Time, []any, map[string]any, nil) for JSON serialization.
func (v Value) Plain() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInteger:
		return v.Int
	case KindDouble:
		return v.Dbl
	case KindBool:
		return v.Bool
	case KindTimestamp:
		return v.Time
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.Plain()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for _, f := range v.Map {
			out[f.Key] = f.Value.Plain()
		}
		return out
	default:
		return nil
	}
}

// DecodeValue decodes a single wire envelope. Unrecognized or malformed
// envelopes decode to the null sentinel, never an error; the proxy must
// stay resilient to schema evolution upstream.
func DecodeValue(data []byte) Value {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return Null()
	}
	return decodeEnvelope(env)
}

// decodeEnvelope dispatches on the typed key. The wire contract says exactly
// one key is set; when a malformed envelope carries several, the check order
// below keeps the result deterministic.
func decodeEnvelope(env map[string]json.RawMessage) Value {
	if raw, ok := env["stringValue"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return String(s)
		}
		return Null()
	}
	if raw, ok := env["integerValue"]; ok {
		return decodeInteger(raw)
	}
	if raw, ok := env["doubleValue"]; ok {
		var f float64
		if json.Unmarshal(raw, &f) == nil {
			return Double(f)
		}
		return Null()
	}
	if raw, ok := env["booleanValue"]; ok {
		var b bool
		if json.Unmarshal(raw, &b) == nil {
			return Boolean(b)
		}
		return Null()
	}
	if raw, ok := env["timestampValue"]; ok {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return Null()
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Null()
		}
		return Timestamp(t)
	}
	if _, ok := env["nullValue"]; ok {
		return Null()
	}
	if raw, ok := env["arrayValue"]; ok {
		var arr struct {
			Values []json.RawMessage `json:"values"`
		}
		if json.Unmarshal(raw, &arr) != nil {
			return Null()
		}
		vs := make([]Value, len(arr.Values))
		for i, rv := range arr.Values {
			vs[i] = DecodeValue(rv)
		}
		return Array(vs...)
	}
	if raw, ok := env["mapValue"]; ok {
		var mv struct {
			Fields json.RawMessage `json:"fields"`
		}
		if json.Unmarshal(raw, &mv) != nil {
			return Null()
		}
		return Map(DecodeFields(mv.Fields)...)
	}
	return Null()
}

// decodeInteger parses the decimal-string integer envelope. Parsing as an
// integer, not a float, avoids precision loss above 2^53. Bare JSON numbers
// are tolerated for older store versions.
func decodeInteger(raw json.RawMessage) Value {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null()
		}
		return Integer(i)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return Integer(i)
		}
	}
	return Null()
}

// DecodeFields decodes a wire fields object ({key: envelope, ...}) into an
// ordered field list. Key order is preserved as received; a duplicate key
// overwrites the earlier entry in place.
func DecodeFields(data []byte) []Field {
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fields
		}
		key, ok := keyTok.(string)
		if !ok {
			return fields
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fields
		}
		v := DecodeValue(raw)
		replaced := false
		for i := range fields {
			if fields[i].Key == key {
				fields[i].Value = v
				replaced = true
				break
			}
		}
		if !replaced {
			fields = append(fields, Field{Key: key, Value: v})
		}
	}
	return fields
}

// EncodeValue encodes a value as its wire envelope. Integers encode as
// decimal strings, timestamps as RFC 3339 UTC.
func EncodeValue(v Value) map[string]any {
	switch v.Kind {
	case KindString:
		return map[string]any{"stringValue": v.Str}
	case KindInteger:
		return map[string]any{"integerValue": strconv.FormatInt(v.Int, 10)}
	case KindDouble:
		return map[string]any{"doubleValue": v.Dbl}
	case KindBool:
		return map[string]any{"booleanValue": v.Bool}
	case KindTimestamp:
		return map[string]any{"timestampValue": v.Time.UTC().Format(time.RFC3339Nano)}
	case KindArray:
		values := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			values[i] = EncodeValue(e)
		}
		return map[string]any{"arrayValue": map[string]any{"values": values}}
	case KindMap:
		return map[string]any{"mapValue": map[string]any{"fields": EncodeFields(v.Map)}}
	default:
		return map[string]any{"nullValue": nil}
	}
}

// EncodeFields encodes an ordered field list as a wire fields object.
// JSON objects carry no order, so the receiving side sees its own order.
func EncodeFields(fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Key] = EncodeValue(f.Value)
	}
	return out
}
