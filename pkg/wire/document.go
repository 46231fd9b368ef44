package wire

import (
	"encoding/json"
	"strings"
	"time"
)

// Document is a decoded document-store record.
type Document struct {
	// ID is the last path segment of the store's resource name.
	ID string

	// Collection is the owning collection, derived from the resource name.
	Collection string

	// Fields holds the decoded field values in wire order.
	Fields []Field

	// CreateTime and UpdateTime are the store's document timestamps.
	// Zero when the wire document omits them.
	CreateTime time.Time
	UpdateTime time.Time
}

// wireDocument is the raw JSON shape of a single document resource.
type wireDocument struct {
	Name       string          `json:"name"`
	Fields     json.RawMessage `json:"fields"`
	CreateTime string          `json:"createTime"`
	UpdateTime string          `json:"updateTime"`
}

// DecodeDocument decodes a single wire document. The document identifier and
// collection come from the trailing segments of the fully qualified resource
// name (".../documents/<collection>/<id>").
func DecodeDocument(data []byte) (Document, error) {
	var wd wireDocument
	if err := json.Unmarshal(data, &wd); err != nil {
		return Document{}, err
	}
	doc := Document{Fields: DecodeFields(wd.Fields)}

	segments := strings.Split(strings.Trim(wd.Name, "/"), "/")
	if n := len(segments); n >= 1 && segments[n-1] != "" {
		doc.ID = segments[n-1]
		if n >= 2 {
			doc.Collection = segments[n-2]
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, wd.CreateTime); err == nil {
		doc.CreateTime = t
	}
	if t, err := time.Parse(time.RFC3339Nano, wd.UpdateTime); err == nil {
		doc.UpdateTime = t
	}
	return doc, nil
}

// DecodeDocumentList decodes a collection listing response. The returned
// page token is empty on the last page.
func DecodeDocumentList(data []byte) ([]Document, string, error) {
	var list struct {
		Documents     []json.RawMessage `json:"documents"`
		NextPageToken string            `json:"nextPageToken"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, "", err
	}
	docs := make([]Document, 0, len(list.Documents))
	for _, raw := range list.Documents {
		doc, err := DecodeDocument(raw)
		if err != nil {
			return nil, "", err
		}
		docs = append(docs, doc)
	}
	return docs, list.NextPageToken, nil
}

// Get returns the top-level field value for key.
func (d Document) Get(key string) (Value, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Optional walks a nested field path through map values. A missing segment
// or a non-map intermediate yields (Null, false), never a panic; callers
// read arbitrary optional fields without checking shape first.
func (d Document) Optional(path ...string) (Value, bool) {
	if len(path) == 0 {
		return Null(), false
	}
	cur, ok := d.Get(path[0])
	if !ok {
		return Null(), false
	}
	for _, seg := range path[1:] {
		cur, ok = cur.Get(seg)
		if !ok {
			return Null(), false
		}
	}
	return cur, true
}

// Plain converts the document fields to a plain map for JSON serialization.
func (d Document) Plain() map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Key] = f.Value.Plain()
	}
	return out
}

// EncodeDocument encodes fields as a wire document body for write paths.
func EncodeDocument(fields []Field) map[string]any {
	return map[string]any{"fields": EncodeFields(fields)}
}
