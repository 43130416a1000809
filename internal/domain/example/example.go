// Package example holds the curated few-shot records used to steer the language model.
package example

import (
	"encoding/json"
	"fmt"
)

// Record is one curated example. The original JSON object is kept verbatim so
// prompts reproduce it with its key order intact.
type Record struct {
	query string
	raw   json.RawMessage
}

// New creates a record from its query and original JSON object.
func New(query string, raw json.RawMessage) Record {
	return Record{query: query, raw: raw}
}

// Query returns the example user query, the text that is embedded.
func (r Record) Query() string { return r.query }

// Raw returns the original JSON object.
func (r Record) Raw() json.RawMessage { return r.raw }

// Hit is a record returned by a similarity search.
type Hit struct {
	Record   Record
	Score    float32
	Position int // index position; ties are broken by it
}

// ParseRecords decodes a JSON array of example objects. Every object needs a
// non-empty string "query"; the rest of its shape is free.
func ParseRecords(data []byte) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode example array: %w", err)
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		var head struct {
			Query *string `json:"query"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		if head.Query == nil || *head.Query == "" {
			return nil, fmt.Errorf("example %d: missing query", i)
		}
		records = append(records, New(*head.Query, item))
	}
	return records, nil
}

// Records extracts the records of hits, preserving order.
func Records(hits []Hit) []Record {
	out := make([]Record, len(hits))
	for i, h := range hits {
		out[i] = h.Record
	}
	return out
}
