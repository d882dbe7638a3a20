package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope status values.
const (
	StatusOK     = "1"
	StatusFailed = "0"
)

// Record is one result object. Its fields are whatever the explorer sends;
// numbers are kept as json.Number so they are written back unchanged.
type Record map[string]any

// Envelope is the {status, message, result} wrapper of every response.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// OK reports whether the explorer marked the call as successful.
func (e *Envelope) OK() bool {
	return e != nil && e.Status == StatusOK
}

// Decode unmarshals the result into v, keeping numbers as json.Number.
func (e *Envelope) Decode(v any) error {
	if len(e.Result) == 0 {
		return fmt.Errorf("empty result")
	}
	dec := json.NewDecoder(bytes.NewReader(e.Result))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Records decodes a list result. A missing or null result yields no records.
func (e *Envelope) Records() ([]Record, error) {
	if e.emptyValue() {
		return nil, nil
	}
	var records []Record
	if err := e.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// Record decodes a single-object result.
func (e *Envelope) Record() (Record, error) {
	if e.emptyValue() {
		return nil, nil
	}
	var rec Record
	if err := e.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Value decodes the result into a generic value.
func (e *Envelope) Value() (any, error) {
	if e.emptyValue() {
		return nil, nil
	}
	var v any
	if err := e.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Text returns the result when it is a JSON string or a bare number.
func (e *Envelope) Text() (string, error) {
	v, err := e.Value()
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("result is %T, not a string", v)
	}
}

// IsEmptyList reports whether the result is an empty list or absent, the
// shape explorers use for "nothing found".
func (e *Envelope) IsEmptyList() bool {
	if e.emptyValue() {
		return true
	}
	compact := bytes.Join(bytes.Fields(e.Result), nil)
	return bytes.Equal(compact, []byte("[]"))
}

func (e *Envelope) emptyValue() bool {
	trimmed := bytes.TrimSpace(e.Result)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
