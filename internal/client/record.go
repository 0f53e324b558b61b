// Package client models the loosely typed wireless client records returned by
// the polled endpoint and the pure rules that derive identity and signal
// readings from them.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Field names recognized on a client object.
const (
	FieldID         = "id"
	FieldMAC        = "mac"
	FieldMACAddress = "macAddress"
	FieldName       = "name"
	FieldHostname   = "hostname"
	FieldDevice     = "device"
	FieldSignal     = "signal"
	FieldRSSI       = "rssi"
	FieldSignalDBm  = "signalDbm"
)

// Record is one untrusted client entry. Every field is optional; a Record
// built from a non-object list item has no fields at all.
type Record struct {
	fields map[string]any
}

func NewRecord(fields map[string]any) Record {
	return Record{fields: fields}
}

// Lookup returns the field value when it is present and not null.
func (r Record) Lookup(name string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	value, ok := r.fields[name]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// DecodePayload parses a response body. Numbers stay json.Number so that
// numeric identifiers keep their exact text.
func DecodePayload(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode payload: unexpected data after top-level value")
	}
	return payload, nil
}

// Normalize accepts either a bare list or an object holding a "clients"
// list. Any other shape yields an empty list.
func Normalize(payload any) []Record {
	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["clients"].([]any)
		if !ok {
			return []Record{}
		}
		items = list
	default:
		return []Record{}
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		obj, _ := item.(map[string]any)
		records = append(records, Record{fields: obj})
	}
	return records
}

// Parse decodes and normalizes a response body in one step. A decode error
// means the whole tick is abandoned.
func Parse(body []byte) ([]Record, error) {
	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	return Normalize(payload), nil
}
