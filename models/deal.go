package models

import (
	"bytes"
	"encoding/json"
)

// DealFields is an insertion-ordered set of CRM deal fields. Setting an
// existing key replaces its value in place.
type DealFields struct {
	keys   []string
	values map[string]interface{}
}

func NewDealFields() DealFields {
	return DealFields{values: make(map[string]interface{})}
}

func (d *DealFields) Set(key string, value interface{}) {
	if d.values == nil {
		d.values = make(map[string]interface{})
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// SetIf sets key only when value is a non-empty string.
func (d *DealFields) SetIf(key, value string) {
	if value != "" {
		d.Set(key, value)
	}
}

func (d DealFields) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// String returns the value of key when it is a string.
func (d DealFields) String(key string) string {
	s, _ := d.values[key].(string)
	return s
}

// Int returns the value of key when it is an int.
func (d DealFields) Int(key string) int {
	n, _ := d.values[key].(int)
	return n
}

func (d DealFields) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

func (d DealFields) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d DealFields) Len() int {
	return len(d.keys)
}

func (d DealFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
