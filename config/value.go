// Copyright (c) 2017 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// A ValueType is a type-description of a configuration value
type ValueType int

const (
	// Invalid represents an unset or invalid config type
	Invalid ValueType = iota
	// String holds text
	String
	// Integer holds numbers without decimals
	Integer
	// Bool holds true or false
	Bool
	// Float holds numbers with decimals
	Float
	// Slice holds a list of values
	Slice
	// Dictionary holds nested keys
	Dictionary
)

func (t ValueType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Bool:
		return "bool"
	case Float:
		return "float"
	case Slice:
		return "slice"
	case Dictionary:
		return "dictionary"
	default:
		return "invalid"
	}
}

// GetType returns the ValueType of the provided object
func GetType(value interface{}) ValueType {
	if value == nil {
		return Invalid
	}

	switch value.(type) {
	case string:
		return String
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer
	case bool:
		return Bool
	case float64, float32:
		return Float
	default:
		switch reflect.TypeOf(value).Kind() {
		case reflect.Slice, reflect.Array:
			return Slice
		case reflect.Map:
			return Dictionary
		}
	}

	return Invalid
}

// A Value holds the value of a configuration
type Value struct {
	provider Provider
	key      string
	value    interface{}
	found    bool
	Type     ValueType
}

// NewValue creates a configuration value from a provider and a set
// of parameters describing the key
func NewValue(provider Provider, key string, value interface{}, found bool) Value {
	return Value{
		provider: provider,
		key:      key,
		value:    value,
		found:    found,
		Type:     GetType(value),
	}
}

// Source returns a configuration provider's name
func (cv Value) Source() string {
	if cv.provider == nil {
		return ""
	}
	return cv.provider.Name()
}

// Key returns the key the value was looked up with
func (cv Value) Key() string {
	return cv.key
}

// HasValue reports whether the key was found
func (cv Value) HasValue() bool {
	return cv.found
}

// Value returns the underlying value
func (cv Value) Value() interface{} {
	return cv.value
}

// String prints out the underlying value with fmt.Sprint.
func (cv Value) String() string {
	return fmt.Sprint(cv.value)
}

// TryAsString attempts to return the configuration value as a string.
// Dictionaries and slices have no string form.
func (cv Value) TryAsString() (string, bool) {
	if !cv.found || cv.value == nil {
		return "", false
	}
	switch cv.Type {
	case Slice, Dictionary, Invalid:
		return "", false
	}
	return fmt.Sprint(cv.value), true
}

// AsString returns the configuration value as a string, or an empty string
func (cv Value) AsString() string {
	s, _ := cv.TryAsString()
	return s
}

// TryAsInt attempts to return the configuration value as an int
func (cv Value) TryAsInt() (int, bool) {
	switch v := cv.value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		return i, err == nil
	}
	return 0, false
}

// TryAsBool attempts to return the configuration value as a bool
func (cv Value) TryAsBool() (bool, bool) {
	switch v := cv.value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

// TryAsFloat attempts to return the configuration value as a float64
func (cv Value) TryAsFloat() (float64, bool) {
	switch v := cv.value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// ChildKeys returns the sorted keys of a dictionary value
func (cv Value) ChildKeys() []string {
	m, ok := cv.value.(map[interface{}]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, fmt.Sprint(k))
	}
	sort.Strings(keys)
	return keys
}
