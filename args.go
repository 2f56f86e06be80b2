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

package beans

import (
	"reflect"
	"sort"
)

// ValueHolder carries one configured constructor argument along with
// optional type and name constraints.
type ValueHolder struct {
	Value interface{}

	// Type restricts the holder to parameters of exactly this type.
	Type reflect.Type

	// Name restricts the holder to the parameter with this name.
	Name string

	converted      bool
	convertedValue interface{}
	source         *ValueHolder
}

// PreConverted returns a holder whose value is passed to the executable
// as-is, skipping value resolution and type conversion.
func PreConverted(value interface{}) *ValueHolder {
	return &ValueHolder{Value: value, converted: true, convertedValue: value}
}

func (vh *ValueHolder) copyWithValue(v interface{}) *ValueHolder {
	return &ValueHolder{Value: v, Type: vh.Type, Name: vh.Name, source: vh}
}

// matches reports whether the holder's constraints admit a parameter with
// the given type and name.
func (vh *ValueHolder) matches(t reflect.Type, name string) bool {
	if vh.Type != nil && (t == nil || vh.Type != t) {
		return false
	}
	if vh.Name != "" && name != "" && vh.Name != name {
		return false
	}
	return true
}

// ConstructorArgs is the set of configured constructor arguments: a map of
// positional values and a list of values matched by type or order.
type ConstructorArgs struct {
	indexed map[int]*ValueHolder
	generic []*ValueHolder
}

// NewConstructorArgs returns an empty argument set.
func NewConstructorArgs() *ConstructorArgs {
	return &ConstructorArgs{indexed: make(map[int]*ValueHolder)}
}

// AddIndexed sets the value for the parameter at index.
func (a *ConstructorArgs) AddIndexed(index int, vh *ValueHolder) {
	a.indexed[index] = vh
}

// AddGeneric appends a value matched by type or order.
func (a *ConstructorArgs) AddGeneric(vh *ValueHolder) {
	a.generic = append(a.generic, vh)
}

// Indices returns the configured positional indices in ascending order.
func (a *ConstructorArgs) Indices() []int {
	idx := make([]int, 0, len(a.indexed))
	for i := range a.indexed {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Indexed returns the positional value at index.
func (a *ConstructorArgs) Indexed(index int) (*ValueHolder, bool) {
	vh, ok := a.indexed[index]
	return vh, ok
}

// Generic returns the generic values in declaration order.
func (a *ConstructorArgs) Generic() []*ValueHolder {
	return append([]*ValueHolder(nil), a.generic...)
}

// Count returns the total number of configured values.
func (a *ConstructorArgs) Count() int {
	return len(a.indexed) + len(a.generic)
}

// Empty reports whether no values are configured.
func (a *ConstructorArgs) Empty() bool {
	return a == nil || a.Count() == 0
}

// argumentValue finds the value for parameter index, preferring a positional
// value and falling back to the first unused generic value that fits.
func (a *ConstructorArgs) argumentValue(index int, t reflect.Type, name string, used map[*ValueHolder]bool) *ValueHolder {
	if vh, ok := a.indexed[index]; ok && vh.matches(t, name) {
		return vh
	}
	return a.genericValue(t, name, used)
}

// genericValue returns the first unused generic value compatible with the
// given type and name. A nil type and empty name match any value.
func (a *ConstructorArgs) genericValue(t reflect.Type, name string, used map[*ValueHolder]bool) *ValueHolder {
	for _, vh := range a.generic {
		if used[vh] {
			continue
		}
		if vh.Name != "" && (name == "" || vh.Name != name) {
			continue
		}
		if vh.Type != nil && (t == nil || vh.Type != t) {
			continue
		}
		if t != nil && vh.Type == nil && vh.Name == "" && !isAssignableValue(t, vh.Value) {
			continue
		}
		return vh
	}
	return nil
}

func (a *ConstructorArgs) clone() *ConstructorArgs {
	c := NewConstructorArgs()
	if a == nil {
		return c
	}
	for i, vh := range a.indexed {
		c.indexed[i] = vh
	}
	c.generic = append(c.generic, a.generic...)
	return c
}

// merge applies other on top of a: positional values replace, generic
// values are appended.
func (a *ConstructorArgs) merge(other *ConstructorArgs) {
	if other == nil {
		return
	}
	for i, vh := range other.indexed {
		a.indexed[i] = vh
	}
	a.generic = append(a.generic, other.generic...)
}

// PropertyValue is a named value applied to an exported struct field after
// construction.
type PropertyValue struct {
	Name  string
	Value interface{}
}

func setProperty(props []PropertyValue, pv PropertyValue) []PropertyValue {
	for i, p := range props {
		if p.Name == pv.Name {
			out := append([]PropertyValue(nil), props...)
			out[i] = pv
			return out
		}
	}
	return append(append([]PropertyValue(nil), props...), pv)
}
