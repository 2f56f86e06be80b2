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
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// InjectionPoint locates a dependency: a constructor or factory method
// parameter, or a struct field.
//
// A constructor parameter of type *InjectionPoint receives the point at
// which the bean being created is injected.
type InjectionPoint struct {
	Executable Executable
	ParamIndex int

	Field *reflect.StructField

	DeclaringType reflect.Type
}

var _injectionPointType = reflect.TypeOf((*InjectionPoint)(nil))

func (p *InjectionPoint) String() string {
	switch {
	case p == nil:
		return "unknown injection point"
	case p.Field != nil:
		if p.DeclaringType != nil {
			return fmt.Sprintf("field %q of %v", p.Field.Name, p.DeclaringType)
		}
		return fmt.Sprintf("field %q", p.Field.Name)
	case p.Executable != nil:
		return fmt.Sprintf("parameter %d of %v", p.ParamIndex, p.Executable)
	default:
		return "direct dependency lookup"
	}
}

// DependencyDescriptor describes what an injection point needs.
type DependencyDescriptor struct {
	InjectionPoint

	// Type is the declared type of the dependency.
	Type reflect.Type

	// Name is the parameter or field name. A candidate whose bean name or
	// alias equals Name wins a tie between several candidates.
	Name string

	// Optional dependencies resolve to nil instead of failing when no
	// candidate exists.
	Optional bool

	// Lazy skips candidates whose type can only be determined by creating
	// a not yet created factory bean.
	Lazy bool

	Qualifiers []Qualifier

	// Value is a value expression, resolved against the factory's
	// properties, that takes the place of a bean.
	Value string

	fallback       bool
	multiElement   bool
	nonUniqueAsNil bool
}

func (d *DependencyDescriptor) String() string {
	var b strings.Builder
	b.WriteString(typeString(d.Type))
	for _, q := range d.Qualifiers {
		b.WriteString(" ")
		b.WriteString(q.String())
	}
	if d.Optional {
		b.WriteString(" (optional)")
	}
	return b.String()
}

// forFallbackMatch relaxes type precision checks in the candidate resolver.
func (d *DependencyDescriptor) forFallbackMatch() *DependencyDescriptor {
	c := *d
	c.fallback = true
	return &c
}

// forElement describes one element of a slice or map dependency.
func (d *DependencyDescriptor) forElement(elem reflect.Type) *DependencyDescriptor {
	c := *d
	c.Type = elem
	c.multiElement = true
	return &c
}

// nested describes the value wrapped by Optional or Provider.
func (d *DependencyDescriptor) nested(elem reflect.Type) *DependencyDescriptor {
	c := *d
	c.Type = elem
	return &c
}

// IsFallbackMatch reports whether type checks may be relaxed, such as
// accepting a *T bean for a T dependency.
func (d *DependencyDescriptor) IsFallbackMatch() bool { return d.fallback }

// IsMultiElement reports whether the descriptor stands for one element of
// a slice or map dependency.
func (d *DependencyDescriptor) IsMultiElement() bool { return d.multiElement }

func paramDescriptor(e Executable, index int) *DependencyDescriptor {
	d := &DependencyDescriptor{
		InjectionPoint: InjectionPoint{
			Executable:    e,
			ParamIndex:    index,
			DeclaringType: e.DeclaringType(),
		},
		Type: e.ParamTypes()[index],
	}
	if names := e.ParamNames(); names != nil {
		d.Name = names[index]
	}
	if pm, ok := e.(interface {
		paramMetadata(int) (paramMeta, bool)
	}); ok {
		if m, ok := pm.paramMetadata(index); ok {
			d.Qualifiers = m.qualifiers
			d.Optional = m.optional
			d.Value = m.value
		}
	}
	return d
}

// fieldDescriptor builds the descriptor for a struct field tagged with
//
//	inject:"[qualifier][,optional]"
//	value:"${key:default}"
func fieldDescriptor(owner reflect.Type, f reflect.StructField) *DependencyDescriptor {
	field := f
	d := &DependencyDescriptor{
		InjectionPoint: InjectionPoint{Field: &field, DeclaringType: owner},
		Type:           f.Type,
		Name:           lowerFirst(f.Name),
	}
	if tag, ok := f.Tag.Lookup("inject"); ok {
		parts := strings.Split(tag, ",")
		if q := strings.TrimSpace(parts[0]); q != "" {
			d.Qualifiers = append(d.Qualifiers, Qualifier{Value: q})
		}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "optional":
				d.Optional = true
			case "lazy":
				d.Lazy = true
			}
		}
	}
	if v, ok := f.Tag.Lookup("value"); ok {
		d.Value = v
	}
	return d
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
