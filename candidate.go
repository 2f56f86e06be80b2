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
)

// DefinitionHolder is a bean definition together with the name and aliases
// it is registered under.
type DefinitionHolder struct {
	Name       string
	Aliases    []string
	Definition *MergedDefinition

	// Type is the bean's actual or predicted type. It is nil when it
	// cannot be determined without creating the bean.
	Type reflect.Type
}

// AutowireCandidateResolver decides which beans may satisfy a dependency.
type AutowireCandidateResolver interface {
	// IsCandidate reports whether the bean may be injected at d.
	IsCandidate(h DefinitionHolder, d *DependencyDescriptor) bool

	// IsRequired reports whether a missing candidate is an error.
	IsRequired(d *DependencyDescriptor) bool

	// HasQualifier reports whether d narrows candidates by qualifier.
	HasQualifier(d *DependencyDescriptor) bool

	// SuggestedValue returns a value to inject in place of a bean.
	SuggestedValue(d *DependencyDescriptor) (interface{}, bool)
}

// SimpleCandidateResolver honors the autowire-candidate flag and type
// precision only.
type SimpleCandidateResolver struct{}

var _ AutowireCandidateResolver = SimpleCandidateResolver{}

// IsCandidate implements AutowireCandidateResolver.
func (SimpleCandidateResolver) IsCandidate(h DefinitionHolder, d *DependencyDescriptor) bool {
	if h.Definition != nil && !h.Definition.IsAutowireCandidate() {
		return false
	}
	return checkTypeMatch(h.Type, d)
}

// IsRequired implements AutowireCandidateResolver.
func (SimpleCandidateResolver) IsRequired(d *DependencyDescriptor) bool {
	return !d.Optional
}

// HasQualifier implements AutowireCandidateResolver.
func (SimpleCandidateResolver) HasQualifier(*DependencyDescriptor) bool {
	return false
}

// SuggestedValue implements AutowireCandidateResolver.
func (SimpleCandidateResolver) SuggestedValue(*DependencyDescriptor) (interface{}, bool) {
	return nil, false
}

// checkTypeMatch requires the candidate type to be assignable to the
// dependency. Fallback matching also accepts a pointer whose element is.
func checkTypeMatch(t reflect.Type, d *DependencyDescriptor) bool {
	if t == nil || d.Type == nil {
		return true
	}
	if t.AssignableTo(d.Type) {
		return true
	}
	return d.fallback && t.Kind() == reflect.Ptr && t.Elem().AssignableTo(d.Type)
}

// QualifierCandidateResolver adds qualifier matching and value expressions
// on top of SimpleCandidateResolver. It is the default.
//
// A requested qualifier matches a definition carrying a qualifier of the
// same type, value and attributes. A default qualifier also matches a bean
// whose name or alias equals its value.
type QualifierCandidateResolver struct {
	SimpleCandidateResolver
}

var _ AutowireCandidateResolver = QualifierCandidateResolver{}

// IsCandidate implements AutowireCandidateResolver.
func (r QualifierCandidateResolver) IsCandidate(h DefinitionHolder, d *DependencyDescriptor) bool {
	if !r.SimpleCandidateResolver.IsCandidate(h, d) {
		return false
	}
	for _, q := range d.Qualifiers {
		if !qualifierMatches(q, h) {
			return false
		}
	}
	return true
}

func qualifierMatches(q Qualifier, h DefinitionHolder) bool {
	if h.Definition != nil {
		if declared, ok := h.Definition.Qualifier(q.typeName()); ok {
			return declared.matches(q)
		}
	}
	if q.typeName() != DefaultQualifier || len(q.Attributes) > 0 {
		return false
	}
	if q.Value == h.Name {
		return true
	}
	for _, a := range h.Aliases {
		if q.Value == a {
			return true
		}
	}
	return false
}

// HasQualifier implements AutowireCandidateResolver.
func (QualifierCandidateResolver) HasQualifier(d *DependencyDescriptor) bool {
	return len(d.Qualifiers) > 0
}

// SuggestedValue implements AutowireCandidateResolver.
func (QualifierCandidateResolver) SuggestedValue(d *DependencyDescriptor) (interface{}, bool) {
	if d.Value == "" {
		return nil, false
	}
	return d.Value, true
}
