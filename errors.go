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

	"go.uber.org/multierr"
)

// DefinitionStoreError reports an invalid bean definition or a registry
// conflict.
type DefinitionStoreError struct {
	Name        string
	Description string
	Msg         string
	Cause       error
}

func (e *DefinitionStoreError) Error() string {
	msg := fmt.Sprintf("invalid bean definition with name %q", e.Name)
	if e.Description != "" {
		msg += " defined in " + e.Description
	}
	msg += ": " + e.Msg
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DefinitionStoreError) Unwrap() error { return e.Cause }

// NoSuchBeanError reports that no bean matches a name or type.
type NoSuchBeanError struct {
	Name string
	Type reflect.Type
	Msg  string
}

func (e *NoSuchBeanError) Error() string {
	var target string
	switch {
	case e.Name != "":
		target = fmt.Sprintf("no bean named %q available", e.Name)
	case e.Type != nil:
		target = fmt.Sprintf("no qualifying bean of type %v available", e.Type)
	default:
		target = "no qualifying bean available"
	}
	if e.Msg != "" {
		return target + ": " + e.Msg
	}
	return target
}

// NoUniqueBeanError reports that several beans match where one is needed.
type NoUniqueBeanError struct {
	Type       reflect.Type
	Candidates []string

	// Msg explains why no tie-break applied, if a specific rule failed.
	Msg string
}

func (e *NoUniqueBeanError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("no qualifying bean of type %v available: %s among %s",
			e.Type, e.Msg, strings.Join(e.Candidates, ","))
	}
	return fmt.Sprintf("no qualifying bean of type %v available: expected single matching bean but found %d: %s",
		e.Type, len(e.Candidates), strings.Join(e.Candidates, ","))
}

// UnsatisfiedDependencyError reports that an injection point could not be
// satisfied while creating a bean.
type UnsatisfiedDependencyError struct {
	Bean        string
	Description string
	Point       *InjectionPoint
	Msg         string
	Cause       error

	// Suppressed holds earlier failures that led to this one.
	Suppressed error
}

func (e *UnsatisfiedDependencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error creating bean with name %q", e.Bean)
	if e.Description != "" {
		b.WriteString(" defined in ")
		b.WriteString(e.Description)
	}
	b.WriteString(": unsatisfied dependency")
	if e.Point != nil {
		b.WriteString(" expressed through ")
		b.WriteString(e.Point.String())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *UnsatisfiedDependencyError) Unwrap() error { return e.Cause }

// NotOfRequiredTypeError reports a bean whose actual type does not match
// what was requested.
type NotOfRequiredTypeError struct {
	Name     string
	Required reflect.Type
	Actual   reflect.Type
}

func (e *NotOfRequiredTypeError) Error() string {
	return fmt.Sprintf("bean named %q is expected to be of type %v but was actually of type %v",
		e.Name, e.Required, e.Actual)
}

// BeanCreationError reports a failure while instantiating or wiring a bean.
type BeanCreationError struct {
	Bean        string
	Description string
	Msg         string
	Cause       error

	// Suppressed holds earlier failures that led to this one.
	Suppressed error
}

func (e *BeanCreationError) Error() string {
	msg := fmt.Sprintf("error creating bean with name %q", e.Bean)
	if e.Description != "" {
		msg += " defined in " + e.Description
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BeanCreationError) Unwrap() error { return e.Cause }

// BeanCurrentlyInCreationError reports a bean requested again while it is
// being created, which indicates an unresolvable circular reference.
type BeanCurrentlyInCreationError struct {
	Bean string
}

func (e *BeanCurrentlyInCreationError) Error() string {
	return fmt.Sprintf("error creating bean with name %q: requested bean is currently in creation: "+
		"is there an unresolvable circular reference?", e.Bean)
}

// AmbiguousExecutableError reports equally weighted constructor or factory
// method candidates under strict resolution.
type AmbiguousExecutableError struct {
	Kind       string
	Candidates []string
}

func (e *AmbiguousExecutableError) Error() string {
	return fmt.Sprintf("ambiguous %s matches found: %s (hint: specify index/type/name arguments "+
		"for simple parameters to avoid type ambiguities)", e.Kind, strings.Join(e.Candidates, ", "))
}

// Suppressed returns the failures recorded alongside err, if any.
func Suppressed(err error) []error {
	switch e := err.(type) {
	case *UnsatisfiedDependencyError:
		return multierr.Errors(e.Suppressed)
	case *BeanCreationError:
		return multierr.Errors(e.Suppressed)
	}
	return nil
}

// withSuppressed returns the last cause with the earlier ones attached.
func withSuppressed(bean, desc string, causes []error) error {
	last := causes[len(causes)-1]
	earlier := multierr.Combine(causes[:len(causes)-1]...)
	if earlier == nil {
		return last
	}
	switch e := last.(type) {
	case *UnsatisfiedDependencyError:
		c := *e
		c.Suppressed = multierr.Append(c.Suppressed, earlier)
		return &c
	case *BeanCreationError:
		c := *e
		c.Suppressed = multierr.Append(c.Suppressed, earlier)
		return &c
	}
	return &BeanCreationError{Bean: bean, Description: desc, Cause: last, Suppressed: earlier}
}
