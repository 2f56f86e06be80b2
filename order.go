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
	"math"
	"reflect"
	"sort"
)

// Precedence bounds for ordering metadata.
const (
	HighestPrecedence = math.MinInt32
	LowestPrecedence  = math.MaxInt32
)

// Ordered is implemented by beans that declare their position when
// collected into a slice. Lower values come first.
type Ordered interface {
	Order() int
}

// Prioritized is implemented by beans that declare a priority used to pick
// one among several candidates. Lower values win.
type Prioritized interface {
	Priority() int
}

// OrderComparator extracts ordering and priority metadata from a source: a
// bean instance, its definition, the executable that produced it or its
// type.
type OrderComparator interface {
	Order(source interface{}) (int, bool)
	Priority(source interface{}) (int, bool)
}

type orderHinter interface {
	orderHint() (int, bool)
}

type priorityHinter interface {
	priorityHint() (int, bool)
}

// DefaultOrderComparator reads Ordered and Prioritized from instances and
// from the nil value of pointer types, along with definition and executable
// metadata.
type DefaultOrderComparator struct{}

var _ OrderComparator = DefaultOrderComparator{}

// Order implements OrderComparator.
func (DefaultOrderComparator) Order(source interface{}) (int, bool) {
	switch s := source.(type) {
	case nil:
		return 0, false
	case reflect.Type:
		if o, ok := typeLevel(s).(Ordered); ok {
			return callInt(o.Order)
		}
		return 0, false
	case orderHinter:
		return s.orderHint()
	case Ordered:
		return callInt(s.Order)
	}
	return 0, false
}

// Priority implements OrderComparator.
func (DefaultOrderComparator) Priority(source interface{}) (int, bool) {
	switch s := source.(type) {
	case nil:
		return 0, false
	case reflect.Type:
		if p, ok := typeLevel(s).(Prioritized); ok {
			return callInt(p.Priority)
		}
		return 0, false
	case priorityHinter:
		return s.priorityHint()
	case Prioritized:
		return callInt(s.Priority)
	}
	return 0, false
}

func zeroValue(t reflect.Type) interface{} {
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// typeLevel returns the nil value of pointer type t. Methods that succeed on
// it report metadata shared by every instance. Other types yield nil.
func typeLevel(t reflect.Type) interface{} {
	if t == nil || t.Kind() != reflect.Ptr {
		return nil
	}
	return reflect.Zero(t).Interface()
}

// callInt invokes fn, treating a panic (such as a nil receiver dereference
// on a zero value) as no metadata.
func callInt(fn func() int) (v int, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = 0, false
		}
	}()
	return fn(), true
}

// orderOf returns the first order found among sources.
func orderOf(c OrderComparator, sources ...interface{}) int {
	for _, src := range sources {
		if o, ok := c.Order(src); ok {
			return o
		}
	}
	return LowestPrecedence
}

// priorityOf returns the first priority found among sources.
func priorityOf(c OrderComparator, sources ...interface{}) (int, bool) {
	for _, src := range sources {
		if p, ok := c.Priority(src); ok {
			return p, true
		}
	}
	return 0, false
}

// sortByOrder stably sorts items by the order of their sources.
func sortByOrder(c OrderComparator, items []candidate, sources func(candidate) []interface{}) {
	orders := make(map[string]int, len(items))
	for _, it := range items {
		orders[it.name] = orderOf(c, sources(it)...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return orders[items[i].name] < orders[items[j].name]
	})
}
