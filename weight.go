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
)

// maxWeight marks an argument that cannot be passed to a parameter.
const maxWeight = math.MaxInt32

// Penalties applied to the raw (unconverted) arguments so that candidates
// matching without conversion win over those that only match once
// converted.
const (
	rawArgumentPenalty  = 1024
	strictRawMismatch   = 512
	emptyInterfaceScore = 2
	interfaceScore      = 1
)

// valueWeight scores how far arg is from the parameter type t. Zero is an
// exact match.
func valueWeight(t reflect.Type, arg interface{}) int {
	if arg == nil {
		if isNillable(t) {
			return 0
		}
		return maxWeight
	}
	at := reflect.TypeOf(arg)
	switch {
	case at == t:
		return 0
	case !at.AssignableTo(t):
		return maxWeight
	case t.Kind() == reflect.Interface && t.NumMethod() == 0:
		return emptyInterfaceScore
	case t.Kind() == reflect.Interface:
		return interfaceScore
	default:
		// Assignable between a named and an unnamed type.
		return 0
	}
}

// typeDifferenceWeight sums valueWeight over all arguments.
func typeDifferenceWeight(params []reflect.Type, args []interface{}) int {
	total := 0
	for i, t := range params {
		w := valueWeight(t, args[i])
		if w == maxWeight {
			return maxWeight
		}
		total += w
	}
	return total
}

func isAssignableValue(t reflect.Type, v interface{}) bool {
	if v == nil {
		return isNillable(t)
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// argumentsHolder carries one candidate's argument array in three forms:
// raw (resolved but unconverted), converted, and prepared for caching.
type argumentsHolder struct {
	raw      []interface{}
	args     []interface{}
	prepared []interface{}

	// resolveNecessary reports that prepared holds values which must be
	// resolved again on reuse.
	resolveNecessary bool
}

func newArgumentsHolder(size int) *argumentsHolder {
	return &argumentsHolder{
		raw:      make([]interface{}, size),
		args:     make([]interface{}, size),
		prepared: make([]interface{}, size),
	}
}

func explicitArgumentsHolder(args []interface{}) *argumentsHolder {
	return &argumentsHolder{raw: args, args: args, prepared: args}
}

// lenientWeight prefers candidates whose parameters fit the raw arguments.
func (h *argumentsHolder) lenientWeight(params []reflect.Type) int {
	w := typeDifferenceWeight(params, h.args)
	raw := typeDifferenceWeight(params, h.raw) - rawArgumentPenalty
	if raw < w {
		return raw
	}
	return w
}

// strictWeight only distinguishes assignable from non-assignable arguments,
// so any two fitting candidates tie.
func (h *argumentsHolder) strictWeight(params []reflect.Type) int {
	for i, t := range params {
		if !isAssignableValue(t, h.args[i]) {
			return maxWeight
		}
	}
	for i, t := range params {
		if !isAssignableValue(t, h.raw[i]) {
			return maxWeight - strictRawMismatch
		}
	}
	return maxWeight - rawArgumentPenalty
}

func (h *argumentsHolder) weight(params []reflect.Type, lenient bool) int {
	if lenient {
		return h.lenientWeight(params)
	}
	return h.strictWeight(params)
}

func (h *argumentsHolder) storeCache(c *ResolutionCache, e Executable, factoryMethod bool) {
	if h.resolveNecessary {
		c.storePrepared(e, h.prepared, factoryMethod)
		return
	}
	c.storeResolved(e, h.args, factoryMethod)
}
