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
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type (
	label  string
	labels []string
)

func TestValueWeight(t *testing.T) {
	var (
		_emptyIface  = reflect.TypeOf((*interface{})(nil)).Elem()
		_readerIface = reflect.TypeOf((*io.Reader)(nil)).Elem()
	)

	tests := []struct {
		desc string
		t    reflect.Type
		arg  interface{}
		want int
	}{
		{"exact", reflect.TypeOf(""), "x", 0},
		{"exact pointer", _thingType, &thing{}, 0},
		{"nil to pointer", _thingType, nil, 0},
		{"nil to int", reflect.TypeOf(0), nil, maxWeight},
		{"not assignable", reflect.TypeOf(0), "1", maxWeight},
		{"distinct named types", reflect.TypeOf(label("")), "x", maxWeight},
		{"interface", _readerIface, strings.NewReader(""), interfaceScore},
		{"empty interface", _emptyIface, 1, emptyInterfaceScore},
		{"unnamed to named", reflect.TypeOf(labels(nil)), []string{"a"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, valueWeight(tt.t, tt.arg))
		})
	}
}

func TestTypeDifferenceWeight(t *testing.T) {
	params := []reflect.Type{
		reflect.TypeOf((*io.Reader)(nil)).Elem(),
		reflect.TypeOf((*interface{})(nil)).Elem(),
		reflect.TypeOf(""),
	}

	assert.Equal(t, 3, typeDifferenceWeight(params, []interface{}{strings.NewReader(""), 1, "x"}))
	assert.Equal(t, maxWeight, typeDifferenceWeight(params, []interface{}{strings.NewReader(""), 1, 2}))
}

func TestArgumentWeights(t *testing.T) {
	var (
		_intType    = reflect.TypeOf(0)
		_stringType = reflect.TypeOf("")
	)

	t.Run("LenientPrefersRawMatches", func(t *testing.T) {
		raw := &argumentsHolder{raw: []interface{}{"1"}, args: []interface{}{"1"}}
		converted := &argumentsHolder{raw: []interface{}{"1"}, args: []interface{}{1}}

		asString := raw.weight([]reflect.Type{_stringType}, true)
		asInt := converted.weight([]reflect.Type{_intType}, true)
		assert.Equal(t, -rawArgumentPenalty, asString)
		assert.Equal(t, 0, asInt)
		assert.Less(t, asString, asInt)
	})

	t.Run("LenientIncompatible", func(t *testing.T) {
		h := &argumentsHolder{raw: []interface{}{"x"}, args: []interface{}{"x"}}
		assert.Equal(t, maxWeight-rawArgumentPenalty, h.weight([]reflect.Type{_intType}, true))
	})

	t.Run("Strict", func(t *testing.T) {
		tests := []struct {
			desc string
			h    *argumentsHolder
			want int
		}{
			{
				desc: "assignable raw",
				h:    &argumentsHolder{raw: []interface{}{1}, args: []interface{}{1}},
				want: maxWeight - rawArgumentPenalty,
			},
			{
				desc: "assignable once converted",
				h:    &argumentsHolder{raw: []interface{}{"1"}, args: []interface{}{1}},
				want: maxWeight - strictRawMismatch,
			},
			{
				desc: "not assignable",
				h:    &argumentsHolder{raw: []interface{}{"x"}, args: []interface{}{"x"}},
				want: maxWeight,
			},
		}

		for _, tt := range tests {
			t.Run(tt.desc, func(t *testing.T) {
				assert.Equal(t, tt.want, tt.h.weight([]reflect.Type{_intType}, false))
			})
		}
	})
}
