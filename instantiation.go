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

	"github.com/pkg/errors"
)

// InstantiationStrategy creates bean instances once an executable and its
// arguments are known.
type InstantiationStrategy interface {
	// Instantiate calls e with args. A nil e asks for a default instance of
	// the definition's type. factoryBean is the receiver for instance
	// factory methods.
	Instantiate(mbd *MergedDefinition, name string, factoryBean interface{}, e Executable, args []interface{}) (interface{}, error)
}

// SimpleInstantiationStrategy calls executables through reflection. It
// does not support method overrides.
type SimpleInstantiationStrategy struct{}

var _ InstantiationStrategy = SimpleInstantiationStrategy{}

var errMethodInjection = errors.New("method injection is not supported by SimpleInstantiationStrategy")

// Instantiate implements InstantiationStrategy.
func (SimpleInstantiationStrategy) Instantiate(mbd *MergedDefinition, name string, factoryBean interface{}, e Executable, args []interface{}) (interface{}, error) {
	if mbd.HasMethodOverrides() {
		return nil, errMethodInjection
	}
	if e == nil {
		return newInstance(mbd.Type())
	}

	params := e.ParamTypes()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%v takes %d arguments, got %d", e, len(params), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := argValue(params[i], a)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %v: %w", i, e, err)
		}
		in[i] = v
	}

	var recv reflect.Value
	if factoryBean != nil && !e.IsStatic() {
		recv = reflect.ValueOf(factoryBean)
	}
	out, err := e.Invoke(recv, in)
	if err != nil {
		return nil, err
	}
	if !out.IsValid() {
		return nil, nil
	}
	return out.Interface(), nil
}

// newInstance allocates a zero instance: a pointer to a new struct for
// pointer types and a zero value otherwise.
func newInstance(t reflect.Type) (interface{}, error) {
	switch {
	case t == nil:
		return nil, errors.New("no bean type, constructor, factory method or supplier specified")
	case t.Kind() == reflect.Interface:
		return nil, fmt.Errorf("cannot instantiate interface type %v", t)
	case t.Kind() == reflect.Ptr:
		return reflect.New(t.Elem()).Interface(), nil
	default:
		return reflect.New(t).Elem().Interface(), nil
	}
}

func argValue(t reflect.Type, a interface{}) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("value of type %v is not assignable to %v", v.Type(), t)
	}
	return v, nil
}
