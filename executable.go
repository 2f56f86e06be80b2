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

	"go.uber.org/beans/internal/beanreflect"
)

// Executable is a constructor or factory method that can produce a bean.
type Executable interface {
	// Name identifies the executable in diagnostics and factory method
	// lookups.
	Name() string

	// DeclaringType is the receiver type for methods, nil for functions.
	DeclaringType() reflect.Type

	// ParamTypes lists the parameter types, excluding any receiver.
	ParamTypes() []reflect.Type

	// ParamNames lists parameter names when known. It is nil or has the
	// same length as ParamTypes.
	ParamNames() []string

	// ReturnType is the produced type, nil if nothing is produced.
	ReturnType() reflect.Type

	// IsStatic reports whether the executable needs no receiver instance.
	IsStatic() bool

	// IsPublic reports whether the executable is exported.
	IsPublic() bool

	// IsVariadic reports whether the last parameter is variadic.
	IsVariadic() bool

	// Invoke calls the executable. The receiver is ignored for static
	// executables.
	Invoke(receiver reflect.Value, args []reflect.Value) (reflect.Value, error)
}

// ExecutableOption configures an Executable built by Constructor, Method or
// StaticMethod.
type ExecutableOption interface {
	applyExecutable(*funcExecutable)
}

type executableOptionFunc func(*funcExecutable)

func (f executableOptionFunc) applyExecutable(e *funcExecutable) { f(e) }

// ParamNames names the parameters of the executable, enabling name-based
// argument matching and by-name tie breaking.
func ParamNames(names ...string) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) {
		e.paramNames = append([]string(nil), names...)
	})
}

// NonPublic marks the executable as unexported regardless of its name.
func NonPublic() ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) { e.public = false })
}

// ExecutableOrder attaches ordering metadata to the executable. Beans it
// produces are sorted by it when collected into a slice.
func ExecutableOrder(order int) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) {
		e.order = order
		e.hasOrder = true
	})
}

// ParamQualifier restricts the candidates for the parameter at index to
// beans carrying a default qualifier, bean name or alias equal to value.
func ParamQualifier(index int, value string) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) {
		m := e.meta(index)
		m.qualifiers = append(m.qualifiers, Qualifier{Value: value})
	})
}

// OptionalParams marks parameters that may be left at their zero value when
// no candidate exists.
func OptionalParams(indices ...int) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) {
		for _, i := range indices {
			e.meta(i).optional = true
		}
	})
}

// ParamValue injects the parameter at index from a value expression such as
// "${server.port:8080}" instead of a bean.
func ParamValue(index int, expr string) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) {
		e.meta(index).value = expr
	})
}

// Named overrides the executable name.
func Named(name string) ExecutableOption {
	return executableOptionFunc(func(e *funcExecutable) { e.name = name })
}

var _ Executable = (*funcExecutable)(nil)

type funcExecutable struct {
	fn         reflect.Value
	name       string
	recv       reflect.Type
	params     []reflect.Type
	paramNames []string
	out        reflect.Type
	returnsErr bool
	public     bool
	variadic   bool

	order     int
	hasOrder  bool
	paramInfo map[int]*paramMeta

	err error
}

type paramMeta struct {
	qualifiers []Qualifier
	optional   bool
	value      string
}

func (e *funcExecutable) meta(index int) *paramMeta {
	if e.paramInfo == nil {
		e.paramInfo = make(map[int]*paramMeta)
	}
	m, ok := e.paramInfo[index]
	if !ok {
		m = &paramMeta{}
		e.paramInfo[index] = m
	}
	return m
}

func (e *funcExecutable) paramMetadata(index int) (paramMeta, bool) {
	m, ok := e.paramInfo[index]
	if !ok {
		return paramMeta{}, false
	}
	return *m, true
}

// Constructor wraps a function as a static executable. The function returns
// the bean, optionally followed by an error.
func Constructor(fn interface{}, opts ...ExecutableOption) Executable {
	e := newFuncExecutable(fn, false)
	for _, opt := range opts {
		opt.applyExecutable(e)
	}
	return e
}

// Method wraps a method expression such as (*Factory).NewClient as an
// instance factory method named name. The first parameter is the receiver.
func Method(name string, fn interface{}, opts ...ExecutableOption) Executable {
	e := newFuncExecutable(fn, true)
	e.name = name
	e.public = true
	for _, opt := range opts {
		opt.applyExecutable(e)
	}
	return e
}

// StaticMethod wraps a function as a static factory method named name.
func StaticMethod(name string, fn interface{}, opts ...ExecutableOption) Executable {
	e := newFuncExecutable(fn, false)
	e.name = name
	e.public = true
	for _, opt := range opts {
		opt.applyExecutable(e)
	}
	return e
}

func newFuncExecutable(fn interface{}, withReceiver bool) *funcExecutable {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return &funcExecutable{
			name: fmt.Sprintf("%T", fn),
			err:  fmt.Errorf("executable must be a function, got %T", fn),
		}
	}
	name := beanreflect.FuncName(fn)
	e := &funcExecutable{
		fn:       v,
		name:     name,
		public:   beanreflect.IsExported(name),
		variadic: v.Type().IsVariadic(),
	}
	ft := v.Type()
	start := 0
	if withReceiver {
		if ft.NumIn() == 0 {
			e.err = fmt.Errorf("method %v must take its receiver as the first parameter", ft)
			return e
		}
		e.recv = ft.In(0)
		start = 1
	}
	for i := start; i < ft.NumIn(); i++ {
		e.params = append(e.params, ft.In(i))
	}
	e.err = e.inspectResults(ft)
	return e
}

func (e *funcExecutable) inspectResults(ft reflect.Type) error {
	switch ft.NumOut() {
	case 0:
	case 1:
		if beanreflect.IsErr(ft.Out(0)) {
			e.returnsErr = true
		} else {
			e.out = ft.Out(0)
		}
	case 2:
		if !beanreflect.IsErr(ft.Out(1)) {
			return fmt.Errorf("second result of %v must be an error", ft)
		}
		e.out = ft.Out(0)
		e.returnsErr = true
	default:
		return fmt.Errorf("%v returns too many results: expected a value and an optional error", ft)
	}
	return nil
}

func (e *funcExecutable) Name() string                { return e.name }
func (e *funcExecutable) DeclaringType() reflect.Type { return e.recv }
func (e *funcExecutable) ParamTypes() []reflect.Type  { return append([]reflect.Type(nil), e.params...) }
func (e *funcExecutable) ReturnType() reflect.Type    { return e.out }
func (e *funcExecutable) IsStatic() bool              { return e.recv == nil }
func (e *funcExecutable) IsPublic() bool              { return e.public }
func (e *funcExecutable) IsVariadic() bool            { return e.variadic }

func (e *funcExecutable) ParamNames() []string {
	if len(e.paramNames) != len(e.params) {
		return nil
	}
	return append([]string(nil), e.paramNames...)
}

// orderHint exposes ordering metadata to the order comparator.
func (e *funcExecutable) orderHint() (int, bool) { return e.order, e.hasOrder }

func (e *funcExecutable) Invoke(receiver reflect.Value, args []reflect.Value) (result reflect.Value, err error) {
	if e.err != nil {
		return reflect.Value{}, e.err
	}
	in := args
	if e.recv != nil {
		if !receiver.IsValid() {
			receiver = reflect.Zero(e.recv)
		}
		if !receiver.Type().AssignableTo(e.recv) {
			return reflect.Value{}, fmt.Errorf("receiver of type %v cannot be used as %v for %v",
				receiver.Type(), e.recv, e.name)
		}
		in = append([]reflect.Value{receiver}, args...)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v panicked: %v", e.name, r)
		}
	}()

	var out []reflect.Value
	if e.variadic {
		out = e.fn.CallSlice(in)
	} else {
		out = e.fn.Call(in)
	}

	if e.returnsErr {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return reflect.Value{}, errV.Interface().(error)
		}
	}
	if e.out == nil {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

func (e *funcExecutable) String() string {
	return beanreflect.ShortName(e.name) + beanreflect.Signature(e.params)
}

// reflectMethod adapts a method found on a factory type by name.
func reflectMethod(recv reflect.Type, m reflect.Method) Executable {
	e := &funcExecutable{
		fn:       m.Func,
		name:     m.Name,
		recv:     recv,
		public:   m.PkgPath == "",
		variadic: m.Type.IsVariadic(),
	}
	for i := 1; i < m.Type.NumIn(); i++ {
		e.params = append(e.params, m.Type.In(i))
	}
	e.err = e.inspectResults(m.Type)
	return e
}

// staticExecutable marks a reflected method invoked on the zero value of its
// type. It is a static factory method from the container's point of view.
type staticExecutable struct {
	*funcExecutable
}

func (s staticExecutable) IsStatic() bool { return true }

func (s staticExecutable) Invoke(_ reflect.Value, args []reflect.Value) (reflect.Value, error) {
	return s.funcExecutable.Invoke(reflect.Value{}, args)
}

func validateExecutable(e Executable) error {
	if fe, ok := e.(*funcExecutable); ok && fe.err != nil {
		return fe.err
	}
	return nil
}

func executableNames(execs []Executable) []string {
	names := make([]string, len(execs))
	for i, e := range execs {
		names[i] = fmt.Sprint(e)
	}
	return names
}

func sameParamTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
