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
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TypeConverter converts configured and resolved values to the type a
// parameter or field requires.
type TypeConverter interface {
	Convert(value interface{}, to reflect.Type) (interface{}, error)
}

// TypeMismatchError reports a value that cannot be converted.
type TypeMismatchError struct {
	Value    interface{}
	Required reflect.Type
	Cause    error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("cannot convert value of type %T to required type %v", e.Value, e.Required)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return e.Cause }

var (
	_durationType        = reflect.TypeOf(time.Duration(0))
	_textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// SimpleTypeConverter handles assignable values, strings to scalars and
// back, numeric conversions, pointer dereferencing, TextUnmarshaler targets
// and element-wise slices and maps.
type SimpleTypeConverter struct{}

var _ TypeConverter = SimpleTypeConverter{}

// Convert implements TypeConverter.
func (c SimpleTypeConverter) Convert(value interface{}, to reflect.Type) (interface{}, error) {
	if to == nil {
		return value, nil
	}
	if value == nil {
		if isNillable(to) {
			return reflect.Zero(to).Interface(), nil
		}
		return nil, &TypeMismatchError{Value: value, Required: to}
	}
	v := reflect.ValueOf(value)
	out, err := c.convert(v, to)
	if err != nil {
		return nil, &TypeMismatchError{Value: value, Required: to, Cause: err}
	}
	return out.Interface(), nil
}

func (c SimpleTypeConverter) convert(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	vt := v.Type()
	if vt.AssignableTo(to) {
		out := reflect.New(to).Elem()
		out.Set(v)
		return out, nil
	}
	if vt.Kind() == reflect.Ptr && !v.IsNil() && vt.Elem().AssignableTo(to) {
		return c.convert(v.Elem(), to)
	}
	if vt.Kind() == reflect.Interface && !v.IsNil() {
		return c.convert(v.Elem(), to)
	}
	if vt.Kind() == reflect.String {
		return c.fromString(v.String(), to)
	}
	if to.Kind() == reflect.String && isScalar(vt.Kind()) {
		return reflect.ValueOf(fmt.Sprint(v.Interface())).Convert(to), nil
	}
	if isNumeric(vt.Kind()) && isNumeric(to.Kind()) {
		return convertNumber(v, to)
	}
	switch {
	case vt.Kind() == reflect.Slice && to.Kind() == reflect.Slice:
		return c.convertSlice(v, to)
	case vt.Kind() == reflect.Map && to.Kind() == reflect.Map:
		return c.convertMap(v, to)
	case vt.Kind() == to.Kind() && vt.ConvertibleTo(to):
		return v.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("no conversion from %v", vt)
}

func (c SimpleTypeConverter) fromString(s string, to reflect.Type) (reflect.Value, error) {
	if reflect.PtrTo(to).Implements(_textUnmarshalerType) {
		ptr := reflect.New(to)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	if to == _durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	}

	out := reflect.New(to).Elem()
	switch to.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 0, to.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(strings.TrimSpace(s), 0, to.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), to.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Slice:
		if to.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(to), nil
		}
		if s == "" {
			return reflect.MakeSlice(to, 0, 0), nil
		}
		parts := strings.Split(s, ",")
		items := make([]interface{}, len(parts))
		for i, p := range parts {
			items[i] = strings.TrimSpace(p)
		}
		return c.convertSlice(reflect.ValueOf(items), to)
	default:
		return reflect.Value{}, fmt.Errorf("cannot parse %q", s)
	}
	return out, nil
}

func (c SimpleTypeConverter) convertSlice(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.MakeSlice(to, v.Len(), v.Len())
	for i := 0; i < v.Len(); i++ {
		elem, err := c.element(v.Index(i), to.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(elem)
	}
	return out, nil
}

func (c SimpleTypeConverter) convertMap(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(to, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := c.element(iter.Key(), to.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
		}
		e, err := c.element(iter.Value(), to.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("value for key %v: %w", iter.Key(), err)
		}
		out.SetMapIndex(k, e)
	}
	return out, nil
}

func (c SimpleTypeConverter) element(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(to), nil
		}
		v = v.Elem()
	}
	return c.convert(v, to)
}

func convertNumber(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.New(to).Elem()
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch {
		case isInt(v.Kind()):
			i = v.Int()
		case isUint(v.Kind()):
			if v.Uint() > uint64(1<<63-1) {
				return reflect.Value{}, fmt.Errorf("%v overflows %v", v.Uint(), to)
			}
			i = int64(v.Uint())
		default:
			f := v.Float()
			if f != float64(int64(f)) {
				return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
			}
			i = int64(f)
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("%v overflows %v", i, to)
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var u uint64
		switch {
		case isInt(v.Kind()):
			if v.Int() < 0 {
				return reflect.Value{}, fmt.Errorf("%v overflows %v", v.Int(), to)
			}
			u = uint64(v.Int())
		case isUint(v.Kind()):
			u = v.Uint()
		default:
			f := v.Float()
			if f < 0 || f != float64(uint64(f)) {
				return reflect.Value{}, fmt.Errorf("%v is not an unsigned integer", f)
			}
			u = uint64(f)
		}
		if out.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("%v overflows %v", u, to)
		}
		out.SetUint(u)
	default:
		out.Set(v.Convert(to))
	}
	return out, nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isScalar(k reflect.Kind) bool {
	return isNumeric(k) || k == reflect.Bool
}

// isSimpleType reports types that by-type autowiring leaves alone.
func isSimpleType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Slice, reflect.Array:
		return isSimpleType(t.Elem())
	}
	if isNumeric(t.Kind()) {
		return true
	}
	return t == reflect.TypeOf(time.Time{})
}
