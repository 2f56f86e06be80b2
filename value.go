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
)

// BeanRef is a configured value that resolves to another bean.
type BeanRef struct {
	Name string

	// ToParent looks the bean up in the parent factory only.
	ToParent bool
}

// Ref refers to the bean registered under name.
func Ref(name string) BeanRef { return BeanRef{Name: name} }

// ParentRef refers to the bean registered under name in the parent factory.
func ParentRef(name string) BeanRef { return BeanRef{Name: name, ToParent: true} }

// TypeRef is a configured value that resolves to the unique bean of a type.
type TypeRef struct {
	Type reflect.Type
}

// RefType refers to the unique bean assignable to t.
func RefType(t reflect.Type) TypeRef { return TypeRef{Type: t} }

// BeanNameRef is a configured value that resolves to a bean name after
// checking that the bean exists.
type BeanNameRef struct {
	Name string
}

// NameRef refers to the name of the bean registered under name.
func NameRef(name string) BeanNameRef { return BeanNameRef{Name: name} }

// TypedString is a string value with an explicit target type. Placeholders
// in Value are expanded before conversion.
type TypedString struct {
	Value string
	Type  reflect.Type
}

// List is a configured slice whose elements are resolved individually.
type List []interface{}

// Map is a configured map whose values are resolved individually.
type Map map[string]interface{}

// EmbeddedValueResolver expands placeholders in configured strings.
type EmbeddedValueResolver interface {
	ResolvePlaceholders(s string) (string, error)
}

// needsResolution reports whether v must go through resolveValue before it
// can be passed to a bean.
func needsResolution(v interface{}) bool {
	switch x := v.(type) {
	case BeanRef, TypeRef, BeanNameRef, *BeanDefinition, TypedString, List, Map:
		return true
	case string:
		return strings.Contains(x, "${")
	}
	return false
}

// resolveValue turns a configured value into the object it stands for.
func (f *Factory) resolveValue(r *request, bean string, mbd *MergedDefinition, what string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case BeanRef:
		return f.resolveReference(r, bean, mbd, what, v)
	case TypeRef:
		var names []string
		d := &DependencyDescriptor{Type: v.Type}
		out, err := f.resolveDependency(r, d, bean, &names, nil)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve reference to bean of type %v while setting %s", v.Type, what), err)
		}
		for _, n := range names {
			f.registerDependentBean(n, bean)
		}
		return out, nil
	case BeanNameRef:
		if !f.Contains(v.Name) {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("invalid bean name %q in bean reference for %s", v.Name, what), nil)
		}
		return v.Name, nil
	case *BeanDefinition:
		out, err := f.resolveInnerBean(r, bean, v)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot create inner bean while setting %s", what), err)
		}
		return out, nil
	case TypedString:
		s, err := f.resolveEmbedded(v.Value)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve placeholders in %s", what), err)
		}
		if v.Type == nil {
			return s, nil
		}
		out, err := f.converter.Convert(s, v.Type)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("error converting typed string value for %s", what), err)
		}
		return out, nil
	case List:
		out := make([]interface{}, len(v))
		for i, item := range v {
			rv, err := f.resolveValue(r, bean, mbd, fmt.Sprintf("%s[%d]", what, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case Map:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			rv, err := f.resolveValue(r, bean, mbd, fmt.Sprintf("%s[%q]", what, k), item)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case string:
		s, err := f.resolveEmbedded(v)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve placeholders in %s", what), err)
		}
		return s, nil
	}
	return value, nil
}

func (f *Factory) resolveReference(r *request, bean string, mbd *MergedDefinition, what string, ref BeanRef) (interface{}, error) {
	if ref.ToParent {
		if f.parent == nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve reference to bean %q in parent factory: no parent factory available", ref.Name), nil)
		}
		out, err := f.parent.doGetBean(r, ref.Name, nil, nil)
		if err != nil {
			return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve reference to bean %q in parent factory while setting %s", ref.Name, what), err)
		}
		return out, nil
	}
	out, err := f.doGetBean(r, ref.Name, nil, nil)
	if err != nil {
		return nil, f.valueError(bean, mbd, fmt.Sprintf("cannot resolve reference to bean %q while setting %s", ref.Name, what), err)
	}
	f.registerDependentBean(f.registry.canonicalName(ref.Name), bean)
	return out, nil
}

func (f *Factory) resolveInnerBean(r *request, outer string, def *BeanDefinition) (interface{}, error) {
	name := fmt.Sprintf("(inner bean)#%p", def)
	mbd, err := f.mergeInner(name, def)
	if err != nil {
		return nil, err
	}
	for _, dep := range mbd.DependsOn() {
		f.registerDependentBean(dep, name)
		if _, err := f.doGetBean(r, dep, nil, nil); err != nil {
			return nil, err
		}
	}
	return f.createBean(r, name, mbd, nil)
}

func (f *Factory) resolveEmbedded(s string) (string, error) {
	var err error
	for _, res := range f.embedded {
		if s, err = res.ResolvePlaceholders(s); err != nil {
			return "", err
		}
	}
	return s, nil
}

func (f *Factory) valueError(bean string, mbd *MergedDefinition, msg string, cause error) error {
	var desc string
	if mbd != nil {
		desc = mbd.Description()
	}
	return &BeanCreationError{Bean: bean, Description: desc, Msg: msg, Cause: cause}
}
