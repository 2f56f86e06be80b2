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

	"github.com/pkg/errors"
)

type optionalType interface {
	wrappedType() reflect.Type
	optionalOf(v interface{}) interface{}
}

type providerType interface {
	wrappedType() reflect.Type
	providerOf(p *beanProvider) interface{}
}

// Optional is injected in place of a T dependency that may be missing.
type Optional[T any] struct {
	value T
	ok    bool
}

var _ optionalType = Optional[int]{}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

// IsPresent reports whether a value is present.
func (o Optional[T]) IsPresent() bool { return o.ok }

// OrElse returns the value if present and def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

func (Optional[T]) wrappedType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (Optional[T]) optionalOf(v interface{}) interface{} {
	if v == nil {
		return Optional[T]{}
	}
	return Optional[T]{value: v.(T), ok: true}
}

// Provider resolves a T dependency on demand instead of at injection time.
// Injecting a Provider never fails; errors surface from its methods.
//
// Calls made while the bean that received the Provider is still being
// created take part in that creation, so circular references are detected
// as usual. Such calls must happen on the creating goroutine.
type Provider[T any] struct {
	p *beanProvider
}

var _ providerType = Provider[int]{}

// Get resolves the dependency, failing if no unique bean matches.
func (p Provider[T]) Get() (T, error) {
	v, err := p.p.resolve(false, false)
	return providerResult[T](v, err)
}

// GetIfAvailable resolves the dependency, reporting false when no bean
// matches. Several matches without a tie-break still fail.
func (p Provider[T]) GetIfAvailable() (T, bool, error) {
	v, err := p.p.resolve(true, false)
	t, err := providerResult[T](v, err)
	return t, err == nil && v != nil, err
}

// GetIfUnique resolves the dependency, reporting false when no bean or
// several equally eligible beans match.
func (p Provider[T]) GetIfUnique() (T, bool, error) {
	v, err := p.p.resolve(true, true)
	t, err := providerResult[T](v, err)
	return t, err == nil && v != nil, err
}

func providerResult[T any](v interface{}, err error) (T, error) {
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	return v.(T), nil
}

func (Provider[T]) wrappedType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (Provider[T]) providerOf(p *beanProvider) interface{} {
	return Provider[T]{p: p}
}

// beanProvider captures what a Provider needs to resolve its dependency
// later.
type beanProvider struct {
	f         *Factory
	r         *request
	d         *DependencyDescriptor
	requester string
	converter TypeConverter
}

func (p *beanProvider) resolve(optional, nonUniqueAsNil bool) (interface{}, error) {
	if p == nil {
		return nil, errors.New("provider was not injected by a bean factory")
	}
	d := *p.d
	d.Optional = d.Optional || optional
	d.nonUniqueAsNil = nonUniqueAsNil

	r := p.r
	if r == nil || !r.active() {
		r = newRequest()
		defer r.close()
	}
	return p.f.doResolveDependency(r, &d, p.requester, nil, p.converter)
}
