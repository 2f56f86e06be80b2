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

// Package beanstest provides test helpers for code built on bean factories.
package beanstest

import (
	"go.uber.org/beans"
)

// TB is a subset of the standard library's testing.TB interface. It's
// satisfied by both *testing.T and *testing.B.
type TB interface {
	Logf(string, ...interface{})
	Errorf(string, ...interface{})
	FailNow()
}

// Factory is a wrapper around beans.Factory that fails the test on
// registration and lookup errors and logs factory events to the test.
type Factory struct {
	*beans.Factory

	tb  TB
	spy *Spy
}

// New builds a bean factory whose events are captured by a Spy and written
// to tb. Options are applied after the logger, so WithLogger replaces it.
func New(tb TB, opts ...beans.Option) *Factory {
	spy := &Spy{tb: tb}
	opts = append([]beans.Option{beans.WithLogger(spy)}, opts...)
	return &Factory{
		Factory: beans.NewFactory(opts...),
		tb:      tb,
		spy:     spy,
	}
}

// Spy returns the event spy attached to the factory.
func (f *Factory) Spy() *Spy {
	return f.spy
}

// MustRegister registers def under name, failing the test on error.
func (f *Factory) MustRegister(name string, def *beans.BeanDefinition) *Factory {
	if err := f.RegisterDefinition(name, def); err != nil {
		f.tb.Errorf("could not register bean definition %q: %v", name, err)
		f.tb.FailNow()
	}
	return f
}

// MustRegisterSingleton registers an existing object as a singleton,
// failing the test on error.
func (f *Factory) MustRegisterSingleton(name string, bean interface{}) *Factory {
	if err := f.RegisterSingleton(name, bean); err != nil {
		f.tb.Errorf("could not register singleton %q: %v", name, err)
		f.tb.FailNow()
	}
	return f
}

// MustBean returns the bean registered under name, failing the test if it
// cannot be created.
func (f *Factory) MustBean(name string) interface{} {
	bean, err := f.Bean(name)
	if err != nil {
		f.tb.Errorf("could not get bean %q: %v", name, err)
		f.tb.FailNow()
	}
	return bean
}

// RequirePreInstantiate creates all eager singletons, failing the test on
// error.
func (f *Factory) RequirePreInstantiate() *Factory {
	if err := f.PreInstantiateSingletons(); err != nil {
		f.tb.Errorf("singletons didn't instantiate cleanly: %v", err)
		f.tb.FailNow()
	}
	return f
}

// RequireDestroy destroys all singletons, failing the test on error.
func (f *Factory) RequireDestroy() {
	if err := f.DestroySingletons(); err != nil {
		f.tb.Errorf("singletons didn't destroy cleanly: %v", err)
		f.tb.FailNow()
	}
}

// BeanOf returns the bean registered under name as a T, failing the test if
// it cannot be created or is of another type.
func BeanOf[T any](f *Factory, name string) T {
	var zero T
	bean := f.MustBean(name)
	v, ok := bean.(T)
	if !ok {
		f.tb.Errorf("bean %q is a %T, not a %T", name, bean, zero)
		f.tb.FailNow()
	}
	return v
}
