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

// Package beansfx runs a bean factory inside an fx application.
//
// Module provides a *beans.Factory built from the definitions and options
// contributed with Register and Options. Singletons are created when the
// application starts and destroyed when it stops:
//
//	app := fx.New(
//	  beansfx.Module,
//	  beansfx.Register("db", beans.NewDefinition(beans.WithConstructor(NewDB))),
//	  beansfx.Bean[*DB]("db"),
//	  fx.Invoke(func(p struct {
//	    fx.In
//	    DB *DB `name:"db"`
//	  }) {
//	    ...
//	  }),
//	)
package beansfx

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/beans"
	"go.uber.org/beans/beanevent"
	"go.uber.org/beans/config"
	"go.uber.org/dig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_definitionsGroup = "beans.definitions"
	_optionsGroup     = "beans.options"
)

var _lifecycleType = reflect.TypeOf((*fx.Lifecycle)(nil)).Elem()

// Module provides a *beans.Factory to the application. See New.
var Module = fx.Provide(New)

// Definition is a named bean definition contributed to the factory built
// by New.
type Definition struct {
	Name       string
	Definition *beans.BeanDefinition
}

// Params lists the dependencies of New.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle

	// Logger receives factory events when present.
	Logger *zap.Logger `optional:"true"`

	// Properties back ${key:default} placeholders when present.
	Properties config.Provider `optional:"true"`

	Definitions []Definition   `group:"beans.definitions"`
	Options     []beans.Option `group:"beans.options"`
}

// New builds a factory from the contributed definitions and options.
//
// The application's fx.Lifecycle is injectable into beans. Non-lazy
// singletons are created by an OnStart hook and all singletons are
// destroyed by an OnStop hook.
func New(p Params) (*beans.Factory, error) {
	var opts []beans.Option
	if p.Logger != nil {
		opts = append(opts, beans.WithLogger(&beanevent.ZapLogger{Logger: p.Logger}))
	}
	if p.Properties != nil {
		opts = append(opts, beans.WithProperties(p.Properties))
	}
	f := beans.NewFactory(append(opts, p.Options...)...)

	for _, d := range p.Definitions {
		if err := f.RegisterDefinition(d.Name, d.Definition); err != nil {
			return nil, err
		}
	}
	if err := f.RegisterResolvableDependency(_lifecycleType, p.Lifecycle); err != nil {
		return nil, err
	}
	f.FreezeConfiguration()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return f.PreInstantiateSingletons()
		},
		OnStop: func(context.Context) error {
			return f.DestroySingletons()
		},
	})
	return f, nil
}

// Register contributes a bean definition to the factory built by New.
func Register(name string, def *beans.BeanDefinition) fx.Option {
	return fx.Provide(fx.Annotated{
		Group: _definitionsGroup,
		Target: func() Definition {
			return Definition{Name: name, Definition: def}
		},
	})
}

// Options contributes factory options to the factory built by New.
func Options(opts ...beans.Option) fx.Option {
	provides := make([]interface{}, len(opts))
	for i, opt := range opts {
		opt := opt
		provides[i] = fx.Annotated{
			Group:  _optionsGroup,
			Target: func() beans.Option { return opt },
		}
	}
	return fx.Provide(provides...)
}

// Bean provides the bean registered under name to the application as a
// value of type T named name.
func Bean[T any](name string) fx.Option {
	return fx.Provide(fx.Annotated{
		Name: name,
		Target: func(f *beans.Factory) (T, error) {
			var zero T
			bean, err := f.BeanAs(name, reflect.TypeOf((*T)(nil)).Elem())
			if err != nil {
				return zero, err
			}
			if bean == nil {
				return zero, nil
			}
			return bean.(T), nil
		},
	})
}

// BeanOfType provides the unique bean assignable to T to the application.
func BeanOfType[T any]() fx.Option {
	return fx.Provide(func(f *beans.Factory) (T, error) {
		var zero T
		bean, err := f.BeanOfType(reflect.TypeOf((*T)(nil)).Elem())
		if err != nil || bean == nil {
			return zero, err
		}
		return bean.(T), nil
	})
}

// ExportTo provides the named beans of f to c, each as a value of the
// bean's type named after the bean. Beans are created when first requested
// from c.
func ExportTo(c *dig.Container, f *beans.Factory, names ...string) error {
	for _, name := range names {
		t, err := f.TypeOf(name)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("cannot export bean %q: its type is unknown before creation", name)
		}
		if err := c.Provide(beanConstructor(f, name, t), dig.Name(name)); err != nil {
			return fmt.Errorf("cannot export bean %q: %v", name, err)
		}
	}
	return nil
}

var _errorType = reflect.TypeOf((*error)(nil)).Elem()

// beanConstructor builds a func() (t, error) returning the named bean.
func beanConstructor(f *beans.Factory, name string, t reflect.Type) interface{} {
	ft := reflect.FuncOf(nil, []reflect.Type{t, _errorType}, false)
	fn := reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
		bean, err := f.BeanAs(name, t)
		if err != nil {
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}
		v := reflect.New(t).Elem()
		if bean != nil {
			v.Set(reflect.ValueOf(bean))
		}
		return []reflect.Value{v, reflect.Zero(_errorType)}
	})
	return fn.Interface()
}
