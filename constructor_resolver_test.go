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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/beans/config"
)

type engine struct{ kind string }

type wheel struct{ size int }

type car struct {
	engine *engine
	wheel  *wheel
	name   string
	seats  int
	via    string
}

func newEngine(kind string) *BeanDefinition {
	return NewDefinition(WithConstructor(func() *engine { return &engine{kind: kind} }))
}

func newWheel(size int) *BeanDefinition {
	return NewDefinition(WithConstructor(func() *wheel { return &wheel{size: size} }))
}

// carConstructors declares a default constructor and two greedier ones.
func carConstructors() []DefinitionOption {
	return []DefinitionOption{
		WithConstructor(func() *car { return &car{via: "default"} }),
		WithConstructor(func(e *engine) *car { return &car{engine: e, via: "engine"} }),
		WithConstructor(func(e *engine, w *wheel) *car { return &car{engine: e, wheel: w, via: "engine+wheel"} }),
	}
}

func carBean(t *testing.T, f *Factory, name string) *car {
	t.Helper()
	return mustBean(t, f, name).(*car)
}

func TestConstructorResolution(t *testing.T) {
	t.Run("GreediestSatisfiable", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(carConstructors()...))

		c := carBean(t, f, "car")
		assert.Equal(t, "engine", c.via)
		assert.Equal(t, "v8", c.engine.kind)

		cache := f.ResolutionCache("car")
		assert.Equal(t, ResolvedPrepared, cache.State(), "autowired arguments are resolved again on reuse")
		assert.Len(t, cache.Executable().ParamTypes(), 1)
		assert.Equal(t, []string{"car"}, f.DependentBeans("engine"))
	})

	t.Run("AllSatisfiable", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "wheel", newWheel(17))
		mustRegister(t, f, "car", NewDefinition(carConstructors()...))

		c := carBean(t, f, "car")
		assert.Equal(t, "engine+wheel", c.via)
		assert.Equal(t, 17, c.wheel.size)
	})

	t.Run("FallsBackToDefault", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(carConstructors()...))

		assert.Equal(t, "default", carBean(t, f, "car").via)
		assert.Equal(t, ResolvedFull, f.ResolutionCache("car").State())
	})

	t.Run("ReusesCachedExecutable", func(t *testing.T) {
		rec := &recorder{}
		f := NewFactory(WithLogger(rec))
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(append(carConstructors(), Prototype())...))

		first := carBean(t, f, "car")
		second := carBean(t, f, "car")
		assert.NotSame(t, first, second)
		assert.Same(t, first.engine, second.engine)

		events := rec.resolved("car")
		require.Len(t, events, 2)
		assert.False(t, events[0].Cached)
		assert.True(t, events[1].Cached)
	})

	t.Run("Deterministic", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "wheel", newWheel(17))
		mustRegister(t, f, "car", NewDefinition(carConstructors()...))

		first, args, err := f.ResolveExecutable("car", nil, nil)
		require.NoError(t, err)
		assert.Len(t, args, 2)
		for i := 0; i < 3; i++ {
			e, _, err := f.ResolveExecutable("car", nil, nil)
			require.NoError(t, err)
			assert.Equal(t, first, e)
		}
		assert.NotContains(t, f.SingletonNames(), "car", "resolving must not create the bean")
	})

	t.Run("LenientTieTakesFirstDeclared", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{via: "first"} }),
			WithConstructor(func(e *engine) *car { return &car{via: "second"} }),
		))

		assert.Equal(t, "first", carBean(t, f, "car").via)
	})

	t.Run("StrictTieFails", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{via: "first"} }),
			WithConstructor(func(e *engine) *car { return &car{via: "second"} }),
			StrictResolution(),
		))

		_, err := f.Bean("car")
		var amb *AmbiguousExecutableError
		require.True(t, errors.As(err, &amb), "expected AmbiguousExecutableError, got %v", err)
		assert.Equal(t, "constructor", amb.Kind)
		assert.Len(t, amb.Candidates, 2)
		assert.Equal(t, Unresolved, f.ResolutionCache("car").State(), "failed resolution must not be cached")
	})

	t.Run("SwappedParameterOrder", func(t *testing.T) {
		swapped := func(opts ...DefinitionOption) *BeanDefinition {
			e, w := &engine{kind: "v6"}, &wheel{size: 17}
			return NewDefinition(append([]DefinitionOption{
				WithConstructor(func(e *engine, w *wheel) *car { return &car{engine: e, wheel: w, via: "engine+wheel"} }),
				WithConstructor(func(w *wheel, e *engine) *car { return &car{engine: e, wheel: w, via: "wheel+engine"} }),
				WithGenericArg(w),
				WithGenericArg(e),
			}, opts...)...)
		}

		t.Run("Lenient", func(t *testing.T) {
			f := NewFactory()
			mustRegister(t, f, "car", swapped())

			c := carBean(t, f, "car")
			assert.Equal(t, "engine+wheel", c.via)
			assert.Equal(t, "v6", c.engine.kind)
			assert.Equal(t, 17, c.wheel.size)
		})

		t.Run("Strict", func(t *testing.T) {
			f := NewFactory()
			mustRegister(t, f, "car", swapped(StrictResolution()))

			_, err := f.Bean("car")
			var amb *AmbiguousExecutableError
			require.True(t, errors.As(err, &amb), "expected AmbiguousExecutableError, got %v", err)
			assert.Len(t, amb.Candidates, 2)
			assert.Contains(t, err.Error(), "ambiguous constructor matches found")
		})
	})

	t.Run("PrefersExactTypes", func(t *testing.T) {
		f := NewFactory()
		e := &engine{kind: "given"}
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(v interface{}) *car { return &car{via: "any"} }),
			WithConstructor(func(e *engine) *car { return &car{engine: e, via: "engine"} }),
			WithArg(0, e),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "engine", c.via)
		assert.Same(t, e, c.engine)
	})

	t.Run("PrefersCandidatesWithoutConversion", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n, via: "int"} }),
			WithConstructor(func(s string) *car { return &car{name: s, via: "string"} }),
			WithArg(0, "42"),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "string", c.via)
		assert.Equal(t, "42", c.name)
	})

	t.Run("ConvertsArguments", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n} }),
			WithArg(0, "42"),
		))

		assert.Equal(t, 42, carBean(t, f, "car").seats)
	})

	t.Run("ConversionFailure", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n} }),
			WithArg(0, "many"),
		))

		_, err := f.Bean("car")
		var ude *UnsatisfiedDependencyError
		require.True(t, errors.As(err, &ude), "expected UnsatisfiedDependencyError, got %v", err)
		var tme *TypeMismatchError
		assert.True(t, errors.As(err, &tme))
	})

	t.Run("IndexedArguments", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(name string, seats int) *car { return &car{name: name, seats: seats} }),
			WithArg(1, 4),
			WithArg(0, "coupe"),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "coupe", c.name)
		assert.Equal(t, 4, c.seats)
	})

	t.Run("GenericArgumentsMatchedByType", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(name string, seats int) *car { return &car{name: name, seats: seats} }),
			WithGenericArg(3),
			WithGenericArg("sedan"),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "sedan", c.name)
		assert.Equal(t, 3, c.seats)
	})

	t.Run("NamedArgumentWithAutowiring", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(
				func(e *engine, name string) *car { return &car{engine: e, name: name} },
				ParamNames("engine", "name"),
			),
			WithGenericArgValue(&ValueHolder{Value: "fast", Name: "name"}),
			WithAutowire(AutowireConstructor),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "fast", c.name)
		assert.Equal(t, "v8", c.engine.kind)
	})

	t.Run("MissingArgumentWithoutAutowiring", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine, name string) *car { return &car{engine: e, name: name} }),
			WithArg(1, "fast"),
		))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ambiguous argument values for parameter of type *beans.engine")
	})

	t.Run("InvalidIndex", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n} }),
			WithArg(-1, 1),
		))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid constructor argument index: -1")
	})

	t.Run("ArgumentsWithoutConstructor", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithTypeOf(&car{}), WithArg(0, 1)))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constructor arguments given but no constructor is declared")
	})

	t.Run("UnsatisfiedDependency", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{engine: e} }),
		))

		_, err := f.Bean("car")
		var ude *UnsatisfiedDependencyError
		require.True(t, errors.As(err, &ude), "expected UnsatisfiedDependencyError, got %v", err)
		assert.Equal(t, "car", ude.Bean)
		assert.Equal(t, 0, ude.Point.ParamIndex)
		assert.Contains(t, err.Error(), "unsatisfied dependency expressed through parameter 0 of")

		var nsb *NoSuchBeanError
		assert.True(t, errors.As(err, &nsb))
		assert.Equal(t, Unresolved, f.ResolutionCache("car").State())
	})

	t.Run("SuppressedCauses", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{engine: e} }),
			WithConstructor(func(e *engine, w *wheel) *car { return &car{engine: e, wheel: w} }),
		))

		_, err := f.Bean("car")
		require.Error(t, err)
		suppressed := Suppressed(err)
		require.Len(t, suppressed, 1, "the greedier candidate's failure must be kept")
		assert.Contains(t, suppressed[0].Error(), "parameter 0 of")
		assert.Contains(t, suppressed[0].Error(), "*beans.engine")
	})

	t.Run("OptionalParameter", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(
				func(e *engine) *car { return &car{engine: e, via: "engine"} },
				OptionalParams(0),
			),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "engine", c.via)
		assert.Nil(t, c.engine)
	})

	t.Run("QualifiedParameter", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "v6", newEngine("v6"))
		mustRegister(t, f, "v8", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(
				func(e *engine) *car { return &car{engine: e} },
				ParamQualifier(0, "v8"),
			),
		))

		assert.Equal(t, "v8", carBean(t, f, "car").engine.kind)
	})

	t.Run("ParameterNameBreaksTie", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "v6", newEngine("v6"))
		mustRegister(t, f, "v8", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(
				func(e *engine) *car { return &car{engine: e} },
				ParamNames("v6"),
			),
		))

		assert.Equal(t, "v6", carBean(t, f, "car").engine.kind)
	})

	t.Run("ReferenceArgument", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{engine: e} }),
			WithArg(0, Ref("engine")),
		))

		c := carBean(t, f, "car")
		assert.Same(t, mustBean(t, f, "engine"), c.engine)
		assert.Equal(t, []string{"car"}, f.DependentBeans("engine"))
		assert.Equal(t, ResolvedPrepared, f.ResolutionCache("car").State())
	})

	t.Run("InnerBeanArgument", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(e *engine) *car { return &car{engine: e} }),
			WithArg(0, newEngine("inner")),
		))

		assert.Equal(t, "inner", carBean(t, f, "car").engine.kind)
		assert.Equal(t, []string{"car"}, f.SingletonNames(), "inner beans are not registered")
	})

	t.Run("ListArgument", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(sizes []int) *car {
				total := 0
				for _, s := range sizes {
					total += s
				}
				return &car{seats: total}
			}),
			WithArg(0, List{"1", 2, "3"}),
		))

		assert.Equal(t, 6, carBean(t, f, "car").seats)
	})

	t.Run("MapArgument", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(parts map[string]*engine) *car { return &car{engine: parts["main"]} }),
			WithArg(0, Map{"main": Ref("engine")}),
		))

		assert.Equal(t, "v8", carBean(t, f, "car").engine.kind)
	})

	t.Run("PlaceholderArgument", func(t *testing.T) {
		f := NewFactory(WithProperties(config.NewStaticProvider(map[string]interface{}{
			"car": map[string]interface{}{"seats": 5},
		})))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n} }),
			WithArg(0, "${car.seats}"),
		))

		assert.Equal(t, 5, carBean(t, f, "car").seats)
	})

	t.Run("ParameterValueExpression", func(t *testing.T) {
		f := NewFactory(WithProperties(config.NewStaticProvider(map[string]interface{}{})))
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(
				func(n int) *car { return &car{seats: n} },
				ParamValue(0, "${car.seats:4}"),
			),
		))

		assert.Equal(t, 4, carBean(t, f, "car").seats)
	})

	t.Run("PublicOnly", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func() *car { return &car{via: "closure"} }),
			PublicOnly(),
		))

		_, err := f.Bean("car")
		require.Error(t, err, "closures are not public and must be skipped")
	})

	t.Run("ConstructorError", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func() (*car, error) { return nil, errors.New("great sadness") }),
		))

		_, err := f.Bean("car")
		var bce *BeanCreationError
		require.True(t, errors.As(err, &bce))
		assert.Contains(t, err.Error(), "bean instantiation via constructor failed: great sadness")
	})

	t.Run("ConstructorPanic", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func() *car { panic("great sadness") }),
		))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked: great sadness")
	})
}

func TestExplicitArguments(t *testing.T) {
	newFactory := func(t *testing.T) *Factory {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(
			WithConstructor(func(n int) *car { return &car{seats: n, via: "int"} }),
			WithConstructor(func(s string) *car { return &car{name: s, via: "string"} }),
			Prototype(),
		))
		return f
	}

	t.Run("SelectsByWeight", func(t *testing.T) {
		f := newFactory(t)

		bean, err := f.BeanWithArgs("car", 7)
		require.NoError(t, err)
		assert.Equal(t, &car{seats: 7, via: "int"}, bean)

		bean, err = f.BeanWithArgs("car", "x")
		require.NoError(t, err)
		assert.Equal(t, &car{name: "x", via: "string"}, bean)
	})

	t.Run("NeverCached", func(t *testing.T) {
		f := newFactory(t)
		_, err := f.BeanWithArgs("car", 7)
		require.NoError(t, err)
		assert.Equal(t, Unresolved, f.ResolutionCache("car").State())
		assert.Nil(t, f.ResolutionCache("car").Executable())
	})

	t.Run("ExactArgumentCount", func(t *testing.T) {
		f := newFactory(t)
		_, err := f.BeanWithArgs("car", 1, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not resolve matching constructor on *beans.car")
	})

	t.Run("ResolveExecutable", func(t *testing.T) {
		f := newFactory(t)
		e, args, err := f.ResolveExecutable("car", nil, []interface{}{"x"})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"x"}, args)
		assert.Equal(t, "string", e.ParamTypes()[0].String())
	})

	t.Run("ReplacementCandidates", func(t *testing.T) {
		f := newFactory(t)
		only := Constructor(func(n int) *car { return &car{seats: n} })
		e, _, err := f.ResolveExecutable("car", []Executable{only}, []interface{}{"x"})
		require.NoError(t, err, "the candidate is chosen even though it cannot take the argument")
		assert.Equal(t, only, e)
	})
}

type carFactory struct{ prefix string }

func (cf *carFactory) NewCar() *car {
	return &car{name: cf.prefix + "-car", via: "instance"}
}

func (cf *carFactory) Build(name string, seats int) *car {
	return &car{name: cf.prefix + "-" + name, seats: seats}
}

type presets struct{}

func (presets) Sedan() *car { return &car{name: "sedan", via: "static"} }

func (presets) Nothing() {}

func newCarFactory(prefix string) *BeanDefinition {
	return NewDefinition(WithConstructor(func() *carFactory { return &carFactory{prefix: prefix} }))
}

func TestFactoryMethods(t *testing.T) {
	t.Run("Instance", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "maker", newCarFactory("acme"))
		mustRegister(t, f, "car", NewDefinition(WithFactoryMethod("maker", "NewCar")))

		typ, err := f.TypeOf("car")
		require.NoError(t, err)
		assert.Equal(t, "*beans.car", typ.String())

		c := carBean(t, f, "car")
		assert.Equal(t, "acme-car", c.name)
		assert.Equal(t, "instance", c.via)
		assert.Equal(t, []string{"car"}, f.DependentBeans("maker"))

		cache := f.ResolutionCache("car")
		assert.Equal(t, ResolvedFull, cache.State())
		assert.Equal(t, "NewCar", cache.Executable().Name())
	})

	t.Run("InstanceWithArguments", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "maker", newCarFactory("acme"))
		mustRegister(t, f, "car", NewDefinition(
			WithFactoryMethod("maker", "Build"),
			WithArg(0, "roadster"),
			WithArg(1, "2"),
		))

		c := carBean(t, f, "car")
		assert.Equal(t, "acme-roadster", c.name)
		assert.Equal(t, 2, c.seats)
	})

	t.Run("ExplicitArguments", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "maker", newCarFactory("acme"))
		mustRegister(t, f, "car", NewDefinition(WithFactoryMethod("maker", "Build"), Prototype()))

		bean, err := f.BeanWithArgs("car", "van", 8)
		require.NoError(t, err)
		assert.Equal(t, &car{name: "acme-van", seats: 8}, bean)
	})

	t.Run("Static", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithTypeOf(presets{}), WithFactoryMethod("", "Sedan")))

		typ, err := f.TypeOf("car")
		require.NoError(t, err)
		assert.Equal(t, "*beans.car", typ.String())

		c := carBean(t, f, "car")
		assert.Equal(t, "sedan", c.name)
		assert.Equal(t, "static", c.via)
	})

	t.Run("Overloads", func(t *testing.T) {
		def := NewDefinition(
			WithTypeOf(&car{}),
			WithFactoryMethod("", "build"),
			WithFactoryOverloads(
				StaticMethod("build", func() *car { return &car{via: "none"} }),
				StaticMethod("build", func(e *engine) *car { return &car{engine: e, via: "engine"} }),
				StaticMethod("other", func(e *engine, w *wheel) *car { return &car{via: "other"} }),
			),
		)

		f := NewFactory()
		mustRegister(t, f, "car", def)
		assert.Equal(t, "none", carBean(t, f, "car").via)

		f = NewFactory()
		mustRegister(t, f, "engine", newEngine("v8"))
		mustRegister(t, f, "wheel", newWheel(17))
		mustRegister(t, f, "car", def)
		assert.Equal(t, "engine", carBean(t, f, "car").via)
	})

	t.Run("StrictAmbiguity", func(t *testing.T) {
		opts := []DefinitionOption{
			WithTypeOf(&car{}),
			WithFactoryMethod("", "build"),
			WithFactoryOverloads(
				StaticMethod("build", func(e *engine) *car { return &car{via: "engine"} }),
				StaticMethod("build", func(w *wheel) *car { return &car{via: "wheel"} }),
			),
		}
		newFactory := func(t *testing.T, opts ...DefinitionOption) *Factory {
			f := NewFactory()
			mustRegister(t, f, "engine", newEngine("v8"))
			mustRegister(t, f, "wheel", newWheel(17))
			mustRegister(t, f, "car", NewDefinition(opts...))
			return f
		}

		assert.Equal(t, "engine", carBean(t, newFactory(t, opts...), "car").via)

		_, err := newFactory(t, append(opts, StrictResolution())...).Bean("car")
		var amb *AmbiguousExecutableError
		require.True(t, errors.As(err, &amb), "expected AmbiguousExecutableError, got %v", err)
		assert.Equal(t, "factory method", amb.Kind)
	})

	t.Run("Void", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithTypeOf(presets{}), WithFactoryMethod("", "Nothing")))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid factory method "Nothing"`)
		assert.Contains(t, err.Error(), "needs to have a non-void return type")
	})

	t.Run("MissingMethod", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithTypeOf(presets{}), WithFactoryMethod("", "Missing")))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no matching factory method found on beans.presets: factory method "Missing"`)
	})

	t.Run("FactoryBeanIsSelf", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithFactoryMethod("car", "NewCar")))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "factory-bean reference points back to the same bean definition")
	})

	t.Run("NoFactoryType", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithFactoryMethod("", "Sedan")))

		_, err := f.Bean("car")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares neither a bean type nor a factory-bean reference")
	})

	t.Run("MissingFactoryBean", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "car", NewDefinition(WithFactoryMethod("maker", "NewCar")))

		_, err := f.Bean("car")
		var nsb *NoSuchBeanError
		require.True(t, errors.As(err, &nsb), "expected NoSuchBeanError, got %v", err)
		assert.Equal(t, "maker", nsb.Name)
	})
}

func TestConcurrentPrototypeResolution(t *testing.T) {
	f := NewFactory()
	mustRegister(t, f, "engine", newEngine("v8"))
	mustRegister(t, f, "car", NewDefinition(append(carConstructors(), Prototype())...))

	const n = 8
	var (
		wg   sync.WaitGroup
		cars = make([]interface{}, n)
		errs = make([]error, n)
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			cars[i], errs[i] = f.Bean("car")
		}(i)
	}
	wg.Wait()

	shared := mustBean(t, f, "engine")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		c := cars[i].(*car)
		assert.Equal(t, "engine", c.via)
		assert.Same(t, shared, c.engine)
	}
	assert.Equal(t, ResolvedPrepared, f.ResolutionCache("car").State())
}
