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
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/beans/beanevent"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type thing struct {
	Name string
	N    int
}

type store interface {
	ID() string
}

type memStore struct{ id string }

func (s *memStore) ID() string { return s.id }

var (
	_storeType = reflect.TypeOf((*store)(nil)).Elem()
	_thingType = reflect.TypeOf(&thing{})
)

// newStore describes a *memStore bean whose type is known before creation.
func newStore(id string, opts ...DefinitionOption) *BeanDefinition {
	return NewDefinition(append([]DefinitionOption{
		WithConstructor(func() *memStore { return &memStore{id: id} }),
	}, opts...)...)
}

func newThing(name string, opts ...DefinitionOption) *BeanDefinition {
	return NewDefinition(append([]DefinitionOption{
		WithConstructor(func() *thing { return &thing{Name: name} }),
	}, opts...)...)
}

func mustRegister(t *testing.T, f *Factory, name string, def *BeanDefinition) {
	t.Helper()
	require.NoError(t, f.RegisterDefinition(name, def), "could not register %q", name)
}

func mustBean(t *testing.T, f *Factory, name string) interface{} {
	t.Helper()
	bean, err := f.Bean(name)
	require.NoError(t, err, "could not get bean %q", name)
	return bean
}

// recorder captures factory events.
type recorder struct {
	mu     sync.Mutex
	events []beanevent.Event
}

func (r *recorder) LogEvent(e beanevent.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) resolved(bean string) []*beanevent.ExecutableResolved {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*beanevent.ExecutableResolved
	for _, e := range r.events {
		if er, ok := e.(*beanevent.ExecutableResolved); ok && er.Bean == bean {
			out = append(out, er)
		}
	}
	return out
}

func (r *recorder) registered() []*beanevent.Registered {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*beanevent.Registered
	for _, e := range r.events {
		if reg, ok := e.(*beanevent.Registered); ok {
			out = append(out, reg)
		}
	}
	return out
}

func TestRegisterDefinition(t *testing.T) {
	t.Run("KeepsRegistrationOrder", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "b", newThing("b"))
		mustRegister(t, f, "a", newThing("a"))

		assert.Equal(t, []string{"b", "a"}, f.DefinitionNames())
		assert.Equal(t, 2, f.DefinitionCount())
		assert.True(t, f.ContainsDefinition("a"))
		assert.False(t, f.ContainsDefinition("c"))
	})

	t.Run("EmptyName", func(t *testing.T) {
		err := NewFactory().RegisterDefinition("", newThing("x"))
		var dse *DefinitionStoreError
		require.True(t, errors.As(err, &dse), "expected a DefinitionStoreError, got %v", err)
		assert.Contains(t, err.Error(), "bean name must not be empty")
	})

	t.Run("NilDefinition", func(t *testing.T) {
		err := NewFactory().RegisterDefinition("x", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bean definition must not be nil")
	})

	t.Run("DuplicateWithoutOverriding", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("one"))

		err := f.RegisterDefinition("x", newThing("two"))
		var dse *DefinitionStoreError
		require.True(t, errors.As(err, &dse))
		assert.Equal(t, "x", dse.Name)
		assert.Contains(t, err.Error(), "overriding is disabled")
		assert.Equal(t, "one", mustBean(t, f, "x").(*thing).Name, "original definition must survive")
	})

	t.Run("OverrideEvictsSingleton", func(t *testing.T) {
		rec := &recorder{}
		f := NewFactory(WithAllowOverriding(true), WithLogger(rec))
		mustRegister(t, f, "x", newThing("one"))
		first := mustBean(t, f, "x").(*thing)

		mustRegister(t, f, "x", newThing("two"))
		second := mustBean(t, f, "x").(*thing)

		assert.Equal(t, "one", first.Name)
		assert.Equal(t, "two", second.Name)
		assert.Equal(t, []string{"x"}, f.DefinitionNames(), "overriding must not duplicate the name")

		regs := rec.registered()
		require.Len(t, regs, 2)
		assert.False(t, regs[0].Overridden)
		assert.True(t, regs[1].Overridden)
	})

	t.Run("FactoryMethodWithMethodOverrides", func(t *testing.T) {
		err := NewFactory().RegisterDefinition("x", NewDefinition(
			WithTypeOf(&thing{}),
			WithFactoryMethod("maker", "Make"),
			WithMethodOverrides(),
		))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot combine factory method with container-generated method overrides")
	})

	t.Run("NothingToBuild", func(t *testing.T) {
		err := NewFactory().RegisterDefinition("x", NewDefinition())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares no type, constructor, factory method or supplier")
	})

	t.Run("InvalidConstructor", func(t *testing.T) {
		err := NewFactory().RegisterDefinition("x", NewDefinition(WithConstructor(42)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "executable must be a function, got int")
	})

	t.Run("NameUsedAsAlias", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x"))
		require.NoError(t, f.RegisterAlias("x", "y"))

		err := f.RegisterDefinition("y", newThing("y"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `name is already used as an alias for "x"`)
	})
}

func TestRemoveDefinition(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		err := NewFactory().RemoveDefinition("nope")
		var nsb *NoSuchBeanError
		require.True(t, errors.As(err, &nsb))
		assert.Equal(t, "nope", nsb.Name)
	})

	t.Run("DestroysSingleton", func(t *testing.T) {
		var destroyed []string
		f := NewFactory(WithDestroyCallback(func(name string, _ interface{}) error {
			destroyed = append(destroyed, name)
			return nil
		}))
		mustRegister(t, f, "x", newThing("x"))
		mustBean(t, f, "x")

		require.NoError(t, f.RemoveDefinition("x"))
		assert.False(t, f.ContainsDefinition("x"))
		assert.Empty(t, f.SingletonNames())
		assert.Equal(t, []string{"x"}, destroyed)

		_, err := f.Bean("x")
		var nsb *NoSuchBeanError
		assert.True(t, errors.As(err, &nsb))
	})

	t.Run("ReportsDestroyFailure", func(t *testing.T) {
		f := NewFactory(WithDestroyCallback(func(name string, _ interface{}) error {
			return fmt.Errorf("cannot close %v", name)
		}))
		mustRegister(t, f, "x", newThing("x"))
		mustBean(t, f, "x")

		err := f.RemoveDefinition("x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot close x")
		assert.False(t, f.ContainsDefinition("x"), "the definition is removed regardless")
		assert.Empty(t, f.SingletonNames())
	})
}

func TestOverrideReportsDestroyFailure(t *testing.T) {
	f := NewFactory(
		WithAllowOverriding(true),
		WithDestroyCallback(func(name string, _ interface{}) error {
			return fmt.Errorf("cannot close %v", name)
		}),
	)
	mustRegister(t, f, "base", newThing("base"))
	mustRegister(t, f, "child", NewDefinition(WithParentDefinition("base")))
	mustBean(t, f, "base")
	mustBean(t, f, "child")

	err := f.RegisterDefinition("base", newThing("updated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot close base")
	assert.Contains(t, err.Error(), "cannot close child")
	assert.Equal(t, "updated", mustBean(t, f, "base").(*thing).Name, "the new definition is in place")
}

func TestAliases(t *testing.T) {
	newFactory := func(t *testing.T) *Factory {
		f := NewFactory()
		mustRegister(t, f, "engine", newThing("engine"))
		require.NoError(t, f.RegisterAlias("engine", "motor"))
		return f
	}

	t.Run("ResolvesToSameBean", func(t *testing.T) {
		f := newFactory(t)
		assert.Same(t, mustBean(t, f, "engine"), mustBean(t, f, "motor"))
		assert.True(t, f.IsAlias("motor"))
		assert.False(t, f.IsAlias("engine"))
		assert.Equal(t, []string{"motor"}, f.Aliases("engine"))
		assert.Equal(t, []string{"engine"}, f.Aliases("motor"))
		assert.True(t, f.Contains("motor"))
	})

	t.Run("Chained", func(t *testing.T) {
		f := newFactory(t)
		require.NoError(t, f.RegisterAlias("motor", "m2"))
		assert.Same(t, mustBean(t, f, "engine"), mustBean(t, f, "m2"))
		assert.Equal(t, []string{"m2", "motor"}, f.Aliases("engine"))
	})

	t.Run("ConflictWithoutOverriding", func(t *testing.T) {
		f := newFactory(t)
		err := f.RegisterAlias("other", "motor")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `already registered for "engine"`)
	})

	t.Run("SameAliasTwice", func(t *testing.T) {
		f := newFactory(t)
		assert.NoError(t, f.RegisterAlias("engine", "motor"))
	})

	t.Run("Circular", func(t *testing.T) {
		f := newFactory(t)
		err := f.RegisterAlias("motor", "engine")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular reference")
	})

	t.Run("AliasEqualToName", func(t *testing.T) {
		f := newFactory(t)
		require.NoError(t, f.RegisterAlias("engine", "engine"))
		assert.False(t, f.IsAlias("engine"))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Error(t, NewFactory().RegisterAlias("", "x"))
		assert.Error(t, NewFactory().RegisterAlias("x", ""))
	})

	t.Run("Remove", func(t *testing.T) {
		f := newFactory(t)
		require.NoError(t, f.RemoveAlias("motor"))
		assert.False(t, f.IsAlias("motor"))
		assert.Error(t, f.RemoveAlias("motor"))
	})
}

func TestFreezeConfiguration(t *testing.T) {
	f := NewFactory()
	mustRegister(t, f, "a", newThing("a"))
	mustRegister(t, f, "b", newThing("b"))
	assert.False(t, f.IsConfigurationFrozen())

	f.FreezeConfiguration()
	assert.True(t, f.IsConfigurationFrozen())
	names := f.DefinitionNames()

	mustRegister(t, f, "c", newThing("c"))
	assert.False(t, f.IsConfigurationFrozen(), "registration must thaw the configuration")
	assert.Equal(t, []string{"a", "b"}, names, "earlier snapshots must not change")
	assert.Equal(t, []string{"a", "b", "c"}, f.DefinitionNames())
}

func TestSingletons(t *testing.T) {
	t.Run("CachedSingleton", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x"))
		assert.Same(t, mustBean(t, f, "x"), mustBean(t, f, "x"))
		assert.Equal(t, []string{"x"}, f.SingletonNames())
	})

	t.Run("Prototype", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x", Prototype()))
		assert.NotSame(t, mustBean(t, f, "x"), mustBean(t, f, "x"))
		assert.Empty(t, f.SingletonNames())
	})

	t.Run("RegisterSingleton", func(t *testing.T) {
		f := NewFactory()
		s := &memStore{id: "manual"}
		require.NoError(t, f.RegisterSingleton("store", s))

		assert.Same(t, s, mustBean(t, f, "store"))
		assert.True(t, f.Contains("store"))

		bean, err := f.BeanOfType(_storeType)
		require.NoError(t, err)
		assert.Same(t, s, bean)

		err = f.RegisterSingleton("store", &memStore{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "there is already an object bound")
	})

	t.Run("Abstract", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", NewDefinition(WithTypeOf(&thing{}), Abstract()))

		_, err := f.Bean("x")
		var bce *BeanCreationError
		require.True(t, errors.As(err, &bce))
		assert.Contains(t, err.Error(), "bean definition is abstract")
	})

	t.Run("DefaultInstance", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", NewDefinition(WithTypeOf(&thing{})))
		assert.Equal(t, &thing{}, mustBean(t, f, "x"))
	})

	t.Run("BeanAsConverts", func(t *testing.T) {
		f := NewFactory()
		require.NoError(t, f.RegisterSingleton("port", "8080"))

		port, err := f.BeanAs("port", reflect.TypeOf(0))
		require.NoError(t, err)
		assert.Equal(t, 8080, port)
	})

	t.Run("BeanAsWrongType", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x"))

		_, err := f.BeanAs("x", reflect.TypeOf(0))
		var notr *NotOfRequiredTypeError
		require.True(t, errors.As(err, &notr), "expected NotOfRequiredTypeError, got %v", err)
		assert.Equal(t, _thingType, notr.Actual)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := NewFactory().Bean("nope")
		var nsb *NoSuchBeanError
		require.True(t, errors.As(err, &nsb))
		assert.Equal(t, `no bean named "nope" available`, err.Error())
	})
}

func TestPreInstantiateSingletons(t *testing.T) {
	t.Run("SkipsLazyAndNonSingletons", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "eager", newThing("eager"))
		mustRegister(t, f, "lazy", newThing("lazy", LazyInit(true)))
		mustRegister(t, f, "proto", newThing("proto", Prototype()))
		mustRegister(t, f, "template", NewDefinition(WithTypeOf(&thing{}), Abstract()))

		require.NoError(t, f.PreInstantiateSingletons())
		assert.Equal(t, []string{"eager"}, f.SingletonNames())
	})

	t.Run("CollectsErrors", func(t *testing.T) {
		f := NewFactory()
		for _, name := range []string{"a", "b"} {
			name := name
			mustRegister(t, f, name, NewDefinition(WithSupplier(func() (interface{}, error) {
				return nil, fmt.Errorf("%s failed", name)
			})))
		}
		mustRegister(t, f, "ok", newThing("ok"))

		err := f.PreInstantiateSingletons()
		require.Error(t, err)
		errs := multierr.Errors(err)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0].Error(), "a failed")
		assert.Contains(t, errs[1].Error(), "b failed")
		assert.Equal(t, []string{"ok"}, f.SingletonNames(), "failures must not stop other beans")
	})
}

func TestDestroySingletons(t *testing.T) {
	newFactory := func(destroyed *[]string, err error) *Factory {
		return NewFactory(WithDestroyCallback(func(name string, _ interface{}) error {
			*destroyed = append(*destroyed, name)
			return err
		}))
	}

	t.Run("ReverseCreationOrder", func(t *testing.T) {
		var destroyed []string
		f := newFactory(&destroyed, nil)
		mustRegister(t, f, "a", newThing("a"))
		mustRegister(t, f, "b", newThing("b"))
		mustRegister(t, f, "c", newThing("c"))
		require.NoError(t, f.PreInstantiateSingletons())

		require.NoError(t, f.DestroySingletons())
		assert.Equal(t, []string{"c", "b", "a"}, destroyed)
		assert.Empty(t, f.SingletonNames())
	})

	t.Run("DependentsFirst", func(t *testing.T) {
		var destroyed []string
		f := newFactory(&destroyed, nil)
		mustRegister(t, f, "a", newThing("a"))
		mustRegister(t, f, "b", newThing("b", DependsOn("a")))
		mustBean(t, f, "b")

		assert.Equal(t, []string{"b"}, f.DependentBeans("a"))
		assert.Equal(t, []string{"a"}, f.DependenciesOf("b"))

		require.NoError(t, f.DestroySingleton("a"))
		assert.Equal(t, []string{"b", "a"}, destroyed)
		assert.Empty(t, f.DependentBeans("a"))
	})

	t.Run("ResetsResolutionCaches", func(t *testing.T) {
		var destroyed []string
		f := newFactory(&destroyed, nil)
		mustRegister(t, f, "a", newThing("a"))
		mustBean(t, f, "a")
		require.Equal(t, ResolvedFull, f.ResolutionCache("a").State())

		require.NoError(t, f.DestroySingletons())
		assert.Equal(t, Unresolved, f.ResolutionCache("a").State())
	})

	t.Run("CollectsErrors", func(t *testing.T) {
		var destroyed []string
		f := newFactory(&destroyed, errors.New("great sadness"))
		mustRegister(t, f, "a", newThing("a"))
		mustRegister(t, f, "b", newThing("b"))
		require.NoError(t, f.PreInstantiateSingletons())

		err := f.DestroySingletons()
		assert.Len(t, multierr.Errors(err), 2)
		assert.Equal(t, []string{"b", "a"}, destroyed, "failures must not stop other beans")
	})
}

func TestScopes(t *testing.T) {
	t.Run("Custom", func(t *testing.T) {
		f := NewFactory()
		tenant := NewMapScope()
		require.NoError(t, f.RegisterScope("tenant", tenant))
		mustRegister(t, f, "x", newThing("x", WithScope("tenant")))

		first := mustBean(t, f, "x")
		assert.Same(t, first, mustBean(t, f, "x"))
		assert.Empty(t, f.SingletonNames(), "scoped beans are not singletons")

		removed, ok := tenant.Remove("x")
		require.True(t, ok)
		assert.Same(t, first, removed)
		assert.NotSame(t, first, mustBean(t, f, "x"))
	})

	t.Run("Unknown", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x", WithScope("tenant")))

		_, err := f.Bean("x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no scope registered for scope name "tenant"`)
	})

	t.Run("BuiltinScopesAreFixed", func(t *testing.T) {
		f := NewFactory()
		assert.Error(t, f.RegisterScope(ScopeSingleton, NewMapScope()))
		assert.Error(t, f.RegisterScope(ScopePrototype, NewMapScope()))
	})
}

func TestTypeOf(t *testing.T) {
	t.Run("PredictsWithoutCreating", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", newThing("x"))

		typ, err := f.TypeOf("x")
		require.NoError(t, err)
		assert.Equal(t, _thingType, typ)
		assert.Empty(t, f.SingletonNames())
	})

	t.Run("Interface", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "s", newStore("s"))

		ok, err := f.IsTypeMatch("s", _storeType)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.IsTypeMatch("s", _thingType)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UnknownBeforeCreation", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "x", NewDefinition(WithSupplier(func() (interface{}, error) {
			return &thing{}, nil
		})))

		typ, err := f.TypeOf("x")
		require.NoError(t, err)
		assert.Nil(t, typ)

		mustBean(t, f, "x")
		typ, err = f.TypeOf("x")
		require.NoError(t, err)
		assert.Equal(t, _thingType, typ)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := NewFactory().TypeOf("nope")
		var nsb *NoSuchBeanError
		assert.True(t, errors.As(err, &nsb))
	})
}

func TestBeansOfType(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		f := NewFactory()
		mustRegister(t, f, "s1", newStore("s1"))
		mustRegister(t, f, "x", newThing("x"))
		mustRegister(t, f, "s2", newStore("s2"))

		assert.Equal(t, []string{"s1", "s2"}, f.BeanNamesForType(_storeType))

		beans, err := f.BeansOfType(_storeType)
		require.NoError(t, err)
		require.Len(t, beans, 2)
		assert.Equal(t, "s1", beans["s1"].(store).ID())
		assert.Equal(t, "s2", beans["s2"].(store).ID())
	})

	t.Run("IncludesUnshadowedAncestors", func(t *testing.T) {
		parent := NewFactory()
		mustRegister(t, parent, "s1", newStore("parent-s1"))
		mustRegister(t, parent, "s3", newStore("parent-s3"))

		child := NewFactory(WithParent(parent))
		mustRegister(t, child, "s1", newStore("child-s1"))

		assert.Equal(t, []string{"s1"}, child.BeanNamesForType(_storeType), "BeanNamesForType is local only")

		beans, err := child.BeansOfType(_storeType)
		require.NoError(t, err)
		require.Len(t, beans, 2)
		assert.Equal(t, "child-s1", beans["s1"].(store).ID())
		assert.Equal(t, "parent-s3", beans["s3"].(store).ID())
	})

	t.Run("ParentLookupByName", func(t *testing.T) {
		parent := NewFactory()
		mustRegister(t, parent, "shared", newStore("shared"))
		child := NewFactory(WithParent(parent))

		assert.Same(t, mustBean(t, parent, "shared"), mustBean(t, child, "shared"))
		assert.True(t, child.Contains("shared"))
		assert.False(t, child.ContainsDefinition("shared"))
		assert.Same(t, parent, child.Parent())
	})
}

func TestConcurrentSingletonCreation(t *testing.T) {
	var calls int32
	f := NewFactory()
	mustRegister(t, f, "slow", NewDefinition(WithConstructor(func() *thing {
		atomic.AddInt32(&calls, 1)
		time.Sleep(time.Millisecond)
		return &thing{}
	})))

	const n = 16
	var (
		wg      sync.WaitGroup
		results = make([]interface{}, n)
		errs    = make([]error, n)
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.Bean("slow")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "constructor must run once")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}
