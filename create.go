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
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/beans/beanevent"
)

// request carries state across one chain of bean lookups: the creation
// locks it holds, the beans it is creating and the current injection point.
// A request is confined to the goroutine that started it.
type request struct {
	locks    map[*Factory]bool
	creating map[creationKey]bool
	point    *DependencyDescriptor
	closed   int32
}

type creationKey struct {
	f    *Factory
	name string
}

func newRequest() *request {
	return &request{
		locks:    make(map[*Factory]bool),
		creating: make(map[creationKey]bool),
	}
}

func (r *request) close()       { atomic.StoreInt32(&r.closed, 1) }
func (r *request) active() bool { return atomic.LoadInt32(&r.closed) == 0 }

func (r *request) inCreation(f *Factory, name string) bool {
	return r.creating[creationKey{f, name}]
}

func (f *Factory) doGetBean(r *request, name string, required reflect.Type, args []interface{}) (interface{}, error) {
	beanName := f.registry.canonicalName(name)

	if args == nil {
		if bean, ok := f.singletons.Load(beanName); ok {
			return f.adaptBean(beanName, bean, required)
		}
	}
	if r.inCreation(f, beanName) {
		if bean, ok := f.earlyReference(r, beanName); ok {
			return f.adaptBean(beanName, bean, required)
		}
		return nil, &BeanCurrentlyInCreationError{Bean: beanName}
	}

	if f.parent != nil && !f.registry.contains(beanName) {
		return f.parent.doGetBean(r, name, required, args)
	}

	mbd, err := f.mergedDefinition(beanName)
	if err != nil {
		return nil, err
	}
	if mbd.IsAbstract() {
		return nil, &BeanCreationError{Bean: beanName, Description: mbd.Description(), Msg: "bean definition is abstract"}
	}
	f.registry.markCreationStarted()

	for _, dep := range mbd.DependsOn() {
		if f.isDependent(beanName, dep) {
			return nil, &BeanCreationError{
				Bean:        beanName,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("circular depends-on relationship between %q and %q", beanName, dep),
			}
		}
		f.registerDependentBean(dep, beanName)
		if _, err := f.doGetBean(r, dep, nil, nil); err != nil {
			return nil, &BeanCreationError{
				Bean:        beanName,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("%q depends on missing bean %q", beanName, dep),
				Cause:       err,
			}
		}
	}

	var bean interface{}
	switch {
	case mbd.IsSingleton():
		bean, err = f.singletonOrCreate(r, beanName, func() (interface{}, error) {
			return f.createBean(r, beanName, mbd, args)
		})
	case mbd.IsPrototype():
		bean, err = f.createTracked(r, beanName, mbd, args)
	default:
		scope, ok := f.scope(mbd.Scope())
		if !ok {
			return nil, &BeanCreationError{
				Bean:        beanName,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("no scope registered for scope name %q", mbd.Scope()),
			}
		}
		bean, err = scope.Get(beanName, func() (interface{}, error) {
			return f.createTracked(r, beanName, mbd, args)
		})
	}
	if err != nil {
		return nil, err
	}
	return f.adaptBean(beanName, bean, required)
}

func (f *Factory) earlyReference(r *request, name string) (interface{}, bool) {
	if !r.locks[f] {
		return nil, false
	}
	bean, ok := f.early[name]
	return bean, ok
}

// singletonOrCreate returns the singleton for name, creating it with the
// factory's creation lock held.
func (f *Factory) singletonOrCreate(r *request, name string, create func() (interface{}, error)) (interface{}, error) {
	if bean, ok := f.singletons.Load(name); ok {
		return bean, nil
	}
	if !r.locks[f] {
		f.creationMu.Lock()
		r.locks[f] = true
		defer func() {
			delete(r.locks, f)
			f.creationMu.Unlock()
		}()
	}
	if bean, ok := f.singletons.Load(name); ok {
		return bean, nil
	}

	key := creationKey{f, name}
	if r.creating[key] {
		return nil, &BeanCurrentlyInCreationError{Bean: name}
	}
	r.creating[key] = true
	bean, err := create()
	delete(r.creating, key)
	delete(f.early, name)
	if err != nil {
		return nil, err
	}
	f.addSingleton(name, bean)
	return bean, nil
}

func (f *Factory) createTracked(r *request, name string, mbd *MergedDefinition, args []interface{}) (interface{}, error) {
	key := creationKey{f, name}
	r.creating[key] = true
	defer delete(r.creating, key)
	return f.createBean(r, name, mbd, args)
}

func (f *Factory) createBean(r *request, name string, mbd *MergedDefinition, args []interface{}) (interface{}, error) {
	f.logger.LogEvent(&beanevent.Instantiating{Name: name, Scope: mbd.Scope()})
	start := time.Now()
	bean, err := f.doCreateBean(r, name, mbd, args)
	f.logger.LogEvent(&beanevent.Instantiated{
		Name:     name,
		TypeName: fmt.Sprintf("%T", bean),
		Runtime:  time.Since(start),
		Err:      err,
	})
	return bean, err
}

func (f *Factory) doCreateBean(r *request, name string, mbd *MergedDefinition, args []interface{}) (interface{}, error) {
	bean, err := f.createBeanInstance(r, name, mbd, args)
	if err != nil {
		return nil, f.creationError(name, mbd, "instantiation of bean failed", err)
	}
	if mbd.IsSingleton() && !mbd.inner && f.allowCircular && r.locks[f] {
		f.early[name] = bean
	}
	if err := f.populate(r, name, mbd, bean); err != nil {
		return nil, f.creationError(name, mbd, "injection of dependencies failed", err)
	}
	return bean, nil
}

// creationError wraps err unless it already describes a failure of name.
func (f *Factory) creationError(name string, mbd *MergedDefinition, msg string, err error) error {
	var (
		bce *BeanCreationError
		ude *UnsatisfiedDependencyError
		cic *BeanCurrentlyInCreationError
	)
	switch {
	case errors.As(err, &bce) && bce.Bean == name:
		return err
	case errors.As(err, &ude) && ude.Bean == name:
		return err
	case errors.As(err, &cic) && cic.Bean == name:
		return err
	}
	return &BeanCreationError{Bean: name, Description: mbd.Description(), Msg: msg, Cause: err}
}

func (f *Factory) createBeanInstance(r *request, name string, mbd *MergedDefinition, args []interface{}) (interface{}, error) {
	if supplier := mbd.Supplier(); supplier != nil {
		bean, err := supplier()
		if err != nil {
			return nil, &BeanCreationError{Bean: name, Description: mbd.Description(), Msg: "instance supplier failed", Cause: err}
		}
		return bean, nil
	}

	cr := constructorResolver{f: f}
	if mbd.FactoryMethodName() != "" {
		return cr.instantiateUsingFactoryMethod(r, name, mbd, args)
	}

	if args == nil && f.cacheFor(name, mbd).Executable() != nil {
		return cr.autowireConstructor(r, name, mbd, nil, nil)
	}

	ctors := f.determineConstructors(mbd)
	if ctors != nil || mbd.ResolvedAutowire() == AutowireConstructor || mbd.HasConstructorArgs() || args != nil {
		return cr.autowireConstructor(r, name, mbd, ctors, args)
	}

	bean, err := f.strategy.Instantiate(mbd, name, nil, nil, nil)
	if err != nil {
		return nil, &BeanCreationError{Bean: name, Description: mbd.Description(), Msg: "instantiation of bean failed", Cause: err}
	}
	return bean, nil
}

// determineConstructors returns the constructors to autowire, or nil when
// configured arguments should drive resolution instead.
func (f *Factory) determineConstructors(mbd *MergedDefinition) []Executable {
	ctors := filterPublic(mbd.Constructors(), mbd.NonPublicAccessAllowed())
	if len(ctors) == 0 {
		return nil
	}
	if mbd.HasConstructorArgs() && mbd.ResolvedAutowire() != AutowireConstructor {
		return nil
	}
	return ctors
}

func filterPublic(execs []Executable, nonPublic bool) []Executable {
	if nonPublic {
		return execs
	}
	out := execs[:0:0]
	for _, e := range execs {
		if e.IsPublic() {
			out = append(out, e)
		}
	}
	return out
}

func (f *Factory) cacheFor(name string, mbd *MergedDefinition) *ResolutionCache {
	if mbd.inner {
		return &ResolutionCache{}
	}
	return f.registry.caches.get(name)
}

// adaptBean checks bean against the required type, converting it when it
// is not assignable.
func (f *Factory) adaptBean(name string, bean interface{}, required reflect.Type) (interface{}, error) {
	if required == nil || bean == nil || reflect.TypeOf(bean).AssignableTo(required) {
		return bean, nil
	}
	converted, err := f.converter.Convert(bean, required)
	if err != nil {
		return nil, &NotOfRequiredTypeError{Name: name, Required: required, Actual: reflect.TypeOf(bean)}
	}
	return converted, nil
}

// populate injects tagged fields, autowires by name or type and applies
// property values.
func (f *Factory) populate(r *request, name string, mbd *MergedDefinition, bean interface{}) error {
	props := mbd.PropertyValues()
	v := reflect.ValueOf(bean)
	if bean == nil || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		if len(props) > 0 {
			return &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("cannot apply property values to %T: not a pointer to a struct", bean),
			}
		}
		return nil
	}

	sv := v.Elem()
	st := sv.Type()
	explicit := make(map[string]bool, len(props))
	for _, pv := range props {
		explicit[pv.Name] = true
	}

	mode := mbd.ResolvedAutowire()
	var autowired []string
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if explicit[field.Name] {
			continue
		}
		_, inject := field.Tag.Lookup("inject")
		_, value := field.Tag.Lookup("value")
		tagged := inject || value
		if tagged && field.PkgPath != "" {
			return &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("field %q of %v is tagged for injection but is not exported", field.Name, st),
			}
		}
		if !tagged && !autowirableField(mode, field, sv.Field(i)) {
			continue
		}

		var (
			dep interface{}
			err error
		)
		switch {
		case tagged:
			d := fieldDescriptor(st, field)
			dep, err = f.resolveDependency(r, d, name, &autowired, f.converter)
			if err != nil {
				return &UnsatisfiedDependencyError{Bean: name, Description: mbd.Description(), Point: &d.InjectionPoint, Cause: err}
			}
		case mode == AutowireByName:
			candidate := lowerFirst(field.Name)
			if !f.Contains(candidate) {
				continue
			}
			dep, err = f.doGetBean(r, candidate, nil, nil)
			if err != nil {
				return &UnsatisfiedDependencyError{
					Bean:        name,
					Description: mbd.Description(),
					Point:       &InjectionPoint{Field: &field, DeclaringType: st},
					Cause:       err,
				}
			}
			f.registerDependentBean(candidate, name)
		default:
			d := fieldDescriptor(st, field)
			d.Optional = true
			dep, err = f.resolveDependency(r, d, name, &autowired, f.converter)
			if err != nil {
				return &UnsatisfiedDependencyError{Bean: name, Description: mbd.Description(), Point: &d.InjectionPoint, Cause: err}
			}
		}
		if dep == nil {
			continue
		}
		if err := f.setField(sv.Field(i), dep); err != nil {
			return &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("cannot set field %q of %v", field.Name, st),
				Cause:       err,
			}
		}
	}
	for _, dep := range autowired {
		f.registerDependentBean(dep, name)
	}

	for _, pv := range props {
		fv := sv.FieldByName(pv.Name)
		if !fv.IsValid() || !fv.CanSet() {
			return &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("invalid property %q of %v: not an exported field", pv.Name, st),
			}
		}
		resolved, err := f.resolveValue(r, name, mbd, fmt.Sprintf("property %q", pv.Name), pv.Value)
		if err != nil {
			return err
		}
		if err := f.setField(fv, resolved); err != nil {
			return &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("cannot set property %q of %v", pv.Name, st),
				Cause:       err,
			}
		}
	}
	return nil
}

// autowirableField reports whether by-name or by-type autowiring applies to
// an untagged field: exported, not a simple value and still unset.
func autowirableField(mode AutowireMode, field reflect.StructField, fv reflect.Value) bool {
	if mode != AutowireByName && mode != AutowireByType {
		return false
	}
	return field.PkgPath == "" && !field.Anonymous && !isSimpleType(field.Type) && fv.IsZero()
}

func (f *Factory) setField(fv reflect.Value, value interface{}) error {
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	converted, err := f.converter.Convert(value, fv.Type())
	if err != nil {
		return err
	}
	if converted == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	fv.Set(reflect.ValueOf(converted))
	return nil
}

// Populate injects tagged fields of an object created outside the factory.
// target must be a pointer to a struct.
func (f *Factory) Populate(target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct, got %T", target)
	}
	r := newRequest()
	defer r.close()
	mbd := &MergedDefinition{BeanDefinition: NewDefinition(WithTypeOf(target)), inner: true}
	return f.populate(r, fmt.Sprintf("(populated)#%p", target), mbd, target)
}

// TypeOf returns the type of the bean registered under name without
// creating it, or nil if it cannot be determined.
func (f *Factory) TypeOf(name string) (reflect.Type, error) {
	beanName := f.registry.canonicalName(name)
	if bean, ok := f.singletons.Load(beanName); ok {
		if bean == nil {
			return nil, nil
		}
		return reflect.TypeOf(bean), nil
	}
	if !f.registry.contains(beanName) {
		if f.parent != nil {
			return f.parent.TypeOf(name)
		}
		return nil, &NoSuchBeanError{Name: name}
	}
	mbd, err := f.mergedDefinition(beanName)
	if err != nil {
		return nil, err
	}
	return f.predictType(beanName, mbd), nil
}

// IsTypeMatch reports whether the bean registered under name is assignable
// to t.
func (f *Factory) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	bt, err := f.TypeOf(name)
	if err != nil {
		return false, err
	}
	return bt != nil && bt.AssignableTo(t), nil
}

// predictType determines the bean type from its definition: the return type
// of its factory method or constructor, or its declared type.
func (f *Factory) predictType(name string, mbd *MergedDefinition) reflect.Type {
	cache := f.cacheFor(name, mbd)
	if t, ok := cache.cachedTargetType(); ok {
		return t
	}
	var t reflect.Type
	switch {
	case mbd.FactoryMethodName() != "":
		t = f.factoryMethodReturnType(mbd, cache)
	case mbd.Supplier() != nil || len(mbd.Constructors()) == 0:
		t = mbd.Type()
	default:
		t = commonReturnType(mbd.Constructors())
		if t == nil {
			t = mbd.Type()
		}
	}
	if t != nil {
		cache.storeTargetType(t)
	}
	return t
}

func (f *Factory) factoryMethodReturnType(mbd *MergedDefinition, cache *ResolutionCache) reflect.Type {
	if e := cache.Executable(); e != nil {
		return e.ReturnType()
	}
	var (
		factoryType reflect.Type
		static      = mbd.FactoryBeanName() == ""
	)
	if static {
		factoryType = mbd.Type()
	} else {
		ft, err := f.TypeOf(mbd.FactoryBeanName())
		if err != nil || ft == nil {
			return nil
		}
		factoryType = ft
	}
	candidates := factoryCandidates(mbd, factoryType, static)
	if len(candidates) == 1 {
		cache.storeUniqueFactoryMethod(candidates[0])
	}
	return commonReturnType(candidates)
}

// commonReturnType returns the return type shared by all execs, or nil.
func commonReturnType(execs []Executable) reflect.Type {
	var t reflect.Type
	for _, e := range execs {
		rt := e.ReturnType()
		if rt == nil || (t != nil && rt != t) {
			return nil
		}
		t = rt
	}
	return t
}
