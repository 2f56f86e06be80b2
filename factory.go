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
	"sort"
	"sync"

	"go.uber.org/beans/beanevent"
	"go.uber.org/multierr"
)

// Factory is a bean container: it holds bean definitions and creates,
// wires and caches the beans they describe.
//
// A Factory is safe for concurrent use. Singleton lookups of created beans
// never block; singleton creation is serialized per factory.
type Factory struct {
	logger          beanevent.Logger
	parent          *Factory
	allowOverriding bool
	allowCircular   bool
	candidates      AutowireCandidateResolver
	comparator      OrderComparator
	converter       TypeConverter
	strategy        InstantiationStrategy
	embedded        []EmbeddedValueResolver
	destroyCallback func(name string, bean interface{}) error

	registry *definitionRegistry
	mergeMu  sync.Mutex
	types    sync.Map // string -> reflect.Type

	singletons       sync.Map // string -> interface{}
	singletonMu      sync.Mutex
	singletonOrder   []string
	manualSingletons []string

	// creationMu serializes singleton creation. early holds singletons
	// that are instantiated but not yet populated; it is only accessed with
	// creationMu held.
	creationMu sync.Mutex
	early      map[string]interface{}

	depMu        sync.Mutex
	dependents   map[string]map[string]struct{} // bean -> beans that depend on it
	dependencies map[string]map[string]struct{} // bean -> beans it depends on

	resolvableMu sync.RWMutex
	resolvable   []resolvableDependency

	scopeMu sync.RWMutex
	scopes  map[string]Scope

	typeCache sync.Map // typeCacheKey -> []string, only while frozen
}

type resolvableDependency struct {
	typ   reflect.Type
	value interface{}
}

// NewFactory builds an empty Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		logger:        beanevent.NopLogger,
		allowCircular: true,
		candidates:    QualifierCandidateResolver{},
		comparator:    DefaultOrderComparator{},
		converter:     SimpleTypeConverter{},
		strategy:      SimpleInstantiationStrategy{},
		registry:      newDefinitionRegistry(),
		early:         make(map[string]interface{}),
		dependents:    make(map[string]map[string]struct{}),
		dependencies:  make(map[string]map[string]struct{}),
		scopes:        make(map[string]Scope),
	}
	for _, opt := range opts {
		opt.apply(f)
	}
	return f
}

// Parent returns the parent factory, if any.
func (f *Factory) Parent() *Factory { return f.parent }

// RegisterDefinition registers def under name.
//
// Replacing an existing definition requires WithAllowOverriding. It
// discards the cached merged definition, resolution cache and singleton of
// name and of every definition declaring name as its parent. Errors from
// destroying those singletons are returned once def is registered.
func (f *Factory) RegisterDefinition(name string, def *BeanDefinition) error {
	if def == nil {
		return &DefinitionStoreError{Name: name, Msg: "bean definition must not be nil"}
	}
	overridden, err := f.registry.register(name, def, f.allowOverriding)
	if err != nil {
		return err
	}
	f.removeManualSingleton(name)
	f.clearTypeCache()
	if overridden || f.containsSingleton(name) {
		err = f.resetDefinition(name)
	}
	f.logger.LogEvent(&beanevent.Registered{
		Name:       name,
		TypeName:   definitionTypeName(def),
		Overridden: overridden,
	})
	return err
}

// RemoveDefinition removes the definition registered under name. Errors
// from destroying the singletons built from it are returned after removal.
func (f *Factory) RemoveDefinition(name string) error {
	if err := f.registry.remove(name); err != nil {
		return err
	}
	f.clearTypeCache()
	err := f.resetDefinition(name)
	f.logger.LogEvent(&beanevent.Removed{Name: name})
	return err
}

// resetDefinition drops every cache derived from name's definition and
// recurses into definitions inheriting from it.
func (f *Factory) resetDefinition(name string) error {
	f.clearMergedDefinition(name)
	f.registry.merged.Delete(name)
	f.registry.caches.invalidate(name)
	err := f.DestroySingleton(name)
	for _, child := range f.registry.children(name) {
		err = multierr.Append(err, f.resetDefinition(child))
	}
	return err
}

// Definition returns the definition registered under name in this factory.
func (f *Factory) Definition(name string) (*BeanDefinition, error) {
	def, ok := f.registry.definition(f.registry.canonicalName(name))
	if !ok {
		return nil, &NoSuchBeanError{Name: name}
	}
	return def, nil
}

// ContainsDefinition reports whether this factory, ignoring its parent,
// has a definition for name.
func (f *Factory) ContainsDefinition(name string) bool {
	return f.registry.contains(f.registry.canonicalName(name))
}

// DefinitionNames returns the registered names in registration order.
func (f *Factory) DefinitionNames() []string {
	return f.registry.definitionNames()
}

// DefinitionCount returns the number of registered definitions.
func (f *Factory) DefinitionCount() int {
	return f.registry.count()
}

// FreezeConfiguration snapshots the definition names and enables caching
// of by-type lookups until the next registration.
func (f *Factory) FreezeConfiguration() {
	f.registry.freeze()
}

// IsConfigurationFrozen reports whether FreezeConfiguration was called
// since the last registration.
func (f *Factory) IsConfigurationFrozen() bool {
	return f.registry.isFrozen()
}

// RegisterAlias makes alias another name for name.
func (f *Factory) RegisterAlias(name, alias string) error {
	if err := f.registry.registerAlias(name, alias, f.allowOverriding); err != nil {
		return err
	}
	f.logger.LogEvent(&beanevent.Aliased{Name: name, Alias: alias})
	return nil
}

// RemoveAlias removes a registered alias.
func (f *Factory) RemoveAlias(alias string) error {
	return f.registry.removeAlias(alias)
}

// IsAlias reports whether name is a registered alias.
func (f *Factory) IsAlias(name string) bool {
	return f.registry.isAlias(name)
}

// Aliases returns the aliases of name, or the canonical name and the other
// aliases when name is itself an alias.
func (f *Factory) Aliases(name string) []string {
	canonical := f.registry.canonicalName(name)
	var out []string
	if canonical != name {
		out = append(out, canonical)
	}
	for _, a := range f.registry.aliasesOf(canonical) {
		if a != name {
			out = append(out, a)
		}
	}
	return out
}

// RegisterScope registers a custom scope.
func (f *Factory) RegisterScope(name string, s Scope) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return fmt.Errorf("cannot replace the %q scope", name)
	}
	f.scopeMu.Lock()
	defer f.scopeMu.Unlock()
	f.scopes[name] = s
	return nil
}

func (f *Factory) scope(name string) (Scope, bool) {
	f.scopeMu.RLock()
	defer f.scopeMu.RUnlock()
	s, ok := f.scopes[name]
	return s, ok
}

// RegisterResolvableDependency makes value injectable wherever a
// dependency of type t, or a type assignable to t, is required, without
// registering it as a bean.
func (f *Factory) RegisterResolvableDependency(t reflect.Type, value interface{}) error {
	if value != nil && !reflect.TypeOf(value).AssignableTo(t) {
		return fmt.Errorf("value of type %T does not implement the specified dependency type %v", value, t)
	}
	f.resolvableMu.Lock()
	defer f.resolvableMu.Unlock()
	for i, rd := range f.resolvable {
		if rd.typ == t {
			f.resolvable[i].value = value
			return nil
		}
	}
	f.resolvable = append(f.resolvable, resolvableDependency{typ: t, value: value})
	return nil
}

func (f *Factory) resolvableDependencies() []resolvableDependency {
	f.resolvableMu.RLock()
	defer f.resolvableMu.RUnlock()
	return append([]resolvableDependency(nil), f.resolvable...)
}

// RegisterSingleton registers an already created object as a singleton.
func (f *Factory) RegisterSingleton(name string, bean interface{}) error {
	if _, loaded := f.singletons.LoadOrStore(name, bean); loaded {
		return fmt.Errorf("could not register object [%T] under bean name %q: there is already an object bound", bean, name)
	}
	f.singletonMu.Lock()
	f.singletonOrder = append(f.singletonOrder, name)
	if !f.registry.contains(name) {
		f.manualSingletons = append(f.manualSingletons, name)
	}
	f.singletonMu.Unlock()
	f.clearTypeCache()
	return nil
}

func (f *Factory) addSingleton(name string, bean interface{}) {
	f.singletons.Store(name, bean)
	f.singletonMu.Lock()
	f.singletonOrder = append(f.singletonOrder, name)
	f.singletonMu.Unlock()
}

func (f *Factory) containsSingleton(name string) bool {
	_, ok := f.singletons.Load(name)
	return ok
}

func (f *Factory) removeManualSingleton(name string) {
	f.singletonMu.Lock()
	defer f.singletonMu.Unlock()
	for i, n := range f.manualSingletons {
		if n == name {
			f.manualSingletons = append(f.manualSingletons[:i:i], f.manualSingletons[i+1:]...)
			return
		}
	}
}

func (f *Factory) manualSingletonNames() []string {
	f.singletonMu.Lock()
	defer f.singletonMu.Unlock()
	return append([]string(nil), f.manualSingletons...)
}

// SingletonNames returns the names of created singletons in creation order.
func (f *Factory) SingletonNames() []string {
	f.singletonMu.Lock()
	defer f.singletonMu.Unlock()
	return append([]string(nil), f.singletonOrder...)
}

// registerDependentBean records that dependent needs bean, so bean is
// destroyed after dependent.
func (f *Factory) registerDependentBean(bean, dependent string) {
	bean = f.registry.canonicalName(bean)
	f.depMu.Lock()
	defer f.depMu.Unlock()
	if f.dependents[bean] == nil {
		f.dependents[bean] = make(map[string]struct{})
	}
	f.dependents[bean][dependent] = struct{}{}
	if f.dependencies[dependent] == nil {
		f.dependencies[dependent] = make(map[string]struct{})
	}
	f.dependencies[dependent][bean] = struct{}{}
}

// isDependent reports whether dependent transitively depends on bean.
func (f *Factory) isDependent(bean, dependent string) bool {
	f.depMu.Lock()
	defer f.depMu.Unlock()
	return f.isDependentLocked(f.registry.canonicalName(bean), dependent, make(map[string]bool))
}

func (f *Factory) isDependentLocked(bean, dependent string, seen map[string]bool) bool {
	if seen[bean] {
		return false
	}
	seen[bean] = true
	deps := f.dependents[bean]
	if _, ok := deps[dependent]; ok {
		return true
	}
	for d := range deps {
		if f.isDependentLocked(d, dependent, seen) {
			return true
		}
	}
	return false
}

// DependentBeans returns the beans that depend on name.
func (f *Factory) DependentBeans(name string) []string {
	f.depMu.Lock()
	defer f.depMu.Unlock()
	return sortedKeys(f.dependents[f.registry.canonicalName(name)])
}

// DependenciesOf returns the beans name depends on.
func (f *Factory) DependenciesOf(name string) []string {
	f.depMu.Lock()
	defer f.depMu.Unlock()
	return sortedKeys(f.dependencies[name])
}

// DestroySingleton destroys the singleton registered under name after
// destroying every bean that depends on it.
func (f *Factory) DestroySingleton(name string) error {
	return f.destroySingleton(name, make(map[string]bool))
}

func (f *Factory) destroySingleton(name string, seen map[string]bool) error {
	if seen[name] {
		return nil
	}
	seen[name] = true

	f.depMu.Lock()
	dependents := sortedKeys(f.dependents[name])
	delete(f.dependents, name)
	f.depMu.Unlock()

	var err error
	for _, d := range dependents {
		err = multierr.Append(err, f.destroySingleton(d, seen))
	}

	bean, ok := f.singletons.LoadAndDelete(name)
	if !ok {
		f.forgetDependencies(name)
		return err
	}
	f.singletonMu.Lock()
	for i, n := range f.singletonOrder {
		if n == name {
			f.singletonOrder = append(f.singletonOrder[:i:i], f.singletonOrder[i+1:]...)
			break
		}
	}
	f.singletonMu.Unlock()
	f.forgetDependencies(name)

	var destroyErr error
	if f.destroyCallback != nil {
		destroyErr = f.destroyCallback(name, bean)
	}
	f.logger.LogEvent(&beanevent.Destroyed{Name: name, Err: destroyErr})
	return multierr.Append(err, destroyErr)
}

func (f *Factory) forgetDependencies(name string) {
	f.depMu.Lock()
	defer f.depMu.Unlock()
	for dep := range f.dependencies[name] {
		delete(f.dependents[dep], name)
	}
	delete(f.dependencies, name)
}

// DestroySingletons destroys all singletons in reverse creation order.
func (f *Factory) DestroySingletons() error {
	names := f.SingletonNames()
	seen := make(map[string]bool, len(names))
	var err error
	for i := len(names) - 1; i >= 0; i-- {
		err = multierr.Append(err, f.destroySingleton(names[i], seen))
	}
	f.registry.caches.caches.Range(func(k, _ interface{}) bool {
		f.registry.caches.invalidate(k.(string))
		return true
	})
	return err
}

// PreInstantiateSingletons creates every non-abstract, non-lazy singleton.
// It keeps going after a failure and returns every error encountered.
func (f *Factory) PreInstantiateSingletons() error {
	var errs error
	for _, name := range f.DefinitionNames() {
		mbd, err := f.mergedDefinition(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if mbd.IsAbstract() || !mbd.IsSingleton() || mbd.IsLazyInit() {
			continue
		}
		if _, err := f.Bean(name); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Contains reports whether a definition or singleton exists for name in
// this factory or its ancestors.
func (f *Factory) Contains(name string) bool {
	beanName := f.registry.canonicalName(name)
	if f.containsSingleton(beanName) || f.registry.contains(beanName) {
		return true
	}
	return f.parent != nil && f.parent.Contains(name)
}

// Bean returns the bean registered under name, creating it if needed.
func (f *Factory) Bean(name string) (interface{}, error) {
	r := newRequest()
	defer r.close()
	return f.doGetBean(r, name, nil, nil)
}

// BeanWithArgs creates the bean registered under name with explicit
// constructor or factory method arguments. For singletons, args apply only
// if the singleton does not exist yet.
func (f *Factory) BeanWithArgs(name string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	r := newRequest()
	defer r.close()
	return f.doGetBean(r, name, nil, args)
}

// BeanAs returns the bean registered under name, converted to t.
func (f *Factory) BeanAs(name string, t reflect.Type) (interface{}, error) {
	r := newRequest()
	defer r.close()
	return f.doGetBean(r, name, t, nil)
}

// BeanOfType returns the unique bean assignable to t, choosing among
// several by primary flag, priority and name.
func (f *Factory) BeanOfType(t reflect.Type) (interface{}, error) {
	return f.ResolveDependency(&DependencyDescriptor{Type: t}, "", nil, nil)
}

// BeansOfType returns every bean assignable to t, keyed by name, including
// beans of ancestor factories not shadowed locally.
func (f *Factory) BeansOfType(t reflect.Type) (map[string]interface{}, error) {
	r := newRequest()
	defer r.close()
	out := make(map[string]interface{})
	for _, name := range f.namesForTypeIncludingAncestors(r, t, false) {
		bean, err := f.doGetBean(r, name, nil, nil)
		if err != nil {
			return nil, err
		}
		out[name] = bean
	}
	return out, nil
}

// BeanNamesForType returns the names of beans assignable to t in this
// factory only.
func (f *Factory) BeanNamesForType(t reflect.Type) []string {
	r := newRequest()
	defer r.close()
	return f.namesForType(r, t, false)
}

// ResolutionCache returns the constructor resolution cache of name.
func (f *Factory) ResolutionCache(name string) *ResolutionCache {
	return f.registry.caches.get(f.registry.canonicalName(name))
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func definitionTypeName(def *BeanDefinition) string {
	switch {
	case def.Type() != nil:
		return def.Type().String()
	default:
		return def.TypeName()
	}
}
