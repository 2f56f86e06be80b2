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

	"go.uber.org/beans/internal/beanreflect"
)

// Standard scope names.
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// AutowireMode controls how a bean's unsatisfied dependencies are wired.
type AutowireMode int

// Supported autowire modes.
const (
	AutowireNo AutowireMode = iota
	AutowireByName
	AutowireByType
	AutowireConstructor

	// AutowireAutodetect picks AutowireConstructor when no zero-argument
	// constructor exists and AutowireByType otherwise.
	//
	// Deprecated: declare the mode explicitly.
	AutowireAutodetect
)

func (m AutowireMode) String() string {
	switch m {
	case AutowireNo:
		return "no"
	case AutowireByName:
		return "byName"
	case AutowireByType:
		return "byType"
	case AutowireConstructor:
		return "constructor"
	case AutowireAutodetect:
		return "autodetect"
	default:
		return fmt.Sprintf("AutowireMode(%d)", int(m))
	}
}

// Role hints at who owns a bean definition.
type Role int

// Definition roles.
const (
	RoleApplication Role = iota
	RoleSupport
	RoleInfrastructure
)

// BeanDefinition describes how to build one component. It is immutable once
// built with NewDefinition; use Clone with extra options to derive a new one.
type BeanDefinition struct {
	typ      reflect.Type
	typeName string
	parent   string

	scope    string
	abstract bool
	lazy     bool
	lazySet  bool
	autowire AutowireMode

	dependsOn         []string
	autowireCandidate bool
	primary           bool
	qualifiers        map[string]Qualifier

	args  *ConstructorArgs
	props []PropertyValue

	constructors     []Executable
	factoryBean      string
	factoryMethod    string
	factoryOverloads []Executable
	supplier         func() (interface{}, error)

	initMethod      string
	destroyMethod   string
	enforceInit     bool
	enforceDestroy  bool
	methodOverrides bool

	lenient   bool
	nonPublic bool

	order       int
	hasOrder    bool
	priority    int
	hasPriority bool

	role        Role
	description string
}

// DefinitionOption configures a BeanDefinition.
type DefinitionOption interface {
	apply(*BeanDefinition)
}

type definitionOptionFunc func(*BeanDefinition)

func (f definitionOptionFunc) apply(d *BeanDefinition) { f(d) }

// NewDefinition builds a BeanDefinition. Definitions default to singleton
// scope, are autowire candidates, resolve constructors leniently and allow
// non-public (unexported) constructors.
func NewDefinition(opts ...DefinitionOption) *BeanDefinition {
	d := &BeanDefinition{
		autowireCandidate: true,
		lenient:           true,
		nonPublic:         true,
		args:              NewConstructorArgs(),
		description:       beanreflect.Caller(),
	}
	for _, opt := range opts {
		opt.apply(d)
	}
	return d
}

// Clone returns a deep copy of the definition with the given options applied.
func (d *BeanDefinition) Clone(opts ...DefinitionOption) *BeanDefinition {
	c := *d
	c.dependsOn = append([]string(nil), d.dependsOn...)
	c.qualifiers = make(map[string]Qualifier, len(d.qualifiers))
	for k, q := range d.qualifiers {
		c.qualifiers[k] = q
	}
	c.args = d.args.clone()
	c.props = append([]PropertyValue(nil), d.props...)
	c.constructors = append([]Executable(nil), d.constructors...)
	c.factoryOverloads = append([]Executable(nil), d.factoryOverloads...)
	for _, opt := range opts {
		opt.apply(&c)
	}
	return &c
}

// WithType sets the resolved bean type.
func WithType(t reflect.Type) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.typ = t })
}

// WithTypeOf sets the bean type to the dynamic type of v.
func WithTypeOf(v interface{}) DefinitionOption {
	return WithType(reflect.TypeOf(v))
}

// WithTypeName sets an unresolved type name. It is resolved against the
// types registered with Factory.RegisterType when the definition is merged.
func WithTypeName(name string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.typeName = name })
}

// WithParentDefinition makes the definition inherit from the named
// definition.
func WithParentDefinition(name string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.parent = name })
}

// WithScope sets the bean scope.
func WithScope(scope string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.scope = scope })
}

// Prototype is shorthand for WithScope(ScopePrototype).
func Prototype() DefinitionOption { return WithScope(ScopePrototype) }

// Abstract marks the definition as a template that is never instantiated.
func Abstract() DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.abstract = true })
}

// LazyInit controls whether PreInstantiateSingletons skips the bean.
func LazyInit(lazy bool) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.lazy = lazy
		d.lazySet = true
	})
}

// WithAutowire sets the autowire mode.
func WithAutowire(mode AutowireMode) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.autowire = mode })
}

// DependsOn names beans that must be created before this one.
func DependsOn(names ...string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.dependsOn = append(d.dependsOn, names...)
	})
}

// AutowireCandidate controls whether the bean may satisfy by-type injection.
func AutowireCandidate(candidate bool) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.autowireCandidate = candidate })
}

// Primary marks the bean as the preferred candidate among beans of the same
// type.
func Primary() DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.primary = true })
}

// WithQualifier attaches qualifier metadata to the definition.
func WithQualifier(q Qualifier) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		if d.qualifiers == nil {
			d.qualifiers = make(map[string]Qualifier)
		}
		d.qualifiers[q.typeName()] = q
	})
}

// Qualified is shorthand for a default qualifier carrying value.
func Qualified(value string) DefinitionOption {
	return WithQualifier(Qualifier{Value: value})
}

// WithArg adds an indexed constructor argument.
func WithArg(index int, value interface{}) DefinitionOption {
	return WithArgValue(index, &ValueHolder{Value: value})
}

// WithArgValue adds an indexed constructor argument with type or name hints.
func WithArgValue(index int, vh *ValueHolder) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.args = d.args.clone()
		d.args.AddIndexed(index, vh)
	})
}

// WithGenericArg adds a constructor argument matched by type or position.
func WithGenericArg(value interface{}) DefinitionOption {
	return WithGenericArgValue(&ValueHolder{Value: value})
}

// WithGenericArgValue adds a generic constructor argument with type or name
// hints.
func WithGenericArgValue(vh *ValueHolder) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.args = d.args.clone()
		d.args.AddGeneric(vh)
	})
}

// WithProperty sets an exported struct field after construction.
func WithProperty(name string, value interface{}) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.props = setProperty(d.props, PropertyValue{Name: name, Value: value})
	})
}

// WithConstructors sets the candidate constructors.
func WithConstructors(execs ...Executable) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.constructors = append([]Executable(nil), execs...)
	})
}

// WithConstructor wraps fn with Constructor and adds it to the candidates.
func WithConstructor(fn interface{}, opts ...ExecutableOption) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.constructors = append(d.constructors, Constructor(fn, opts...))
	})
}

// WithFactoryMethod builds the bean by calling method on the named factory
// bean. An empty factoryBean selects a method of the definition's own type
// called on its zero value.
func WithFactoryMethod(factoryBean, method string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.factoryBean = factoryBean
		d.factoryMethod = method
	})
}

// WithFactoryOverloads registers explicit factory method candidates, used
// instead of reflecting on the factory type.
func WithFactoryOverloads(execs ...Executable) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.factoryOverloads = append(d.factoryOverloads, execs...)
	})
}

// WithSupplier builds the bean by calling fn, bypassing constructor
// resolution.
func WithSupplier(fn func() (interface{}, error)) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.supplier = fn })
}

// WithInitMethod records the init method name. Invocation is left to the
// caller's lifecycle layer.
func WithInitMethod(name string, enforce bool) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.initMethod = name
		d.enforceInit = enforce
	})
}

// WithDestroyMethod records the destroy method name.
func WithDestroyMethod(name string, enforce bool) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.destroyMethod = name
		d.enforceDestroy = enforce
	})
}

// WithMethodOverrides flags that the bean needs lookup or replace method
// injection. The instantiation strategy must support it.
func WithMethodOverrides() DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.methodOverrides = true })
}

// StrictResolution disables lenient constructor resolution: ties between
// equally weighted candidates become errors.
func StrictResolution() DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.lenient = false })
}

// PublicOnly restricts constructor candidates to exported functions.
func PublicOnly() DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.nonPublic = false })
}

// WithOrder sets ordering metadata used when the bean is collected into a
// slice.
func WithOrder(order int) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.order = order
		d.hasOrder = true
	})
}

// WithPriority sets the priority used to break ties between candidates.
// Lower values win.
func WithPriority(priority int) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) {
		d.priority = priority
		d.hasPriority = true
	})
}

// WithRole sets the definition role.
func WithRole(r Role) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.role = r })
}

// WithDescription sets the resource description used in errors.
func WithDescription(desc string) DefinitionOption {
	return definitionOptionFunc(func(d *BeanDefinition) { d.description = desc })
}

// Type returns the resolved bean type, if any.
func (d *BeanDefinition) Type() reflect.Type { return d.typ }

// TypeName returns the unresolved type name, if any.
func (d *BeanDefinition) TypeName() string { return d.typeName }

// Parent returns the name of the parent definition.
func (d *BeanDefinition) Parent() string { return d.parent }

// Scope returns the scope name, defaulting to singleton.
func (d *BeanDefinition) Scope() string {
	if d.scope == "" {
		return ScopeSingleton
	}
	return d.scope
}

// IsSingleton reports whether the bean is a singleton.
func (d *BeanDefinition) IsSingleton() bool { return d.Scope() == ScopeSingleton }

// IsPrototype reports whether the bean is a prototype.
func (d *BeanDefinition) IsPrototype() bool { return d.Scope() == ScopePrototype }

// IsAbstract reports whether the definition is a template only.
func (d *BeanDefinition) IsAbstract() bool { return d.abstract }

// IsLazyInit reports whether the bean is lazily initialized.
func (d *BeanDefinition) IsLazyInit() bool { return d.lazy }

// Autowire returns the declared autowire mode.
func (d *BeanDefinition) Autowire() AutowireMode { return d.autowire }

// DependsOn returns the names of beans created before this one.
func (d *BeanDefinition) DependsOn() []string { return append([]string(nil), d.dependsOn...) }

// IsAutowireCandidate reports whether the bean may satisfy by-type injection.
func (d *BeanDefinition) IsAutowireCandidate() bool { return d.autowireCandidate }

// IsPrimary reports whether the bean is the preferred candidate.
func (d *BeanDefinition) IsPrimary() bool { return d.primary }

// Qualifiers returns the qualifiers keyed by qualifier type name.
func (d *BeanDefinition) Qualifiers() map[string]Qualifier {
	m := make(map[string]Qualifier, len(d.qualifiers))
	for k, q := range d.qualifiers {
		m[k] = q
	}
	return m
}

// Qualifier returns the qualifier of the given type.
func (d *BeanDefinition) Qualifier(typeName string) (Qualifier, bool) {
	if typeName == "" {
		typeName = DefaultQualifier
	}
	q, ok := d.qualifiers[typeName]
	return q, ok
}

// ConstructorArgs returns a copy of the configured constructor arguments.
func (d *BeanDefinition) ConstructorArgs() *ConstructorArgs { return d.args.clone() }

// HasConstructorArgs reports whether any constructor argument is configured.
func (d *BeanDefinition) HasConstructorArgs() bool { return !d.args.Empty() }

// PropertyValues returns the configured property values.
func (d *BeanDefinition) PropertyValues() []PropertyValue {
	return append([]PropertyValue(nil), d.props...)
}

// Constructors returns the candidate constructors.
func (d *BeanDefinition) Constructors() []Executable {
	return append([]Executable(nil), d.constructors...)
}

// FactoryBeanName returns the factory bean name.
func (d *BeanDefinition) FactoryBeanName() string { return d.factoryBean }

// FactoryMethodName returns the factory method name.
func (d *BeanDefinition) FactoryMethodName() string { return d.factoryMethod }

// FactoryOverloads returns explicit factory method candidates.
func (d *BeanDefinition) FactoryOverloads() []Executable {
	return append([]Executable(nil), d.factoryOverloads...)
}

// Supplier returns the instance supplier, if any.
func (d *BeanDefinition) Supplier() func() (interface{}, error) { return d.supplier }

// InitMethod returns the init method name and whether it must exist.
func (d *BeanDefinition) InitMethod() (string, bool) { return d.initMethod, d.enforceInit }

// DestroyMethod returns the destroy method name and whether it must exist.
func (d *BeanDefinition) DestroyMethod() (string, bool) { return d.destroyMethod, d.enforceDestroy }

// HasMethodOverrides reports whether the bean needs method injection.
func (d *BeanDefinition) HasMethodOverrides() bool { return d.methodOverrides }

// IsLenient reports whether constructor resolution is lenient.
func (d *BeanDefinition) IsLenient() bool { return d.lenient }

// NonPublicAccessAllowed reports whether unexported constructors are
// considered.
func (d *BeanDefinition) NonPublicAccessAllowed() bool { return d.nonPublic }

// Order returns the ordering metadata, if set.
func (d *BeanDefinition) Order() (int, bool) { return d.order, d.hasOrder }

// Priority returns the priority metadata, if set.
func (d *BeanDefinition) Priority() (int, bool) { return d.priority, d.hasPriority }

func (d *BeanDefinition) orderHint() (int, bool)    { return d.order, d.hasOrder }
func (d *BeanDefinition) priorityHint() (int, bool) { return d.priority, d.hasPriority }

// Role returns the definition role.
func (d *BeanDefinition) Role() Role { return d.role }

// Description returns the resource description.
func (d *BeanDefinition) Description() string { return d.description }

func (d *BeanDefinition) String() string {
	var fields []string
	switch {
	case d.typ != nil:
		fields = append(fields, "type="+d.typ.String())
	case d.typeName != "":
		fields = append(fields, "type="+d.typeName)
	}
	if d.parent != "" {
		fields = append(fields, "parent="+d.parent)
	}
	fields = append(fields, "scope="+d.Scope())
	if d.abstract {
		fields = append(fields, "abstract")
	}
	if d.primary {
		fields = append(fields, "primary")
	}
	if d.factoryMethod != "" {
		fields = append(fields, fmt.Sprintf("factory=%s.%s", d.factoryBean, d.factoryMethod))
	}
	if d.description != "" {
		fields = append(fields, "source="+d.description)
	}
	return "BeanDefinition{" + strings.Join(fields, ", ") + "}"
}

// validate checks structural constraints before registration.
func (d *BeanDefinition) validate() error {
	if d.methodOverrides && d.factoryMethod != "" {
		return fmt.Errorf("cannot combine factory method with container-generated method overrides: " +
			"the factory method must create the concrete bean instance")
	}
	for _, e := range append(d.Constructors(), d.factoryOverloads...) {
		if err := validateExecutable(e); err != nil {
			return err
		}
	}
	if d.typ == nil && d.typeName == "" && d.parent == "" && d.factoryMethod == "" &&
		d.supplier == nil && len(d.constructors) == 0 && !d.abstract {
		return fmt.Errorf("definition declares no type, constructor, factory method or supplier")
	}
	return nil
}

// overrideFrom applies the settings of a child definition onto d.
func (d *BeanDefinition) overrideFrom(child *BeanDefinition) {
	if child.typ != nil || child.typeName != "" {
		d.typ = child.typ
		d.typeName = child.typeName
	}
	if child.scope != "" {
		d.scope = child.scope
	}
	d.abstract = child.abstract
	if child.lazySet {
		d.lazy = child.lazy
		d.lazySet = true
	}
	d.autowire = child.autowire
	d.dependsOn = append([]string(nil), child.dependsOn...)
	d.autowireCandidate = child.autowireCandidate
	d.primary = child.primary
	for k, q := range child.qualifiers {
		if d.qualifiers == nil {
			d.qualifiers = make(map[string]Qualifier)
		}
		d.qualifiers[k] = q
	}
	d.args.merge(child.args)
	for _, pv := range child.props {
		d.props = setProperty(d.props, pv)
	}
	if len(child.constructors) > 0 {
		d.constructors = append([]Executable(nil), child.constructors...)
	}
	if child.factoryMethod != "" {
		d.factoryBean = child.factoryBean
		d.factoryMethod = child.factoryMethod
	}
	if len(child.factoryOverloads) > 0 {
		d.factoryOverloads = append([]Executable(nil), child.factoryOverloads...)
	}
	if child.supplier != nil {
		d.supplier = child.supplier
	}
	if child.initMethod != "" {
		d.initMethod, d.enforceInit = child.initMethod, child.enforceInit
	}
	if child.destroyMethod != "" {
		d.destroyMethod, d.enforceDestroy = child.destroyMethod, child.enforceDestroy
	}
	d.methodOverrides = d.methodOverrides || child.methodOverrides
	d.lenient = child.lenient
	d.nonPublic = child.nonPublic
	if child.hasOrder {
		d.order, d.hasOrder = child.order, true
	}
	if child.hasPriority {
		d.priority, d.hasPriority = child.priority, true
	}
	d.role = child.role
	d.description = child.description
	d.parent = ""
}
