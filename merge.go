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
)

// MergedDefinition is a bean definition flattened with its parent chain.
// Merged definitions are cached per bean name and rebuilt once marked
// stale.
type MergedDefinition struct {
	*BeanDefinition

	name  string
	inner bool
	stale int32
}

// Name returns the bean name the definition was merged for.
func (m *MergedDefinition) Name() string { return m.name }

// IsStale reports whether the definition must be merged again.
func (m *MergedDefinition) IsStale() bool { return atomic.LoadInt32(&m.stale) == 1 }

func (m *MergedDefinition) markStale() { atomic.StoreInt32(&m.stale, 1) }

// ResolvedAutowire returns the effective autowire mode, turning
// AutowireAutodetect into a concrete mode.
func (m *MergedDefinition) ResolvedAutowire() AutowireMode {
	if m.autowire != AutowireAutodetect {
		return m.autowire
	}
	for _, c := range m.constructors {
		if len(c.ParamTypes()) == 0 {
			return AutowireByType
		}
	}
	return AutowireConstructor
}

// RegisterType makes t resolvable from definitions declared with
// WithTypeName(name).
func (f *Factory) RegisterType(name string, t reflect.Type) {
	f.types.Store(name, t)
}

func (f *Factory) resolveTypeName(name string) (reflect.Type, bool) {
	if t, ok := f.types.Load(name); ok {
		return t.(reflect.Type), true
	}
	if f.parent != nil {
		return f.parent.resolveTypeName(name)
	}
	return nil, false
}

// MergedDefinition returns the definition registered under name merged with
// its parents, consulting the parent factory when name is not local.
func (f *Factory) MergedDefinition(name string) (*MergedDefinition, error) {
	beanName := f.registry.canonicalName(name)
	if !f.registry.contains(beanName) && f.parent != nil {
		return f.parent.MergedDefinition(beanName)
	}
	return f.mergedDefinition(beanName)
}

func (f *Factory) mergedDefinition(name string) (*MergedDefinition, error) {
	if m, ok := f.registry.merged.Load(name); ok && !m.(*MergedDefinition).IsStale() {
		return m.(*MergedDefinition), nil
	}

	f.mergeMu.Lock()
	defer f.mergeMu.Unlock()
	return f.mergedDefinitionLocked(name, make(map[string]bool))
}

func (f *Factory) mergedDefinitionLocked(name string, visiting map[string]bool) (*MergedDefinition, error) {
	if m, ok := f.registry.merged.Load(name); ok && !m.(*MergedDefinition).IsStale() {
		return m.(*MergedDefinition), nil
	}
	def, ok := f.registry.definition(name)
	if !ok {
		return nil, &NoSuchBeanError{Name: name}
	}

	visiting[name] = true
	base, err := f.flatten(name, def, visiting)
	if err != nil {
		return nil, err
	}
	m := &MergedDefinition{BeanDefinition: base, name: name}
	f.registry.merged.Store(name, m)
	return m, nil
}

// flatten copies def on top of its merged parent and resolves its type name.
func (f *Factory) flatten(name string, def *BeanDefinition, visiting map[string]bool) (*BeanDefinition, error) {
	var base *BeanDefinition
	if def.Parent() == "" {
		base = def.Clone()
	} else {
		parent, err := f.mergedParent(name, def, visiting)
		if err != nil {
			return nil, &DefinitionStoreError{
				Name:        name,
				Description: def.Description(),
				Msg:         fmt.Sprintf("could not resolve parent bean definition %q", def.Parent()),
				Cause:       err,
			}
		}
		base = parent.BeanDefinition.Clone()
		base.overrideFrom(def)
	}

	if base.typ == nil && base.typeName != "" {
		t, ok := f.resolveTypeName(base.typeName)
		if !ok {
			return nil, &DefinitionStoreError{
				Name:        name,
				Description: def.Description(),
				Msg:         fmt.Sprintf("cannot resolve type name %q: register it with RegisterType", base.typeName),
			}
		}
		base.typ = t
	}
	return base, nil
}

func (f *Factory) mergedParent(name string, def *BeanDefinition, visiting map[string]bool) (*MergedDefinition, error) {
	parentName := f.registry.canonicalName(def.Parent())
	if parentName == name || !f.registry.contains(parentName) {
		if f.parent == nil {
			if parentName == name {
				return nil, fmt.Errorf("parent name %q is equal to bean name %q: cannot be resolved without a parent factory", parentName, name)
			}
			return nil, &NoSuchBeanError{Name: parentName}
		}
		return f.parent.MergedDefinition(parentName)
	}
	if visiting[parentName] {
		return nil, fmt.Errorf("circular parent relationship through %q", parentName)
	}
	return f.mergedDefinitionLocked(parentName, visiting)
}

// mergeInner merges a nested definition without caching the result.
func (f *Factory) mergeInner(name string, def *BeanDefinition) (*MergedDefinition, error) {
	if err := def.validate(); err != nil {
		return nil, &DefinitionStoreError{Name: name, Description: def.Description(), Msg: "validation of inner bean definition failed", Cause: err}
	}
	var (
		base *BeanDefinition
		err  error
	)
	if def.Parent() == "" {
		base, err = f.flatten(name, def, nil)
	} else {
		f.mergeMu.Lock()
		base, err = f.flatten(name, def, make(map[string]bool))
		f.mergeMu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	return &MergedDefinition{BeanDefinition: base, name: name, inner: true}, nil
}

// clearMergedDefinition marks the cached merged definition for name stale.
func (f *Factory) clearMergedDefinition(name string) {
	if m, ok := f.registry.merged.Load(name); ok {
		m.(*MergedDefinition).markStale()
	}
}
