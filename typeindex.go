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

	"go.uber.org/beans/beanevent"
)

type typeCacheKey struct {
	t    reflect.Type
	lazy bool
}

func (f *Factory) clearTypeCache() {
	f.typeCache.Range(func(k, _ interface{}) bool {
		f.typeCache.Delete(k)
		return true
	})
}

// namesForType returns the names of local beans assignable to t, in
// registration order followed by manually registered singletons.
//
// A bean whose type cannot be predicted from its definition is created to
// find out, unless lazy is set, in which case it is left out.
func (f *Factory) namesForType(r *request, t reflect.Type, lazy bool) []string {
	if t == nil {
		return nil
	}
	key := typeCacheKey{t: t, lazy: lazy}
	if cached, ok := f.typeCache.Load(key); ok {
		return cached.([]string)
	}

	var (
		out      []string
		complete = true
		seen     = make(map[string]bool)
	)
	for _, name := range f.DefinitionNames() {
		seen[name] = true
		mbd, err := f.mergedDefinition(name)
		if err != nil || mbd.IsAbstract() {
			continue
		}
		bt, known := f.beanType(r, name, mbd, lazy)
		if !known {
			complete = false
			continue
		}
		if bt.AssignableTo(t) {
			out = append(out, name)
		}
	}
	for _, name := range f.manualSingletonNames() {
		if seen[name] {
			continue
		}
		if bean, ok := f.singletons.Load(name); ok && bean != nil && reflect.TypeOf(bean).AssignableTo(t) {
			out = append(out, name)
		}
	}

	if complete && f.IsConfigurationFrozen() {
		f.typeCache.Store(key, out)
	}
	return out
}

// beanType returns the type of an existing singleton, or the type predicted
// from the definition, creating eligible singletons when neither is known.
func (f *Factory) beanType(r *request, name string, mbd *MergedDefinition, lazy bool) (reflect.Type, bool) {
	if bean, ok := f.singletons.Load(name); ok {
		if bean == nil {
			return nil, false
		}
		return reflect.TypeOf(bean), true
	}
	if t := f.predictType(name, mbd); t != nil {
		return t, true
	}
	if lazy || !mbd.IsSingleton() || mbd.IsLazyInit() || r.inCreation(f, name) {
		return nil, false
	}
	bean, err := f.doGetBean(r, name, nil, nil)
	if err != nil || bean == nil {
		reason := "type unknown before creation"
		if err != nil {
			reason = err.Error()
		}
		f.logger.LogEvent(&beanevent.CandidateSkipped{Candidate: name, Reason: reason})
		return nil, false
	}
	return reflect.TypeOf(bean), true
}

// namesForTypeIncludingAncestors adds the matching beans of ancestor
// factories that are not shadowed by a local bean of the same name.
func (f *Factory) namesForTypeIncludingAncestors(r *request, t reflect.Type, lazy bool) []string {
	out := append([]string(nil), f.namesForType(r, t, lazy)...)
	if f.parent == nil {
		return out
	}
	seen := make(map[string]bool, len(out))
	for _, n := range out {
		seen[n] = true
	}
	for _, n := range f.parent.namesForTypeIncludingAncestors(r, t, lazy) {
		if !seen[n] && !f.containsLocal(n) {
			out = append(out, n)
		}
	}
	return out
}

func (f *Factory) containsLocal(name string) bool {
	return f.registry.contains(name) || f.containsSingleton(name)
}

// owner returns the factory in the hierarchy that holds name.
func (f *Factory) owner(name string) *Factory {
	for o := f; o != nil; o = o.parent {
		if o.containsLocal(name) {
			return o
		}
	}
	return nil
}

// holderFor describes the bean registered under name for candidate
// resolution.
func (f *Factory) holderFor(name string) (DefinitionHolder, *Factory, bool) {
	o := f.owner(name)
	if o == nil {
		return DefinitionHolder{}, nil, false
	}
	h := DefinitionHolder{Name: name, Aliases: o.registry.aliasesOf(name)}
	if bean, ok := o.singletons.Load(name); ok && bean != nil {
		h.Type = reflect.TypeOf(bean)
	}
	if o.registry.contains(name) {
		mbd, err := o.mergedDefinition(name)
		if err != nil {
			return DefinitionHolder{}, nil, false
		}
		h.Definition = mbd
		if h.Type == nil {
			h.Type = o.predictType(name, mbd)
		}
	}
	return h, o, true
}
