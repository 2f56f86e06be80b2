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
	"sort"
	"sync"
	"sync/atomic"
)

// definitionRegistry stores bean definitions, aliases and the per-name
// caches derived from them.
type definitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*BeanDefinition
	names       []string
	aliases     map[string]string // alias -> name
	frozen      []string

	// creationStarted switches name list updates from in-place appends to
	// copy-on-write, so iterations started by concurrent readers stay valid.
	creationStarted int32

	merged sync.Map // string -> *MergedDefinition
	caches cacheStore
}

func newDefinitionRegistry() *definitionRegistry {
	return &definitionRegistry{
		definitions: make(map[string]*BeanDefinition),
		aliases:     make(map[string]string),
	}
}

func (r *definitionRegistry) markCreationStarted() {
	atomic.StoreInt32(&r.creationStarted, 1)
}

func (r *definitionRegistry) hasCreationStarted() bool {
	return atomic.LoadInt32(&r.creationStarted) == 1
}

// register stores def under name. It reports whether an existing definition
// was replaced.
func (r *definitionRegistry) register(name string, def *BeanDefinition, allowOverriding bool) (bool, error) {
	if name == "" {
		return false, &DefinitionStoreError{Description: def.Description(), Msg: "bean name must not be empty"}
	}
	if err := def.validate(); err != nil {
		return false, &DefinitionStoreError{Name: name, Description: def.Description(), Msg: "validation of bean definition failed", Cause: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if target, ok := r.aliases[name]; ok {
		return false, &DefinitionStoreError{
			Name:        name,
			Description: def.Description(),
			Msg:         fmt.Sprintf("name is already used as an alias for %q", target),
		}
	}

	_, exists := r.definitions[name]
	if exists && !allowOverriding {
		return false, &DefinitionStoreError{
			Name:        name,
			Description: def.Description(),
			Msg:         "cannot register bean definition: there is already a definition bound and overriding is disabled",
		}
	}
	r.definitions[name] = def
	if !exists {
		if r.hasCreationStarted() {
			names := make([]string, len(r.names), len(r.names)+1)
			copy(names, r.names)
			r.names = append(names, name)
		} else {
			r.names = append(r.names, name)
		}
	}
	r.frozen = nil
	return exists, nil
}

func (r *definitionRegistry) remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.definitions[name]; !ok {
		return &NoSuchBeanError{Name: name}
	}
	delete(r.definitions, name)
	names := make([]string, 0, len(r.names))
	for _, n := range r.names {
		if n != name {
			names = append(names, n)
		}
	}
	r.names = names
	r.frozen = nil
	return nil
}

func (r *definitionRegistry) definition(name string) (*BeanDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

func (r *definitionRegistry) contains(name string) bool {
	_, ok := r.definition(name)
	return ok
}

func (r *definitionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.definitions)
}

// definitionNames returns the names in registration order. Once frozen the
// same snapshot is returned until the next change.
func (r *definitionRegistry) definitionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.frozen != nil {
		return r.frozen
	}
	return append([]string(nil), r.names...)
}

func (r *definitionRegistry) freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = append([]string{}, r.names...)
}

func (r *definitionRegistry) isFrozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen != nil
}

// children returns the definitions whose declared parent is name.
func (r *definitionRegistry) children(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, n := range r.names {
		if n == name {
			continue
		}
		if def := r.definitions[n]; def != nil && def.Parent() == name {
			out = append(out, n)
		}
	}
	return out
}

func (r *definitionRegistry) registerAlias(name, alias string, allowOverriding bool) error {
	if name == "" || alias == "" {
		return &DefinitionStoreError{Name: name, Msg: "alias and name must not be empty"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if alias == name {
		delete(r.aliases, alias)
		return nil
	}
	if existing, ok := r.aliases[alias]; ok {
		if existing == name {
			return nil
		}
		if !allowOverriding {
			return &DefinitionStoreError{
				Name: name,
				Msg:  fmt.Sprintf("cannot register alias %q: it is already registered for %q", alias, existing),
			}
		}
	}
	if r.hasAliasLocked(alias, name) {
		return &DefinitionStoreError{
			Name: name,
			Msg:  fmt.Sprintf("cannot register alias %q: circular reference %q -> %q", alias, name, alias),
		}
	}
	r.aliases[alias] = name
	return nil
}

// hasAliasLocked reports whether alias is, directly or through a chain, an
// alias registered for name.
func (r *definitionRegistry) hasAliasLocked(name, alias string) bool {
	for a, target := range r.aliases {
		if target == name && (a == alias || r.hasAliasLocked(a, alias)) {
			return true
		}
	}
	return false
}

func (r *definitionRegistry) removeAlias(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.aliases[alias]; !ok {
		return fmt.Errorf("no alias %q registered", alias)
	}
	delete(r.aliases, alias)
	return nil
}

func (r *definitionRegistry) isAlias(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.aliases[name]
	return ok
}

// canonicalName follows alias chains to the registered name.
func (r *definitionRegistry) canonicalName(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for {
		target, ok := r.aliases[name]
		if !ok {
			return name
		}
		name = target
	}
}

// aliasesOf returns every alias that resolves to name, directly or through
// a chain.
func (r *definitionRegistry) aliasesOf(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	r.collectAliasesLocked(name, &out)
	sort.Strings(out)
	return out
}

func (r *definitionRegistry) collectAliasesLocked(name string, out *[]string) {
	for alias, target := range r.aliases {
		if target == name {
			*out = append(*out, alias)
			r.collectAliasesLocked(alias, out)
		}
	}
}
