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
	"sync"
)

// CacheState is the lifecycle state of a ResolutionCache.
type CacheState int

// Cache states.
const (
	Unresolved CacheState = iota
	Resolving
	ResolvedFull
	ResolvedPrepared
)

func (s CacheState) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case ResolvedFull:
		return "resolved"
	case ResolvedPrepared:
		return "prepared"
	default:
		return "unknown"
	}
}

// _autowiredMarker stands in a prepared argument array for an argument that
// must be autowired again on every use.
var _autowiredMarker = &autowiredArgumentMarker{}

type autowiredArgumentMarker struct{}

func (*autowiredArgumentMarker) String() string { return "<autowired>" }

// ResolutionCache remembers the executable and arguments chosen for a bean
// so later instantiations skip resolution. Every field is guarded by one
// mutex; readers take a consistent snapshot.
//
// An Executable with full arguments is ResolvedFull. One with prepared
// arguments, which still contain references or autowired markers, is
// ResolvedPrepared. A cache never holds both.
type ResolutionCache struct {
	mu sync.Mutex

	state         CacheState
	executable    Executable
	factoryMethod bool
	resolved      []interface{}
	prepared      []interface{}

	// uniqueFactoryMethod is set when only one factory method candidate
	// exists, allowing later resolutions to skip the candidate scan.
	uniqueFactoryMethod Executable

	targetType reflect.Type
	typeKnown  bool
}

// State returns the current state.
func (c *ResolutionCache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Executable returns the cached executable, if any.
func (c *ResolutionCache) Executable() Executable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executable
}

type cacheSnapshot struct {
	executable    Executable
	factoryMethod bool
	resolved      []interface{}
	prepared      []interface{}
	unique        Executable
}

// snapshot returns the cached entries, marking an unresolved cache as
// resolving.
func (c *ResolutionCache) snapshot() cacheSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Unresolved {
		c.state = Resolving
	}
	return cacheSnapshot{
		executable:    c.executable,
		factoryMethod: c.factoryMethod,
		resolved:      c.resolved,
		prepared:      c.prepared,
		unique:        c.uniqueFactoryMethod,
	}
}

// abandon returns a resolving cache to unresolved after a failure.
func (c *ResolutionCache) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Resolving {
		c.state = Unresolved
	}
}

func (c *ResolutionCache) storeResolved(e Executable, args []interface{}, factoryMethod bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executable = e
	c.factoryMethod = factoryMethod
	c.resolved = append([]interface{}{}, args...)
	c.prepared = nil
	c.state = ResolvedFull
}

func (c *ResolutionCache) storePrepared(e Executable, prepared []interface{}, factoryMethod bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executable = e
	c.factoryMethod = factoryMethod
	c.resolved = nil
	c.prepared = append([]interface{}{}, prepared...)
	c.state = ResolvedPrepared
}

func (c *ResolutionCache) storeUniqueFactoryMethod(e Executable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniqueFactoryMethod = e
}

func (c *ResolutionCache) storeTargetType(t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetType = t
	c.typeKnown = true
}

func (c *ResolutionCache) cachedTargetType() (reflect.Type, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetType, c.typeKnown
}

// reset discards every cached entry.
func (c *ResolutionCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Unresolved
	c.executable = nil
	c.factoryMethod = false
	c.resolved = nil
	c.prepared = nil
	c.uniqueFactoryMethod = nil
	c.targetType = nil
	c.typeKnown = false
}

// cacheStore holds one ResolutionCache per bean name.
type cacheStore struct {
	caches sync.Map // string -> *ResolutionCache
}

func (s *cacheStore) get(name string) *ResolutionCache {
	if c, ok := s.caches.Load(name); ok {
		return c.(*ResolutionCache)
	}
	c, _ := s.caches.LoadOrStore(name, &ResolutionCache{})
	return c.(*ResolutionCache)
}

func (s *cacheStore) invalidate(name string) {
	if c, ok := s.caches.Load(name); ok {
		c.(*ResolutionCache).reset()
	}
}
