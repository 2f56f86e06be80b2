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
	"sync"
)

// Scope manages bean instances outside the singleton and prototype scopes.
type Scope interface {
	// Get returns the scoped instance for name, calling create when none
	// exists yet.
	Get(name string, create func() (interface{}, error)) (interface{}, error)

	// Remove drops the scoped instance for name.
	Remove(name string) (interface{}, bool)
}

// MapScope keeps one instance per bean name until removed. Use one MapScope
// per logical context, such as a request or a tenant.
type MapScope struct {
	mu        sync.Mutex
	instances map[string]interface{}
}

var _ Scope = (*MapScope)(nil)

// NewMapScope returns an empty MapScope.
func NewMapScope() *MapScope {
	return &MapScope{instances: make(map[string]interface{})}
}

// Get implements Scope. create runs without the scope's lock held.
func (s *MapScope) Get(name string, create func() (interface{}, error)) (interface{}, error) {
	s.mu.Lock()
	v, ok := s.instances[name]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.instances[name]; ok {
		return existing, nil
	}
	s.instances[name] = v
	return v, nil
}

// Remove implements Scope.
func (s *MapScope) Remove(name string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.instances[name]
	delete(s.instances, name)
	return v, ok
}
