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

package beanevent

import (
	"time"
)

// Event defines an event emitted by a bean factory.
type Event interface {
	event() // Only beanevent can implement this interface.
}

// Passing events by type to make Event hashable in the future.
func (*Registered) event()         {}
func (*Removed) event()            {}
func (*Aliased) event()            {}
func (*Instantiating) event()      {}
func (*Instantiated) event()       {}
func (*ExecutableResolved) event() {}
func (*CandidateRejected) event()  {}
func (*DependencyResolved) event() {}
func (*CandidateSkipped) event()   {}
func (*Destroyed) event()          {}

// Registered is emitted when a bean definition is added to a factory.
type Registered struct {
	Name string
	// TypeName is the declared bean type, empty if it is only known once
	// a factory method resolves.
	TypeName   string
	Overridden bool
}

// Removed is emitted when a bean definition is removed.
type Removed struct {
	Name string
}

// Aliased is emitted when an alias is registered.
type Aliased struct {
	Name  string
	Alias string
}

// Instantiating is emitted before a bean is created.
type Instantiating struct {
	Name  string
	Scope string
}

// Instantiated is emitted after a bean was created or failed to be.
type Instantiated struct {
	Name     string
	TypeName string
	Runtime  time.Duration
	Err      error
}

// ExecutableResolved is emitted when a constructor or factory method was
// chosen for a bean.
type ExecutableResolved struct {
	Bean       string
	Executable string
	// Cached reports that the choice came from the resolution cache.
	Cached bool
}

// CandidateRejected is emitted when a constructor or factory method could
// not be satisfied and another candidate is tried.
type CandidateRejected struct {
	Bean       string
	Executable string
	Err        error
}

// DependencyResolved is emitted when a dependency was matched to a bean.
type DependencyResolved struct {
	Requester string
	TypeName  string
	Candidate string
}

// CandidateSkipped is emitted when a candidate is left out of a collection
// because it is still being created.
type CandidateSkipped struct {
	Requester string
	Candidate string
	Reason    string
}

// Destroyed is emitted when a singleton is destroyed.
type Destroyed struct {
	Name string
	Err  error
}
