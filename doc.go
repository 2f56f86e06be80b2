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


// Package beans is an inversion-of-control container.
//
// A Factory holds named bean definitions and creates the beans they
// describe on demand, wiring each bean's dependencies from the other beans
// it holds. Singletons are created once and cached; prototypes are created
// on every request.
//
//
// Definitions
//
// A BeanDefinition says how to build one bean: through one of several
// constructors, a factory method on another bean or on the bean's own
// type, or a supplier function. Definitions may inherit from a parent
// definition, in which case the factory merges the chain into a
// MergedDefinition before use.
//
//   f := beans.NewFactory()
//   err := f.RegisterDefinition("client", beans.NewDefinition(
//     beans.WithConstructor(NewClient),
//     beans.WithConstructor(NewClientWithTimeout),
//   ))
//
//
// Constructor Resolution
//
// When a definition declares several constructors, the factory binds
// arguments for each candidate and scores it by how far the arguments are
// from the parameter types. The lowest score wins. Lenient definitions (the
// default) take the first of several equally scored candidates; strict
// definitions fail with an AmbiguousExecutableError. The winner and its
// arguments are kept in the bean's ResolutionCache, so later prototype
// instances skip resolution.
//
//
// Dependency Resolution
//
// A parameter or tagged field that no configured argument satisfies is
// resolved by type. When several beans match, a primary bean wins, then the
// bean with the lowest priority, then the bean whose name matches the
// parameter or field name. Slice and string-keyed map dependencies collect
// every match. Optional and Provider wrap dependencies that may be missing
// or must be resolved later.
//
//   type Handler struct {
//     Store   Store          `inject:""`
//     Backups []Store        `inject:"backup,optional"`
//     Port    int            `value:"${server.port:8080}"`
//   }
//
//
// Errors
//
// Lookups and creation return typed errors: NoSuchBeanError,
// NoUniqueBeanError, UnsatisfiedDependencyError, BeanCreationError,
// BeanCurrentlyInCreationError and DefinitionStoreError. Use errors.As to
// inspect them.
package beans
