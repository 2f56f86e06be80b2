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
	"go.uber.org/beans/beanevent"
	"go.uber.org/beans/config"
)

// Option configures a Factory.
type Option interface {
	apply(*Factory)
}

type optionFunc func(*Factory)

func (f optionFunc) apply(fac *Factory) { f(fac) }

// WithLogger sends factory events to l.
func WithLogger(l beanevent.Logger) Option {
	return optionFunc(func(f *Factory) { f.logger = l })
}

// WithParent sets the parent factory. Beans missing locally are looked up
// in the parent; local beans shadow parent beans of the same name.
func WithParent(p *Factory) Option {
	return optionFunc(func(f *Factory) { f.parent = p })
}

// WithProperties expands ${key:default} placeholders in configured strings
// and value expressions using p.
func WithProperties(p config.Provider) Option {
	return WithEmbeddedValueResolver(config.NewPlaceholderResolver(p))
}

// WithEmbeddedValueResolver adds a resolver for configured strings.
// Resolvers run in the order they were added.
func WithEmbeddedValueResolver(r EmbeddedValueResolver) Option {
	return optionFunc(func(f *Factory) { f.embedded = append(f.embedded, r) })
}

// WithAllowOverriding controls whether a definition or alias may replace an
// existing one. Overriding is disabled by default.
func WithAllowOverriding(allow bool) Option {
	return optionFunc(func(f *Factory) { f.allowOverriding = allow })
}

// WithCircularReferences controls whether singletons are exposed to field
// injection before they are fully populated. Enabled by default.
// Constructor cycles always fail.
func WithCircularReferences(allow bool) Option {
	return optionFunc(func(f *Factory) { f.allowCircular = allow })
}

// WithAutowireCandidateResolver replaces the QualifierCandidateResolver.
func WithAutowireCandidateResolver(r AutowireCandidateResolver) Option {
	return optionFunc(func(f *Factory) { f.candidates = r })
}

// WithOrderComparator replaces the DefaultOrderComparator.
func WithOrderComparator(c OrderComparator) Option {
	return optionFunc(func(f *Factory) { f.comparator = c })
}

// WithTypeConverter replaces the SimpleTypeConverter.
func WithTypeConverter(c TypeConverter) Option {
	return optionFunc(func(f *Factory) { f.converter = c })
}

// WithInstantiationStrategy replaces the SimpleInstantiationStrategy.
func WithInstantiationStrategy(s InstantiationStrategy) Option {
	return optionFunc(func(f *Factory) { f.strategy = s })
}

// WithDestroyCallback runs fn for every destroyed singleton.
func WithDestroyCallback(fn func(name string, bean interface{}) error) Option {
	return optionFunc(func(f *Factory) { f.destroyCallback = fn })
}
