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

package config

import (
	"fmt"
	"strings"
)

const (
	_placeholderPrefix = "${"
	_placeholderSuffix = "}"
	_valueSeparator    = ":"
)

// PlaceholderResolver expands ${key} and ${key:default} placeholders with
// values from a Provider. Placeholders may be nested in keys, defaults and
// the values they resolve to.
type PlaceholderResolver struct {
	p                  Provider
	ignoreUnresolvable bool
}

// PlaceholderOption configures a PlaceholderResolver.
type PlaceholderOption func(*PlaceholderResolver)

// IgnoreUnresolvable leaves placeholders without a value or default in
// place instead of failing.
func IgnoreUnresolvable() PlaceholderOption {
	return func(r *PlaceholderResolver) { r.ignoreUnresolvable = true }
}

// NewPlaceholderResolver returns a resolver reading values from p.
func NewPlaceholderResolver(p Provider, opts ...PlaceholderOption) *PlaceholderResolver {
	r := &PlaceholderResolver{p: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvePlaceholders expands every placeholder in s.
func (r *PlaceholderResolver) ResolvePlaceholders(s string) (string, error) {
	return r.parse(s, make(map[string]bool))
}

func (r *PlaceholderResolver) parse(s string, visiting map[string]bool) (string, error) {
	start := strings.Index(s, _placeholderPrefix)
	for start != -1 {
		end := placeholderEnd(s, start)
		if end == -1 {
			break
		}
		original := s[start+len(_placeholderPrefix) : end]
		if visiting[original] {
			return "", fmt.Errorf("circular placeholder reference %q in property definitions", original)
		}
		visiting[original] = true

		key, err := r.parse(original, visiting)
		if err != nil {
			return "", err
		}
		val, ok := r.lookup(key)
		if !ok {
			if sep := strings.Index(key, _valueSeparator); sep != -1 {
				if val, ok = r.lookup(key[:sep]); !ok {
					val, ok = key[sep+len(_valueSeparator):], true
				}
			}
		}

		switch {
		case ok:
			if val, err = r.parse(val, visiting); err != nil {
				return "", err
			}
			s = s[:start] + val + s[end+len(_placeholderSuffix):]
			start = indexFrom(s, _placeholderPrefix, start+len(val))
		case r.ignoreUnresolvable:
			start = indexFrom(s, _placeholderPrefix, end+len(_placeholderSuffix))
		default:
			return "", fmt.Errorf("could not resolve placeholder %q in value %q", key, s)
		}
		delete(visiting, original)
	}
	return s, nil
}

func (r *PlaceholderResolver) lookup(key string) (string, bool) {
	if r.p == nil {
		return "", false
	}
	v := r.p.Get(key)
	if !v.HasValue() {
		return "", false
	}
	return v.TryAsString()
}

// placeholderEnd returns the index of the suffix closing the placeholder
// starting at start, accounting for nested placeholders.
func placeholderEnd(s string, start int) int {
	depth := 0
	for i := start + len(_placeholderPrefix); i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], _placeholderPrefix):
			depth++
			i += len(_placeholderPrefix)
		case strings.HasPrefix(s[i:], _placeholderSuffix):
			if depth == 0 {
				return i
			}
			depth--
			i += len(_placeholderSuffix)
		default:
			i++
		}
	}
	return -1
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i == -1 {
		return -1
	}
	return from + i
}

// NewExpandProvider returns a config provider that expands placeholders in
// the string values of p against p itself.
func NewExpandProvider(p Provider) Provider {
	return &expandProvider{p: p, r: NewPlaceholderResolver(p)}
}

type expandProvider struct {
	p Provider
	r *PlaceholderResolver
}

// Name returns expand
func (e *expandProvider) Name() string {
	return "expand"
}

// Get returns the value with its placeholders replaced. A value whose
// placeholders cannot be resolved is reported as missing.
func (e *expandProvider) Get(key string) Value {
	v := e.p.Get(key)
	s, ok := v.Value().(string)
	if !v.HasValue() || !ok {
		return v
	}
	expanded, err := e.r.ResolvePlaceholders(s)
	if err != nil {
		return NewValue(e, key, nil, false)
	}
	return NewValue(e, key, expanded, true)
}
