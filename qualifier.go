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
	"strings"
)

// DefaultQualifier is the qualifier type used when none is given.
const DefaultQualifier = "qualifier"

// Qualifier narrows the set of candidates for an injection point.
type Qualifier struct {
	// Type is the qualifier kind. Empty means DefaultQualifier.
	Type string

	Value      string
	Attributes map[string]string
}

func (q Qualifier) typeName() string {
	if q.Type == "" {
		return DefaultQualifier
	}
	return q.Type
}

// matches reports whether q, declared on a definition, satisfies the
// requested qualifier.
func (q Qualifier) matches(requested Qualifier) bool {
	if q.typeName() != requested.typeName() || q.Value != requested.Value {
		return false
	}
	for k, v := range requested.Attributes {
		if q.Attributes[k] != v {
			return false
		}
	}
	return true
}

func (q Qualifier) String() string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(q.typeName())
	b.WriteString("(")
	b.WriteString(q.Value)
	keys := make([]string, 0, len(q.Attributes))
	for k := range q.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s=%s", k, q.Attributes[k])
	}
	b.WriteString(")")
	return b.String()
}
