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
	"fmt"
	"io"
)

// ConsoleLogger is an event logger that writes human-readable messages to
// the console.
//
// Use this during development.
type ConsoleLogger struct {
	W io.Writer
}

var _ Logger = (*ConsoleLogger)(nil)

func (l *ConsoleLogger) logf(msg string, args ...interface{}) {
	fmt.Fprintf(l.W, "[Beans] "+msg+"\n", args...)
}

// LogEvent logs the given event to the provided writer.
func (l *ConsoleLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Registered:
		if e.Overridden {
			l.logf("REGISTER\t%s <= %s (overriding)", e.Name, e.TypeName)
		} else {
			l.logf("REGISTER\t%s <= %s", e.Name, e.TypeName)
		}
	case *Removed:
		l.logf("REMOVE\t\t%s", e.Name)
	case *Aliased:
		l.logf("ALIAS\t\t%s => %s", e.Alias, e.Name)
	case *Instantiating:
		l.logf("CREATE\t\t%s (%s)", e.Name, e.Scope)
	case *Instantiated:
		if e.Err != nil {
			l.logf("ERROR\t\tFailed to create %s: %v", e.Name, e.Err)
		} else {
			l.logf("CREATED\t%s %s in %s", e.Name, e.TypeName, e.Runtime)
		}
	case *ExecutableResolved:
		if e.Cached {
			l.logf("RESOLVE\t%s <= %s (cached)", e.Bean, e.Executable)
		} else {
			l.logf("RESOLVE\t%s <= %s", e.Bean, e.Executable)
		}
	case *CandidateRejected:
		l.logf("REJECT\t\t%s for %s: %v", e.Executable, e.Bean, e.Err)
	case *DependencyResolved:
		l.logf("INJECT\t\t%s <= %s (%s)", e.Requester, e.Candidate, e.TypeName)
	case *CandidateSkipped:
		l.logf("SKIP\t\t%s for %s: %s", e.Candidate, e.Requester, e.Reason)
	case *Destroyed:
		if e.Err != nil {
			l.logf("ERROR\t\tFailed to destroy %s: %v", e.Name, e.Err)
		} else {
			l.logf("DESTROY\t%s", e.Name)
		}
	}
}
