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
	"go.uber.org/zap"
)

// ZapLogger is a bean factory event logger that logs events to Zap.
type ZapLogger struct {
	Logger *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

// LogEvent logs the given event to the provided Zap logger.
func (l *ZapLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Registered:
		l.Logger.Info("registered",
			zap.String("bean", e.Name),
			zap.String("type", e.TypeName),
			zap.Bool("overridden", e.Overridden),
		)
	case *Removed:
		l.Logger.Info("removed", zap.String("bean", e.Name))
	case *Aliased:
		l.Logger.Info("aliased",
			zap.String("bean", e.Name),
			zap.String("alias", e.Alias),
		)
	case *Instantiating:
		l.Logger.Debug("instantiating",
			zap.String("bean", e.Name),
			zap.String("scope", e.Scope),
		)
	case *Instantiated:
		if e.Err != nil {
			l.Logger.Error("instantiation failed",
				zap.String("bean", e.Name),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("instantiated",
				zap.String("bean", e.Name),
				zap.String("type", e.TypeName),
				zap.String("runtime", e.Runtime.String()),
			)
		}
	case *ExecutableResolved:
		l.Logger.Debug("executable resolved",
			zap.String("bean", e.Bean),
			zap.String("executable", e.Executable),
			zap.Bool("cached", e.Cached),
		)
	case *CandidateRejected:
		l.Logger.Debug("candidate rejected",
			zap.String("bean", e.Bean),
			zap.String("executable", e.Executable),
			zap.Error(e.Err),
		)
	case *DependencyResolved:
		l.Logger.Debug("dependency resolved",
			zap.String("requester", e.Requester),
			zap.String("type", e.TypeName),
			zap.String("candidate", e.Candidate),
		)
	case *CandidateSkipped:
		l.Logger.Debug("candidate skipped",
			zap.String("requester", e.Requester),
			zap.String("candidate", e.Candidate),
			zap.String("reason", e.Reason),
		)
	case *Destroyed:
		if e.Err != nil {
			l.Logger.Warn("destroy failed",
				zap.String("bean", e.Name),
				zap.Error(e.Err),
			)
		} else {
			l.Logger.Info("destroyed", zap.String("bean", e.Name))
		}
	}
}
