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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	t.Parallel()

	someError := errors.New("some error")

	tests := []struct {
		name        string
		give        Event
		wantLevel   zapcore.Level
		wantMessage string
		wantFields  map[string]interface{}
	}{
		{
			name:        "Registered",
			give:        &Registered{Name: "db", TypeName: "*sql.DB", Overridden: true},
			wantLevel:   zapcore.InfoLevel,
			wantMessage: "registered",
			wantFields: map[string]interface{}{
				"bean":       "db",
				"type":       "*sql.DB",
				"overridden": true,
			},
		},
		{
			name:        "Removed",
			give:        &Removed{Name: "db"},
			wantLevel:   zapcore.InfoLevel,
			wantMessage: "removed",
			wantFields:  map[string]interface{}{"bean": "db"},
		},
		{
			name:        "Aliased",
			give:        &Aliased{Name: "db", Alias: "database"},
			wantLevel:   zapcore.InfoLevel,
			wantMessage: "aliased",
			wantFields: map[string]interface{}{
				"bean":  "db",
				"alias": "database",
			},
		},
		{
			name:        "Instantiating",
			give:        &Instantiating{Name: "db", Scope: "singleton"},
			wantLevel:   zapcore.DebugLevel,
			wantMessage: "instantiating",
			wantFields: map[string]interface{}{
				"bean":  "db",
				"scope": "singleton",
			},
		},
		{
			name:        "Instantiated",
			give:        &Instantiated{Name: "db", TypeName: "*sql.DB", Runtime: 3 * time.Millisecond},
			wantLevel:   zapcore.InfoLevel,
			wantMessage: "instantiated",
			wantFields: map[string]interface{}{
				"bean":    "db",
				"type":    "*sql.DB",
				"runtime": "3ms",
			},
		},
		{
			name:        "InstantiatedError",
			give:        &Instantiated{Name: "db", Err: someError},
			wantLevel:   zapcore.ErrorLevel,
			wantMessage: "instantiation failed",
			wantFields: map[string]interface{}{
				"bean":  "db",
				"error": "some error",
			},
		},
		{
			name:        "ExecutableResolved",
			give:        &ExecutableResolved{Bean: "db", Executable: "sql.Open(string, string)", Cached: true},
			wantLevel:   zapcore.DebugLevel,
			wantMessage: "executable resolved",
			wantFields: map[string]interface{}{
				"bean":       "db",
				"executable": "sql.Open(string, string)",
				"cached":     true,
			},
		},
		{
			name:        "CandidateRejected",
			give:        &CandidateRejected{Bean: "db", Executable: "sql.Open(string, string)", Err: someError},
			wantLevel:   zapcore.DebugLevel,
			wantMessage: "candidate rejected",
			wantFields: map[string]interface{}{
				"bean":       "db",
				"executable": "sql.Open(string, string)",
				"error":      "some error",
			},
		},
		{
			name:        "DependencyResolved",
			give:        &DependencyResolved{Requester: "repo", TypeName: "*sql.DB", Candidate: "db"},
			wantLevel:   zapcore.DebugLevel,
			wantMessage: "dependency resolved",
			wantFields: map[string]interface{}{
				"requester": "repo",
				"type":      "*sql.DB",
				"candidate": "db",
			},
		},
		{
			name:        "CandidateSkipped",
			give:        &CandidateSkipped{Requester: "repo", Candidate: "db", Reason: "in creation"},
			wantLevel:   zapcore.DebugLevel,
			wantMessage: "candidate skipped",
			wantFields: map[string]interface{}{
				"requester": "repo",
				"candidate": "db",
				"reason":    "in creation",
			},
		},
		{
			name:        "Destroyed",
			give:        &Destroyed{Name: "db"},
			wantLevel:   zapcore.InfoLevel,
			wantMessage: "destroyed",
			wantFields:  map[string]interface{}{"bean": "db"},
		},
		{
			name:        "DestroyedError",
			give:        &Destroyed{Name: "db", Err: someError},
			wantLevel:   zapcore.WarnLevel,
			wantMessage: "destroy failed",
			wantFields: map[string]interface{}{
				"bean":  "db",
				"error": "some error",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, observedLogs := observer.New(zap.DebugLevel)
			(&ZapLogger{Logger: zap.New(core)}).LogEvent(tt.give)

			logs := observedLogs.TakeAll()
			require.Len(t, logs, 1)
			got := logs[0]

			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantFields, got.ContextMap())
		})
	}
}
