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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderGroup(t *testing.T) {
	t.Parallel()
	low := NewStaticProvider(map[string]string{"id": "low", "only.low": "yes"})
	high := NewStaticProvider(map[string]string{"id": "high"})

	pg := NewProviderGroup("test-group", low, high)
	assert.Equal(t, "test-group", pg.Name())
	assert.Equal(t, "high", pg.Get("id").AsString())
	assert.Equal(t, "yes", pg.Get("only.low").AsString())

	missing := pg.Get("nope")
	assert.False(t, missing.HasValue())
	assert.Equal(t, "test-group", missing.Source())
}

func TestProviderGroupWithProvider(t *testing.T) {
	t.Parallel()
	pg := NewProviderGroup("g", NewStaticProvider(map[string]string{"id": "base"}))
	override := NewStaticProvider(map[string]string{"id": "override"})

	withOverride := pg.(providerGroup).WithProvider(override)
	assert.Equal(t, "override", withOverride.Get("id").AsString())
	assert.Equal(t, "base", pg.Get("id").AsString(), "original group must not change")
}

func TestScopedProvider(t *testing.T) {
	t.Parallel()
	p := NewStaticProvider(map[string]interface{}{
		"modules": map[string]interface{}{"rpc": map[string]interface{}{"bind": ":80"}},
	})

	sp := NewScopedProvider("modules.rpc", p)
	assert.Equal(t, ":80", sp.Get("bind").AsString())
	assert.Equal(t, []string{"bind"}, sp.Get(Root).ChildKeys())

	assert.Equal(t, p, NewScopedProvider("", p))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p, err := Load("app",
		StaticProvider(map[string]string{"a": "1", "b": "1"}),
		StaticProvider(map[string]string{"b": "2"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "app", p.Name())
	assert.Equal(t, "1", p.Get("a").AsString())
	assert.Equal(t, "2", p.Get("b").AsString())

	_, err = Load("app", func() (Provider, error) {
		return nil, errors.New("great sadness")
	})
	assert.EqualError(t, err, "great sadness")
}

func TestEnvKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "APP_SERVER_PORT", EnvKey("app", "server.port"))
	assert.Equal(t, "MAX_IDLE_CONNS", EnvKey("", "max-idle.conns"))
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("BEANSTEST_SERVER_PORT", "9000")

	p, err := EnvProvider("beanstest")()
	require.NoError(t, err)
	assert.Equal(t, "env", p.Name())

	port, ok := p.Get("server.port").TryAsInt()
	require.True(t, ok)
	assert.Equal(t, 9000, port)
	assert.False(t, p.Get("server.host").HasValue())
}

func TestProviderFromLookUpFunc(t *testing.T) {
	t.Parallel()
	p := NewProviderFromLookUpFunc("lookup", func(key string) (interface{}, bool) {
		if key == "answer" {
			return 42, true
		}
		return nil, false
	})

	assert.Equal(t, "lookup", p.Name())
	assert.Equal(t, "42", p.Get("answer").AsString())
	assert.False(t, p.Get("question").HasValue())
}

func TestDotEnvProvider(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "beans-dotenv")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, ioutil.WriteFile(first, []byte("DB_HOST=db.local\nDB_PORT=5432\n"), 0644))
	require.NoError(t, ioutil.WriteFile(second, []byte("DB_PORT=6543\n"), 0644))

	p, err := DotEnvFiles(first, second)()
	require.NoError(t, err)
	assert.Equal(t, "dotenv", p.Name())
	assert.Equal(t, "db.local", p.Get("db.host").AsString())
	assert.Equal(t, "6543", p.Get("db.port").AsString())

	_, err = NewDotEnvProvider(filepath.Join(dir, "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestValueConversions(t *testing.T) {
	t.Parallel()

	v := NewValue(nil, "k", " 12 ", true)
	assert.Equal(t, "", v.Source())
	assert.Equal(t, "k", v.Key())
	i, ok := v.TryAsInt()
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	b, ok := NewValue(nil, "k", "true", true).TryAsBool()
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = NewValue(nil, "k", "nope", true).TryAsFloat()
	assert.False(t, ok)

	_, ok = NewValue(nil, "k", nil, false).TryAsString()
	assert.False(t, ok)
	assert.Equal(t, Invalid, GetType(struct{}{}))
}
