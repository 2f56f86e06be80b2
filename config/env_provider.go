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
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// LookUpFunc is a type alias for a function to look for values
type LookUpFunc func(key string) (interface{}, bool)

type lookupProvider struct {
	name string
	f    LookUpFunc
}

// NewProviderFromLookUpFunc creates a provider backed by f.
func NewProviderFromLookUpFunc(name string, f LookUpFunc) Provider {
	return &lookupProvider{name: name, f: f}
}

func (l *lookupProvider) Get(key string) Value {
	if v, ok := l.f(key); ok {
		return NewValue(l, key, v, true)
	}

	return NewValue(l, key, nil, false)
}

func (l *lookupProvider) Name() string {
	return l.name
}

// EnvKey maps a dotted configuration key to an environment variable
// name: "server.port" with prefix "APP" becomes "APP_SERVER_PORT".
func EnvKey(prefix, key string) string {
	k := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if prefix == "" {
		return k
	}
	return strings.ToUpper(prefix) + "_" + k
}

// NewEnvProvider creates a provider reading environment variables named
// after keys with EnvKey.
func NewEnvProvider(prefix string) Provider {
	return NewProviderFromLookUpFunc("env", func(key string) (interface{}, bool) {
		v, ok := os.LookupEnv(EnvKey(prefix, key))
		return v, ok
	})
}

// EnvProvider returns function to create an environment provider during
// configuration initialization
func EnvProvider(prefix string) ProviderFunc {
	return func() (Provider, error) {
		return NewEnvProvider(prefix), nil
	}
}

// NewDotEnvProvider creates a provider from .env files without changing
// the process environment. Values of later files override earlier ones.
// Keys are looked up like NewEnvProvider with an empty prefix.
func NewDotEnvProvider(files ...string) (Provider, error) {
	vars := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", f)
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	return NewProviderFromLookUpFunc("dotenv", func(key string) (interface{}, bool) {
		v, ok := vars[EnvKey("", key)]
		return v, ok
	}), nil
}

// DotEnvFiles returns function to create a dotenv provider during
// configuration initialization
func DotEnvFiles(files ...string) ProviderFunc {
	return func() (Provider, error) {
		return NewDotEnvProvider(files...)
	}
}
