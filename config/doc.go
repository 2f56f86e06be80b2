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

// Package config provides the property sources a bean factory expands
// placeholders against.
//
// A Provider returns a Value for a dotted key such as "server.port".
// Providers read YAML documents, environment variables, .env files or
// static maps, and a provider group layers several of them:
//
//	base, err := config.NewYAMLProviderFromFiles("base.yaml")
//	if err != nil {
//	  return err
//	}
//	p := config.NewProviderGroup("app", base, config.NewEnvProvider("APP"))
//
// Values from the environment provider, listed last, take precedence.
//
// PlaceholderResolver expands ${key} and ${key:default} placeholders in
// strings and is what beans.WithProperties installs on a factory:
//
//	r := config.NewPlaceholderResolver(p)
//	addr, err := r.ResolvePlaceholders("${server.host:localhost}:${server.port}")
package config
