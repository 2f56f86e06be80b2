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
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type yamlConfigProvider struct {
	root map[interface{}]interface{}

	mu     sync.RWMutex
	vCache map[string]Value
}

var _ Provider = &yamlConfigProvider{}

func newYAMLProviderCore(readers ...io.Reader) (Provider, error) {
	root := make(map[interface{}]interface{})
	for i, r := range readers {
		tmp := make(map[interface{}]interface{})
		if err := unmarshalYamlValue(r, tmp); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML source %d", i)
		}
		merged, err := mergeMaps(root, tmp)
		if err != nil {
			return nil, err
		}
		root = merged.(map[interface{}]interface{})
	}

	return &yamlConfigProvider{
		root:   root,
		vCache: make(map[string]Value),
	}, nil
}

func mergeMaps(dst interface{}, src interface{}) (interface{}, error) {
	if src == nil {
		return dst, nil
	}

	switch s := src.(type) {
	case map[interface{}]interface{}:
		d, ok := dst.(map[interface{}]interface{})
		if !ok {
			return nil, fmt.Errorf("expected map[interface{}]interface{}, actual: %T", dst)
		}

		for k, v := range s {
			if d[k] == nil {
				d[k] = v
				continue
			}
			if _, isMap := v.(map[interface{}]interface{}); !isMap {
				d[k] = v
				continue
			}
			merged, err := mergeMaps(d[k], v)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot merge key %v", k)
			}
			d[k] = merged
		}
		return d, nil
	default:
		return src, nil
	}
}

// NewYAMLProviderFromFiles creates a configuration provider from a set of YAML file names.
// All the objects are going to be merged and arrays/values overridden in the order of the files.
func NewYAMLProviderFromFiles(files ...string) (Provider, error) {
	readers := make([]io.Reader, 0, len(files))
	for _, name := range files {
		data, err := ioutil.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't open %s", name)
		}
		readers = append(readers, bytes.NewReader(data))
	}

	return newYAMLProviderCore(readers...)
}

// NewYAMLProviderFromReader creates a configuration provider from io.Readers.
// Same as above all the objects are going to be merged and arrays/values overridden in the order of the readers.
func NewYAMLProviderFromReader(readers ...io.Reader) (Provider, error) {
	return newYAMLProviderCore(readers...)
}

// NewYAMLProviderFromBytes creates a config provider from a byte-backed YAML blobs.
// Same as above all the objects are going to be merged and arrays/values overridden in the order of the files.
func NewYAMLProviderFromBytes(yamls ...[]byte) (Provider, error) {
	readers := make([]io.Reader, len(yamls))
	for i := range yamls {
		readers[i] = bytes.NewReader(yamls[i])
	}

	return newYAMLProviderCore(readers...)
}

// YAMLFiles returns a ProviderFunc reading the given files. Missing files
// are skipped unless mustExist is set.
func YAMLFiles(mustExist bool, files ...string) ProviderFunc {
	return func() (Provider, error) {
		var existing []string
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				if mustExist || !os.IsNotExist(err) {
					return nil, errors.Wrapf(err, "couldn't open %s", f)
				}
				continue
			}
			existing = append(existing, f)
		}
		return NewYAMLProviderFromFiles(existing...)
	}
}

// Name returns the config provider name
func (y *yamlConfigProvider) Name() string {
	return "yaml"
}

// Get returns a configuration value by name
func (y *yamlConfigProvider) Get(key string) Value {
	y.mu.RLock()
	v, ok := y.vCache[key]
	y.mu.RUnlock()
	if ok {
		return v
	}

	val, found := find(y.root, key)
	v = NewValue(y, key, val, found)

	y.mu.Lock()
	y.vCache[key] = v
	y.mu.Unlock()
	return v
}

// find walks a dotted path through nested maps and slices. Map keys match
// case-insensitively and may themselves contain dots.
func find(node interface{}, path string) (interface{}, bool) {
	if path == Root {
		return node, true
	}

	switch n := node.(type) {
	case map[interface{}]interface{}:
		if v, ok := lookupKey(n, path); ok {
			return v, true
		}
		for i := strings.Index(path, "."); i != -1; i = indexFrom(path, ".", i+1) {
			if v, ok := lookupKey(n, path[:i]); ok {
				if found, ok := find(v, path[i+1:]); ok {
					return found, true
				}
			}
		}
	case []interface{}:
		head, rest := path, Root
		if i := strings.Index(path, "."); i != -1 {
			head, rest = path[:i], path[i+1:]
		}
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return find(n[idx], rest)
	}
	return nil, false
}

func lookupKey(m map[interface{}]interface{}, part string) (interface{}, bool) {
	if v, ok := m[part]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(fmt.Sprint(k), part) {
			return v, true
		}
	}
	return nil, false
}

func unmarshalYamlValue(reader io.Reader, value interface{}) error {
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, value)
}
