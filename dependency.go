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
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/beans/beanevent"
)

// candidate is a bean that may satisfy a dependency.
type candidate struct {
	name    string
	factory *Factory
	def     *MergedDefinition
	typ     reflect.Type

	// value holds the instance once resolved is set.
	value    interface{}
	resolved bool

	// resolvable marks a value registered with RegisterResolvableDependency.
	resolvable bool
}

// ResolveDependency resolves d against the beans of this factory and its
// ancestors.
//
// requestingBean, if set, is the bean the dependency is resolved for; it is
// only considered as a candidate for itself as a last resort. The names of
// the injected beans are appended to autowiredNames when it is non-nil. A
// nil converter selects the factory's TypeConverter.
func (f *Factory) ResolveDependency(d *DependencyDescriptor, requestingBean string, autowiredNames *[]string, converter TypeConverter) (interface{}, error) {
	r := newRequest()
	defer r.close()
	return f.resolveDependency(r, d, requestingBean, autowiredNames, converter)
}

func (f *Factory) resolveDependency(r *request, d *DependencyDescriptor, requestingBean string, autowired *[]string, converter TypeConverter) (interface{}, error) {
	if converter == nil {
		converter = f.converter
	}
	if d.Type == nil {
		return nil, errors.New("dependency descriptor has no type")
	}
	if d.Type == _injectionPointType {
		if r.point == nil {
			if f.candidates.IsRequired(d) {
				return nil, &NoSuchBeanError{Type: d.Type, Msg: "no current injection point available"}
			}
			return nil, nil
		}
		ip := r.point.InjectionPoint
		return &ip, nil
	}

	switch w := zeroValue(d.Type).(type) {
	case optionalType:
		nd := d.nested(w.wrappedType())
		nd.Optional = true
		v, err := f.doResolveDependency(r, nd, requestingBean, autowired, converter)
		if err != nil {
			return nil, err
		}
		return w.optionalOf(v), nil
	case providerType:
		return w.providerOf(&beanProvider{
			f:         f,
			r:         r,
			d:         d.nested(w.wrappedType()),
			requester: requestingBean,
			converter: converter,
		}), nil
	}
	return f.doResolveDependency(r, d, requestingBean, autowired, converter)
}

func (f *Factory) doResolveDependency(r *request, d *DependencyDescriptor, requestingBean string, autowired *[]string, converter TypeConverter) (interface{}, error) {
	prev := r.point
	r.point = d
	defer func() { r.point = prev }()

	if v, ok := f.candidates.SuggestedValue(d); ok {
		if s, isString := v.(string); isString {
			resolved, err := f.resolveEmbedded(s)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot resolve value expression %q", s)
			}
			v = resolved
		}
		return converter.Convert(v, d.Type)
	}

	if multi, ok, err := f.resolveMultipleBeans(r, d, requestingBean, autowired); err != nil || ok {
		return multi, err
	}

	matching := f.findAutowireCandidates(r, requestingBean, d.Type, d)
	if len(matching) == 0 {
		if f.candidates.IsRequired(d) {
			return nil, f.raiseNoMatchingBean(d)
		}
		return nil, nil
	}
	matching = f.dropInCreation(r, requestingBean, matching)

	chosen := matching[0]
	if len(matching) > 1 {
		name, err := f.determineAutowireCandidate(r, matching, d)
		if err != nil {
			return nil, err
		}
		if name == "" {
			if f.candidates.IsRequired(d) || !isMultipleBeansType(d.Type) {
				if d.nonUniqueAsNil {
					return nil, nil
				}
				return nil, &NoUniqueBeanError{Type: d.Type, Candidates: candidateNames(matching)}
			}
			return nil, nil
		}
		for _, c := range matching {
			if c.name == name {
				chosen = c
				break
			}
		}
	}

	v, err := f.resolveCandidate(r, chosen)
	if err != nil {
		return nil, err
	}
	if autowired != nil && !chosen.resolvable {
		*autowired = append(*autowired, chosen.name)
	}
	if v == nil {
		if f.candidates.IsRequired(d) {
			return nil, f.raiseNoMatchingBean(d)
		}
		return nil, nil
	}
	f.logger.LogEvent(&beanevent.DependencyResolved{
		Requester: requestingBean,
		TypeName:  d.Type.String(),
		Candidate: chosen.name,
	})
	return adaptToType(chosen.name, v, d.Type)
}

func (f *Factory) resolveCandidate(r *request, c candidate) (interface{}, error) {
	if c.resolved {
		return c.value, nil
	}
	return c.factory.doGetBean(r, c.name, nil, nil)
}

// isMultipleBeansType reports whether a dependency of type t collects
// several beans: a slice of non-simple elements or a string-keyed map.
func isMultipleBeansType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return !isSimpleType(t)
	case reflect.Map:
		return t.Key().Kind() == reflect.String && !isSimpleType(t.Elem())
	}
	return false
}

// resolveMultipleBeans collects every matching bean for slice and map
// dependencies. It reports false when d is not a collection or no element
// matched.
func (f *Factory) resolveMultipleBeans(r *request, d *DependencyDescriptor, requestingBean string, autowired *[]string) (interface{}, bool, error) {
	t := d.Type
	if !isMultipleBeansType(t) {
		return nil, false, nil
	}
	elem := t.Elem()
	matching := f.findAutowireCandidates(r, requestingBean, elem, d.forElement(elem))

	var beans []candidate
	for _, c := range matching {
		if !c.resolved && r.inCreation(c.factory, c.name) {
			f.logger.LogEvent(&beanevent.CandidateSkipped{
				Requester: requestingBean,
				Candidate: c.name,
				Reason:    "currently in creation",
			})
			continue
		}
		v, err := f.resolveCandidate(r, c)
		if err != nil {
			return nil, false, err
		}
		if v == nil {
			continue
		}
		c.value, c.resolved = v, true
		beans = append(beans, c)
	}
	if len(beans) == 0 {
		return nil, false, nil
	}

	var out reflect.Value
	if t.Kind() == reflect.Slice {
		sortByOrder(f.comparator, beans, orderSources)
		out = reflect.MakeSlice(t, 0, len(beans))
		for _, c := range beans {
			v, err := adaptToType(c.name, c.value, elem)
			if err != nil {
				return nil, false, err
			}
			out = reflect.Append(out, reflect.ValueOf(v))
		}
	} else {
		out = reflect.MakeMapWithSize(t, len(beans))
		for _, c := range beans {
			v, err := adaptToType(c.name, c.value, elem)
			if err != nil {
				return nil, false, err
			}
			out.SetMapIndex(reflect.ValueOf(c.name).Convert(t.Key()), reflect.ValueOf(v))
		}
	}

	if autowired != nil {
		for _, c := range beans {
			if !c.resolvable {
				*autowired = append(*autowired, c.name)
			}
		}
	}
	return out.Interface(), true, nil
}

// orderSources lists where ordering metadata for c may come from, most
// specific first.
func orderSources(c candidate) []interface{} {
	var out []interface{}
	if c.resolved && c.value != nil {
		out = append(out, c.value)
	}
	if c.def != nil {
		out = append(out, c.def)
		if !c.def.inner {
			if e := c.factory.registry.caches.get(c.name).Executable(); e != nil {
				out = append(out, e)
			}
		}
	}
	if c.typ != nil {
		out = append(out, c.typ)
	}
	return out
}

// findAutowireCandidates returns the beans that may be injected for
// requiredType, in three passes: exact matches excluding self references,
// relaxed matches, then self references.
func (f *Factory) findAutowireCandidates(r *request, requestingBean string, requiredType reflect.Type, d *DependencyDescriptor) []candidate {
	names := f.namesForTypeIncludingAncestors(r, requiredType, d.Lazy)
	var result []candidate

	for _, rd := range f.resolvableDependencies() {
		if rd.value == nil || !requiredType.AssignableTo(rd.typ) || !reflect.TypeOf(rd.value).AssignableTo(requiredType) {
			continue
		}
		result = append(result, candidate{
			name:       fmt.Sprintf("(resolvable dependency) %v", rd.typ),
			typ:        rd.typ,
			value:      rd.value,
			resolved:   true,
			resolvable: true,
		})
		break
	}

	for _, n := range names {
		if f.isSelfReference(requestingBean, n) {
			continue
		}
		if c, ok := f.candidateFor(n, d); ok {
			result = append(result, c)
		}
	}
	if len(result) > 0 {
		return result
	}

	fallbackNames := names
	if k := requiredType.Kind(); k != reflect.Ptr && k != reflect.Interface {
		fallbackNames = appendUnique(fallbackNames, f.namesForTypeIncludingAncestors(r, reflect.PtrTo(requiredType), d.Lazy))
	}
	multiple := isMultipleBeansType(requiredType)
	fd := d.forFallbackMatch()
	for _, n := range fallbackNames {
		if f.isSelfReference(requestingBean, n) {
			continue
		}
		if multiple && !f.candidates.HasQualifier(d) {
			continue
		}
		if c, ok := f.candidateFor(n, fd); ok {
			result = append(result, c)
		}
	}
	if len(result) > 0 || multiple {
		return result
	}

	for _, n := range fallbackNames {
		if !f.isSelfReference(requestingBean, n) {
			continue
		}
		if d.multiElement && n == requestingBean {
			continue
		}
		if c, ok := f.candidateFor(n, fd); ok {
			result = append(result, c)
		}
	}
	return result
}

func appendUnique(names, more []string) []string {
	out := append([]string(nil), names...)
	seen := make(map[string]bool, len(out))
	for _, n := range out {
		seen[n] = true
	}
	for _, n := range more {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	return out
}

// candidateFor checks whether the bean registered under name may satisfy
// d and describes it if so.
func (f *Factory) candidateFor(name string, d *DependencyDescriptor) (candidate, bool) {
	h, o, ok := f.holderFor(name)
	if !ok || !o.candidates.IsCandidate(h, d) {
		return candidate{}, false
	}
	c := candidate{name: name, factory: o, def: h.Definition, typ: h.Type}
	if bean, ok := o.singletons.Load(name); ok {
		c.value, c.resolved = bean, true
	}
	return c, true
}

// isSelfReference reports whether candidate is the requesting bean or is
// produced by a factory method of it.
func (f *Factory) isSelfReference(requestingBean, name string) bool {
	if requestingBean == "" {
		return false
	}
	if requestingBean == name {
		return true
	}
	o := f.owner(name)
	if o == nil || !o.registry.contains(name) {
		return false
	}
	mbd, err := o.mergedDefinition(name)
	return err == nil && mbd.FactoryBeanName() != "" && o.registry.canonicalName(mbd.FactoryBeanName()) == requestingBean
}

// dropInCreation leaves out candidates that are being created further up
// the current chain, as long as another candidate remains.
func (f *Factory) dropInCreation(r *request, requestingBean string, matching []candidate) []candidate {
	if len(matching) < 2 {
		return matching
	}
	kept := make([]candidate, 0, len(matching))
	var skipped []string
	for _, c := range matching {
		if !c.resolvable && c.factory != nil && r.inCreation(c.factory, c.name) {
			skipped = append(skipped, c.name)
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return matching
	}
	for _, n := range skipped {
		f.logger.LogEvent(&beanevent.CandidateSkipped{
			Requester: requestingBean,
			Candidate: n,
			Reason:    "currently in creation",
		})
	}
	return kept
}

// determineAutowireCandidate picks one of several candidates by primary
// flag, then priority, then a name or alias matching the dependency name.
// It returns "" when none of these applies.
func (f *Factory) determineAutowireCandidate(r *request, matching []candidate, d *DependencyDescriptor) (string, error) {
	name, matching, err := f.determinePrimaryCandidate(matching, d.Type)
	if err != nil || name != "" {
		return name, err
	}
	if len(matching) == 1 {
		return matching[0].name, nil
	}
	if name, err := f.determineHighestPriorityCandidate(r, matching, d.Type); err != nil || name != "" {
		return name, err
	}
	for _, c := range matching {
		if c.resolvable || f.matchesBeanName(c, d.Name) {
			return c.name, nil
		}
	}
	return "", nil
}

// determinePrimaryCandidate returns the primary candidate along with the
// candidates left for the remaining tie-breaks.
//
// Only primaries declared in this factory can be ambiguous. A primary of an
// ancestor factory loses to local candidates: when some exist, the ancestor
// candidates are dropped. Without local candidates the first ancestor
// primary wins.
func (f *Factory) determinePrimaryCandidate(matching []candidate, t reflect.Type) (string, []candidate, error) {
	var (
		local           []candidate
		localPrimary    string
		ancestorPrimary string
	)
	for _, c := range matching {
		isLocal := c.resolvable || c.factory == f
		if isLocal {
			local = append(local, c)
		}
		if c.def == nil || !c.def.IsPrimary() {
			continue
		}
		switch {
		case !isLocal:
			if ancestorPrimary == "" {
				ancestorPrimary = c.name
			}
		case localPrimary != "":
			return "", nil, &NoUniqueBeanError{
				Type:       t,
				Candidates: candidateNames(matching),
				Msg:        "more than one primary bean found",
			}
		default:
			localPrimary = c.name
		}
	}

	switch {
	case localPrimary != "":
		return localPrimary, matching, nil
	case ancestorPrimary == "":
		return "", matching, nil
	case len(local) == 0:
		return ancestorPrimary, matching, nil
	default:
		return "", local, nil
	}
}

// determineHighestPriorityCandidate returns the candidate with the lowest
// priority value. Candidates without a priority are ignored.
//
// Singleton candidates whose type is Prioritized are created first, so the
// outcome does not depend on which beans already exist.
func (f *Factory) determineHighestPriorityCandidate(r *request, matching []candidate, t reflect.Type) (string, error) {
	var (
		best     string
		bestPrio int
		found    bool
		tied     bool
	)
	for _, c := range matching {
		if needsInstancePriority(r, c) {
			v, err := f.resolveCandidate(r, c)
			if err != nil {
				return "", err
			}
			c.value, c.resolved = v, true
		}
		p, ok := priorityOf(f.comparator, prioritySources(c)...)
		if !ok {
			continue
		}
		switch {
		case !found || p < bestPrio:
			best, bestPrio, found, tied = c.name, p, true, false
		case p == bestPrio:
			tied = true
		}
	}
	if tied {
		return "", &NoUniqueBeanError{
			Type:       t,
			Candidates: candidateNames(matching),
			Msg:        fmt.Sprintf("multiple beans found with the same priority (%d)", bestPrio),
		}
	}
	return best, nil
}

var _prioritizedType = reflect.TypeOf((*Prioritized)(nil)).Elem()

// needsInstancePriority reports whether c is a singleton that is not yet
// created, declares no priority on its definition and whose instances carry
// one.
func needsInstancePriority(r *request, c candidate) bool {
	if c.resolved || c.factory == nil || c.def == nil || !c.def.IsSingleton() {
		return false
	}
	if _, ok := c.def.priorityHint(); ok {
		return false
	}
	if c.typ == nil || !c.typ.Implements(_prioritizedType) {
		return false
	}
	return !r.inCreation(c.factory, c.name)
}

func prioritySources(c candidate) []interface{} {
	var out []interface{}
	if c.resolved && c.value != nil {
		out = append(out, c.value)
	}
	if c.def != nil {
		out = append(out, c.def)
	}
	if c.typ != nil {
		out = append(out, c.typ)
	}
	return out
}

func (f *Factory) matchesBeanName(c candidate, depName string) bool {
	if depName == "" {
		return false
	}
	if c.name == depName {
		return true
	}
	if c.factory == nil {
		return false
	}
	for _, a := range c.factory.registry.aliasesOf(c.name) {
		if a == depName {
			return true
		}
	}
	return false
}

func candidateNames(cs []candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.name
	}
	return out
}

func (f *Factory) raiseNoMatchingBean(d *DependencyDescriptor) error {
	if err := f.checkBeanNotOfRequiredType(d.Type, d); err != nil {
		return err
	}
	return &NoSuchBeanError{
		Type: d.Type,
		Msg:  fmt.Sprintf("expected at least 1 bean which qualifies as autowire candidate for %v", d),
	}
}

// checkBeanNotOfRequiredType looks for a bean whose definition promises t
// but whose instance is of another type.
func (f *Factory) checkBeanNotOfRequiredType(t reflect.Type, d *DependencyDescriptor) error {
	for _, name := range f.DefinitionNames() {
		bean, ok := f.singletons.Load(name)
		if !ok || bean == nil {
			continue
		}
		mbd, err := f.mergedDefinition(name)
		if err != nil || mbd.IsAbstract() {
			continue
		}
		declared := f.predictType(name, mbd)
		actual := reflect.TypeOf(bean)
		if declared == nil || !declared.AssignableTo(t) || actual.AssignableTo(t) {
			continue
		}
		h := DefinitionHolder{Name: name, Aliases: f.registry.aliasesOf(name), Definition: mbd, Type: declared}
		if f.candidates.IsCandidate(h, d) {
			return &NotOfRequiredTypeError{Name: name, Required: t, Actual: actual}
		}
	}
	if f.parent != nil {
		return f.parent.checkBeanNotOfRequiredType(t, d)
	}
	return nil
}

// adaptToType returns v as a value of type t, dereferencing a pointer bean
// matched for its element type.
func adaptToType(name string, v interface{}, t reflect.Type) (interface{}, error) {
	vt := reflect.TypeOf(v)
	if vt.AssignableTo(t) {
		return v, nil
	}
	if vt.Kind() == reflect.Ptr && vt.Elem().AssignableTo(t) {
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return reflect.Zero(t).Interface(), nil
		}
		return rv.Elem().Interface(), nil
	}
	return nil, &NotOfRequiredTypeError{Name: name, Required: t, Actual: vt}
}
