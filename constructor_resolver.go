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
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/beans/beanevent"
)

// constructorResolver selects a constructor or factory method for a bean
// and resolves its arguments.
type constructorResolver struct {
	f *Factory
}

// autowireConstructor creates the bean through the best matching
// constructor.
func (cr constructorResolver) autowireConstructor(r *request, name string, mbd *MergedDefinition, chosen []Executable, explicitArgs []interface{}) (interface{}, error) {
	e, args, err := cr.resolveConstructor(r, name, mbd, chosen, explicitArgs)
	if err != nil {
		return nil, err
	}
	return cr.instantiate(name, mbd, nil, e, args)
}

// resolveConstructor picks the constructor and arguments for a bean. A nil
// Executable with a nil error asks for a default instance.
func (cr constructorResolver) resolveConstructor(r *request, name string, mbd *MergedDefinition, chosen []Executable, explicitArgs []interface{}) (Executable, []interface{}, error) {
	f := cr.f
	cache := f.cacheFor(name, mbd)

	if explicitArgs == nil {
		snap := cache.snapshot()
		defer cache.abandon()
		if snap.executable != nil && !snap.factoryMethod {
			args, err := cr.cachedArguments(r, name, mbd, snap)
			if err != nil {
				return nil, nil, err
			}
			f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(snap.executable), Cached: true})
			return snap.executable, args, nil
		}
	}

	candidates := chosen
	if candidates == nil {
		candidates = filterPublic(mbd.Constructors(), mbd.NonPublicAccessAllowed())
	}
	if len(candidates) == 0 {
		if explicitArgs == nil && !mbd.HasConstructorArgs() {
			return nil, nil, nil
		}
		return nil, nil, &BeanCreationError{
			Bean:        name,
			Description: mbd.Description(),
			Msg:         "constructor arguments given but no constructor is declared",
		}
	}

	if len(candidates) == 1 && explicitArgs == nil && !mbd.HasConstructorArgs() && len(candidates[0].ParamTypes()) == 0 {
		cache.storeResolved(candidates[0], nil, false)
		f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(candidates[0])})
		return candidates[0], nil, nil
	}

	autowiring := chosen != nil || mbd.ResolvedAutowire() == AutowireConstructor
	winner, holder, err := cr.scan(r, name, mbd, candidates, explicitArgs, autowiring, "constructor")
	if err != nil {
		return nil, nil, err
	}
	if explicitArgs == nil {
		holder.storeCache(cache, winner, false)
	}
	f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(winner)})
	return winner, holder.args, nil
}

// instantiateUsingFactoryMethod creates the bean by calling a factory
// method, either on a factory bean or on the zero value of the bean type.
func (cr constructorResolver) instantiateUsingFactoryMethod(r *request, name string, mbd *MergedDefinition, explicitArgs []interface{}) (interface{}, error) {
	factoryBean, e, args, err := cr.resolveFactoryMethod(r, name, mbd, explicitArgs)
	if err != nil {
		return nil, err
	}
	return cr.instantiate(name, mbd, factoryBean, e, args)
}

func (cr constructorResolver) resolveFactoryMethod(r *request, name string, mbd *MergedDefinition, explicitArgs []interface{}) (interface{}, Executable, []interface{}, error) {
	f := cr.f
	var (
		factoryBean interface{}
		factoryType reflect.Type
		static      bool
	)
	if fbName := mbd.FactoryBeanName(); fbName != "" {
		if f.registry.canonicalName(fbName) == name {
			return nil, nil, nil, &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         "factory-bean reference points back to the same bean definition",
			}
		}
		fb, err := f.doGetBean(r, fbName, nil, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		if fb == nil {
			return nil, nil, nil, &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("factory bean %q is nil", fbName),
			}
		}
		f.registerDependentBean(fbName, name)
		factoryBean = fb
		factoryType = reflect.TypeOf(fb)
	} else {
		if mbd.Type() == nil {
			return nil, nil, nil, &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         "bean definition declares neither a bean type nor a factory-bean reference",
			}
		}
		static = true
		factoryType = mbd.Type()
	}

	cache := f.cacheFor(name, mbd)
	var unique Executable
	if explicitArgs == nil {
		snap := cache.snapshot()
		defer cache.abandon()
		if snap.executable != nil && snap.factoryMethod {
			args, err := cr.cachedArguments(r, name, mbd, snap)
			if err != nil {
				return nil, nil, nil, err
			}
			f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(snap.executable), Cached: true})
			return factoryBean, snap.executable, args, nil
		}
		unique = snap.unique
	}

	var candidates []Executable
	if unique != nil {
		candidates = []Executable{unique}
	} else {
		candidates = factoryCandidates(mbd, factoryType, static)
	}
	if len(candidates) == 0 {
		return nil, nil, nil, &BeanCreationError{
			Bean:        name,
			Description: mbd.Description(),
			Msg: fmt.Sprintf("no matching factory method found on %v: factory method %q",
				factoryType, mbd.FactoryMethodName()),
		}
	}

	if len(candidates) == 1 && explicitArgs == nil && !mbd.HasConstructorArgs() && len(candidates[0].ParamTypes()) == 0 {
		e := candidates[0]
		cache.storeUniqueFactoryMethod(e)
		if e.ReturnType() == nil {
			return nil, nil, nil, voidFactoryMethodError(name, mbd, e)
		}
		cache.storeResolved(e, nil, true)
		f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(e)})
		return factoryBean, e, nil, nil
	}

	autowiring := mbd.ResolvedAutowire() == AutowireConstructor || !mbd.HasConstructorArgs()
	winner, holder, err := cr.scan(r, name, mbd, candidates, explicitArgs, autowiring, "factory method")
	if err != nil {
		return nil, nil, nil, err
	}
	if winner.ReturnType() == nil {
		return nil, nil, nil, voidFactoryMethodError(name, mbd, winner)
	}
	if explicitArgs == nil {
		holder.storeCache(cache, winner, true)
	}
	f.logger.LogEvent(&beanevent.ExecutableResolved{Bean: name, Executable: fmt.Sprint(winner)})
	return factoryBean, winner, holder.args, nil
}

func voidFactoryMethodError(name string, mbd *MergedDefinition, e Executable) error {
	return &BeanCreationError{
		Bean:        name,
		Description: mbd.Description(),
		Msg:         fmt.Sprintf("invalid factory method %q on %v: needs to have a non-void return type", e.Name(), e.DeclaringType()),
	}
}

// scan binds arguments for every candidate and returns the one with the
// lowest type difference weight.
func (cr constructorResolver) scan(
	r *request,
	name string,
	mbd *MergedDefinition,
	candidates []Executable,
	explicitArgs []interface{},
	autowiring bool,
	kind string,
) (Executable, *argumentsHolder, error) {
	f := cr.f
	candidates = sortExecutables(candidates)

	var (
		resolved    *ConstructorArgs
		minNrOfArgs int
	)
	if explicitArgs != nil {
		minNrOfArgs = len(explicitArgs)
	} else if mbd.HasConstructorArgs() {
		var err error
		resolved, minNrOfArgs, err = cr.resolveConstructorArguments(r, name, mbd)
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		winner    Executable
		winnerArg *argumentsHolder
		minWeight = maxWeight
		ambiguous []Executable
		causes    []error
		fallback  = len(candidates) == 1
		factory   = kind == "factory method"
	)
	for _, c := range candidates {
		params := c.ParamTypes()
		if winner != nil && len(winnerArg.args) > len(params) {
			// Remaining candidates take fewer arguments.
			break
		}
		if len(params) < minNrOfArgs {
			continue
		}

		var holder *argumentsHolder
		if explicitArgs != nil {
			if len(params) != len(explicitArgs) {
				continue
			}
			holder = explicitArgumentsHolder(explicitArgs)
		} else {
			h, err := cr.createArgumentArray(r, name, mbd, resolved, c, autowiring, fallback)
			if err != nil {
				f.logger.LogEvent(&beanevent.CandidateRejected{Bean: name, Executable: fmt.Sprint(c), Err: err})
				causes = append(causes, err)
				continue
			}
			holder = h
		}

		w := holder.weight(params, mbd.IsLenient())
		switch {
		case w < minWeight:
			winner, winnerArg, minWeight = c, holder, w
			ambiguous = nil
		case winner == nil || w != minWeight:
		case factory:
			if !mbd.IsLenient() && len(params) == len(winner.ParamTypes()) && !sameParamTypes(params, winner.ParamTypes()) {
				ambiguous = appendAmbiguous(ambiguous, winner, c)
			}
		default:
			ambiguous = appendAmbiguous(ambiguous, winner, c)
		}
	}

	if winner == nil {
		if len(causes) > 0 {
			return nil, nil, withSuppressed(name, mbd.Description(), causes)
		}
		return nil, nil, &BeanCreationError{
			Bean:        name,
			Description: mbd.Description(),
			Msg: fmt.Sprintf("could not resolve matching %s on %v (hint: specify index/type/name arguments "+
				"for simple parameters to avoid type ambiguities)", kind, targetTypeOf(mbd, candidates)),
		}
	}
	if len(ambiguous) > 0 && !mbd.IsLenient() {
		return nil, nil, &BeanCreationError{
			Bean:        name,
			Description: mbd.Description(),
			Cause:       &AmbiguousExecutableError{Kind: kind, Candidates: executableNames(ambiguous)},
		}
	}
	return winner, winnerArg, nil
}

func appendAmbiguous(set []Executable, winner, c Executable) []Executable {
	if len(set) == 0 {
		set = append(set, winner)
	}
	return append(set, c)
}

func targetTypeOf(mbd *MergedDefinition, candidates []Executable) interface{} {
	if mbd.Type() != nil {
		return mbd.Type()
	}
	if t := commonReturnType(candidates); t != nil {
		return t
	}
	return "<unknown type>"
}

// sortExecutables orders exported executables first, then by descending
// parameter count. The sort is stable so declaration order breaks ties.
func sortExecutables(execs []Executable) []Executable {
	out := append([]Executable(nil), execs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPublic() != out[j].IsPublic() {
			return out[i].IsPublic()
		}
		return len(out[i].ParamTypes()) > len(out[j].ParamTypes())
	})
	return out
}

// factoryCandidates lists the factory methods named by mbd: the explicit
// overloads when declared, otherwise the method of that name on the
// factory type.
func factoryCandidates(mbd *MergedDefinition, factoryType reflect.Type, static bool) []Executable {
	method := mbd.FactoryMethodName()
	var out []Executable
	if overloads := mbd.FactoryOverloads(); len(overloads) > 0 {
		for _, e := range overloads {
			if e.Name() == method && e.IsStatic() == static {
				out = append(out, e)
			}
		}
		return filterPublic(out, mbd.NonPublicAccessAllowed())
	}
	if factoryType == nil {
		return nil
	}
	m, ok := factoryType.MethodByName(method)
	if !ok {
		return nil
	}
	e := reflectMethod(factoryType, m)
	if static {
		e = staticExecutable{e.(*funcExecutable)}
	}
	return filterPublic([]Executable{e}, mbd.NonPublicAccessAllowed())
}

// resolveConstructorArguments resolves the configured argument values and
// returns the minimum number of parameters a candidate must accept.
func (cr constructorResolver) resolveConstructorArguments(r *request, name string, mbd *MergedDefinition) (*ConstructorArgs, int, error) {
	configured := mbd.ConstructorArgs()
	resolved := NewConstructorArgs()
	minNrOfArgs := configured.Count()

	for _, i := range configured.Indices() {
		if i < 0 {
			return nil, 0, &BeanCreationError{
				Bean:        name,
				Description: mbd.Description(),
				Msg:         fmt.Sprintf("invalid constructor argument index: %d", i),
			}
		}
		if i+1 > minNrOfArgs {
			minNrOfArgs = i + 1
		}
		vh, _ := configured.Indexed(i)
		rvh, err := cr.resolveHolder(r, name, mbd, fmt.Sprintf("constructor argument with index %d", i), vh)
		if err != nil {
			return nil, 0, err
		}
		resolved.AddIndexed(i, rvh)
	}
	for _, vh := range configured.Generic() {
		rvh, err := cr.resolveHolder(r, name, mbd, "constructor argument", vh)
		if err != nil {
			return nil, 0, err
		}
		resolved.AddGeneric(rvh)
	}
	return resolved, minNrOfArgs, nil
}

func (cr constructorResolver) resolveHolder(r *request, name string, mbd *MergedDefinition, what string, vh *ValueHolder) (*ValueHolder, error) {
	if vh.converted {
		return vh, nil
	}
	v, err := cr.f.resolveValue(r, name, mbd, what, vh.Value)
	if err != nil {
		return nil, err
	}
	return vh.copyWithValue(v), nil
}

// createArgumentArray binds every parameter of e to a configured value or,
// when autowiring, to a resolved dependency.
func (cr constructorResolver) createArgumentArray(
	r *request,
	name string,
	mbd *MergedDefinition,
	resolved *ConstructorArgs,
	e Executable,
	autowiring bool,
	fallback bool,
) (*argumentsHolder, error) {
	f := cr.f
	params := e.ParamTypes()
	names := e.ParamNames()
	h := newArgumentsHolder(len(params))
	used := make(map[*ValueHolder]bool)
	var autowired []string

	for i, t := range params {
		var pname string
		if names != nil {
			pname = names[i]
		}
		var vh *ValueHolder
		if resolved != nil {
			vh = resolved.argumentValue(i, t, pname, used)
			if vh == nil && (!autowiring || len(params) == resolved.Count()) {
				vh = resolved.genericValue(nil, "", used)
			}
		}

		if vh != nil {
			used[vh] = true
			original := vh.Value
			var converted interface{}
			if vh.converted {
				converted = vh.convertedValue
				h.prepared[i] = converted
			} else {
				c, err := convertArgument(f.converter, original, t)
				if err != nil {
					return nil, &UnsatisfiedDependencyError{
						Bean:        name,
						Description: mbd.Description(),
						Point:       &InjectionPoint{Executable: e, ParamIndex: i, DeclaringType: e.DeclaringType()},
						Msg:         fmt.Sprintf("could not convert argument value of type %T to required type %v", original, t),
						Cause:       err,
					}
				}
				converted = c
				if vh.source != nil {
					h.resolveNecessary = true
					h.prepared[i] = vh.source.Value
				} else {
					h.prepared[i] = converted
				}
			}
			h.args[i] = converted
			h.raw[i] = original
			continue
		}

		d := paramDescriptor(e, i)
		if !autowiring {
			return nil, &UnsatisfiedDependencyError{
				Bean:        name,
				Description: mbd.Description(),
				Point:       &d.InjectionPoint,
				Msg: fmt.Sprintf("ambiguous argument values for parameter of type %v: "+
					"did you specify the correct bean references as arguments?", t),
			}
		}
		v, err := cr.resolveAutowiredArgument(r, d, name, &autowired, fallback)
		if err != nil {
			return nil, &UnsatisfiedDependencyError{
				Bean:        name,
				Description: mbd.Description(),
				Point:       &d.InjectionPoint,
				Cause:       err,
			}
		}
		h.raw[i] = v
		h.args[i] = v
		h.prepared[i] = _autowiredMarker
		h.resolveNecessary = true
	}

	for _, dep := range autowired {
		f.registerDependentBean(dep, name)
	}
	return h, nil
}

// cachedArguments returns the cached arguments, resolving prepared ones
// against the current state of the factory.
func (cr constructorResolver) cachedArguments(r *request, name string, mbd *MergedDefinition, snap cacheSnapshot) ([]interface{}, error) {
	if snap.prepared == nil {
		return append([]interface{}(nil), snap.resolved...), nil
	}
	return cr.resolvePreparedArguments(r, name, mbd, snap.executable, snap.prepared)
}

func (cr constructorResolver) resolvePreparedArguments(r *request, name string, mbd *MergedDefinition, e Executable, prepared []interface{}) ([]interface{}, error) {
	f := cr.f
	params := e.ParamTypes()
	args := make([]interface{}, len(prepared))
	var autowired []string

	for i, arg := range prepared {
		if arg == _autowiredMarker {
			d := paramDescriptor(e, i)
			v, err := cr.resolveAutowiredArgument(r, d, name, &autowired, true)
			if err != nil {
				return nil, &UnsatisfiedDependencyError{Bean: name, Description: mbd.Description(), Point: &d.InjectionPoint, Cause: err}
			}
			args[i] = v
			continue
		}
		v, err := f.resolveValue(r, name, mbd, fmt.Sprintf("constructor argument with index %d", i), arg)
		if err != nil {
			return nil, err
		}
		converted, err := convertArgument(f.converter, v, params[i])
		if err != nil {
			return nil, &UnsatisfiedDependencyError{
				Bean:        name,
				Description: mbd.Description(),
				Point:       &InjectionPoint{Executable: e, ParamIndex: i, DeclaringType: e.DeclaringType()},
				Msg:         fmt.Sprintf("could not convert argument value of type %T to required type %v", v, params[i]),
				Cause:       err,
			}
		}
		args[i] = converted
	}

	for _, dep := range autowired {
		f.registerDependentBean(dep, name)
	}
	return args, nil
}

// resolveAutowiredArgument resolves one autowired parameter. With fallback
// set, a missing slice or map dependency resolves to an empty one.
func (cr constructorResolver) resolveAutowiredArgument(r *request, d *DependencyDescriptor, name string, autowired *[]string, fallback bool) (interface{}, error) {
	if d.Type == _injectionPointType {
		if r.point == nil {
			return nil, errors.New("no current injection point available for " + d.InjectionPoint.String())
		}
		ip := r.point.InjectionPoint
		return &ip, nil
	}

	v, err := cr.f.resolveDependency(r, d, name, autowired, cr.f.converter)
	if err == nil {
		return v, nil
	}
	var nsb *NoSuchBeanError
	if fallback && errors.As(err, &nsb) {
		switch d.Type.Kind() {
		case reflect.Slice:
			return reflect.MakeSlice(d.Type, 0, 0).Interface(), nil
		case reflect.Map:
			return reflect.MakeMap(d.Type).Interface(), nil
		}
	}
	return nil, err
}

func convertArgument(c TypeConverter, v interface{}, t reflect.Type) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return c.Convert(v, t)
}

func (cr constructorResolver) instantiate(name string, mbd *MergedDefinition, factoryBean interface{}, e Executable, args []interface{}) (interface{}, error) {
	bean, err := cr.f.strategy.Instantiate(mbd, name, factoryBean, e, args)
	if err == nil {
		return bean, nil
	}
	msg := "bean instantiation via constructor failed"
	switch {
	case e == nil:
		msg = "instantiation of bean failed"
	case mbd.FactoryMethodName() != "":
		msg = fmt.Sprintf("bean instantiation via factory method %v failed", e)
	}
	return nil, &BeanCreationError{Bean: name, Description: mbd.Description(), Msg: msg, Cause: err}
}

// ResolveExecutable selects the constructor or factory method for the bean
// registered under name and resolves its arguments without creating the
// bean. candidates, when given, replace the declared constructors.
// explicitArgs bypass argument resolution and are never cached.
func (f *Factory) ResolveExecutable(name string, candidates []Executable, explicitArgs []interface{}) (Executable, []interface{}, error) {
	beanName := f.registry.canonicalName(name)
	if !f.registry.contains(beanName) && f.parent != nil {
		return f.parent.ResolveExecutable(name, candidates, explicitArgs)
	}
	mbd, err := f.mergedDefinition(beanName)
	if err != nil {
		return nil, nil, err
	}
	r := newRequest()
	defer r.close()
	cr := constructorResolver{f: f}
	if mbd.FactoryMethodName() != "" {
		_, e, args, err := cr.resolveFactoryMethod(r, beanName, mbd, explicitArgs)
		return e, args, err
	}
	if candidates == nil {
		candidates = f.determineConstructors(mbd)
	}
	return cr.resolveConstructor(r, beanName, mbd, candidates, explicitArgs)
}
