// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// A Call carries the per-task context with which a registered function
// is invoked.
type Call struct {
	// TaskID is the task's identity within its batch, assigned by the
	// scheduler. Functions typically use it to select their slice of
	// the problem; they are free to ignore it.
	TaskID int
	// Kwargs holds the descriptor's keyword arguments. Kwargs are
	// shared by every task of a batch and must not be mutated.
	Kwargs Kwargs
	// Env is the invocation environment: a snapshot of the worker's
	// process environment overlaid with the batch's per-task overrides,
	// overrides winning. Functions consult Env instead of the ambient
	// process environment so that invocations remain testable and
	// hermetic.
	Env map[string]string
}

// Getenv returns the invocation environment value for key, or empty.
func (c *Call) Getenv(key string) string {
	return c.Env[key]
}

// A Func is a task function. Funcs are invoked once per array task with
// the batch's keyword arguments and the task's identity.
type Func func(ctx context.Context, call *Call) (interface{}, error)

// A FuncValue is a registered task function, as returned by
// RegisterFunc.
type FuncValue struct {
	name string
	fn   Func
}

// Name returns the name under which the function was registered.
func (f *FuncValue) Name() string { return f.name }

// Invoke invokes the function with the provided call.
func (f *FuncValue) Invoke(ctx context.Context, call *Call) (interface{}, error) {
	return f.fn(ctx, call)
}

var (
	funcsMu sync.Mutex
	funcs   = map[string]*FuncValue{}
)

// RegisterFunc registers fn under the provided name and returns its
// FuncValue. Descriptors name functions by these strings, so the same
// registrations must be made in the submitting and the executing
// binary; registering from package initialization guarantees this.
// RegisterFunc panics if name is empty, fn is nil, or name is already
// registered.
func RegisterFunc(name string, fn Func) *FuncValue {
	if name == "" {
		panic("seisflows.RegisterFunc: empty name")
	}
	if fn == nil {
		panic(fmt.Sprintf("seisflows.RegisterFunc: nil function %q", name))
	}
	funcsMu.Lock()
	defer funcsMu.Unlock()
	if _, ok := funcs[name]; ok {
		panic(fmt.Sprintf("seisflows.RegisterFunc: duplicate registration %q", name))
	}
	fv := &FuncValue{name: name, fn: fn}
	funcs[name] = fv
	return fv
}

// LookupFunc returns the function registered under name.
func LookupFunc(name string) (*FuncValue, bool) {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	fv, ok := funcs[name]
	return fv, ok
}

// FuncNames returns the names of all registered functions, sorted.
func FuncNames() []string {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
