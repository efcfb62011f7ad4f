// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// Kwargs is a keyword-argument mapping, shipped once per batch and
// shared read-only by every task.
type Kwargs map[string]interface{}

// A Descriptor is the execution descriptor of a batch: the ordered
// names of the registered functions to run, and the keyword arguments
// passed to each. A descriptor is written once at submission and is
// immutable thereafter; per-task variation comes only from task
// identity and environment overrides, never from the descriptor.
//
// Descriptors are persisted as two artifacts, one holding the function
// list and one holding the keyword arguments, so ancillary tooling can
// inspect the function list without decoding argument payloads.
type Descriptor struct {
	Funcs  []string
	Kwargs Kwargs
}

// Validate checks that the descriptor names at least one function and
// that every named function is registered in this binary.
func (d *Descriptor) Validate() error {
	if len(d.Funcs) == 0 {
		return errors.E(errors.Invalid, "descriptor names no functions")
	}
	for _, name := range d.Funcs {
		if _, ok := LookupFunc(name); !ok {
			return errors.E(errors.Invalid, fmt.Sprintf("function %q is not registered", name))
		}
	}
	return nil
}

// EncodeFuncs writes the function-list artifact. It fails if any named
// function is unregistered, so broken descriptors are caught at
// submission rather than on compute nodes.
func EncodeFuncs(w io.Writer, funcs []string) (int64, error) {
	d := Descriptor{Funcs: funcs}
	if err := d.Validate(); err != nil {
		return 0, err
	}
	return writeRecord(w, kindFuncs, funcs)
}

// DecodeFuncs reads a function-list artifact.
func DecodeFuncs(r io.Reader) ([]string, error) {
	var funcs []string
	if err := readRecord(r, kindFuncs, &funcs); err != nil {
		return nil, err
	}
	return funcs, nil
}

// EncodeKwargs writes the keyword-arguments artifact.
func EncodeKwargs(w io.Writer, kwargs Kwargs) (int64, error) {
	if kwargs == nil {
		kwargs = Kwargs{}
	}
	return writeRecord(w, kindKwargs, kwargs)
}

// DecodeKwargs reads a keyword-arguments artifact.
func DecodeKwargs(r io.Reader) (Kwargs, error) {
	var kwargs Kwargs
	if err := readRecord(r, kindKwargs, &kwargs); err != nil {
		return nil, err
	}
	if kwargs == nil {
		kwargs = Kwargs{}
	}
	return kwargs, nil
}
