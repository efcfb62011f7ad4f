// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import "fmt"

// A Fault classifies where in the task lifecycle an error arose. Faults
// determine process exit codes, so that a scheduler log alone is enough
// to tell a misconfigured launcher from a task that ran and failed.
type Fault int

const (
	// FaultNone indicates an error with no lifecycle classification.
	FaultNone Fault = iota
	// FaultConfiguration indicates an unrecognized execution mode,
	// detected before any activation step runs.
	FaultConfiguration
	// FaultEnvironment indicates a failed runtime activation step.
	FaultEnvironment
	// FaultDescriptor indicates a missing or corrupt execution
	// descriptor, or a descriptor naming an unregistered function.
	FaultDescriptor
	// FaultIdentity indicates a missing or unparseable task index.
	FaultIdentity
	// FaultExecution indicates that a task function returned an error.
	FaultExecution
)

var faultNames = [...]string{
	FaultNone:          "unclassified",
	FaultConfiguration: "configuration",
	FaultEnvironment:   "environment",
	FaultDescriptor:    "descriptor",
	FaultIdentity:      "identity",
	FaultExecution:     "execution",
}

func (f Fault) String() string {
	if f < 0 || int(f) >= len(faultNames) {
		return fmt.Sprintf("fault(%d)", f)
	}
	return faultNames[f]
}

// ExitCode returns the process exit code associated with fault f.
// Codes are distinct per fault so schedulers can classify failures
// without reading logs.
func (f Fault) ExitCode() int {
	switch f {
	case FaultConfiguration:
		return 2
	case FaultEnvironment:
		return 3
	case FaultDescriptor:
		return 4
	case FaultIdentity:
		return 5
	case FaultExecution:
		return 6
	}
	return 1
}

type faultError struct {
	fault Fault
	err   error
}

func (e *faultError) Error() string {
	return fmt.Sprintf("%s error: %v", e.fault, e.err)
}

// WithFault tags err with fault f. Tagging a nil error returns nil.
func WithFault(f Fault, err error) error {
	if err == nil {
		return nil
	}
	return &faultError{fault: f, err: err}
}

// Faultf formats an error tagged with fault f.
func Faultf(f Fault, format string, args ...interface{}) error {
	return &faultError{fault: f, err: fmt.Errorf(format, args...)}
}

// FaultOf returns the fault with which err is tagged, or FaultNone.
func FaultOf(err error) Fault {
	if e, ok := err.(*faultError); ok {
		return e.fault
	}
	return FaultNone
}

// IsFault tells whether err is tagged with fault f.
func IsFault(f Fault, err error) bool {
	return err != nil && FaultOf(err) == f
}

// ExitCode maps err to a process exit code: 0 for nil, the fault's code
// for tagged errors, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return FaultOf(err).ExitCode()
}
