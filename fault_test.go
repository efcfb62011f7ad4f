// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"errors"
	"strings"
	"testing"
)

func TestFaultExitCodes(t *testing.T) {
	// Exit codes are part of the scheduler-facing contract; they must
	// stay distinct and stable.
	for _, c := range []struct {
		fault Fault
		code  int
	}{
		{FaultConfiguration, 2},
		{FaultEnvironment, 3},
		{FaultDescriptor, 4},
		{FaultIdentity, 5},
		{FaultExecution, 6},
		{FaultNone, 1},
	} {
		if got, want := c.fault.ExitCode(), c.code; got != want {
			t.Errorf("%s: got %v, want %v", c.fault, got, want)
		}
	}
	seen := make(map[int]Fault)
	for _, f := range []Fault{FaultConfiguration, FaultEnvironment, FaultDescriptor, FaultIdentity, FaultExecution} {
		if prev, ok := seen[f.ExitCode()]; ok {
			t.Errorf("faults %s and %s share exit code %d", prev, f, f.ExitCode())
		}
		seen[f.ExitCode()] = f
	}
}

func TestWithFault(t *testing.T) {
	if WithFault(FaultExecution, nil) != nil {
		t.Error("tagging nil error returned non-nil")
	}
	err := WithFault(FaultIdentity, errors.New("no task index"))
	if got, want := FaultOf(err), FaultIdentity; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !IsFault(FaultIdentity, err) {
		t.Error("IsFault mismatch")
	}
	if IsFault(FaultDescriptor, err) {
		t.Error("IsFault matched wrong fault")
	}
	if !strings.Contains(err.Error(), "identity") {
		t.Errorf("error text missing fault name: %v", err)
	}
}

func TestExitCode(t *testing.T) {
	if got, want := ExitCode(nil), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := ExitCode(errors.New("plain")), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := ExitCode(Faultf(FaultEnvironment, "module load failed")), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
