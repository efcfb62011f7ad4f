// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package envprofile defines the runtime activation profiles that
// prepare a compute node before a task function can execute. A profile
// is an ordered list of activation steps (toolchain module loads and
// the shared runtime activation) selected by the node's hardware mode.
// The registry is static: profile selection is a pure function of the
// mode, and profiles are never mutated at runtime.
package envprofile

import (
	"fmt"

	"github.com/xumi1993/seisflows"
)

// Mode selects the activation profile for a node's hardware.
type Mode int

const (
	// ModeCPU is the standard mode, activating the vendor toolchain.
	ModeCPU Mode = iota
	// ModeGPU is the accelerator mode, additionally activating the
	// accelerator toolkit.
	ModeGPU
)

var modeNames = [...]string{
	ModeCPU: "cpu",
	ModeGPU: "gpu",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", m)
	}
	return modeNames[m]
}

// ParseMode parses the execution-mode flag as carried in the
// environment. Anything but the two registered values fails with a
// configuration fault; callers must not run any activation step after
// such a failure.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "cpu":
		return ModeCPU, nil
	case "gpu":
		return ModeGPU, nil
	}
	return 0, seisflows.Faultf(seisflows.FaultConfiguration, "unknown execution mode %q (want cpu or gpu)", s)
}

// A Step is a single runtime activation command.
type Step struct {
	// Name labels the step in logs and error messages.
	Name string
	// Path is the command run for this step.
	Path string
	// Args are the command's arguments.
	Args []string
}

func (s Step) String() string {
	cmd := s.Path
	for _, arg := range s.Args {
		cmd += " " + arg
	}
	return fmt.Sprintf("%s (%s)", s.Name, cmd)
}

// A Profile is the ordered activation sequence for one mode. Steps run
// strictly in order; the shared runtime step is always last.
type Profile struct {
	Mode  Mode
	Steps []Step
}

// runtimeStep activates the shared runtime environment. It trails every
// profile regardless of mode.
var runtimeStep = Step{Name: "runtime", Path: "conda", Args: []string{"activate", "seisflows"}}

var profiles = [...]Profile{
	ModeCPU: {
		Mode: ModeCPU,
		Steps: []Step{
			{Name: "compiler", Path: "module", Args: []string{"load", "intel/2022.1"}},
			{Name: "mpi", Path: "module", Args: []string{"load", "openmpi/4.1.1"}},
			runtimeStep,
		},
	},
	ModeGPU: {
		Mode: ModeGPU,
		Steps: []Step{
			{Name: "toolkit", Path: "module", Args: []string{"load", "cuda/11.8"}},
			{Name: "compiler", Path: "module", Args: []string{"load", "gcc/9.3.0"}},
			{Name: "mpi", Path: "module", Args: []string{"load", "openmpi/4.1.1"}},
			runtimeStep,
		},
	},
}

// Lookup returns the activation profile registered for mode. The
// returned profile is shared and must be treated as read-only.
func Lookup(mode Mode) Profile {
	return profiles[mode]
}
