// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package envprofile

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows"
)

// A Runner executes activation steps. Activation logic takes a Runner
// rather than shelling out directly so profiles stay testable without a
// real toolchain on the host.
type Runner interface {
	Run(ctx context.Context, step Step) error
}

// ExecRunner runs activation steps as subprocesses on the node.
type ExecRunner struct {
	// Stdout and Stderr receive step output; nil discards it.
	Stdout, Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, step Step) error {
	cmd := exec.CommandContext(ctx, step.Path, step.Args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

type nopRunner struct{}

func (nopRunner) Run(ctx context.Context, step Step) error { return nil }

// Nop is a Runner that performs no activation. The in-process system
// uses it so local runs do not touch the host toolchain.
var Nop Runner = nopRunner{}

// Activate runs the profile's steps strictly in order. The first step
// failure aborts activation with an environment fault naming the step;
// earlier steps are not rolled back, since activation steps are
// idempotent at the OS level.
func Activate(ctx context.Context, r Runner, p Profile) error {
	for i, step := range p.Steps {
		log.Printf("activate %s [%d/%d]: %s", p.Mode, i+1, len(p.Steps), step)
		if err := r.Run(ctx, step); err != nil {
			return seisflows.WithFault(seisflows.FaultEnvironment,
				errors.E(fmt.Sprintf("activate %s step %s", p.Mode, step), err))
		}
	}
	return nil
}
