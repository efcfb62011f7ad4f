// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"os"

	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows/envprofile"
)

// LaunchConfig carries the per-task entry point's inputs exactly as
// delivered by the scheduler through flags and environment variables.
// Values are raw strings: validation belongs to the stages that consume
// them.
type LaunchConfig struct {
	// Mode is the raw execution-mode flag.
	Mode string
	// FuncsPath and KwargsPath locate the batch's descriptor artifacts.
	FuncsPath, KwargsPath string
	// Environ is the comma-separated key=value override string.
	Environ string
	// TaskID is the raw task index value injected by the scheduler.
	TaskID string
	// Runner performs profile activation. If nil, steps run as
	// subprocesses on the node.
	Runner envprofile.Runner
}

// Launch is the per-task entry point run on a compute node. It is a
// fixed four-stage sequence: select the activation profile for the
// mode, activate the runtime, invoke the worker, and return the
// outcome for the process exit code. An unrecognized mode fails before
// any activation step executes, and a failed activation step aborts
// before the worker runs. The descriptor locations, override string,
// and task index pass through to the worker unchanged.
func Launch(ctx context.Context, cfg LaunchConfig) error {
	mode, err := envprofile.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	runner := cfg.Runner
	if runner == nil {
		runner = envprofile.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
	}
	if err := envprofile.Activate(ctx, runner, envprofile.Lookup(mode)); err != nil {
		return err
	}
	sig, err := RunWorker(ctx, WorkerConfig{
		FuncsPath:  cfg.FuncsPath,
		KwargsPath: cfg.KwargsPath,
		Environ:    cfg.Environ,
		TaskID:     cfg.TaskID,
	})
	if sig != nil {
		log.Printf("task %d: %s", sig.TaskID, sig.Status)
	}
	return err
}
