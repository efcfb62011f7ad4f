// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Sfrun is the per-task launcher binary. A scheduler (or the
// subprocess system) runs one sfrun process per array task; sfrun
// activates the node's runtime profile, executes the batch's functions
// in order, writes the task's completion signal, and exits with a code
// identifying the fault stage on failure.
//
// Inputs arrive as flags with environment-variable fallbacks, so that
// both flag-passing schedulers and array-job environments (which can
// only vary the environment between tasks) are served:
//
//	-funcs        SEISFLOWS_FUNCS        descriptor funcs location
//	-kwargs       SEISFLOWS_KWARGS       descriptor kwargs location
//	-environment  SEISFLOWS_ENVIRONS     extra key=value overrides
//	-mode         SEISFLOWS_EXEC_MODE    execution mode
//
// The task identity comes from SEISFLOWS_TASKID, falling back to
// SLURM_ARRAY_TASK_ID under Slurm array jobs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/backgroundcontext"
	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/exec"

	// Imported for effect: registers the functions this binary can run.
	_ "github.com/xumi1993/seisflows/example"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: sfrun -funcs path -kwargs path [-environment key=value,...] [-mode mode]

Sfrun runs one array task: it activates the execution-mode profile,
invokes the batch's registered functions in order, and writes the
task's completion signal next to the descriptor.

`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	var (
		funcs   = flag.String("funcs", os.Getenv(exec.EnvFuncs), "location of the batch's funcs artifact")
		kwargs  = flag.String("kwargs", os.Getenv(exec.EnvKwargs), "location of the batch's kwargs artifact")
		environ = flag.String("environment", os.Getenv(exec.EnvEnvirons), "comma-separated key=value environment overrides")
		mode    = flag.String("mode", os.Getenv(exec.EnvMode), "execution mode")
	)
	log.AddFlags()
	flag.Usage = usage
	flag.Parse()
	if *funcs == "" || *kwargs == "" {
		flag.Usage()
	}
	taskID := os.Getenv(exec.EnvTaskID)
	if taskID == "" {
		taskID = os.Getenv("SLURM_ARRAY_TASK_ID")
	}
	err := exec.Launch(backgroundcontext.Get(), exec.LaunchConfig{
		Mode:       *mode,
		FuncsPath:  *funcs,
		KwargsPath: *kwargs,
		Environ:    *environ,
		TaskID:     taskID,
	})
	if err != nil {
		log.Error.Printf("sfrun: %v", err)
	}
	os.Exit(seisflows.ExitCode(err))
}
