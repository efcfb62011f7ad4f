// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Sfdemo is a demo submission program. It submits a small batch of the
// example functions, polls for its completion signals, and prints the
// per-task results. It is the dispatcher-side counterpart of the sfrun
// launcher.
//
// By default tasks run in-process; configure the "subprocess" system
// (and point its binary at sfrun) to run each task as a separate
// launcher process, as a scheduler would.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/grailbio/base/backgroundcontext"
	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/envprofile"
	"github.com/xumi1993/seisflows/example"
	"github.com/xumi1993/seisflows/exec"
	"github.com/xumi1993/seisflows/sfconfig"
)

var (
	ntask   = flag.Int("ntask", 3, "number of array tasks to run")
	mode    = flag.String("mode", "cpu", "execution mode")
	timeout = flag.Duration("timeout", time.Minute, "how long to wait for completion signals")
)

func main() {
	dispatcher, shutdown := sfconfig.Parse()
	defer shutdown()
	ctx := backgroundcontext.Get()

	m, err := envprofile.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}
	batch, err := dispatcher.Submit(ctx, exec.SubmitRequest{
		Funcs:   []string{example.TaskID.Name(), example.Greet.Name()},
		Kwargs:  seisflows.Kwargs{"greeting": "good day"},
		Mode:    m,
		NTask:   *ntask,
		Environ: "SEISFLOWS_SAMPLE=AA.S0001",
	})
	if err != nil {
		log.Fatal(err)
	}
	status, err := dispatcher.Poll(ctx, batch, *timeout)
	if err != nil {
		log.Fatal(err)
	}
	for i, sig := range status.Signals {
		if sig == nil {
			fmt.Printf("task %d: no signal\n", i)
			continue
		}
		fmt.Printf("task %d: %s: %v\n", i, sig.Status, sig.Result)
	}
	if failed := status.Failed(); len(failed) > 0 {
		log.Error.Printf("resubmitting failed tasks %v", failed)
		if err := dispatcher.Resubmit(ctx, batch, failed); err != nil {
			log.Fatal(err)
		}
	}
}
