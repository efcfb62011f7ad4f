// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package example registers a small set of demo functions. Programs
// import it for effect; the registrations must happen in both the
// submitting program and the launcher binary so that workers can look
// the functions up by name.
package example

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/xumi1993/seisflows"
)

var (
	// TaskID reports the task's identity, exercising the identity
	// plumbing end to end.
	TaskID = seisflows.RegisterFunc("example.task-id",
		func(ctx context.Context, call *seisflows.Call) (interface{}, error) {
			fmt.Printf("hello from task %d\n", call.TaskID)
			return call.TaskID, nil
		})

	// Greet formats a greeting from the "greeting" kwarg and the
	// task's merged environment.
	Greet = seisflows.RegisterFunc("example.greet",
		func(ctx context.Context, call *seisflows.Call) (interface{}, error) {
			greeting, _ := call.Kwargs["greeting"].(string)
			if greeting == "" {
				greeting = "hello"
			}
			return fmt.Sprintf("%s from task %d (sample %s)",
				greeting, call.TaskID, call.Getenv("SEISFLOWS_SAMPLE")), nil
		})

	// Fail always fails. It is useful for exercising failure signals
	// and resubmission.
	Fail = seisflows.RegisterFunc("example.fail",
		func(ctx context.Context, call *seisflows.Call) (interface{}, error) {
			return nil, errors.E(fmt.Sprintf("task %d failed as requested", call.TaskID))
		})
)
