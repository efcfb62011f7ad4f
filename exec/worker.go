// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows"
)

// WorkerConfig carries a worker's inputs as passed through by the
// launcher.
type WorkerConfig struct {
	// FuncsPath and KwargsPath locate the batch's descriptor artifacts.
	FuncsPath, KwargsPath string
	// Environ is the comma-separated key=value override string.
	Environ string
	// TaskID is the raw task index value.
	TaskID string
	// BaseEnv overrides the process environment snapshot used to build
	// the invocation environment. Nil means os.Environ; tests supply
	// their own.
	BaseEnv []string
}

// RunWorker executes one array task: it resolves the task's identity,
// decodes the batch descriptor, builds the invocation environment, and
// invokes the descriptor's functions in order, recording the terminal
// outcome in the task's completion signal.
//
// Identity resolution is the first gate: a missing or unparseable task
// index fails before the descriptor is ever read. Failures before
// function invocation (identity, descriptor) write no signal, so
// pollers can distinguish a task that never started from one that ran
// and failed; a function error is recorded in a failure signal. The
// written signal, if any, is returned along with the worker's error.
func RunWorker(ctx context.Context, cfg WorkerConfig) (*seisflows.Signal, error) {
	taskID, err := resolveTaskID(cfg.TaskID)
	if err != nil {
		return nil, err
	}
	d, err := readDescriptor(ctx, cfg.FuncsPath, cfg.KwargsPath)
	if err != nil {
		return nil, err
	}
	base := cfg.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	call := &seisflows.Call{
		TaskID: taskID,
		Kwargs: d.Kwargs,
		Env:    mergeEnviron(base, cfg.Environ),
	}
	var result interface{}
	for _, name := range d.Funcs {
		fv, _ := seisflows.LookupFunc(name)
		log.Printf("task %d: running %s", taskID, name)
		result, err = fv.Invoke(ctx, call)
		if err != nil {
			sig := &seisflows.Signal{
				TaskID:  taskID,
				Status:  seisflows.StatusFailure,
				Message: fmt.Sprintf("%s: %v", name, err),
				Time:    time.Now(),
			}
			if werr := writeSignal(ctx, cfg.FuncsPath, sig); werr != nil {
				log.Error.Printf("task %d: writing failure signal: %v", taskID, werr)
			}
			return sig, seisflows.WithFault(seisflows.FaultExecution,
				errors.E(fmt.Sprintf("task %d: %s", taskID, name), err))
		}
	}
	sig := &seisflows.Signal{
		TaskID: taskID,
		Status: seisflows.StatusSuccess,
		Result: result,
		Time:   time.Now(),
	}
	if err := writeSignal(ctx, cfg.FuncsPath, sig); err != nil {
		return nil, errors.E(fmt.Sprintf("task %d: writing success signal", taskID), err)
	}
	return sig, nil
}

// resolveTaskID parses the raw task index value. Task identities are
// non-negative integers assigned by the scheduler.
func resolveTaskID(raw string) (int, error) {
	if raw == "" {
		return 0, seisflows.Faultf(seisflows.FaultIdentity, "no task index variable is set")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, seisflows.Faultf(seisflows.FaultIdentity, "unparseable task index %q", raw)
	}
	if id < 0 {
		return 0, seisflows.Faultf(seisflows.FaultIdentity, "negative task index %d", id)
	}
	return id, nil
}

// readDescriptor opens and decodes the descriptor pair, verifying that
// every named function is registered in this binary.
func readDescriptor(ctx context.Context, funcsPath, kwargsPath string) (*seisflows.Descriptor, error) {
	funcs, err := readFuncs(ctx, funcsPath)
	if err != nil {
		return nil, err
	}
	kwargs, err := readKwargs(ctx, kwargsPath)
	if err != nil {
		return nil, err
	}
	d := &seisflows.Descriptor{Funcs: funcs, Kwargs: kwargs}
	if err := d.Validate(); err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor, err)
	}
	return d, nil
}

func readFuncs(ctx context.Context, path string) ([]string, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor,
			errors.E(fmt.Sprintf("open funcs %s", path), err))
	}
	defer f.Close(ctx)
	funcs, err := seisflows.DecodeFuncs(f.Reader(ctx))
	if err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor, err)
	}
	return funcs, nil
}

func readKwargs(ctx context.Context, path string) (seisflows.Kwargs, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor,
			errors.E(fmt.Sprintf("open kwargs %s", path), err))
	}
	defer f.Close(ctx)
	kwargs, err := seisflows.DecodeKwargs(f.Reader(ctx))
	if err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor, err)
	}
	return kwargs, nil
}

// mergeEnviron builds the invocation environment from a process
// environment snapshot and the batch's override string. Overrides win
// over pre-existing values. The result is an explicit map consumed by
// the function call; the process environment itself is never mutated.
func mergeEnviron(base []string, overrides string) map[string]string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	for _, kv := range strings.Split(overrides, ",") {
		if kv == "" {
			continue
		}
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			log.Error.Printf("ignoring malformed environment override %q", kv)
			continue
		}
		env[kv[:i]] = kv[i+1:]
	}
	return env
}

// writeSignal stores the task's completion signal beside the descriptor
// artifact. A resubmitted task replaces its earlier signal.
func writeSignal(ctx context.Context, funcsPath string, sig *seisflows.Signal) error {
	path := siblingURL(funcsPath, SignalName(sig.TaskID))
	f, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	if _, err := seisflows.EncodeSignal(f.Writer(ctx), sig); err != nil {
		f.Close(ctx)
		return err
	}
	return f.Close(ctx)
}
