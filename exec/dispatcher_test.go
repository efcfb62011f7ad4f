// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/envprofile"
)

// nopSystem accepts invocations and runs nothing, so signals never
// appear.
type nopSystem struct{}

func (nopSystem) Name() string { return "nop" }

func (nopSystem) Run(ctx context.Context, task Task) error { return nil }

func testDispatcher(t *testing.T) (*Dispatcher, func()) {
	t.Helper()
	dir, cleanup := testutil.TempDir(t, "", "")
	return New(
		WithStore(&FileStore{Prefix: dir}),
		WithSystem(&Local{}),
		WithPollInterval(10*time.Millisecond),
	), cleanup
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	d, cleanup := testDispatcher(t)
	defer cleanup()
	b, err := d.Submit(ctx, SubmitRequest{
		Funcs:   []string{"workertest.sum"},
		Kwargs:  seisflows.Kwargs{"n": 100},
		Mode:    envprofile.ModeCPU,
		NTask:   3,
		Environ: "WORKERTEST_KEY=from-batch",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b.NTask, 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	stat, err := d.Poll(ctx, b, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !stat.Done() || !stat.OK() {
		t.Fatalf("batch did not complete: %s", stat)
	}
	for i, sig := range stat.Signals {
		if sig == nil {
			t.Fatalf("task %d: no signal", i)
		}
		if got, want := sig.TaskID, i; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := sig.Result, 100+i; got != want {
			t.Errorf("task %d: got %v, want %v", i, got, want)
		}
	}
}

func TestDispatcherBadRequests(t *testing.T) {
	ctx := context.Background()
	d, cleanup := testDispatcher(t)
	defer cleanup()
	if _, err := d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.sum"},
		Mode:  envprofile.ModeCPU,
		NTask: 0,
	}); err == nil {
		t.Error("expected error for empty batch")
	} else if !errors.Is(errors.Invalid, err) {
		t.Errorf("unexpected error: %v", err)
	}
	// An out-of-range mode is rejected at submission, with the same
	// configuration fault the launcher would report node-side.
	_, err := d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.sum"},
		Mode:  envprofile.Mode(7),
		NTask: 1,
	})
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if got, want := seisflows.FaultOf(err), seisflows.FaultConfiguration; got != want {
		t.Errorf("got fault %v, want %v", got, want)
	}
	// An unregistered function is rejected at submission, before any
	// task is issued.
	_, err = d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.unregistered"},
		Mode:  envprofile.ModeCPU,
		NTask: 1,
	})
	if err == nil {
		t.Fatal("expected error for unregistered function")
	}
	if got, want := seisflows.FaultOf(err), seisflows.FaultDescriptor; got != want {
		t.Errorf("got fault %v, want %v", got, want)
	}
}

func TestDispatcherFailuresAndResubmit(t *testing.T) {
	ctx := context.Background()
	d, cleanup := testDispatcher(t)
	defer cleanup()
	b, err := d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.fail"},
		Mode:  envprofile.ModeCPU,
		NTask: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	stat, err := d.Poll(ctx, b, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !stat.Done() {
		t.Fatalf("batch did not settle: %s", stat)
	}
	if got, want := len(stat.Failed()), 2; got != want {
		t.Fatalf("got %d failed tasks, want %d", got, want)
	}
	for _, sig := range stat.Signals {
		if sig.OK() {
			t.Error("failed task signaled success")
		}
		if sig.Message == "" {
			t.Error("failure signal carries no message")
		}
	}
	// Resubmission reuses the stored descriptor for the named tasks.
	if err := d.Resubmit(ctx, b, stat.Failed()); err != nil {
		t.Fatal(err)
	}
	// Task identities outside the batch are rejected.
	if err := d.Resubmit(ctx, b, []int{2}); err == nil {
		t.Error("expected error for out-of-range task")
	} else if !errors.Is(errors.Invalid, err) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := d.Resubmit(ctx, b, []int{-1}); err == nil {
		t.Error("expected error for negative task")
	}
}

func TestDispatcherIncomplete(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	d := New(
		WithStore(&FileStore{Prefix: dir}),
		WithSystem(nopSystem{}),
		WithPollInterval(5*time.Millisecond),
	)
	b, err := d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.sum"},
		Mode:  envprofile.ModeGPU,
		NTask: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	// No worker ever runs, so the polling window closes with every
	// task incomplete. That is a normal outcome, not an error.
	stat, err := d.Poll(ctx, b, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if stat.Done() {
		t.Error("unrun batch reported done")
	}
	if got, want := len(stat.Incomplete()), 2; got != want {
		t.Errorf("got %d incomplete tasks, want %d", got, want)
	}
	for _, sig := range stat.Signals {
		if sig != nil {
			t.Error("unrun task has a signal")
		}
	}
}

func TestDispatcherDescriptorWrittenOnce(t *testing.T) {
	ctx := context.Background()
	d, cleanup := testDispatcher(t)
	defer cleanup()
	b, err := d.Submit(ctx, SubmitRequest{
		Funcs: []string{"workertest.sum"},
		Mode:  envprofile.ModeCPU,
		NTask: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	// The batch's artifacts are write-once under its fresh identifier.
	if _, err := d.Store().Create(ctx, b.ID, FuncsName); err == nil {
		t.Error("expected error re-creating descriptor")
	} else if !errors.Is(errors.Exists, err) {
		t.Errorf("unexpected error: %v", err)
	}
}
