// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"fmt"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/envprofile"
)

// TaskState represents the observed state of an array task, as
// reconstructed from its completion signal.
type TaskState int

const (
	// TaskIncomplete indicates that no completion signal has been
	// observed for the task. An absent signal is never inferred as
	// success or failure: the task may not have started, may still be
	// running, or may have been killed with the job.
	TaskIncomplete TaskState = iota
	// TaskOK indicates a completion signal recording success.
	TaskOK
	// TaskErr indicates a completion signal recording failure: the
	// task ran and its function returned an error.
	TaskErr
)

var states = [...]string{
	TaskIncomplete: "INCOMPLETE",
	TaskOK:         "OK",
	TaskErr:        "ERROR",
}

// String returns the task's state as an upper-case string.
func (s TaskState) String() string {
	if s < 0 || int(s) >= len(states) {
		return fmt.Sprintf("state(%d)", s)
	}
	return states[s]
}

// A Batch is the handle returned by Submit. It identifies the batch's
// descriptor artifacts and geometry; task identities of the batch form
// the contiguous range 0..NTask-1.
type Batch struct {
	// ID is the batch's fresh identifier, which keys its artifacts in
	// the store.
	ID string
	// Funcs records the descriptor's function names.
	Funcs []string
	// Mode is the execution mode all tasks of the batch run under.
	Mode envprofile.Mode
	// NTask is the number of array tasks.
	NTask int
	// FuncsPath and KwargsPath locate the batch's descriptor artifacts.
	FuncsPath, KwargsPath string
	// Environ is the batch's extra-environment string, comma-separated
	// key=value pairs injected into every task's invocation
	// environment.
	Environ string
}

// BatchStatus aggregates per-task outcomes of a batch after a polling
// window. Both slices are indexed by task identity; Signals is nil
// where no signal has been observed.
type BatchStatus struct {
	States  []TaskState
	Signals []*seisflows.Signal
}

// Done tells whether every task has settled (no task is incomplete).
func (s BatchStatus) Done() bool {
	for _, state := range s.States {
		if state == TaskIncomplete {
			return false
		}
	}
	return true
}

// OK tells whether every task completed successfully.
func (s BatchStatus) OK() bool {
	for _, state := range s.States {
		if state != TaskOK {
			return false
		}
	}
	return true
}

// Incomplete returns the identities of tasks with no observed signal.
func (s BatchStatus) Incomplete() []int { return s.tasksIn(TaskIncomplete) }

// Failed returns the identities of tasks that ran and failed.
func (s BatchStatus) Failed() []int { return s.tasksIn(TaskErr) }

func (s BatchStatus) tasksIn(state TaskState) []int {
	var tasks []int
	for id, st := range s.States {
		if st == state {
			tasks = append(tasks, id)
		}
	}
	return tasks
}

// String summarizes the status by state counts.
func (s BatchStatus) String() string {
	var counts [len(states)]int
	for _, state := range s.States {
		counts[state]++
	}
	return fmt.Sprintf("ok:%d error:%d incomplete:%d",
		counts[TaskOK], counts[TaskErr], counts[TaskIncomplete])
}
