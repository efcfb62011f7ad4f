// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/grailbio/base/backgroundcontext"
	"github.com/grailbio/base/limiter"
	"github.com/grailbio/base/log"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/envprofile"
)

// A Task describes one launcher invocation of a batch: the task's
// identity together with the batch inputs it passes through to the
// worker.
type Task struct {
	// Batch is the owning batch's identifier.
	Batch string
	// ID is the task's identity within the batch.
	ID int
	// Mode is the batch's execution mode.
	Mode envprofile.Mode
	// FuncsPath and KwargsPath locate the batch's descriptor artifacts.
	FuncsPath, KwargsPath string
	// Environ is the batch's extra-environment string.
	Environ string
}

// A System issues launcher invocations. Implementations bridge to the
// external scheduler: Run submits a single task and returns once the
// invocation has been issued. Task outcomes travel only through
// completion signals; a Run error means the invocation could not be
// issued at all. Systems never retry.
type System interface {
	// Name returns a displayable name for the system.
	Name() string
	// Run issues one launcher invocation for the given task.
	Run(ctx context.Context, task Task) error
}

// Environment variables of the launcher contract. The dispatcher and
// systems set them; the launcher and worker consume them.
const (
	// EnvMode carries the execution-mode flag (cpu or gpu).
	EnvMode = "SEISFLOWS_EXEC_MODE"
	// EnvFuncs and EnvKwargs locate the descriptor artifacts.
	EnvFuncs  = "SEISFLOWS_FUNCS"
	EnvKwargs = "SEISFLOWS_KWARGS"
	// EnvEnvirons carries the comma-separated override string.
	EnvEnvirons = "SEISFLOWS_ENVIRONS"
	// EnvTaskID carries the task index. Schedulers that inject their
	// own array index (e.g. SLURM_ARRAY_TASK_ID) are also honored by
	// the launcher binary.
	EnvTaskID = "SEISFLOWS_TASKID"
)

// DefaultMaxTasks bounds concurrently running tasks when a system is
// not configured otherwise, leaving one slot for the submitting
// process.
func DefaultMaxTasks() int {
	if n := runtime.NumCPU(); n > 1 {
		return n - 1
	}
	return 1
}

// Local is a System that runs launcher invocations in-process. It
// stands in for a real scheduler on workstations and in tests,
// mimicking scheduler submission without a queue. Activation uses the
// Nop runner unless configured, so local runs do not touch the host
// toolchain.
type Local struct {
	// Runner performs profile activation for local tasks.
	Runner envprofile.Runner
	// MaxTasks bounds concurrently running tasks; 0 means
	// DefaultMaxTasks.
	MaxTasks int

	once sync.Once
	lim  *limiter.Limiter
	wg   sync.WaitGroup
}

func (s *Local) Name() string { return "local" }

func (s *Local) init() {
	s.once.Do(func() {
		max := s.MaxTasks
		if max <= 0 {
			max = DefaultMaxTasks()
		}
		s.lim = limiter.New()
		s.lim.Release(max)
		if s.Runner == nil {
			s.Runner = envprofile.Nop
		}
	})
}

func (s *Local) Run(ctx context.Context, task Task) error {
	s.init()
	s.wg.Add(1)
	// Tasks outlive the submission call, as they would under a real
	// scheduler, so they run detached from the submission context.
	ctx = backgroundcontext.Get()
	go func() {
		defer s.wg.Done()
		if err := s.lim.Acquire(ctx, 1); err != nil {
			log.Error.Printf("local task %d: %v", task.ID, err)
			return
		}
		defer s.lim.Release(1)
		err := Launch(ctx, LaunchConfig{
			Mode:       task.Mode.String(),
			FuncsPath:  task.FuncsPath,
			KwargsPath: task.KwargsPath,
			Environ:    task.Environ,
			TaskID:     strconv.Itoa(task.ID),
			Runner:     s.Runner,
		})
		if err != nil {
			log.Error.Printf("local task %d: %v (exit %d)", task.ID, err, seisflows.ExitCode(err))
		}
	}()
	return nil
}

// Wait blocks until every issued invocation has finished. It is used
// by tests and by callers that want local batches drained before
// exiting.
func (s *Local) Wait() { s.wg.Wait() }

// Subprocess is a System that spawns one launcher process per task,
// the way the original cluster interface submits its run script. Task
// output goes to a per-task log file.
type Subprocess struct {
	// Binary is the launcher executable. Empty means the current
	// binary, for deployments that embed the launcher entry point.
	Binary string
	// LogDir receives per-task log files; empty inherits the parent's
	// stdout and stderr.
	LogDir string
	// MaxTasks bounds concurrently running processes; 0 means
	// DefaultMaxTasks.
	MaxTasks int

	once sync.Once
	lim  *limiter.Limiter
	wg   sync.WaitGroup
}

func (s *Subprocess) Name() string { return "subprocess" }

func (s *Subprocess) init() {
	s.once.Do(func() {
		max := s.MaxTasks
		if max <= 0 {
			max = DefaultMaxTasks()
		}
		s.lim = limiter.New()
		s.lim.Release(max)
	})
}

// command builds the launcher invocation for task: flags carry the
// descriptor locations and override string, environment variables the
// mode and task index.
func (s *Subprocess) command(ctx context.Context, task Task) (*osexec.Cmd, error) {
	bin := s.Binary
	if bin == "" {
		var err error
		bin, err = os.Executable()
		if err != nil {
			return nil, err
		}
	}
	cmd := osexec.CommandContext(ctx, bin,
		"-funcs", task.FuncsPath,
		"-kwargs", task.KwargsPath,
		"-environment", task.Environ,
	)
	cmd.Env = append(os.Environ(),
		EnvMode+"="+task.Mode.String(),
		fmt.Sprintf("%s=%d", EnvTaskID, task.ID),
	)
	return cmd, nil
}

func (s *Subprocess) Run(ctx context.Context, task Task) error {
	s.init()
	// Launcher processes outlive the submission call; see Local.Run.
	ctx = backgroundcontext.Get()
	cmd, err := s.command(ctx, task)
	if err != nil {
		return err
	}
	var logFile *os.File
	if s.LogDir != "" {
		if err = os.MkdirAll(s.LogDir, 0777); err != nil {
			return err
		}
		path := filepath.Join(s.LogDir, fmt.Sprintf("%s_%04d.log", task.Batch, task.ID))
		logFile, err = os.Create(path)
		if err != nil {
			return err
		}
		cmd.Stdout, cmd.Stderr = logFile, logFile
	} else {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if logFile != nil {
			defer logFile.Close()
		}
		if err := s.lim.Acquire(ctx, 1); err != nil {
			log.Error.Printf("task %d: %v", task.ID, err)
			return
		}
		defer s.lim.Release(1)
		if err := cmd.Run(); err != nil {
			// Failures surface through the task's completion signal,
			// or its absence; the exit code is logged for diagnosis
			// only.
			log.Error.Printf("task %d: %v", task.ID, err)
		}
	}()
	return nil
}

// Wait blocks until every spawned launcher process has exited.
func (s *Subprocess) Wait() { s.wg.Wait() }
