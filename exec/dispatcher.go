// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package exec implements the two halves of the execution bridge: the
// dispatcher, which serializes batch descriptors and issues one
// launcher invocation per array task, and the launcher/worker pair run
// on compute nodes, which activate the runtime, invoke the batch's
// registered functions, and record completion signals. Systems bridge
// the two halves to an external scheduler; artifacts travel through a
// Store visible to both environments.
package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/data"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/base/status"
	"github.com/grailbio/base/traverse"
	"golang.org/x/sync/errgroup"

	"github.com/xumi1993/seisflows"
	"github.com/xumi1993/seisflows/envprofile"
)

// DefaultPollInterval is the initial wait between polling rounds.
const DefaultPollInterval = 5 * time.Second

// A Dispatcher submits batches of array tasks from the login
// environment and polls their completion signals. It performs no
// retries of its own: resubmission of missing or failed tasks is the
// caller's decision, via Resubmit.
type Dispatcher struct {
	store    Store
	system   System
	status   *status.Status
	interval time.Duration
	fanout   int
}

// An Option represents a dispatcher configuration parameter value.
type Option func(*Dispatcher)

// WithStore configures the store holding batch artifacts.
func WithStore(store Store) Option {
	return func(d *Dispatcher) { d.store = store }
}

// WithSystem configures the system that issues launcher invocations.
func WithSystem(system System) Option {
	return func(d *Dispatcher) { d.system = system }
}

// WithStatus provides a status object to which per-task states are
// reported during polling.
func WithStatus(st *status.Status) Option {
	return func(d *Dispatcher) { d.status = st }
}

// WithPollInterval configures the initial wait between polling rounds.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) { d.interval = interval }
}

// WithParallelism bounds how many signal reads a polling round performs
// concurrently.
func WithParallelism(n int) Option {
	return func(d *Dispatcher) { d.fanout = n }
}

// New returns a dispatcher configured by the provided options. By
// default batches are stored under the user's temporary directory and
// run on the in-process local system.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    &FileStore{Prefix: filepath.Join(os.TempDir(), "seisflows")},
		system:   &Local{},
		interval: DefaultPollInterval,
		fanout:   32,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store returns the dispatcher's artifact store.
func (d *Dispatcher) Store() Store { return d.store }

// A SubmitRequest describes a batch: the registered functions to run
// in order, their keyword arguments, the execution mode, the number of
// array tasks, and the extra-environment string injected into every
// task.
type SubmitRequest struct {
	Funcs   []string
	Kwargs  seisflows.Kwargs
	Mode    envprofile.Mode
	NTask   int
	Environ string
}

// Submit serializes the request's descriptor once and issues one
// launcher invocation per task, with task identities 0..NTask-1. The
// descriptor is written before any invocation is issued; a
// serialization failure is reported as a descriptor-fault submission
// error and no tasks run.
func (d *Dispatcher) Submit(ctx context.Context, req SubmitRequest) (*Batch, error) {
	if req.NTask < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("batch needs at least one task, got %d", req.NTask))
	}
	// An unrecognized mode would otherwise fail node-side on every
	// task, leaving the whole batch incomplete; fail the submission
	// instead, before anything is written.
	if _, err := envprofile.ParseMode(req.Mode.String()); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	if err := d.writeDescriptor(ctx, id, req); err != nil {
		return nil, seisflows.WithFault(seisflows.FaultDescriptor,
			errors.E(fmt.Sprintf("submit %s", id), err))
	}
	b := &Batch{
		ID:         id,
		Funcs:      req.Funcs,
		Mode:       req.Mode,
		NTask:      req.NTask,
		FuncsPath:  d.store.URL(id, FuncsName),
		KwargsPath: d.store.URL(id, KwargsName),
		Environ:    req.Environ,
	}
	log.Printf("batch %s: running %s on %s %d times (mode %s)",
		id, strings.Join(req.Funcs, ", "), d.system.Name(), req.NTask, req.Mode)
	tasks := make([]int, req.NTask)
	for i := range tasks {
		tasks[i] = i
	}
	if err := d.issue(ctx, b, tasks); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Dispatcher) writeDescriptor(ctx context.Context, id string, req SubmitRequest) error {
	var total int64
	w, err := d.store.Create(ctx, id, FuncsName)
	if err != nil {
		return err
	}
	n, err := seisflows.EncodeFuncs(w, req.Funcs)
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	total += n
	w, err = d.store.Create(ctx, id, KwargsName)
	if err != nil {
		return err
	}
	n, err = seisflows.EncodeKwargs(w, req.Kwargs)
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	total += n
	log.Printf("batch %s: wrote descriptor (%s)", id, data.Size(total))
	return nil
}

// Resubmit issues fresh launcher invocations for the given task
// identities against the batch's existing descriptor. It is the retry
// primitive left to the caller for tasks reported failed or
// incomplete; the descriptor is never rewritten.
func (d *Dispatcher) Resubmit(ctx context.Context, b *Batch, tasks []int) error {
	for _, task := range tasks {
		if task < 0 || task >= b.NTask {
			return errors.E(errors.Invalid,
				fmt.Sprintf("task %d outside batch range 0..%d", task, b.NTask-1))
		}
	}
	return d.issue(ctx, b, tasks)
}

func (d *Dispatcher) issue(ctx context.Context, b *Batch, tasks []int) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return d.system.Run(ctx, Task{
				Batch:      b.ID,
				ID:         task,
				Mode:       b.Mode,
				FuncsPath:  b.FuncsPath,
				KwargsPath: b.KwargsPath,
				Environ:    b.Environ,
			})
		})
	}
	return g.Wait()
}

// Poll reads the batch's completion signals, blocking up to timeout
// for all tasks to settle. Tasks with no observed signal when the
// window closes are reported incomplete, never failed: an absent
// signal means the task has not finished, not that it went wrong.
// Poll returns early once every task has settled.
func (d *Dispatcher) Poll(ctx context.Context, b *Batch, timeout time.Duration) (BatchStatus, error) {
	stat := BatchStatus{
		States:  make([]TaskState, b.NTask),
		Signals: make([]*seisflows.Signal, b.NTask),
	}
	var tasks []*status.Task
	if d.status != nil {
		group := d.status.Groupf("batch %s", b.ID)
		tasks = make([]*status.Task, b.NTask)
		for i := range tasks {
			tasks[i] = group.Startf("task %d", i)
		}
		defer func() {
			for i, task := range tasks {
				task.Printf("%s", stat.States[i])
				task.Done()
			}
		}()
	}
	policy := retry.Backoff(d.interval, 4*d.interval, 1.5)
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for retries := 0; ; retries++ {
		d.scan(pollCtx, b, &stat, tasks)
		if stat.Done() {
			break
		}
		if err := retry.Wait(pollCtx, policy, retries); err != nil {
			// The polling window has closed; unsettled tasks remain
			// incomplete. Only cancellation of the caller's context is
			// an error.
			if err := ctx.Err(); err != nil {
				return stat, err
			}
			break
		}
	}
	log.Printf("batch %s: %s", b.ID, stat)
	return stat, nil
}

// scan performs one polling round, reading the signals of unsettled
// tasks with bounded parallelism. Signals that cannot be opened or
// decoded leave their task unsettled; a task being written to
// concurrently simply settles on a later round.
func (d *Dispatcher) scan(ctx context.Context, b *Batch, stat *BatchStatus, tasks []*status.Task) {
	_ = traverse.Limit(d.fanout).Each(b.NTask, func(i int) error {
		if stat.States[i] != TaskIncomplete {
			return nil
		}
		rc, err := d.store.Open(ctx, b.ID, SignalName(i))
		if err != nil {
			if !errors.Is(errors.NotExist, err) {
				log.Debug.Printf("batch %s: task %d: %v", b.ID, i, err)
			}
			return nil
		}
		defer rc.Close()
		sig, err := seisflows.DecodeSignal(rc)
		if err != nil {
			log.Debug.Printf("batch %s: task %d: %v", b.ID, i, err)
			return nil
		}
		stat.Signals[i] = sig
		if sig.OK() {
			stat.States[i] = TaskOK
		} else {
			stat.States[i] = TaskErr
		}
		if tasks != nil {
			tasks[i].Printf("%s", stat.States[i])
		}
		return nil
	})
}
