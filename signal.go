// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package seisflows

import (
	"fmt"
	"io"
	"time"
)

// Status is the terminal outcome recorded in a completion signal.
type Status int

const (
	// StatusSuccess indicates the task's functions all returned
	// normally.
	StatusSuccess Status = iota
	// StatusFailure indicates a task function returned an error.
	StatusFailure
)

var statusNames = [...]string{
	StatusSuccess: "SUCCESS",
	StatusFailure: "FAILURE",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", s)
	}
	return statusNames[s]
}

// A Signal is a task's completion signal: a small durable record of its
// terminal outcome, written once by the worker when the task finishes
// and polled by the dispatcher. Tasks that abort before invoking any
// function (identity or descriptor failures) write no signal at all,
// which is how pollers distinguish never-started from ran-and-failed.
type Signal struct {
	// TaskID is the identity of the task that wrote the signal.
	TaskID int
	// Status is the task's terminal outcome.
	Status Status
	// Result holds the return value of the last function run, if the
	// task succeeded.
	Result interface{}
	// Message describes the failure, if the task failed.
	Message string
	// Time is when the signal was written.
	Time time.Time
}

// OK tells whether the signal records a successful outcome.
func (s *Signal) OK() bool { return s.Status == StatusSuccess }

// EncodeSignal writes a completion signal artifact.
func EncodeSignal(w io.Writer, sig *Signal) (int64, error) {
	return writeRecord(w, kindSignal, sig)
}

// DecodeSignal reads a completion signal artifact.
func DecodeSignal(r io.Reader) (*Signal, error) {
	var sig Signal
	if err := readRecord(r, kindSignal, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}
