// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package seisflows implements the remote execution bridge used to run
// registered task functions as scheduler array jobs on HPC clusters.
//
// Compute nodes do not inherit the login environment that submitted a
// job, and share nothing with the submitter but a filesystem and
// environment variables. The bridge therefore splits a run into two
// halves. On the submission side, a dispatcher (package exec) serializes
// a descriptor naming the functions to run and their keyword arguments,
// and issues one launcher invocation per array task. On each compute
// node, the launcher activates the runtime environment for the node's
// hardware mode (package envprofile) and hands off to a worker, which
// resolves its task identity, decodes the descriptor, and invokes the
// named functions, recording the outcome in a durable completion signal
// that the dispatcher polls.
//
// Functions are shipped by reference, not by value: both binaries
// register their task functions under stable names with RegisterFunc,
// typically at package initialization, and the descriptor carries only
// the names. This keeps descriptors small and sidesteps deserializing
// arbitrary code on compute nodes.
package seisflows
