// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sfconfig creates a dispatcher from a shared configuration.
// Sfconfig uses the configuration mechanism in package
// github.com/grailbio/base/config, and reads a default profile from
// $HOME/.seisflows/config, so that cluster-specific settings (artifact
// prefix, system, task limits) live outside of user programs.
package sfconfig

import (
	"flag"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/config"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/must"

	// Used to provide AWS credentials for S3-backed stores.
	_ "github.com/grailbio/base/config/aws"
	"github.com/xumi1993/seisflows/exec"
)

func init() {
	// Batch artifacts may live on S3 when submission and compute hosts
	// share no filesystem.
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

// Path determines the location of the profile read by Parse.
var Path = os.ExpandEnv("$HOME/.seisflows/config")

// Parse registers configuration flags and calls flag.Parse. It reads
// configuration from Path defined in this package. Parse returns a
// dispatcher as configured by the configuration and any flags
// provided. Parse panics if dispatcher creation fails.
func Parse() (dispatcher *exec.Dispatcher, shutdown func()) {
	config.RegisterFlags("", Path)
	flag.Parse()
	must.Nil(config.ProcessFlags())
	config.Must("seisflows", &dispatcher)
	return dispatcher, func() {}
}
