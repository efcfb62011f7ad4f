// Copyright 2024 The SeisFlows Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exec

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/base/config"
)

func init() {
	config.Register("seisflows", func(inst *config.Constructor) {
		var (
			prefix   string
			system   string
			binary   string
			logdir   string
			maxTasks int
			interval string
		)
		inst.StringVar(&prefix, "prefix", filepath.Join(os.TempDir(), "seisflows"),
			"location under which batch artifacts are stored")
		inst.StringVar(&system, "system", "local",
			"system used to run tasks: local or subprocess")
		inst.StringVar(&binary, "binary", "",
			"launcher binary run by the subprocess system; defaults to the current binary")
		inst.StringVar(&logdir, "log-dir", "",
			"directory for per-task log files of the subprocess system")
		inst.IntVar(&maxTasks, "max-tasks", DefaultMaxTasks(),
			"maximum number of concurrently running tasks")
		inst.StringVar(&interval, "poll-interval", DefaultPollInterval.String(),
			"initial wait between signal polling rounds")
		inst.Doc = "seisflows configures batch submission and polling"
		inst.New = func() (interface{}, error) {
			pollInterval, err := time.ParseDuration(interval)
			if err != nil {
				return nil, fmt.Errorf("bad poll-interval %q: %v", interval, err)
			}
			var sys System
			switch system {
			case "local":
				sys = &Local{MaxTasks: maxTasks}
			case "subprocess":
				sys = &Subprocess{Binary: binary, LogDir: logdir, MaxTasks: maxTasks}
			default:
				return nil, fmt.Errorf("unknown system %q", system)
			}
			return New(
				WithStore(&FileStore{Prefix: prefix}),
				WithSystem(sys),
				WithPollInterval(pollInterval),
			), nil
		}
	})
}
