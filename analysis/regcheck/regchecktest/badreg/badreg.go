// Tests the static registration checker.
//
// This is a correctly-typed Go program, but its function registrations
// break the rules the checker enforces: one name is computed at run
// time, and one registration happens outside package initialization.
package main

import (
	"context"
	"os"

	"github.com/xumi1993/seisflows"
)

func noop(ctx context.Context, call *seisflows.Call) (interface{}, error) {
	return nil, nil
}

var dynamic = seisflows.RegisterFunc("badreg."+os.Getenv("SUFFIX"), noop)

func main() {
	// Workers running the same binary would never see this
	// registration: it happens only in processes that reach main.
	seisflows.RegisterFunc("badreg.late", noop)
}
