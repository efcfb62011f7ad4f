package regcheck_test

// TODO: Figure out how to test this analyzer.
// The golang.org/x/tools/go/analysis/analysistest testing tools set up a
// "GOPATH-style project" [1], which seems to require vendoring dependencies.
// This is ok for testing the Go standard library but isn't practical for
// code with several transitive dependencies, as seisflows has.
// [1] https://pkg.go.dev/golang.org/x/tools/go/analysis/analysistest
//
// Until then, run and see no errors for example but registration errors
// for badreg:
// 	$ go run github.com/xumi1993/seisflows/cmd/sfregcheck \
// 		github.com/xumi1993/seisflows/example \
// 		github.com/xumi1993/seisflows/analysis/regcheck/regchecktest/badreg
//	<snip>/badreg.go:19:39: seisflows registration error: function name must be a compile-time string constant
//	<snip>/badreg.go:24:2: seisflows registration error: RegisterFunc must be called during package initialization (top-level var or func init)
//	exit status 3
