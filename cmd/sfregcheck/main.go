// Standalone checker for seisflows function registration sites.
//
// Usage:
//	sfregcheck ./...
package main

import (
	"github.com/xumi1993/seisflows/analysis/regcheck"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(regcheck.Analyzer)
}
