// Command star-transpile converts a Pine-like script into Star Script text and,
// optionally, a replayable star-module bundle.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"star-core/internal/transpile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("star-transpile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inFlag := fs.String("in", "", "Path to the source script")
	starFlag := fs.String("out-star", "", "Write transpiled Star text to this file")
	moduleFlag := fs.String("out-module", "", "Write the star-module bundle to this file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *inFlag == "" {
		fmt.Fprintln(stderr, "usage: star-transpile --in <file> [--out-star <file>] [--out-module <file>]")
		return 2
	}

	src, err := os.ReadFile(*inFlag)
	if err != nil {
		fmt.Fprintf(stderr, "read %s: %v\n", *inFlag, err)
		return 1
	}

	star := transpile.PineToStar(string(src))
	if *starFlag == "" && *moduleFlag == "" {
		fmt.Fprintln(stdout, star)
		return 0
	}

	if *starFlag != "" {
		if err := os.WriteFile(*starFlag, []byte(star+"\n"), 0o644); err != nil {
			fmt.Fprintf(stderr, "write %s: %v\n", *starFlag, err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", *starFlag)
	}
	if *moduleFlag != "" {
		module, err := transpile.ToModule(string(src))
		if err != nil {
			fmt.Fprintf(stderr, "build module: %v\n", err)
			return 1
		}
		if err := os.WriteFile(*moduleFlag, module, 0o644); err != nil {
			fmt.Fprintf(stderr, "write %s: %v\n", *moduleFlag, err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", *moduleFlag)
	}
	return 0
}
