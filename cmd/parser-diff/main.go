// Command parser-diff runs the hand-written and grammar-generated parsers over a
// set of samples and writes a JSON conformance report.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"star-core/internal/conformance"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("parser-diff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dirFlag := fs.String("dir", "", "Directory of *.pine samples (defaults to the built-in fixtures)")
	outFlag := fs.String("out", "parser-diff.json", "Report path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	samples := conformance.BuiltinSamples()
	if *dirFlag != "" {
		loaded, err := conformance.LoadSamples(*dirFlag)
		if err != nil {
			fmt.Fprintf(stderr, "load samples: %v\n", err)
			return 2
		}
		samples = loaded
	}

	report := conformance.Default().Run(samples)
	if err := conformance.WriteReport(*outFlag, report); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "%d samples, %d mismatches, report at %s\n", report.Samples, len(report.Mismatches), *outFlag)
	if !report.OK() {
		for _, m := range report.Mismatches {
			fmt.Fprintf(stdout, "  mismatch: %s\n", m.Name)
		}
		return 1
	}
	return 0
}
