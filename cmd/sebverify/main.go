// Command sebverify verifies a Safe Exam Browser installation against a
// known-good reference snapshot and manages reference snapshots.
//
// Usage:
//
//	sebverify verify   [--path P] [--reference F ...] [--json] [--only-problems] [--under PREFIX]
//	sebverify generate [--path P] [--out DIR] [--catalog]
//	sebverify search
//	sebverify configs  [--path P]
//	sebverify show     --reference F [--under PREFIX]
//	sebverify diff     --left F --right F
//	sebverify catalog  import F... | list | delete ID | backup DIR
//	sebverify watch    [--path P] [--reference F ...]
//
// Every command accepts --config, --log-level and --log-file. The exit code
// is 0 when the installation matches, 1 when tampering was detected and 2 on
// errors.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) int
}

var commands = []command{
	{"verify", "compare an installation with its reference", runVerify},
	{"generate", "create a reference from an installation", runGenerate},
	{"search", "look for an installation in the program directories", runSearch},
	{"configs", "list configuration files of an installation", runConfigs},
	{"show", "print the manifest of a reference", runShow},
	{"diff", "compare the manifests of two references", runDiff},
	{"catalog", "manage the reference catalog", runCatalog},
	{"watch", "re-verify whenever the installation changes", runWatch},
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\nCommands:\n", internal.DefaultAppCMDShortCut)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> --help' for the flags of a command.\n", internal.DefaultAppCMDShortCut)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return report.ExitError
	}

	name := strings.ToLower(args[0])
	if name == "help" || name == "-h" || name == "--help" {
		usage(stdout)
		return report.ExitClean
	}

	for _, c := range commands {
		if c.name == name {
			a := newApp(name, stdin, stdout, stderr)
			return c.run(a, args[1:])
		}
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	usage(stderr)
	return report.ExitError
}
