package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Options holds parsed command line configuration for a single compile.
type Options struct {
	Src         string // Path to source module file (textual surface syntax).
	Out         string // Path to output file holding lowered target IR text.
	Config      string // Optional path to a YAML options overlay.
	Threads     int    // Worker goroutine count for the reference-count annotation pass.
	Verbose     bool   // Print humanized pass statistics to stdout.
	DumpIR      bool   // Print the unannotated source IR and exit before annotation.
	DumpRC      bool   // Print the reference-count annotated source IR and exit before lowering.
	Target      string // Target identifier, e.g. "x86_64-linux-gnu". Empty means host default.
	CacheDir    string // Optional directory for the content-addressed compile cache. Empty disables caching.
	NoCache     bool   // Force-disable the compile cache even if CacheDir is set (e.g. by config file).
}

const maxThreads = 64
const appVersion = "lowerc 1.0"

// knownTargets lists target identifiers accepted by -target. The lowering
// core itself is target-agnostic; this list only bounds what the driver
// will stamp into cache keys and diagnostics.
var knownTargets = map[string]bool{
	"x86_64-linux-gnu":   true,
	"aarch64-linux-gnu":  true,
	"x86_64-apple-darwin": true,
	"aarch64-apple-darwin": true,
}

// ParseArgs parses command line arguments into Options.
func ParseArgs() (Options, error) {
	opt := Options{}
	if len(os.Args) < 2 {
		return opt, nil
	}
	args := os.Args[1:]
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "-c", "-config":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			opt.Config = args[i1+1]
			i1++
		case "-t", "-threads":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			t, err := strconv.Atoi(args[i1+1])
			if err != nil {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			if t < 1 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
			}
			opt.Threads = t
			i1++
		case "-target":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if !knownTargets[args[i1+1]] {
				return opt, fmt.Errorf("unexpected target identifier: %s", args[i1+1])
			}
			opt.Target = args[i1+1]
			i1++
		case "-cache":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			opt.CacheDir = args[i1+1]
			i1++
		case "-no-cache":
			opt.NoCache = true
		case "-dump-ir":
			opt.DumpIR = true
		case "-dump-rc":
			opt.DumpRC = true
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-vb":
			opt.Verbose = true
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits the application.")
	_, _ = fmt.Fprintln(w, "-o\tPath and name of the output file.")
	_, _ = fmt.Fprintln(w, "-c, -config\tPath to a YAML options overlay.")
	_, _ = fmt.Fprintf(w, "-t, -threads\tNumber of worker goroutines for reference-count annotation. Must be in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-target\tTarget identifier, e.g. x86_64-linux-gnu.")
	_, _ = fmt.Fprintln(w, "-cache\tDirectory for the content-addressed compile cache.")
	_, _ = fmt.Fprintln(w, "-no-cache\tDisable the compile cache even if -cache or a config file sets one.")
	_, _ = fmt.Fprintln(w, "-dump-ir\tPrint the parsed source IR and exit.")
	_, _ = fmt.Fprintln(w, "-dump-rc\tPrint the reference-count annotated source IR and exit.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints application version and exits the application.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print compiler statistics to stdout.")
	_ = w.Flush()
}
