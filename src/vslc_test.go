package main

import (
	"fmt"
	"testing"

	"lowerc/src/compiler"
	"lowerc/src/util"
)

// benchType defines a benchmark with pre-defined benchmark parameters.
type benchType struct {
	name string // Informative name of the benchmark.
	src  string // The textir fixture source.
}

// p defines the maximum number of parallel threads to pass to the compiler.
const p = 4

// benchmarks bundles the fixture modules exercised by the benchmarks below,
// standing in for the teacher's directory of typed VSL source files: there
// is no surface-language front end in this pipeline, so fixtures are
// textir source written out in full rather than read off disk.
var benchmarks = []benchType{
	{
		name: "identity",
		src: `(module "identity"
  (define id ((x Number)) () Number x))`,
	},
	{
		name: "closure",
		src: `(module "closure"
  (define add ((x Number) (y Number)) () Number (add x y))
  (define make-adder ((x Number)) () (Number) -> Number
    (letrec (define adder ((y Number)) ((x Number)) Number (apply (apply add x) y))
      adder))`,
	},
	{
		name: "thunk",
		src: `(module "thunk"
  (define answer () () Number (number 42.0)))`,
	},
}

// BenchmarkCompile benchmarks running the full pipeline (parse, reference-
// count annotation, lowering) over the bundled fixture modules.
func BenchmarkCompile(b *testing.B) {
	for _, bm := range benchmarks {
		for threads := 1; threads <= p; threads++ {
			opt := util.Options{Threads: threads}
			b.Run(fmt.Sprintf("%s-threads=%d", bm.name, threads), func(b *testing.B) {
				for n := 0; n < b.N; n++ {
					if _, err := compiler.Compile(bm.name, bm.src, opt); err != nil {
						b.Fatalf("compile error: %s", err)
					}
				}
			})
		}
	}
}

// BenchmarkAnnotationOnly isolates the reference-count annotation pass by
// stopping the pipeline right after it via -dump-rc, the same way the
// corpus's own AST-optimisation benchmark decouples parsing from codegen.
func BenchmarkAnnotationOnly(b *testing.B) {
	for _, bm := range benchmarks {
		for threads := 1; threads <= p; threads++ {
			opt := util.Options{Threads: threads, DumpRC: true}
			b.Run(fmt.Sprintf("%s-threads=%d", bm.name, threads), func(b *testing.B) {
				for n := 0; n < b.N; n++ {
					if _, err := compiler.Compile(bm.name, bm.src, opt); err != nil {
						b.Fatalf("annotation error: %s", err)
					}
				}
			})
		}
	}
}
