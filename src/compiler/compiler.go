// Package compiler sequences the pipeline end to end: read and parse a
// module, run the reference-count annotation pass, lower it to target IR,
// consult the compile cache, and print the result. It contains no lowering
// logic of its own — every stage is a call into rc, lower, cache, textir or
// source; this package is purely the glue, mirroring the way the teacher
// corpus's own run function sequences frontend -> optimise -> backend.
package compiler

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"lowerc/src/cache"
	"lowerc/src/lower"
	"lowerc/src/rc"
	"lowerc/src/source"
	"lowerc/src/textir"
	"lowerc/src/util"
)

// Result is the outcome of a single compile: the printed target IR text and
// whether it was served from the compile cache.
type Result struct {
	TargetIR string
	CacheHit bool
}

// Compile runs the full pipeline over src (named filename for diagnostics)
// under opt. Depending on opt.DumpIR / opt.DumpRC it may return early with
// the textual source IR instead of a lowering, matching the -dump-ir and
// -dump-rc debug modes.
func Compile(filename, src string, opt util.Options) (*Result, error) {
	log := util.Log("compiler")
	start := time.Now()

	m, err := textir.Parse(filename, src)
	if err != nil {
		return nil, fmt.Errorf("compiler: parse: %w", err)
	}
	if opt.Verbose {
		log.Infof("parsed %q: %s definitions in %s", m.Name, humanize.Comma(int64(len(m.Definitions))), time.Since(start))
	}

	if opt.DumpIR {
		return &Result{TargetIR: source.Print(m)}, nil
	}

	if err := source.ValidateModule(m); err != nil {
		return nil, fmt.Errorf("compiler: validation: %w", err)
	}

	rcStart := time.Now()
	annotated, err := rc.Annotate(m, opt)
	if err != nil {
		return nil, fmt.Errorf("compiler: reference-count annotation: %w", err)
	}
	if opt.Verbose {
		log.Infof("annotated %q in %s", m.Name, time.Since(rcStart))
	}

	if opt.DumpRC {
		return &Result{TargetIR: source.Print(annotated)}, nil
	}

	var c *cache.Cache
	var key string
	if !opt.NoCache && opt.CacheDir != "" {
		c, err = cache.Open(opt.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("compiler: opening compile cache: %w", err)
		}
		defer c.Close()

		key = cache.Key(annotated, opt.Target)
		if text, hit, err := c.Lookup(key); err != nil {
			return nil, fmt.Errorf("compiler: cache lookup: %w", err)
		} else if hit {
			if opt.Verbose {
				log.Infof("cache hit for %q (key %s)", m.Name, key[:12])
			}
			return &Result{TargetIR: text, CacheHit: true}, nil
		}
	}

	lowerStart := time.Now()
	target, err := lower.LowerModule(annotated)
	if err != nil {
		return nil, fmt.Errorf("compiler: lowering: %w", err)
	}
	if opt.Verbose {
		log.Infof("lowered %q: %s functions in %s", m.Name, humanize.Comma(int64(len(target.Functions()))), time.Since(lowerStart))
	}

	text := target.String()
	if c != nil {
		if err := c.Store(key, text); err != nil {
			return nil, fmt.Errorf("compiler: storing compile cache entry: %w", err)
		}
	}

	if opt.Verbose {
		log.Infof("compiled %q in %s total", m.Name, time.Since(start))
	}
	return &Result{TargetIR: text}, nil
}
