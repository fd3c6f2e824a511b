package main

import (
	"fmt"
	"os"
	"sync"

	"lowerc/src/compiler"
	"lowerc/src/util"
)

// run begins reading source code and executes compiler stages. Behaviour is
// defined by the util.Options structure.
func run(opt util.Options) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %w", err)
	}

	filename := opt.Src
	if filename == "" {
		filename = "<stdin>"
	}

	res, err := compiler.Compile(filename, src, opt)
	if err != nil {
		return err
	}

	w := util.NewWriter()
	w.WriteString(res.TargetIR)
	w.Close()
	return nil
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		util.Fatal(err.Error())
		os.Exit(1)
	}
	if opt.Config != "" {
		cfg, err := util.LoadConfig(opt.Config)
		if err != nil {
			util.Fatal(err.Error())
			os.Exit(1)
		}
		opt = cfg.Merge(opt)
	}

	util.ConfigureLog(opt)

	wg := sync.WaitGroup{}
	if len(opt.Out) > 0 {
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			util.Fatal(err.Error())
			os.Exit(1)
		}
		defer f.Close()
		util.ListenWrite(opt, f, &wg)
	} else {
		util.ListenWrite(opt, nil, &wg)
	}
	defer util.Close()

	if err := run(opt); err != nil {
		util.Fatal(err.Error())
		os.Exit(1)
	}

	wg.Wait()
}
