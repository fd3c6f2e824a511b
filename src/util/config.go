package util

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the shape of an optional YAML options overlay, loaded with
// -config and merged over command line flags for fields the command line
// left at their zero value. A bare command line invocation never requires
// one; it exists for CI pipelines that want a checked-in default target and
// cache directory instead of repeating flags.
type FileConfig struct {
	Threads  int    `yaml:"threads"`
	Target   string `yaml:"target"`
	CacheDir string `yaml:"cache_dir"`
	Verbose  bool   `yaml:"verbose"`
}

// LoadConfig reads and parses a YAML FileConfig from path.
func LoadConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// Merge applies non-zero fields of fc onto opt wherever opt's command line
// value was left at its zero value, and returns the result.
func (fc FileConfig) Merge(opt Options) Options {
	if opt.Threads == 0 {
		opt.Threads = fc.Threads
	}
	if opt.Target == "" {
		opt.Target = fc.Target
	}
	if opt.CacheDir == "" {
		opt.CacheDir = fc.CacheDir
	}
	if !opt.Verbose {
		opt.Verbose = fc.Verbose
	}
	return opt
}
