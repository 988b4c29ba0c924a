package main

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat"
	"github.com/nozzle/cormat/dtw"
	"github.com/nozzle/cormat/metric"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration file. Flags set on the command line
// take precedence over it.
type fileConfig struct {
	Metric              string  `yaml:"metric"`
	PrecomputeHalves    bool    `yaml:"precompute_halves"`
	PrecomputeNegHalves bool    `yaml:"precompute_neghalves"`
	AssumeSymmetric     bool    `yaml:"assume_symmetric"`
	FastMode            bool    `yaml:"fast_mode"`
	ZeroTol             float64 `yaml:"zero_tol"`
	Workers             int     `yaml:"workers"`
	Local               string  `yaml:"local"`
	Store               string  `yaml:"store"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Metric:  metric.Euclidean.String(),
		ZeroTol: metric.DefaultZeroTol,
		Workers: 1,
		Local:   "euclidean",
	}
}

// loadFileConfig reads path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func loadFileConfig(path string) (fileConfig, error) {
	fc := defaultFileConfig()
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, errors.Wrap(err, "read config")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, errors.Wrapf(err, "parse config %s", path)
	}
	return fc, nil
}

// bindFlags registers the build flags on cmd, storing values in fc.
func bindFlags(cmd *cobra.Command, fc *fileConfig) {
	def := defaultFileConfig()
	f := cmd.PersistentFlags()
	f.StringVarP(&fc.Metric, "metric", "m", def.Metric, "distance metric ("+strings.Join(metric.Names(), ", ")+")")
	f.BoolVar(&fc.PrecomputeHalves, "precompute-halves", false, "compute every square root once before the pairwise loop")
	f.BoolVar(&fc.PrecomputeNegHalves, "precompute-neghalves", false, "compute every inverse square root once before the pairwise loop")
	f.BoolVar(&fc.AssumeSymmetric, "symmetric", false, "compute the lower triangle only and mirror it")
	f.BoolVar(&fc.FastMode, "fast", false, "loosen the Bures radicand tolerance")
	f.Float64Var(&fc.ZeroTol, "zero-tol", def.ZeroTol, "tolerance band around zero for the Bures radicand")
	f.IntVarP(&fc.Workers, "workers", "w", def.Workers, "parallel workers (0 = all CPUs)")
	f.StringVar(&fc.Local, "local", def.Local, "DTW local distance (euclidean, manhattan, chebyshev, abs)")
	f.StringVar(&fc.Store, "store", "", "SQLite database for storing distance matrices")
}

// mergeFlags overlays the flags the user actually set on the file values.
func mergeFlags(cmd *cobra.Command, file, flags fileConfig) fileConfig {
	f := cmd.Flags()
	if f.Changed("metric") {
		file.Metric = flags.Metric
	}
	if f.Changed("precompute-halves") {
		file.PrecomputeHalves = flags.PrecomputeHalves
	}
	if f.Changed("precompute-neghalves") {
		file.PrecomputeNegHalves = flags.PrecomputeNegHalves
	}
	if f.Changed("symmetric") {
		file.AssumeSymmetric = flags.AssumeSymmetric
	}
	if f.Changed("fast") {
		file.FastMode = flags.FastMode
	}
	if f.Changed("zero-tol") {
		file.ZeroTol = flags.ZeroTol
	}
	if f.Changed("workers") {
		file.Workers = flags.Workers
	}
	if f.Changed("local") {
		file.Local = flags.Local
	}
	if f.Changed("store") {
		file.Store = flags.Store
	}
	return file
}

// builderConfig converts the file configuration into a builder configuration.
func (fc fileConfig) builderConfig() (cormat.Config, error) {
	cfg := cormat.DefaultConfig()

	id, err := metric.Parse(fc.Metric)
	if err != nil {
		return cfg, err
	}
	local, ok := dtw.Locals[fc.Local]
	if !ok {
		return cfg, errors.Newf("unknown local distance %q", fc.Local)
	}

	cfg.Metric = id
	cfg.PrecomputeHalves = fc.PrecomputeHalves
	cfg.PrecomputeNegHalves = fc.PrecomputeNegHalves
	cfg.AssumeSymmetric = fc.AssumeSymmetric
	cfg.FastMode = fc.FastMode
	cfg.ZeroTol = fc.ZeroTol
	cfg.NumWorkers = fc.Workers
	cfg.Local = local
	return cfg, nil
}

// params records the build options alongside a stored matrix.
func (fc fileConfig) params() map[string]any {
	p := map[string]any{
		"assume_symmetric": fc.AssumeSymmetric,
		"fast_mode":        fc.FastMode,
		"zero_tol":         fc.ZeroTol,
	}
	if id, err := metric.Parse(fc.Metric); err == nil && id == metric.DTW {
		p["local"] = fc.Local
	}
	return p
}
