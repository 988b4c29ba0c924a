// Package cormat builds pairwise distance matrices over collections of
// symmetric positive (semi-)definite matrices, typically correlation matrices
// of multivariate time series, or over the time series themselves via dynamic
// time warping.
//
// The metrics live in package metric, the matrix functions they rely on in
// package linalg and the alignment engine in package dtw. This package
// orchestrates them: it computes per-item decorations (square roots and their
// inverses) once, evaluates the chosen metric for every pair, optionally only
// over the lower triangle, and applies the numerical tolerance policy.
//
// Basic usage:
//
//	config := cormat.DefaultConfig()
//	config.Metric = metric.BuresWasserstein
//	config.PrecomputeHalves = true
//	config.AssumeSymmetric = true
//	dists, err := cormat.New(config).Build(matrices)
package cormat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/dtw"
	"github.com/nozzle/cormat/internal/parallel"
	"github.com/nozzle/cormat/linalg"
	"github.com/nozzle/cormat/metric"
	"gonum.org/v1/gonum/mat"
)

// ErrConfiguration is returned when a requested optimization lacks what it needs.
var ErrConfiguration = errors.New("cormat: invalid configuration")

// Config configures a pairwise distance build.
type Config struct {
	// Metric is the distance to evaluate.
	// Default: metric.Euclidean
	Metric metric.ID

	// PrecomputeHalves computes every item's square root once before the
	// pairwise loop instead of once per pair.
	// Default: false
	PrecomputeHalves bool

	// PrecomputeNegHalves computes every item's inverse square root once, as the
	// inverse of its square root.
	// Default: false
	PrecomputeNegHalves bool

	// Halves optionally supplies square roots computed by the caller, one per
	// item. Used whenever present.
	Halves []mat.Matrix

	// NegHalves optionally supplies inverse square roots, one per item.
	NegHalves []mat.Matrix

	// AssumeSymmetric computes only the lower triangle and mirrors it. The caller
	// is responsible for the metric actually being symmetric: an asymmetric metric
	// under this flag silently corrupts the upper triangle.
	// Default: false
	AssumeSymmetric bool

	// FastMode loosens the Bures radicand tolerance. It tolerates larger rounding
	// error and can mask genuine computation errors.
	// Default: false
	FastMode bool

	// ZeroTol is the tolerance band around zero for the Bures radicand.
	// Default: 1e-10
	ZeroTol float64

	// Local is the feature distance used by the DTW metric.
	// Default: dtw.Euclidean
	Local dtw.LocalFunc

	// Backend evaluates matrix functions for decorations and metrics.
	// Default: linalg.Eigen{}
	Backend linalg.Backend

	// NumWorkers for parallel row evaluation.
	// 0 = auto-detect based on CPU cores.
	// Default: 1
	NumWorkers int

	// Verbose enables progress logging through Logger.
	// Default: false
	Verbose bool

	// Logger receives progress lines when Verbose is set.
	// Default: nil
	Logger *log.Logger

	// ProgressCallback is called after each finished row with (rowsDone, totalRows).
	// Calls are serialized.
	// Default: nil
	ProgressCallback func(done, total int)
}

// DefaultConfig returns the default build configuration.
func DefaultConfig() Config {
	return Config{
		Metric:     metric.Euclidean,
		ZeroTol:    metric.DefaultZeroTol,
		Local:      dtw.Euclidean,
		Backend:    linalg.Eigen{},
		NumWorkers: 1,
	}
}

// Builder computes pairwise distance matrices.
type Builder struct {
	Config Config
}

// New creates a Builder with the given configuration.
func New(config Config) *Builder {
	return &Builder{Config: config}
}

// DecorationSet holds per-item decorations. Either slice may be nil.
type DecorationSet struct {
	Halves    []mat.Matrix
	NegHalves []mat.Matrix
}

// bundle returns the decorations for the pair (i, j).
func (s *DecorationSet) bundle(i, j int) metric.Decorations {
	var d metric.Decorations
	if s.Halves != nil {
		d.AHalf = s.Halves[i]
		d.BHalf = s.Halves[j]
	}
	if s.NegHalves != nil {
		d.ANegHalf = s.NegHalves[i]
	}
	return d
}

// Build computes the N×N distance matrix of items. See BuildContext.
func (b *Builder) Build(items []mat.Matrix) (*mat.Dense, error) {
	return b.BuildContext(context.Background(), items)
}

// BuildContext computes the N×N distance matrix of items. The diagonal is zero.
// The first failing pair aborts the build and no partial matrix is returned.
// ctx is checked between rows.
func (b *Builder) BuildContext(ctx context.Context, items []mat.Matrix) (*mat.Dense, error) {
	cfg := b.Config
	start := time.Now()

	fn, err := metric.Get(cfg.Metric, b.metricOptions())
	if err != nil {
		return nil, err
	}
	dec, err := b.DecorateContext(ctx, items)
	if err != nil {
		return nil, err
	}

	n := len(items)
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, n, nil)

	var (
		done atomic.Int64
		mu   sync.Mutex
	)
	workers := parallel.Workers(cfg.NumWorkers)
	err = parallel.For(ctx, 0, n, workers, func(i int) error {
		upper := n
		if cfg.AssumeSymmetric {
			upper = i + 1
		}
		for j := 0; j < upper; j++ {
			d, err := fn(items[i], items[j], dec.bundle(i, j))
			if err != nil {
				return errors.Wrapf(err, "%s distance at cell (%d, %d)", cfg.Metric, i, j)
			}
			if i == j {
				d = 0
			}
			out.Set(i, j, d)
			if cfg.AssumeSymmetric {
				out.Set(j, i, d)
			}
		}

		row := int(done.Add(1))
		mu.Lock()
		b.progress(row, n)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cfg.Verbose && cfg.Logger != nil {
		cfg.Logger.Info("pairwise distances computed",
			"metric", cfg.Metric, "n", n, "symmetric", cfg.AssumeSymmetric,
			"elapsed", time.Since(start).Round(time.Millisecond))
	}
	return out, nil
}

// Decorate validates the decoration settings and returns the decorations the
// build would use. See DecorateContext.
func (b *Builder) Decorate(items []mat.Matrix) (*DecorationSet, error) {
	return b.DecorateContext(context.Background(), items)
}

// DecorateContext validates the decoration settings and computes the requested
// decorations, each exactly once per item. Caller-supplied Halves and NegHalves
// are passed through.
func (b *Builder) DecorateContext(ctx context.Context, items []mat.Matrix) (*DecorationSet, error) {
	cfg := b.Config
	info, err := metric.Lookup(cfg.Metric)
	if err != nil {
		return nil, err
	}
	n := len(items)
	if cfg.Halves != nil && len(cfg.Halves) != n {
		return nil, errors.Wrapf(ErrConfiguration, "%d halves supplied for %d items", len(cfg.Halves), n)
	}
	if cfg.NegHalves != nil && len(cfg.NegHalves) != n {
		return nil, errors.Wrapf(ErrConfiguration, "%d neg-halves supplied for %d items", len(cfg.NegHalves), n)
	}

	set := &DecorationSet{Halves: cfg.Halves, NegHalves: cfg.NegHalves}
	if !cfg.PrecomputeHalves && !cfg.PrecomputeNegHalves {
		return set, nil
	}
	if !info.UsesHalves && !info.UsesNegHalves {
		return nil, errors.Wrapf(ErrConfiguration, "metric %s takes no decorations", cfg.Metric)
	}
	if cfg.Backend == nil {
		return nil, errors.Wrap(ErrConfiguration, "decorations requested without a backend")
	}

	workers := parallel.Workers(cfg.NumWorkers)
	needHalves := cfg.PrecomputeHalves || (cfg.PrecomputeNegHalves && set.NegHalves == nil)
	if set.Halves == nil && needHalves {
		set.Halves, err = parallel.Map(ctx, 0, n, workers, func(i int) (mat.Matrix, error) {
			h, err := linalg.SqrtWith(cfg.Backend, items[i])
			if err != nil {
				return nil, errors.Wrapf(err, "square root of item %d", i)
			}
			return h, nil
		})
		if err != nil {
			return nil, err
		}
	}
	if set.NegHalves == nil && cfg.PrecomputeNegHalves {
		set.NegHalves, err = parallel.Map(ctx, 0, n, workers, func(i int) (mat.Matrix, error) {
			inv, err := cfg.Backend.Inverse(set.Halves[i])
			if err != nil {
				return nil, errors.Wrapf(err, "inverse square root of item %d", i)
			}
			return inv, nil
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Verbose && cfg.Logger != nil {
		cfg.Logger.Debug("decorations ready",
			"metric", cfg.Metric, "halves", set.Halves != nil, "neg_halves", set.NegHalves != nil)
	}
	return set, nil
}

func (b *Builder) metricOptions() metric.Options {
	return metric.Options{
		ZeroTol:  b.Config.ZeroTol,
		FastMode: b.Config.FastMode,
		Backend:  b.Config.Backend,
		Local:    b.Config.Local,
	}
}

// progress reports a finished row. Callers serialize it.
func (b *Builder) progress(done, total int) {
	cfg := b.Config
	if cfg.ProgressCallback != nil {
		cfg.ProgressCallback(done, total)
	}
	if cfg.Verbose && cfg.Logger != nil && (done%10 == 0 || done == total) {
		cfg.Logger.Debug("pairwise progress", "rows", done, "total", total, "metric", cfg.Metric)
	}
}
