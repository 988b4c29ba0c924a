// Package series prepares raw multivariate time series for the distance
// metrics: windowing, resampling and conversion to correlation matrices.
//
// Two layouts appear here. Correlation, Clip and ClippedCorrelation take
// variables as rows and samples as columns, the usual layout for regional
// signals. Reinterpolate treats the first axis (rows) as time, matching the
// sequence layout package dtw expects.
package series

import (
	"math"
	"math/cmplx"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/linalg"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrShape is returned when a series is too small for the requested operation.
	ErrShape = errors.New("series: invalid shape")

	// ErrConstant is returned when a variable has zero variance, leaving its
	// correlations undefined.
	ErrConstant = errors.New("series: constant variable")
)

// DefaultRankTol is the default eigenvalue magnitude threshold of NumericalRank.
const DefaultRankTol = 1e-13

// DefaultRows is the default number of leading variables kept by LeadingBlock.
const DefaultRows = 90

// ClipOptions selects a time window.
type ClipOptions struct {
	// SampleRate in samples per unit time.
	// Default: 0.5
	SampleRate float64
	// Leading is the duration dropped from the start.
	// Default: 30
	Leading float64
	// Duration is the length of the window kept.
	// Default: 300
	Duration float64
}

// DefaultClipOptions returns the default window: 30 time units dropped, the next
// 300 kept, at 0.5 samples per unit.
func DefaultClipOptions() ClipOptions {
	return ClipOptions{SampleRate: 0.5, Leading: 30, Duration: 300}
}

// Correlation returns the Pearson correlation matrix of ts, whose rows are
// variables and columns samples. The result is symmetrised to remove rounding
// asymmetry.
func Correlation(ts mat.Matrix) (*mat.SymDense, error) {
	r, c := ts.Dims()
	if r == 0 || c < 2 {
		return nil, errors.Wrapf(ErrShape, "%d variables x %d samples", r, c)
	}
	for i := 0; i < r; i++ {
		if v := stat.Variance(mat.Row(nil, i, ts), nil); v == 0 || math.IsNaN(v) {
			return nil, errors.Wrapf(ErrConstant, "variable %d", i)
		}
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, ts.T(), nil)
	return linalg.Symmetrize(&corr), nil
}

// NumericalRank returns the number of eigenvalues of m whose magnitude exceeds tol.
func NumericalRank(m mat.Matrix, tol float64) (int, error) {
	r, c := m.Dims()
	if r != c {
		return 0, errors.Wrapf(linalg.ErrNotSquare, "%dx%d", r, c)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenNone); !ok {
		return 0, linalg.ErrEigenFailed
	}
	rank := 0
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) > tol {
			rank++
		}
	}
	return rank, nil
}

// Clip returns the columns of ts inside the window described by opts. The window
// is cut short at the end of the series.
func Clip(ts mat.Matrix, opts ClipOptions) (*mat.Dense, error) {
	r, c := ts.Dims()
	start := int(opts.Leading * opts.SampleRate)
	keep := int(opts.Duration * opts.SampleRate)
	end := start + keep
	if end > c {
		end = c
	}
	if start < 0 || keep <= 0 || start >= end {
		return nil, errors.Wrapf(ErrShape, "window [%d, %d) of %d samples", start, start+keep, c)
	}
	src := mat.DenseCopyOf(ts)
	return mat.DenseCopyOf(src.Slice(0, r, start, end)), nil
}

// LeadingBlock returns the top-left k×k block of m, or all of m when it is smaller.
func LeadingBlock(m mat.Matrix, k int) (*mat.Dense, error) {
	r, c := m.Dims()
	if k <= 0 {
		return nil, errors.Wrapf(ErrShape, "block size %d", k)
	}
	rows, cols := min(k, r), min(k, c)
	src := mat.DenseCopyOf(m)
	return mat.DenseCopyOf(src.Slice(0, rows, 0, cols)), nil
}

// PrepOptions configures ClippedCorrelation.
type PrepOptions struct {
	// KeepAll skips row selection and clipping.
	KeepAll bool
	// Rows is the number of leading variables kept.
	// Default: 90
	Rows int
	// Clip selects the time window.
	Clip ClipOptions
}

// DefaultPrepOptions returns the defaults for ClippedCorrelation.
func DefaultPrepOptions() PrepOptions {
	return PrepOptions{KeepAll: true, Rows: DefaultRows, Clip: DefaultClipOptions()}
}

// ClippedCorrelation returns the correlation matrix of ts, optionally restricted to
// the first opts.Rows variables and the opts.Clip window.
func ClippedCorrelation(ts mat.Matrix, opts PrepOptions) (*mat.SymDense, error) {
	if opts.KeepAll {
		return Correlation(ts)
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = DefaultRows
	}
	top, err := leadingRows(ts, rows)
	if err != nil {
		return nil, err
	}
	clipped, err := Clip(top, opts.Clip)
	if err != nil {
		return nil, err
	}
	return Correlation(clipped)
}

// Reinterpolate resamples ts along its first axis at n evenly spaced points using
// piecewise linear interpolation. ts is returned as a copy when it already has
// n rows.
func Reinterpolate(ts mat.Matrix, n int) (*mat.Dense, error) {
	r, c := ts.Dims()
	if r == 0 || c == 0 || n <= 0 {
		return nil, errors.Wrapf(ErrShape, "resample %dx%d to %d rows", r, c, n)
	}
	if r == n {
		return mat.DenseCopyOf(ts), nil
	}

	out := mat.NewDense(n, c, nil)
	if r == 1 {
		for i := 0; i < n; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, j, ts.At(0, j))
			}
		}
		return out, nil
	}

	xs := floats.Span(make([]float64, r), 0, float64(r-1))
	xnew := []float64{0}
	if n > 1 {
		xnew = floats.Span(make([]float64, n), 0, float64(r-1))
	}
	for j := 0; j < c; j++ {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, mat.Col(nil, j, ts)); err != nil {
			return nil, errors.Wrapf(err, "column %d", j)
		}
		for i, x := range xnew {
			out.Set(i, j, pl.Predict(x))
		}
	}
	return out, nil
}

func leadingRows(ts mat.Matrix, k int) (*mat.Dense, error) {
	r, c := ts.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrapf(ErrShape, "%dx%d", r, c)
	}
	src := mat.DenseCopyOf(ts)
	return mat.DenseCopyOf(src.Slice(0, min(k, r), 0, c)), nil
}
