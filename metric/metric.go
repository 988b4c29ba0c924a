// Package metric provides distances between symmetric positive (semi-)definite
// matrices and, through DTW, between sequences.
//
// Every metric shares one calling convention, Func, which takes an optional
// Decorations bundle of precomputed square roots. Metrics use whichever
// decorations are present and compute the rest on demand, so the bundle only
// saves work inside pairwise loops and never changes a result.
//
// Metrics are selected from a closed set of IDs:
//
//	fn, err := metric.Get(metric.BuresWasserstein, metric.DefaultOptions())
//	d, err := fn(a, b, metric.Decorations{})
package metric

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/dtw"
	"github.com/nozzle/cormat/linalg"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidValue is returned when a quantity that must be non-negative comes
	// out meaningfully negative. It signals a numerical breakdown, not a zero distance.
	ErrInvalidValue = errors.New("metric: invalid value")

	// ErrUnimplemented is returned for a metric name or ID with no implementation.
	ErrUnimplemented = errors.New("metric: not implemented")

	// ErrDimensionMismatch is returned when the operands do not have the same square shape.
	ErrDimensionMismatch = errors.New("metric: dimension mismatch")
)

// ID identifies a metric.
type ID int

const (
	// Euclidean is the Frobenius norm of A - B.
	Euclidean ID = iota
	// BuresWasserstein is sqrt(tr A + tr B - 2·F(A, B)) with F the root fidelity.
	BuresWasserstein
	// BuresAngle is arccos F(A, B) for trace-one matrices.
	BuresAngle
	// AffineInvariant is ‖log(A^-1/2·B·A^-1/2)‖_F for SPD matrices.
	AffineInvariant
	// LogEuclidean is ‖log A - log B‖_F for SPD matrices.
	LogEuclidean
	// DTW is the dynamic time warping cost between two sequences.
	DTW
)

// DefaultZeroTol is the default magnitude below which a radicand counts as zero.
const DefaultZeroTol = 1e-10

// fastModeFactor widens the zero band in fast mode.
const fastModeFactor = 1e6

// Info describes a metric.
type Info struct {
	ID      ID
	Name    string
	Aliases []string

	// UsesHalves is true when the metric reads Decorations.AHalf or BHalf.
	UsesHalves bool
	// UsesNegHalves is true when the metric reads Decorations.ANegHalf.
	UsesNegHalves bool
	// Sequences is true when the operands are sequences rather than square matrices.
	Sequences bool
	// Symmetric is true when metric(A, B) = metric(B, A) up to rounding.
	Symmetric bool
}

var infos = map[ID]Info{
	Euclidean: {
		ID: Euclidean, Name: "euclidean", Aliases: []string{"frobenius"},
		Symmetric: true,
	},
	BuresWasserstein: {
		ID: BuresWasserstein, Name: "bures-wasserstein", Aliases: []string{"bures"},
		UsesHalves: true, Symmetric: true,
	},
	BuresAngle: {
		ID: BuresAngle, Name: "bures-angle",
		UsesHalves: true, Symmetric: true,
	},
	AffineInvariant: {
		ID: AffineInvariant, Name: "affine-invariant", Aliases: []string{"airm"},
		UsesHalves: true, UsesNegHalves: true, Symmetric: true,
	},
	LogEuclidean: {
		ID: LogEuclidean, Name: "log-euclidean", Aliases: []string{"log-frobenius"},
		Symmetric: true,
	},
	DTW: {
		ID: DTW, Name: "dtw", Aliases: []string{"dynamic-time-warping"},
		Sequences: true, Symmetric: true,
	},
}

var byName = func() map[string]ID {
	m := make(map[string]ID)
	for id, info := range infos {
		m[info.Name] = id
		for _, a := range info.Aliases {
			m[a] = id
		}
	}
	return m
}()

// String returns the canonical name of id.
func (id ID) String() string {
	if info, ok := infos[id]; ok {
		return info.Name
	}
	return "metric(" + strconv.Itoa(int(id)) + ")"
}

// Parse returns the ID for a metric name or alias. Matching ignores case and
// treats underscores as dashes.
func Parse(name string) (ID, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if id, ok := byName[key]; ok {
		return id, nil
	}
	return 0, errors.Wrapf(ErrUnimplemented, "%q", name)
}

// Names returns the canonical metric names in ID order.
func Names() []string {
	ids := make([]int, 0, len(infos))
	for id := range infos {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = infos[ID(id)].Name
	}
	return out
}

// Lookup returns the description of id.
func Lookup(id ID) (Info, error) {
	info, ok := infos[id]
	if !ok {
		return Info{}, errors.Wrapf(ErrUnimplemented, "%s", id)
	}
	return info, nil
}

// Decorations carries optional precomputed matrices for a metric call. Nil
// fields are computed on demand. Decorations are never mutated.
type Decorations struct {
	// AHalf is A^(1/2).
	AHalf mat.Matrix
	// BHalf is B^(1/2).
	BHalf mat.Matrix
	// ANegHalf is A^(-1/2).
	ANegHalf mat.Matrix
}

// Options configures metric evaluation.
type Options struct {
	// ZeroTol is the tolerance band around zero for the Bures radicand.
	// Default: 1e-10
	ZeroTol float64

	// FastMode also treats a negative radicand as zero when its magnitude is
	// below 1e6·ZeroTol. It tolerates more rounding error and can mask genuine
	// computation errors.
	FastMode bool

	// Backend evaluates matrix functions.
	// Default: linalg.Eigen{}
	Backend linalg.Backend

	// Local is the DTW feature distance.
	// Default: dtw.Euclidean
	Local dtw.LocalFunc
}

// DefaultOptions returns the default metric options.
func DefaultOptions() Options {
	return Options{
		ZeroTol: DefaultZeroTol,
		Backend: linalg.Eigen{},
		Local:   dtw.Euclidean,
	}
}

func (o Options) zeroTol() float64 {
	if o.ZeroTol > 0 {
		return o.ZeroTol
	}
	return DefaultZeroTol
}

func (o Options) backend() linalg.Backend {
	if o.Backend != nil {
		return o.Backend
	}
	return linalg.Eigen{}
}

// Func is the common metric signature.
type Func func(a, b mat.Matrix, dec Decorations) (float64, error)

var table = map[ID]func(o Options) Func{
	Euclidean: func(Options) Func {
		return func(a, b mat.Matrix, _ Decorations) (float64, error) {
			return EuclideanDistance(a, b)
		}
	},
	BuresWasserstein: func(o Options) Func {
		return func(a, b mat.Matrix, dec Decorations) (float64, error) {
			return BuresWassersteinDistance(a, b, dec, o)
		}
	},
	BuresAngle: func(o Options) Func {
		return func(a, b mat.Matrix, dec Decorations) (float64, error) {
			return BuresAngleDistance(a, b, dec, o)
		}
	},
	AffineInvariant: func(o Options) Func {
		return func(a, b mat.Matrix, dec Decorations) (float64, error) {
			return AffineInvariantDistance(a, b, dec, o)
		}
	},
	LogEuclidean: func(o Options) Func {
		return func(a, b mat.Matrix, _ Decorations) (float64, error) {
			return LogEuclideanDistance(a, b, o)
		}
	},
	DTW: func(o Options) Func {
		return func(a, b mat.Matrix, _ Decorations) (float64, error) {
			return DTWDistance(a, b, o.Local)
		}
	},
}

// Get returns the metric function for id bound to opts.
func Get(id ID, opts Options) (Func, error) {
	if _, err := Lookup(id); err != nil {
		return nil, err
	}
	mk, ok := table[id]
	if !ok {
		return nil, errors.AssertionFailedf("metric %s has no implementation", id)
	}
	return mk(opts), nil
}

// DTWDistance returns the DTW cost between sequences a and b, whose rows are
// feature vectors. A nil local uses dtw.Euclidean.
func DTWDistance(a, b mat.Matrix, local dtw.LocalFunc) (float64, error) {
	return dtw.Distance(a, b, local)
}

// sameSquare checks that a and b are square with the same size.
func sameSquare(a, b mat.Matrix) (int, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != ac || br != bc || ar != br || ar == 0 {
		return 0, errors.Wrapf(ErrDimensionMismatch, "%dx%d vs %dx%d", ar, ac, br, bc)
	}
	return ar, nil
}
