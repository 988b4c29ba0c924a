package metric

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/linalg"
	"gonum.org/v1/gonum/mat"
)

// traceTol bounds |tr - 1| for the density-matrix normalization BuresAngle needs.
const traceTol = 1e-8

// RootFidelity returns the sum of the singular values of A^(1/2)·B^(1/2), which
// equals tr((A^(1/2)·B·A^(1/2))^(1/2)). Decorated halves are used when present.
func RootFidelity(a, b mat.Matrix, dec Decorations, opts Options) (float64, error) {
	if _, err := sameSquare(a, b); err != nil {
		return 0, err
	}
	be := opts.backend()

	ah := dec.AHalf
	if ah == nil {
		s, err := linalg.SqrtWith(be, a)
		if err != nil {
			return 0, errors.Wrap(err, "square root of A")
		}
		ah = s
	}
	bh := dec.BHalf
	if bh == nil {
		s, err := linalg.SqrtWith(be, b)
		if err != nil {
			return 0, errors.Wrap(err, "square root of B")
		}
		bh = s
	}

	var p mat.Dense
	p.Mul(ah, bh)
	var svd mat.SVD
	if ok := svd.Factorize(&p, mat.SVDNone); !ok {
		return 0, errors.Wrap(linalg.ErrEigenFailed, "singular values of A^1/2·B^1/2")
	}
	var sum float64
	for _, s := range svd.Values(nil) {
		sum += s
	}
	return sum, nil
}

// BuresWassersteinDistance returns sqrt(tr A + tr B - 2·RootFidelity(A, B)).
//
// The radicand is 0 in exact arithmetic when A = B. Values within ZeroTol of
// zero return 0. In fast mode, negative values down to -1e6·ZeroTol also return
// 0. Anything more negative fails with ErrInvalidValue.
func BuresWassersteinDistance(a, b mat.Matrix, dec Decorations, opts Options) (float64, error) {
	f, err := RootFidelity(a, b, dec, opts)
	if err != nil {
		return 0, err
	}
	val := mat.Trace(a) + mat.Trace(b) - 2*f
	return buresRoot(val, opts)
}

func buresRoot(val float64, opts Options) (float64, error) {
	tol := opts.zeroTol()
	switch {
	case val > tol:
		return math.Sqrt(val), nil
	case math.Abs(val) <= tol:
		return 0, nil
	case opts.FastMode && math.Abs(val) < fastModeFactor*tol:
		return 0, nil
	default:
		return 0, errors.Wrapf(ErrInvalidValue, "bures radicand %.3g below tolerance %.3g", val, tol)
	}
}

// BuresAngleDistance returns arccos(RootFidelity(A, B)) with the fidelity clamped
// to [0, 1]. Both inputs must have unit trace; otherwise it fails with
// linalg.ErrDomain (see Normalize).
func BuresAngleDistance(a, b mat.Matrix, dec Decorations, opts Options) (float64, error) {
	if _, err := sameSquare(a, b); err != nil {
		return 0, err
	}
	if ta, tb := mat.Trace(a), mat.Trace(b); math.Abs(ta-1) > traceTol || math.Abs(tb-1) > traceTol {
		return 0, errors.Wrapf(linalg.ErrDomain, "bures angle needs unit trace, got %.6g and %.6g", ta, tb)
	}
	f, err := RootFidelity(a, b, dec, opts)
	if err != nil {
		return 0, err
	}
	return math.Acos(math.Min(1, math.Max(0, f))), nil
}

// Normalize returns m / tr(m), the density-matrix form BuresAngle expects.
func Normalize(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%dx%d is not square", r, c)
	}
	tr := mat.Trace(m)
	if tr <= 0 {
		return nil, errors.Wrapf(linalg.ErrDomain, "trace %.3g is not positive", tr)
	}
	var out mat.Dense
	out.Scale(1/tr, m)
	return &out, nil
}
