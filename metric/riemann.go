package metric

import (
	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/linalg"
	"gonum.org/v1/gonum/mat"
)

// AffineInvariantDistance returns ‖log(A^(-1/2)·B·A^(-1/2))‖_F. Both inputs must be
// SPD. A^(-1/2) comes from dec.ANegHalf, else the inverse of dec.AHalf, else it is
// computed from A. A singular A fails with linalg.ErrSingular.
func AffineInvariantDistance(a, b mat.Matrix, dec Decorations, opts Options) (float64, error) {
	if _, err := sameSquare(a, b); err != nil {
		return 0, err
	}
	be := opts.backend()

	neg := dec.ANegHalf
	switch {
	case neg != nil:
	case dec.AHalf != nil:
		inv, err := be.Inverse(dec.AHalf)
		if err != nil {
			return 0, errors.Wrap(err, "inverse of A^1/2")
		}
		neg = inv
	default:
		inv, err := linalg.InvSqrtWith(be, a)
		if err != nil {
			return 0, errors.Wrap(err, "A^-1/2")
		}
		neg = inv
	}

	var left, inner mat.Dense
	left.Mul(neg, b)
	inner.Mul(&left, neg)
	l, err := be.Log(&inner)
	if err != nil {
		return 0, errors.Wrap(err, "log of A^-1/2·B·A^-1/2")
	}
	return mat.Norm(l, 2), nil
}

// LogEuclideanDistance returns ‖log A - log B‖_F. Both inputs must be SPD.
func LogEuclideanDistance(a, b mat.Matrix, opts Options) (float64, error) {
	if _, err := sameSquare(a, b); err != nil {
		return 0, err
	}
	be := opts.backend()
	la, err := be.Log(a)
	if err != nil {
		return 0, errors.Wrap(err, "log of A")
	}
	lb, err := be.Log(b)
	if err != nil {
		return 0, errors.Wrap(err, "log of B")
	}
	var d mat.Dense
	d.Sub(la, lb)
	return mat.Norm(&d, 2), nil
}
