package linalg

import (
	"math"
	"math/cmplx"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// Eigen is the default Backend. It evaluates matrix functions by applying the scalar
// function to the eigenvalues of the input.
//
// Input that is symmetric within SymTol is symmetrised and decomposed with
// mat.EigenSym. Anything else goes through mat.Eigen and must be diagonalizable.
type Eigen struct {
	// SymTol is the relative tolerance for taking the symmetric path.
	// Default: 1e-8
	SymTol float64

	// ZeroTol is the relative magnitude, against the largest eigenvalue, below
	// which an eigenvalue counts as zero. Its reciprocal bounds the condition
	// number accepted by Inverse.
	// Default: 1e-12
	ZeroTol float64
}

// scalarFunc maps one eigenvalue to f(λ). zero is the threshold below which |λ|
// is treated as exactly zero.
type scalarFunc func(lambda complex128, zero float64) (complex128, error)

// Power returns m^p. A zero eigenvalue raised to a negative power fails with
// ErrSingular. Negative eigenvalues raised to non-integer powers produce an
// imaginary part, which is kept in the result.
func (e Eigen) Power(m mat.Matrix, p float64) (*Complex, error) {
	return e.apply(m, func(lambda complex128, zero float64) (complex128, error) {
		if cmplx.Abs(lambda) <= zero {
			switch {
			case p < 0:
				return 0, errors.Wrapf(ErrSingular, "eigenvalue %.3g raised to %g", cmplx.Abs(lambda), p)
			case p == 0:
				return 1, nil
			default:
				return 0, nil
			}
		}
		if imag(lambda) == 0 && real(lambda) > 0 {
			return complex(math.Pow(real(lambda), p), 0), nil
		}
		return cmplx.Pow(lambda, complex(p, 0)), nil
	})
}

// Log returns the principal logarithm of m. Eigenvalues on the closed negative
// real axis fail with ErrDomain.
func (e Eigen) Log(m mat.Matrix) (*mat.Dense, error) {
	c, err := e.apply(m, func(lambda complex128, zero float64) (complex128, error) {
		if math.Abs(imag(lambda)) <= zero && real(lambda) <= zero {
			return 0, errors.Wrapf(ErrDomain, "logarithm of eigenvalue %.3g", real(lambda))
		}
		if imag(lambda) == 0 {
			return complex(math.Log(real(lambda)), 0), nil
		}
		return cmplx.Log(lambda), nil
	})
	if err != nil {
		return nil, err
	}
	r, err := c.Real(ImagTol)
	if err != nil {
		return nil, errors.Wrap(err, "logarithm")
	}
	return r, nil
}

// Inverse returns m⁻¹. Input whose condition number exceeds 1/ZeroTol fails
// with ErrSingular.
func (e Eigen) Inverse(m mat.Matrix) (*mat.Dense, error) {
	if _, err := square(m); err != nil {
		return nil, err
	}
	var lu mat.LU
	lu.Factorize(m)
	if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) || c > 1/e.zeroTol() {
		return nil, errors.Wrapf(ErrSingular, "condition number %.3g", c)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, errors.Wrapf(ErrSingular, "inverse: %v", err)
	}
	return &inv, nil
}

func (e Eigen) symTol() float64 {
	if e.SymTol > 0 {
		return e.SymTol
	}
	return 1e-8
}

func (e Eigen) zeroTol() float64 {
	if e.ZeroTol > 0 {
		return e.ZeroTol
	}
	return 1e-12
}

func (e Eigen) apply(m mat.Matrix, f scalarFunc) (*Complex, error) {
	n, err := square(m)
	if err != nil {
		return nil, err
	}
	if IsSymmetric(m, e.symTol()) {
		return applySym(m, n, e.zeroTol(), f)
	}
	return applyGeneral(m, n, e.zeroTol(), f)
}

// applySym evaluates V·diag(f(λ))·Vᵀ for symmetric m.
func applySym(m mat.Matrix, n int, tol float64, f scalarFunc) (*Complex, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(Symmetrize(m), true); !ok {
		return nil, errors.Wrap(ErrEigenFailed, "symmetric")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	zero := zeroThreshold(tol, vals)
	re := make([]float64, n)
	im := make([]float64, n)
	for i, l := range vals {
		z, err := f(complex(l, 0), zero)
		if err != nil {
			return nil, err
		}
		re[i], im[i] = real(z), imag(z)
	}
	return &Complex{Re: scaleMulT(&vecs, re), Im: scaleMulT(&vecs, im)}, nil
}

// applyGeneral evaluates V·diag(f(λ))·V⁻¹ using right eigenvectors.
func applyGeneral(m mat.Matrix, n int, tol float64, f scalarFunc) (*Complex, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(m, mat.EigenRight); !ok {
		return nil, errors.Wrap(ErrEigenFailed, "general")
	}
	vals := eig.Values(nil)
	var cv mat.CDense
	eig.VectorsTo(&cv)

	vr := mat.NewDense(n, n, nil)
	vi := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z := cv.At(i, j)
			vr.Set(i, j, real(z))
			vi.Set(i, j, imag(z))
		}
	}
	pr, pi, err := complexInverse(vr, vi)
	if err != nil {
		return nil, err
	}

	mags := make([]float64, n)
	for i, l := range vals {
		mags[i] = cmplx.Abs(l)
	}
	zero := zeroThreshold(tol, mags)
	dr := make([]float64, n)
	di := make([]float64, n)
	for i, l := range vals {
		z, err := f(l, zero)
		if err != nil {
			return nil, err
		}
		dr[i], di[i] = real(z), imag(z)
	}

	// A = V·diag(d), then V·diag(d)·V⁻¹ = A·P.
	ar := mat.NewDense(n, n, nil)
	ai := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			xr, xi := vr.At(i, j), vi.At(i, j)
			ar.Set(i, j, xr*dr[j]-xi*di[j])
			ai.Set(i, j, xr*di[j]+xi*dr[j])
		}
	}
	re, im := complexMul(ar, ai, pr, pi)
	return &Complex{Re: re, Im: im}, nil
}

// complexInverse inverts X + iY through the real embedding [[X, -Y], [Y, X]],
// whose inverse is [[P, -Q], [Q, P]] with (X + iY)⁻¹ = P + iQ.
func complexInverse(x, y *mat.Dense) (p, q *mat.Dense, err error) {
	n, _ := x.Dims()
	e := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e.Set(i, j, x.At(i, j))
			e.Set(i, j+n, -y.At(i, j))
			e.Set(i+n, j, y.At(i, j))
			e.Set(i+n, j+n, x.At(i, j))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(e); err != nil {
		return nil, nil, errors.Wrapf(ErrDomain, "matrix is not diagonalizable: %v", err)
	}
	p = mat.DenseCopyOf(inv.Slice(0, n, 0, n))
	q = mat.DenseCopyOf(inv.Slice(n, 2*n, 0, n))
	return p, q, nil
}

// complexMul returns (ar + i·ai)(br + i·bi).
func complexMul(ar, ai, br, bi *mat.Dense) (re, im *mat.Dense) {
	var t1, t2, t3, t4 mat.Dense
	t1.Mul(ar, br)
	t2.Mul(ai, bi)
	t3.Mul(ar, bi)
	t4.Mul(ai, br)
	re, im = new(mat.Dense), new(mat.Dense)
	re.Sub(&t1, &t2)
	im.Add(&t3, &t4)
	return re, im
}

// scaleMulT returns V·diag(d)·Vᵀ.
func scaleMulT(v *mat.Dense, d []float64) *mat.Dense {
	var scaled mat.Dense
	scaled.Apply(func(_, j int, x float64) float64 { return x * d[j] }, v)
	var out mat.Dense
	out.Mul(&scaled, v.T())
	return &out
}

// zeroThreshold is tol·max|λ|, the magnitude below which an eigenvalue is
// treated as zero.
func zeroThreshold(tol float64, vals []float64) float64 {
	var largest float64
	for _, v := range vals {
		if a := math.Abs(v); a > largest {
			largest = a
		}
	}
	return tol * largest
}
