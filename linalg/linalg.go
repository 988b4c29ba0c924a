// Package linalg provides the matrix functions the distance metrics are built on:
// fractional powers, inverses and the principal logarithm of square matrices.
//
// All functions go through a Backend. Eigen is the default backend; it evaluates
// matrix functions through an eigendecomposition M = V·diag(λ)·V⁻¹ and applies the
// scalar function to the eigenvalues. Symmetric input takes the symmetric solver
// path, where V⁻¹ = Vᵀ and the eigenvalues are real.
//
// Results are computed in complex arithmetic and returned as a Complex pair. A caller
// that needs a real matrix asks for it through Complex.Real, which checks the
// imaginary part against a tolerance instead of dropping it.
package linalg

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotSquare is returned when a square matrix is required.
	ErrNotSquare = errors.New("linalg: matrix is not square")

	// ErrSingular is returned for inversion or a negative power of a (near-)singular matrix.
	ErrSingular = errors.New("linalg: singular matrix")

	// ErrDomain is returned when a matrix lies outside the domain of the requested
	// function, e.g. an eigenvalue on the branch cut of the logarithm or a real result
	// requested from a matrix with a significant imaginary part.
	ErrDomain = errors.New("linalg: matrix outside function domain")

	// ErrEigenFailed is returned when the eigendecomposition does not converge.
	ErrEigenFailed = errors.New("linalg: eigendecomposition failed")
)

// ImagTol is the relative tolerance used by Sqrt, InvSqrt and Log when discarding
// the imaginary part of a result.
const ImagTol = 1e-8

// Backend evaluates the primitive matrix functions. Implementations must not
// mutate their arguments.
type Backend interface {
	// Power returns m^p.
	Power(m mat.Matrix, p float64) (*Complex, error)
	// Inverse returns m⁻¹.
	Inverse(m mat.Matrix) (*mat.Dense, error)
	// Log returns the principal logarithm of m.
	Log(m mat.Matrix) (*mat.Dense, error)
}

// Complex is a complex matrix stored as its real and imaginary parts.
type Complex struct {
	Re *mat.Dense
	Im *mat.Dense
}

// Real returns the real part of c after checking that the imaginary part is
// negligible: ‖Im‖_F ≤ tol·max(1, ‖Re‖_F).
func (c *Complex) Real(tol float64) (*mat.Dense, error) {
	re := mat.Norm(c.Re, 2)
	im := mat.Norm(c.Im, 2)
	scale := re
	if scale < 1 {
		scale = 1
	}
	if im > tol*scale {
		return nil, errors.Wrapf(ErrDomain, "imaginary part %.3g exceeds tolerance (real part %.3g)", im, re)
	}
	return c.Re, nil
}

// Power returns m^p using the default backend.
func Power(m mat.Matrix, p float64) (*Complex, error) {
	return Eigen{}.Power(m, p)
}

// Inverse returns the inverse of m using the default backend.
func Inverse(m mat.Matrix) (*mat.Dense, error) {
	return Eigen{}.Inverse(m)
}

// Log returns the principal logarithm of m using the default backend.
func Log(m mat.Matrix) (*mat.Dense, error) {
	return Eigen{}.Log(m)
}

// Sqrt returns the principal square root of m using the default backend.
func Sqrt(m mat.Matrix) (*mat.Dense, error) {
	return SqrtWith(Eigen{}, m)
}

// InvSqrt returns the inverse of the principal square root of m using the default backend.
func InvSqrt(m mat.Matrix) (*mat.Dense, error) {
	return InvSqrtWith(Eigen{}, m)
}

// SqrtWith returns the real principal square root of m computed by b.
func SqrtWith(b Backend, m mat.Matrix) (*mat.Dense, error) {
	return realPower(b, m, 0.5)
}

// InvSqrtWith returns m^(-1/2) computed by b.
func InvSqrtWith(b Backend, m mat.Matrix) (*mat.Dense, error) {
	return realPower(b, m, -0.5)
}

func realPower(b Backend, m mat.Matrix, p float64) (*mat.Dense, error) {
	c, err := b.Power(m, p)
	if err != nil {
		return nil, err
	}
	r, err := c.Real(ImagTol)
	if err != nil {
		return nil, errors.Wrapf(err, "power %g", p)
	}
	return r, nil
}

// IsSymmetric reports whether |m[i,j] - m[j,i]| ≤ tol·max(1, max|m|) for all i, j.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}
	scale := 1.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := abs(m.At(i, j)); v > scale {
				scale = v
			}
		}
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if abs(m.At(i, j)-m.At(j, i)) > tol*scale {
				return false
			}
		}
	}
	return true
}

// Symmetrize returns (m + mᵀ)/2.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

func square(m mat.Matrix) (int, error) {
	r, c := m.Dims()
	if r != c || r == 0 {
		return 0, errors.Wrapf(ErrNotSquare, "%dx%d", r, c)
	}
	return r, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
