package linalg

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// spd returns a fixed 3x3 symmetric positive-definite matrix.
func spd() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 2,
	})
}

func assertMatEqual(t *testing.T, want, got mat.Matrix, tol float64) {
	t.Helper()
	if !mat.EqualApprox(want, got, tol) {
		t.Errorf("matrices differ\nwant:\n%v\ngot:\n%v", mat.Formatted(want), mat.Formatted(got))
	}
}

func TestSqrtRoundTrip(t *testing.T) {
	m := spd()
	half, err := Sqrt(m)
	require.NoError(t, err)

	c, err := Power(half, 2)
	require.NoError(t, err)
	back, err := c.Real(ImagTol)
	require.NoError(t, err)
	assertMatEqual(t, m, back, 1e-10)

	var sq mat.Dense
	sq.Mul(half, half)
	assertMatEqual(t, m, &sq, 1e-10)
}

func TestInvSqrt(t *testing.T) {
	m := spd()
	neg, err := InvSqrt(m)
	require.NoError(t, err)

	var left, prod mat.Dense
	left.Mul(neg, m)
	prod.Mul(&left, neg)
	assertMatEqual(t, eye(3), &prod, 1e-10)
}

func TestInvSqrtSingular(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	_, err := InvSqrt(m)
	assert.True(t, errors.Is(err, ErrSingular), "got %v", err)
}

func TestInverse(t *testing.T) {
	m := spd()
	inv, err := Inverse(m)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(m, inv)
	assertMatEqual(t, eye(3), &prod, 1e-12)

	_, err = Inverse(mat.NewDense(2, 2, []float64{1, 2, 2, 4}))
	assert.True(t, errors.Is(err, ErrSingular), "got %v", err)
}

func TestLogDiagonal(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{math.E, 0, 0, math.E * math.E})
	l, err := Log(m)
	require.NoError(t, err)
	assertMatEqual(t, mat.NewDense(2, 2, []float64{1, 0, 0, 2}), l, 1e-12)
}

func TestLogIdentityIsZero(t *testing.T) {
	l, err := Log(eye(4))
	require.NoError(t, err)
	assert.InDelta(t, 0, mat.Norm(l, 2), 1e-14)
}

func TestLogDomain(t *testing.T) {
	tests := []struct {
		name string
		m    *mat.Dense
	}{
		{"negative eigenvalue", mat.NewDense(2, 2, []float64{-1, 0, 0, 2})},
		{"zero eigenvalue", mat.NewDense(2, 2, []float64{1, 1, 1, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Log(tt.m)
			assert.True(t, errors.Is(err, ErrDomain), "got %v", err)
		})
	}
}

func TestPowerNonSymmetric(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{2, 1, 0, 3})
	c, err := Power(m, 2)
	require.NoError(t, err)
	got, err := c.Real(ImagTol)
	require.NoError(t, err)

	var want mat.Dense
	want.Mul(m, m)
	assertMatEqual(t, &want, got, 1e-10)
}

func TestPowerComplexEigenvalues(t *testing.T) {
	// Rotation by 90 degrees: eigenvalues ±i, square is -I.
	r := mat.NewDense(2, 2, []float64{0, -1, 1, 0})
	c, err := Power(r, 2)
	require.NoError(t, err)
	got, err := c.Real(ImagTol)
	require.NoError(t, err)
	assertMatEqual(t, mat.NewDense(2, 2, []float64{-1, 0, 0, -1}), got, 1e-10)
}

func TestPowerNegativeEigenvalueIsComplex(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{-1, 0, 0, 4})
	c, err := Power(m, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1, c.Im.At(0, 0), 1e-12)
	assert.InDelta(t, 2, c.Re.At(1, 1), 1e-12)

	_, err = c.Real(ImagTol)
	assert.True(t, errors.Is(err, ErrDomain), "got %v", err)
}

func TestPowerZeroEigenvalueNonNegative(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	half, err := Sqrt(m)
	require.NoError(t, err)

	var sq mat.Dense
	sq.Mul(half, half)
	assertMatEqual(t, m, &sq, 1e-10)
}

func TestNotSquare(t *testing.T) {
	m := mat.NewDense(2, 3, nil)
	_, err := Power(m, 0.5)
	assert.True(t, errors.Is(err, ErrNotSquare))
	_, err = Inverse(m)
	assert.True(t, errors.Is(err, ErrNotSquare))
	_, err = Log(m)
	assert.True(t, errors.Is(err, ErrNotSquare))
}

func TestInputNotMutated(t *testing.T) {
	m := spd()
	orig := mat.DenseCopyOf(m)
	_, err := Sqrt(m)
	require.NoError(t, err)
	_, err = Log(m)
	require.NoError(t, err)
	assert.True(t, mat.Equal(orig, m))
}

func TestIsSymmetric(t *testing.T) {
	assert.True(t, IsSymmetric(spd(), 1e-12))
	assert.False(t, IsSymmetric(mat.NewDense(2, 2, []float64{1, 2, 3, 4}), 1e-12))
	assert.False(t, IsSymmetric(mat.NewDense(2, 3, nil), 1e-12))
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func BenchmarkSqrt(b *testing.B) {
	n := 40
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, 1/float64(1+i+j))
		}
		m.Set(i, i, m.At(i, i)+1)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Sqrt(m)
	}
}

func TestEmptyMatrixRejected(t *testing.T) {
	empty := &mat.Dense{}

	_, err := Power(empty, 0.5)
	assert.True(t, errors.Is(err, ErrNotSquare), "power: %v", err)
	_, err = Sqrt(empty)
	assert.True(t, errors.Is(err, ErrNotSquare), "sqrt: %v", err)
	_, err = Inverse(empty)
	assert.True(t, errors.Is(err, ErrNotSquare), "inverse: %v", err)
	_, err = Log(empty)
	assert.True(t, errors.Is(err, ErrNotSquare), "log: %v", err)
}
