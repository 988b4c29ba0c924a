package metric

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/dtw"
	"github.com/nozzle/cormat/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func diag(vals ...float64) *mat.Dense {
	n := len(vals)
	m := mat.NewDense(n, n, nil)
	for i, v := range vals {
		m.Set(i, i, v)
	}
	return m
}

// spdA and spdB are fixed 3x3 SPD matrices.
func spdA() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		2, 0.3, 0.1,
		0.3, 1.5, 0.2,
		0.1, 0.2, 1,
	})
}

func spdB() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, -0.2, 0.4,
		-0.2, 2.5, 0.1,
		0.4, 0.1, 3,
	})
}

var matrixMetrics = []ID{Euclidean, BuresWasserstein, AffineInvariant, LogEuclidean}

func TestSelfDistanceIsZero(t *testing.T) {
	opts := DefaultOptions()
	for _, id := range matrixMetrics {
		t.Run(id.String(), func(t *testing.T) {
			fn, err := Get(id, opts)
			require.NoError(t, err)
			for _, m := range []*mat.Dense{spdA(), spdB(), diag(1, 1)} {
				d, err := fn(m, m, Decorations{})
				require.NoError(t, err)
				assert.InDelta(t, 0, d, 1e-6)
			}
		})
	}
}

func TestSymmetry(t *testing.T) {
	opts := DefaultOptions()
	a, b := spdA(), spdB()

	dab, err := EuclideanDistance(a, b)
	require.NoError(t, err)
	dba, err := EuclideanDistance(b, a)
	require.NoError(t, err)
	assert.Equal(t, dab, dba)

	for _, id := range matrixMetrics[1:] {
		fn, err := Get(id, opts)
		require.NoError(t, err)
		dab, err := fn(a, b, Decorations{})
		require.NoError(t, err)
		dba, err := fn(b, a, Decorations{})
		require.NoError(t, err)
		assert.InDelta(t, dab, dba, 1e-9, id.String())
	}
}

func TestBuresIdentity(t *testing.T) {
	opts := DefaultOptions()
	id := diag(1, 1)

	f, err := RootFidelity(id, id, Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, 2, f, 1e-12)

	d, err := BuresWassersteinDistance(id, id, Decorations{}, opts)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestKnownValuesOnDiagonals(t *testing.T) {
	opts := DefaultOptions()

	// Commuting inputs: Bures reduces to the L2 distance between square roots.
	d, err := BuresWassersteinDistance(diag(4, 9), diag(1, 1), Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5), d, 1e-10)

	// Affine-invariant and log-Euclidean agree on commuting inputs.
	a, b := diag(1, 1), diag(math.E, math.E*math.E)
	d, err = AffineInvariantDistance(a, b, Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5), d, 1e-10)

	d, err = LogEuclideanDistance(a, b, opts)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5), d, 1e-10)

	d, err = EuclideanDistance(diag(3, 0), diag(0, 4))
	require.NoError(t, err)
	assert.InDelta(t, 5, d, 1e-12)
}

func TestAffineInvariance(t *testing.T) {
	opts := DefaultOptions()
	a, b := spdA(), spdB()
	x := mat.NewDense(3, 3, []float64{
		1, 2, 0,
		0, 1, 1,
		1, 0, 3,
	})
	congruence := func(m *mat.Dense) *mat.Dense {
		var left, out mat.Dense
		left.Mul(x, m)
		out.Mul(&left, x.T())
		return &out
	}

	want, err := AffineInvariantDistance(a, b, Decorations{}, opts)
	require.NoError(t, err)
	got, err := AffineInvariantDistance(congruence(a), congruence(b), Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-8)
}

func TestDecorationsDoNotChangeResults(t *testing.T) {
	opts := DefaultOptions()
	a, b := spdA(), spdB()
	ah, err := linalg.Sqrt(a)
	require.NoError(t, err)
	bh, err := linalg.Sqrt(b)
	require.NoError(t, err)
	an, err := linalg.InvSqrt(a)
	require.NoError(t, err)

	bundles := []Decorations{
		{},
		{AHalf: ah},
		{AHalf: ah, BHalf: bh},
		{AHalf: ah, BHalf: bh, ANegHalf: an},
	}
	for _, id := range []ID{BuresWasserstein, AffineInvariant} {
		fn, err := Get(id, opts)
		require.NoError(t, err)
		base, err := fn(a, b, Decorations{})
		require.NoError(t, err)
		for _, dec := range bundles {
			got, err := fn(a, b, dec)
			require.NoError(t, err)
			assert.InDelta(t, base, got, 1e-10, id.String())
		}
	}
}

func TestAffineInvariantSingular(t *testing.T) {
	opts := DefaultOptions()
	singular := mat.NewDense(2, 2, []float64{1, 1, 1, 1})

	_, err := AffineInvariantDistance(singular, diag(1, 2), Decorations{}, opts)
	assert.True(t, errors.Is(err, linalg.ErrSingular), "got %v", err)

	half, err := linalg.Sqrt(singular)
	require.NoError(t, err)
	_, err = AffineInvariantDistance(singular, diag(1, 2), Decorations{AHalf: half}, opts)
	assert.True(t, errors.Is(err, linalg.ErrSingular), "got %v", err)
}

func TestLogEuclideanDomain(t *testing.T) {
	_, err := LogEuclideanDistance(diag(1, 0), diag(1, 1), DefaultOptions())
	assert.True(t, errors.Is(err, linalg.ErrDomain), "got %v", err)
}

func TestBuresRadicandPolicy(t *testing.T) {
	strict := DefaultOptions()
	fast := DefaultOptions()
	fast.FastMode = true

	tests := []struct {
		name    string
		val     float64
		opts    Options
		want    float64
		wantErr bool
	}{
		{"positive", 4, strict, 2, false},
		{"tiny positive", 1e-11, strict, 0, false},
		{"tiny negative", -1e-11, strict, 0, false},
		{"negative strict", -1e-8, strict, 0, true},
		{"negative fast", -1e-8, fast, 0, false},
		{"very negative fast", -1e-3, fast, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buresRoot(tt.val, tt.opts)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestBuresAngle(t *testing.T) {
	opts := DefaultOptions()

	half := diag(0.5, 0.5)
	d, err := BuresAngleDistance(half, half, Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-7)

	d, err = BuresAngleDistance(diag(1, 0), diag(0, 1), Decorations{}, opts)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, d, 1e-12)

	_, err = BuresAngleDistance(diag(1, 1), diag(1, 1), Decorations{}, opts)
	assert.True(t, errors.Is(err, linalg.ErrDomain), "got %v", err)

	na, err := Normalize(spdA())
	require.NoError(t, err)
	nb, err := Normalize(spdB())
	require.NoError(t, err)
	d, err = BuresAngleDistance(na, nb, Decorations{}, opts)
	require.NoError(t, err)
	assert.True(t, d > 0 && d < math.Pi/2, "angle %v", d)
}

func TestDimensionMismatch(t *testing.T) {
	opts := DefaultOptions()
	for _, id := range matrixMetrics {
		fn, err := Get(id, opts)
		require.NoError(t, err)
		_, err = fn(diag(1, 1), diag(1, 1, 1), Decorations{})
		assert.True(t, errors.Is(err, ErrDimensionMismatch), id.String())
	}
}

func TestDTWMetric(t *testing.T) {
	opts := DefaultOptions()
	opts.Local = dtw.AbsDiff
	fn, err := Get(DTW, opts)
	require.NoError(t, err)

	d, err := fn(dtw.Sequence(0, 0), dtw.Sequence(1, 1), Decorations{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, d)

	d, err = DTWDistance(dtw.Sequence(0, 1, 2, 3), dtw.Sequence(0, 1, 2, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestParse(t *testing.T) {
	tests := map[string]ID{
		"euclidean":         Euclidean,
		"Frobenius":         Euclidean,
		"bures":             BuresWasserstein,
		"bures_wasserstein": BuresWasserstein,
		"bures-angle":       BuresAngle,
		"airm":              AffineInvariant,
		"affine-invariant":  AffineInvariant,
		"log-frobenius":     LogEuclidean,
		"log-euclidean":     LogEuclidean,
		" dtw ":             DTW,
	}
	for name, want := range tests {
		got, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := Parse("wasserstein-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnimplemented))
	assert.Contains(t, err.Error(), "wasserstein-2")
}

func TestUnknownID(t *testing.T) {
	_, err := Get(ID(99), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnimplemented))
	assert.Contains(t, err.Error(), "metric(99)")

	_, err = Lookup(ID(99))
	assert.True(t, errors.Is(err, ErrUnimplemented))
}

func TestInfoAndNames(t *testing.T) {
	assert.Equal(t, []string{
		"euclidean", "bures-wasserstein", "bures-angle",
		"affine-invariant", "log-euclidean", "dtw",
	}, Names())

	info, err := Lookup(AffineInvariant)
	require.NoError(t, err)
	assert.True(t, info.UsesHalves)
	assert.True(t, info.UsesNegHalves)

	info, err = Lookup(DTW)
	require.NoError(t, err)
	assert.True(t, info.Sequences)
	assert.False(t, info.UsesHalves)
}

func BenchmarkBuresWasserstein(b *testing.B) {
	opts := DefaultOptions()
	x, y := spdA(), spdB()
	xh, _ := linalg.Sqrt(x)
	yh, _ := linalg.Sqrt(y)
	dec := Decorations{AHalf: xh, BHalf: yh}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BuresWassersteinDistance(x, y, dec, opts)
	}
}

func TestEmptyMatricesRejected(t *testing.T) {
	empty := &mat.Dense{}
	for _, id := range []ID{Euclidean, BuresWasserstein, BuresAngle, AffineInvariant, LogEuclidean} {
		t.Run(id.String(), func(t *testing.T) {
			fn, err := Get(id, DefaultOptions())
			require.NoError(t, err)
			require.NotPanics(t, func() {
				_, err = fn(empty, empty, Decorations{})
			})
			assert.True(t, errors.Is(err, ErrDimensionMismatch), "got %v", err)
		})
	}

	fn, err := Get(DTW, DefaultOptions())
	require.NoError(t, err)
	_, err = fn(empty, empty, Decorations{})
	assert.True(t, errors.Is(err, dtw.ErrEmptySequence), "got %v", err)
}
