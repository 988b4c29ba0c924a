package series

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCorrelation(t *testing.T) {
	// Variable 1 = 2·variable 0, variable 2 = -variable 0 + const.
	ts := mat.NewDense(3, 4, []float64{
		1, 2, 3, 4,
		2, 4, 6, 8,
		5, 4, 3, 2,
	})
	c, err := Correlation(ts)
	require.NoError(t, err)

	want := mat.NewDense(3, 3, []float64{
		1, 1, -1,
		1, 1, -1,
		-1, -1, 1,
	})
	assert.True(t, mat.EqualApprox(want, c, 1e-12), "got\n%v", mat.Formatted(c))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, c.At(i, j), c.At(j, i))
		}
	}
}

func TestCorrelationErrors(t *testing.T) {
	_, err := Correlation(mat.NewDense(2, 1, []float64{1, 2}))
	assert.True(t, errors.Is(err, ErrShape))

	_, err = Correlation(mat.NewDense(2, 3, []float64{1, 1, 1, 1, 2, 3}))
	assert.True(t, errors.Is(err, ErrConstant), "got %v", err)
}

func TestNumericalRank(t *testing.T) {
	rank, err := NumericalRank(mat.NewDense(3, 3, []float64{
		1, 1, 0,
		1, 1, 0,
		0, 0, 2,
	}), DefaultRankTol)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	_, err = NumericalRank(mat.NewDense(2, 3, nil), DefaultRankTol)
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	ts := mat.NewDense(2, 10, nil)
	for j := 0; j < 10; j++ {
		ts.Set(0, j, float64(j))
		ts.Set(1, j, float64(10*j))
	}

	got, err := Clip(ts, ClipOptions{SampleRate: 1, Leading: 2, Duration: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, mat.Row(nil, 0, got))
	assert.Equal(t, []float64{20, 30, 40}, mat.Row(nil, 1, got))

	// The default window on a 40x600 series keeps columns 15 through 164.
	long := mat.NewDense(40, 600, nil)
	for j := 0; j < 600; j++ {
		long.Set(0, j, float64(j))
	}
	got, err = Clip(long, DefaultClipOptions())
	require.NoError(t, err)
	r, c := got.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 150, c)
	assert.Equal(t, 15.0, got.At(0, 0))

	// Windows running past the end are cut short.
	got, err = Clip(ts, ClipOptions{SampleRate: 1, Leading: 8, Duration: 5})
	require.NoError(t, err)
	_, c = got.Dims()
	assert.Equal(t, 2, c)

	_, err = Clip(ts, ClipOptions{SampleRate: 1, Leading: 20, Duration: 5})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestLeadingBlock(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	got, err := LeadingBlock(m, 2)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 2, 4, 5}), got))

	got, err = LeadingBlock(m, 10)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestClippedCorrelation(t *testing.T) {
	ts := mat.NewDense(3, 12, nil)
	for j := 0; j < 12; j++ {
		x := float64(j)
		ts.Set(0, j, math.Sin(x))
		ts.Set(1, j, math.Cos(x))
		ts.Set(2, j, x)
	}

	all, err := ClippedCorrelation(ts, DefaultPrepOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, all.SymmetricDim())

	opts := PrepOptions{Rows: 2, Clip: ClipOptions{SampleRate: 1, Leading: 2, Duration: 8}}
	sub, err := ClippedCorrelation(ts, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.SymmetricDim())
	assert.InDelta(t, 1, sub.At(0, 0), 1e-12)
}

func TestReinterpolate(t *testing.T) {
	ts := mat.NewDense(3, 2, []float64{
		0, 10,
		1, 20,
		2, 40,
	})

	up, err := Reinterpolate(ts, 5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2}, mat.Col(nil, 0, up), 1e-12)
	assert.InDeltaSlice(t, []float64{10, 15, 20, 30, 40}, mat.Col(nil, 1, up), 1e-12)

	down, err := Reinterpolate(ts, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 2}, mat.Col(nil, 0, down), 1e-12)

	same, err := Reinterpolate(ts, 3)
	require.NoError(t, err)
	assert.True(t, mat.Equal(ts, same))

	_, err = Reinterpolate(ts, 0)
	assert.True(t, errors.Is(err, ErrShape))
}
