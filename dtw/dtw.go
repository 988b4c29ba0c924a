package dtw

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptySequence indicates one or both inputs have no time steps.
	ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

	// ErrRankMismatch indicates the feature vectors of the two inputs differ in length.
	ErrRankMismatch = errors.New("dtw: sequences have different feature dimensions")
)

// LocalFunc is the distance between two feature vectors. It must return a
// non-negative value.
type LocalFunc func(x, y []float64) float64

// Euclidean is the L2 norm of x - y. It is the default LocalFunc.
func Euclidean(x, y []float64) float64 {
	return floats.Distance(x, y, 2)
}

// Manhattan is the L1 norm of x - y.
func Manhattan(x, y []float64) float64 {
	return floats.Distance(x, y, 1)
}

// Chebyshev is the L∞ norm of x - y.
func Chebyshev(x, y []float64) float64 {
	return floats.Distance(x, y, math.Inf(1))
}

// AbsDiff is |x[0] - y[0]|, the usual local distance for scalar series.
func AbsDiff(x, y []float64) float64 {
	return math.Abs(x[0] - y[0])
}

// Locals maps names to the built-in local distances.
var Locals = map[string]LocalFunc{
	"euclidean": Euclidean,
	"l2":        Euclidean,
	"manhattan": Manhattan,
	"l1":        Manhattan,
	"chebyshev": Chebyshev,
	"abs":       AbsDiff,
}

// Coord is one step of a warping path: index I into the first sequence and J
// into the second.
type Coord struct {
	I, J int
}

// Path is a warping path running forward in time from (0, 0) to (N-1, M-1).
type Path []Coord

// Alignment holds every artifact of a DTW run.
type Alignment struct {
	Cost        *mat.Dense
	Accumulated *mat.Dense
	Path        Path
	Distance    float64
}

// Sequence builds an N×1 sequence from scalar samples. With no samples it
// returns an empty matrix, which the alignment functions reject.
func Sequence(xs ...float64) *mat.Dense {
	if len(xs) == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, len(xs))
	copy(data, xs)
	return mat.NewDense(len(xs), 1, data)
}

// CostMatrix returns C[i,j] = local(x[i], y[j]). A nil local uses Euclidean.
func CostMatrix(x, y mat.Matrix, local LocalFunc) (*mat.Dense, error) {
	xs, err := rows(x)
	if err != nil {
		return nil, err
	}
	ys, err := rows(y)
	if err != nil {
		return nil, err
	}
	if len(xs[0]) != len(ys[0]) {
		return nil, errors.Wrapf(ErrRankMismatch, "%d vs %d features", len(xs[0]), len(ys[0]))
	}
	if local == nil {
		local = Euclidean
	}

	c := mat.NewDense(len(xs), len(ys), nil)
	for i, xi := range xs {
		for j, yj := range ys {
			c.Set(i, j, local(xi, yj))
		}
	}
	return c, nil
}

// Accumulate returns the accumulated cost matrix of c. An empty c gives an
// empty result.
func Accumulate(c mat.Matrix) *mat.Dense {
	n, m := c.Dims()
	if n == 0 || m == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(n, m, nil)
	d.Set(0, 0, c.At(0, 0))
	for i := 1; i < n; i++ {
		d.Set(i, 0, d.At(i-1, 0)+c.At(i, 0))
	}
	for j := 1; j < m; j++ {
		d.Set(0, j, d.At(0, j-1)+c.At(0, j))
	}
	for i := 1; i < n; i++ {
		for j := 1; j < m; j++ {
			d.Set(i, j, c.At(i, j)+min(d.At(i-1, j), d.At(i, j-1), d.At(i-1, j-1)))
		}
	}
	return d
}

// Backtrack recovers the optimal warping path from an accumulated cost matrix.
// On equal predecessors the diagonal step wins over up, and up over left.
// An empty matrix has no path.
func Backtrack(d mat.Matrix) Path {
	n, m := d.Dims()
	if n == 0 || m == 0 {
		return nil
	}
	i, j := n-1, m-1
	path := Path{{i, j}}
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag, up, left := d.At(i-1, j-1), d.At(i-1, j), d.At(i, j-1)
			best := min(diag, up, left)
			switch best {
			case diag:
				i, j = i-1, j-1
			case up:
				i--
			default:
				j--
			}
		}
		path = append(path, Coord{i, j})
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Distance returns the total cost of the optimal alignment of x and y.
func Distance(x, y mat.Matrix, local LocalFunc) (float64, error) {
	c, err := CostMatrix(x, y, local)
	if err != nil {
		return 0, err
	}
	d := Accumulate(c)
	n, m := d.Dims()
	return d.At(n-1, m-1), nil
}

// WarpingPath returns the optimal warping path between x and y.
func WarpingPath(x, y mat.Matrix, local LocalFunc) (Path, error) {
	a, err := Align(x, y, local)
	if err != nil {
		return nil, err
	}
	return a.Path, nil
}

// Align runs all three DTW steps and returns their results.
func Align(x, y mat.Matrix, local LocalFunc) (*Alignment, error) {
	c, err := CostMatrix(x, y, local)
	if err != nil {
		return nil, err
	}
	d := Accumulate(c)
	n, m := d.Dims()
	return &Alignment{
		Cost:        c,
		Accumulated: d,
		Path:        Backtrack(d),
		Distance:    d.At(n-1, m-1),
	}, nil
}

// rows copies the rows of s into feature vectors.
func rows(s mat.Matrix) ([][]float64, error) {
	if s == nil {
		return nil, ErrEmptySequence
	}
	n, k := s.Dims()
	if n == 0 || k == 0 {
		return nil, ErrEmptySequence
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, s)
	}
	return out, nil
}
