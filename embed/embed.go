// Package embed places the items of a distance matrix in a low-dimensional
// Euclidean space for plotting and clustering.
package embed

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotSquare is returned for a distance matrix that is not square.
	ErrNotSquare = errors.New("embed: distance matrix is not square")
	// ErrDimension is returned for a target dimension outside [1, n].
	ErrDimension = errors.New("embed: invalid target dimension")
	// ErrEigenFailed is returned when the eigendecomposition does not converge.
	ErrEigenFailed = errors.New("embed: eigendecomposition failed")
)

// MDS computes a classical multidimensional scaling of the distance matrix d
// into k dimensions. Row i of the result holds the coordinates of item i.
//
// The double-centered squared distances B = -1/2·J·D²·J are decomposed and the
// k largest eigenpairs give the coordinates V·Λ^(1/2). Negative eigenvalues,
// which appear for non-Euclidean distances, contribute zero coordinates.
func MDS(d mat.Matrix, k int) ([][]float64, error) {
	n, c := d.Dims()
	if n != c {
		return nil, errors.Wrapf(ErrNotSquare, "got %dx%d", n, c)
	}
	if k < 1 || k > n {
		return nil, errors.Wrapf(ErrDimension, "k=%d for %d items", k, n)
	}

	b := doubleCenter(d)

	var eig mat.EigenSym
	if !eig.Factorize(b, true) {
		return nil, ErrEigenFailed
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues are ascending; take the k largest.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	embedding := make([][]float64, n)
	for i := range embedding {
		embedding[i] = make([]float64, k)
	}
	for dim := 0; dim < k; dim++ {
		col := order[dim]
		lambda := values[col]
		if lambda <= 0 {
			continue
		}
		s := math.Sqrt(lambda)
		for i := 0; i < n; i++ {
			embedding[i][dim] = vecs.At(i, col) * s
		}
	}
	return embedding, nil
}

// doubleCenter returns -1/2·J·D²·J with J = I - 11ᵀ/n.
func doubleCenter(d mat.Matrix) *mat.SymDense {
	n, _ := d.Dims()
	sq := mat.NewDense(n, n, nil)
	rowMeans := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			// Average the two triangles so a slightly asymmetric input still
			// yields a symmetric B.
			v := (d.At(i, j) + d.At(j, i)) / 2
			sq.Set(i, j, v*v)
			rowMeans[i] += v * v
		}
		total += rowMeans[i]
		rowMeans[i] /= float64(n)
	}
	grand := total / float64(n*n)

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(sq.At(i, j)-rowMeans[i]-rowMeans[j]+grand))
		}
	}
	return b
}

// ScaleAndCenter centers the embedding at the origin and scales it so the
// largest absolute coordinate equals bound.
func ScaleAndCenter(embedding [][]float64, bound float64) {
	if len(embedding) == 0 {
		return
	}

	n := len(embedding)
	dim := len(embedding[0])

	// Compute mean for each dimension
	means := make([]float64, dim)
	for i := 0; i < n; i++ {
		floats.Add(means, embedding[i])
	}
	floats.Scale(1/float64(n), means)

	maxAbs := 0.0
	for i := 0; i < n; i++ {
		floats.Sub(embedding[i], means)
		for _, v := range embedding[i] {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	if maxAbs > 0 {
		for i := 0; i < n; i++ {
			floats.Scale(bound/maxAbs, embedding[i])
		}
	}
}

// NormalizeTo01 rescales each dimension of the embedding to [0, 1].
// Constant dimensions are left as they are.
func NormalizeTo01(embedding [][]float64) {
	if len(embedding) == 0 {
		return
	}

	dim := len(embedding[0])
	column := make([]float64, len(embedding))
	for d := 0; d < dim; d++ {
		for i := range embedding {
			column[i] = embedding[i][d]
		}
		lo, hi := floats.Min(column), floats.Max(column)
		spread := hi - lo
		if spread <= 0 {
			continue
		}
		for i := range embedding {
			embedding[i][d] = (embedding[i][d] - lo) / spread
		}
	}
}

// Stress returns Kruskal's stress-1 of the embedding against the distance
// matrix d: sqrt(Σ(d_ij - ‖x_i - x_j‖)² / Σd_ij²) over i < j.
func Stress(d mat.Matrix, embedding [][]float64) (float64, error) {
	n, c := d.Dims()
	if n != c {
		return 0, errors.Wrapf(ErrNotSquare, "got %dx%d", n, c)
	}
	if len(embedding) != n {
		return 0, errors.Wrapf(ErrDimension, "%d points for %d items", len(embedding), n)
	}

	var num, den float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			target := d.At(i, j)
			got := floats.Distance(embedding[i], embedding[j], 2)
			num += (target - got) * (target - got)
			den += target * target
		}
	}
	if den == 0 {
		return 0, nil
	}
	return math.Sqrt(num / den), nil
}
