package cormat

import (
	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat/internal/heap"
	"gonum.org/v1/gonum/mat"
)

// Neighbor is one entry of a k-nearest-neighbour list.
type Neighbor struct {
	Index    int
	Distance float64
}

// Neighbors returns, for every row of the square distance matrix d, the k
// closest other items in ascending order of distance. Ties go to the lower
// index. Rows have fewer than k entries when the collection is smaller than k+1.
func Neighbors(d mat.Matrix, k int) ([][]Neighbor, error) {
	n, c := d.Dims()
	if n != c {
		return nil, errors.Wrapf(ErrConfiguration, "distance matrix is %dx%d", n, c)
	}
	if k < 1 {
		return nil, errors.Wrapf(ErrConfiguration, "k=%d", k)
	}

	h := heap.New(k)
	out := make([][]Neighbor, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j != i {
				h.Push(j, d.At(i, j))
			}
		}
		indices, dists := h.Sorted()
		row := make([]Neighbor, len(indices))
		for m := range indices {
			row[m] = Neighbor{Index: indices[m], Distance: dists[m]}
		}
		out[i] = row
	}
	return out, nil
}
