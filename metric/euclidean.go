package metric

import "gonum.org/v1/gonum/mat"

// EuclideanDistance returns the Frobenius norm of a - b.
func EuclideanDistance(a, b mat.Matrix) (float64, error) {
	if _, err := sameSquare(a, b); err != nil {
		return 0, err
	}
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, 2), nil
}
