// Package dtw aligns two sequences with dynamic time warping (DTW).
//
// A sequence is a mat.Matrix whose rows are the feature vectors at successive
// time steps; a scalar series is an N×1 matrix (see Sequence). Both sequences
// must have the same number of columns.
//
// The alignment runs in three steps:
//
//  1. CostMatrix:  C[i,j] = local(x[i], y[j]).
//  2. Accumulate:  D[0,0] = C[0,0]; the first row and column are prefix sums
//     of C; D[i,j] = C[i,j] + min(D[i-1,j], D[i,j-1], D[i-1,j-1]).
//  3. Backtrack:   walk from (N-1, M-1) to (0, 0) through the cheapest
//     predecessor, preferring diagonal, then up, then left on ties.
//
// Distance stops after step 2 and returns D[N-1,M-1]. WarpingPath and Align run
// all three steps.
//
// Complexity: O(N·M) time and memory. No windowing constraint is applied.
//
// Example:
//
//	x := dtw.Sequence(0, 0)
//	y := dtw.Sequence(1, 1)
//	d, _ := dtw.Distance(x, y, dtw.AbsDiff) // 2
package dtw
