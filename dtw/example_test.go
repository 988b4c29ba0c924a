package dtw_test

import (
	"fmt"

	"github.com/nozzle/cormat/dtw"
	"gonum.org/v1/gonum/mat"
)

// ExampleDistance aligns two constant series one unit apart.
func ExampleDistance() {
	d, err := dtw.Distance(dtw.Sequence(0, 0), dtw.Sequence(1, 1), dtw.AbsDiff)
	if err != nil {
		fmt.Println("error:", err)

		return
	}
	fmt.Printf("distance=%.0f\n", d)
	// Output:
	// distance=2
}

// ExampleWarpingPath shows the path for a series aligned with a delayed copy.
func ExampleWarpingPath() {
	x := dtw.Sequence(0, 1, 2, 1, 0)
	y := dtw.Sequence(0, 0, 1, 2, 1, 0)

	path, err := dtw.WarpingPath(x, y, dtw.AbsDiff)
	if err != nil {
		fmt.Println("error:", err)

		return
	}
	fmt.Println(path)
	// Output:
	// [{0 0} {0 1} {1 2} {2 3} {3 4} {4 5}]
}

// ExampleAlign prints the accumulated cost matrix.
func ExampleAlign() {
	a, _ := dtw.Align(dtw.Sequence(0, 0), dtw.Sequence(1, 1), dtw.AbsDiff)
	fmt.Printf("%v\n", mat.Formatted(a.Accumulated))
	fmt.Println(a.Distance)
	// Output:
	// ⎡1  2⎤
	// ⎣2  2⎦
	// 2
}
