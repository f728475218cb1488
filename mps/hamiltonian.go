package mps

import (
	"github.com/fumin/dmrg/tensor"
)

var (
	zero = [][]float64{
		{0, 0},
		{0, 0},
	}
	identity = [][]float64{
		{1, 0},
		{0, 1},
	}
	pauliX = [][]float64{
		{0, 1},
		{1, 0},
	}
	pauliZ = [][]float64{
		{1, 0},
		{0, -1},
	}
	// Ladder operators, S+ = (X+iY)/2 and S- = (X-iY)/2.
	splus = [][]float64{
		{0, 1},
		{0, 0},
	}
	sminus = [][]float64{
		{0, 0},
		{1, 0},
	}
	spinZ = [][]float64{
		{0.5, 0},
		{0, -0.5},
	}
)

// MagnetizationZ returns the MPO of the total magnetization sum Z_i.
func MagnetizationZ(n int) []*tensor.Dense {
	w := tensor.T4([][][][]float64{
		{identity, zero},
		{pauliZ, identity},
	})
	return newMPO(w, n)
}

// Ising returns the MPO of the transverse field Ising chain
// H = -sum Z_i Z_{i+1} - h sum X_i.
func Ising(n int, h float64) []*tensor.Dense {
	w := tensor.T4([][][][]float64{
		{identity, zero, zero},
		{pauliZ, zero, zero},
		{mul(-h, pauliX), mul(-1, pauliZ), identity},
	})
	return newMPO(w, n)
}

// Heisenberg returns the MPO of the Heisenberg chain
// H = j sum S_i . S_{i+1}, written with ladder operators so that all
// entries are real.
func Heisenberg(n int, j float64) []*tensor.Dense {
	w := tensor.T4([][][][]float64{
		{identity, zero, zero, zero, zero},
		{splus, zero, zero, zero, zero},
		{sminus, zero, zero, zero, zero},
		{spinZ, zero, zero, zero, zero},
		{zero, mul(j/2, sminus), mul(j/2, splus), mul(j, spinZ), identity},
	})
	return newMPO(w, n)
}

// IsingCoupling returns the MPO of only the coupling part -sum Z_i Z_{i+1},
// and IsingField that of only the field part -h sum X_i. Their lazy sum
// equals Ising.
func IsingCoupling(n int) []*tensor.Dense {
	w := tensor.T4([][][][]float64{
		{identity, zero, zero},
		{pauliZ, zero, zero},
		{zero, mul(-1, pauliZ), identity},
	})
	return newMPO(w, n)
}

// IsingField returns the MPO of the transverse field part -h sum X_i.
func IsingField(n int, h float64) []*tensor.Dense {
	w := tensor.T4([][][][]float64{
		{identity, zero},
		{mul(-h, pauliX), identity},
	})
	return newMPO(w, n)
}

func newMPO(w *tensor.Dense, n int) []*tensor.Dense {
	d0, d1, d2, d3 := w.Shape()[0], w.Shape()[1], w.Shape()[2], w.Shape()[3]
	mpo := make([]*tensor.Dense, 0, n)

	// First site is the last row of w.
	mpo = append(mpo, w.Slice([][2]int{{d0 - 1, d0}, {0, d1}, {0, d2}, {0, d3}}))

	for range n - 2 {
		mpo = append(mpo, w)
	}

	// Last site is the first column of w.
	mpo = append(mpo, w.Slice([][2]int{{0, d0}, {0, 1}, {0, d2}, {0, d3}}))

	return mpo
}

func mul(c float64, a [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, row := range a {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = c * v
		}
	}
	return out
}
