// Package exactdiag computes exact spectra of small spin chains by dense
// diagonalization. It serves as an independent cross-check of the sweep
// solver and is limited to chains whose 2^n dimensional Hilbert space fits
// in memory.
package exactdiag

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	pauliX = mat.NewDense(2, 2, []float64{
		0, 1,
		1, 0,
	})
	pauliZ = mat.NewDense(2, 2, []float64{
		1, 0,
		0, -1,
	})
	splus = mat.NewDense(2, 2, []float64{
		0, 1,
		0, 0,
	})
	sminus = mat.NewDense(2, 2, []float64{
		0, 0,
		1, 0,
	})
	sz = mat.NewDense(2, 2, []float64{
		0.5, 0,
		0, -0.5,
	})
)

// TransverseFieldIsing builds H = -sum Z_i Z_{i+1} - h sum X_i for an open
// chain of n spins.
func TransverseFieldIsing(n int, h float64) *mat.SymDense {
	dim := 1 << n
	hamiltonian := mat.NewDense(dim, dim, nil)

	for i := 0; i < n-1; i++ {
		coupling(hamiltonian, n, i, -1, pauliZ, pauliZ)
	}
	for i := 0; i < n; i++ {
		site(hamiltonian, n, i, -h, pauliX)
	}

	return toSym(hamiltonian)
}

// Heisenberg builds H = j sum S_i . S_{i+1} for an open chain of n spins,
// using ladder operators so that all matrix elements are real.
func Heisenberg(n int, j float64) *mat.SymDense {
	dim := 1 << n
	hamiltonian := mat.NewDense(dim, dim, nil)

	for i := 0; i < n-1; i++ {
		coupling(hamiltonian, n, i, j/2, splus, sminus)
		coupling(hamiltonian, n, i, j/2, sminus, splus)
		coupling(hamiltonian, n, i, j, sz, sz)
	}

	return toSym(hamiltonian)
}

// MagnetizationZ builds sum Z_i.
func MagnetizationZ(n int) *mat.SymDense {
	dim := 1 << n
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < n; i++ {
		site(m, n, i, 1, pauliZ)
	}
	return toSym(m)
}

// Eigen diagonalizes h, returning eigenvalues in ascending order and the
// corresponding eigenvectors as columns.
func Eigen(h *mat.SymDense) ([]float64, *mat.Dense) {
	var es mat.EigenSym
	if ok := es.Factorize(h, true); !ok {
		panic(fmt.Sprintf("%d", h.SymmetricDim()))
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	return vals, &vecs
}

// coupling adds c * a_i b_{i+1} to the Hamiltonian.
func coupling(hamiltonian *mat.Dense, n, i int, c float64, a, b *mat.Dense) {
	system := mat.NewDense(1, 1, []float64{c})
	for j := 0; j < n; j++ {
		switch j {
		case i:
			system = kron(system, a)
		case i + 1:
			system = kron(system, b)
		default:
			system = kron(system, eye(2))
		}
	}
	hamiltonian.Add(hamiltonian, system)
}

// site adds c * a_i to the Hamiltonian.
func site(hamiltonian *mat.Dense, n, i int, c float64, a *mat.Dense) {
	system := mat.NewDense(1, 1, []float64{c})
	for j := 0; j < n; j++ {
		switch j {
		case i:
			system = kron(system, a)
		default:
			system = kron(system, eye(2))
		}
	}
	hamiltonian.Add(hamiltonian, system)
}

func kron(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar*br, ac*bc, nil)
	out.Kronecker(a, b)
	return out
}

func eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

func toSym(a *mat.Dense) *mat.SymDense {
	r, c := a.Dims()
	if r != c {
		panic(fmt.Sprintf("%d %d", r, c))
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	return sym
}
