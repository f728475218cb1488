package mps

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/fumin/dmrg/exactdiag"
	"github.com/fumin/dmrg/tensor"
)

// TestMPO cross-checks every MPO against its dense counterpart by
// comparing <x|W|x> with the explicit quadratic form on random states.
func TestMPO(t *testing.T) {
	t.Parallel()
	const n = 5
	tests := []struct {
		name  string
		mpo   []*tensor.Dense
		dense *mat.SymDense
	}{
		{name: "ising", mpo: Ising(n, 1.3), dense: exactdiag.TransverseFieldIsing(n, 1.3)},
		{name: "heisenberg", mpo: Heisenberg(n, 0.8), dense: exactdiag.Heisenberg(n, 0.8)},
		{name: "magnetization", mpo: MagnetizationZ(n), dense: exactdiag.MagnetizationZ(n)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			for range 3 {
				x := Random(test.mpo, 6)
				got := Expectation(test.mpo, x)

				v := toVector(x)
				hv := mat.NewVecDense(v.Size(), nil)
				hv.MulVec(test.dense, mat.NewVecDense(v.Size(), v.Data()))
				want := mat.Dot(hv, mat.NewVecDense(v.Size(), v.Data()))

				if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
					t.Fatalf("%f %f", got, want)
				}
			}
		})
	}
}

// TestIsingSplit checks that the coupling and field parts sum to the
// full Hamiltonian.
func TestIsingSplit(t *testing.T) {
	t.Parallel()
	const n, h = 6, 0.9
	full := Ising(n, h)
	coupling := IsingCoupling(n)
	field := IsingField(n, h)

	for range 3 {
		x := Random(full, 5)
		want := Expectation(full, x)
		got := Expectation(coupling, x) + Expectation(field, x)
		if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
			t.Fatalf("%f %f", got, want)
		}
	}
}

func TestGrowRight(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n int
		h float64
	}{
		{n: 4, h: 0.5},
		{n: 6, h: 2},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %f", test.n, test.h), func(t *testing.T) {
			t.Parallel()
			ws := Ising(test.n, test.h)
			x := Random(ws, 5)

			// Contracting the network from the right gives the same value
			// as contracting it from the left.
			env := ones(1, 1, 1)
			for i := x.N(); i >= 1; i-- {
				env = GrowRight(env, ws[i-1], x.A(i))
			}
			got := env.At(0, 0, 0)
			want := Expectation(ws, x)
			if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
				t.Fatalf("%f %f", got, want)
			}
		})
	}
}
