package dmrg

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

// TestLocalMPOVariational checks that the effective operator reproduces
// the full expectation value: with the center at b,
// <phi|H_eff|phi> = <psi|H|psi> where phi is the merged bond tensor.
func TestLocalMPOVariational(t *testing.T) {
	t.Parallel()
	const n = 6
	ws := mps.Ising(n, 1.1)
	psi := mps.Random(ws, 5)

	for _, b := range []int{1, 3, n - 1} {
		t.Run(fmt.Sprintf("%d", b), func(t *testing.T) {
			psi.Position(b)
			op := NewLocalMPO(ws)
			op.Position(b, psi)

			phi := psi.Bond(b)
			got := tensor.Dot(phi, op.Apply(phi))
			want := mps.Expectation(ws, psi)
			if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
				t.Fatalf("%f %f", got, want)
			}
		})
	}
}

// TestLocalMPOSymmetric checks <x|H_eff y> = <H_eff x|y>.
func TestLocalMPOSymmetric(t *testing.T) {
	t.Parallel()
	const n = 5
	ws := mps.Heisenberg(n, 1)
	psi := mps.Random(ws, 4)
	b := 2
	psi.Position(b)

	op := NewLocalMPO(ws)
	op.Position(b, psi)

	shape := psi.Bond(b).Shape()
	x := randBond(shape)
	y := randBond(shape)
	got := tensor.Dot(x, op.Apply(y))
	want := tensor.Dot(op.Apply(x), y)
	if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
		t.Fatalf("%f %f", got, want)
	}
}

// TestLocalMPOSet checks that the implicit sum of operators applies
// like the sum of their applications.
func TestLocalMPOSet(t *testing.T) {
	t.Parallel()
	const n, h = 5, 0.8
	coupling := mps.IsingCoupling(n)
	field := mps.IsingField(n, h)
	full := mps.Ising(n, h)

	psi := mps.Random(full, 4)
	b := 3
	psi.Position(b)

	set := NewLocalMPOSet([][]*tensor.Dense{coupling, field})
	set.Position(b, psi)
	fullOp := NewLocalMPO(full)
	fullOp.Position(b, psi)

	phi := psi.Bond(b)
	got := set.Apply(phi)
	want := fullOp.Apply(phi)
	if d := got.Clone().AddScaled(-1, want).Norm(); d > 1e-9*want.Norm() {
		t.Fatalf("%f", d)
	}
}

// TestLocalMPOBoundaries checks that explicit trivial boundaries equal
// the default ones.
func TestLocalMPOBoundaries(t *testing.T) {
	t.Parallel()
	const n = 4
	ws := mps.Ising(n, 1.3)
	psi := mps.Random(ws, 4)
	b := 2
	psi.Position(b)

	lh := onesTensor(1, ws[0].Shape()[0], 1)
	rh := onesTensor(1, ws[n-1].Shape()[1], 1)

	def := NewLocalMPO(ws)
	def.Position(b, psi)
	explicit := NewLocalMPOBoundaries(ws, lh, rh)
	explicit.Position(b, psi)

	phi := psi.Bond(b)
	got := explicit.Apply(phi)
	want := def.Apply(phi)
	if d := got.Clone().AddScaled(-1, want).Norm(); d > 1e-12*math.Max(1, want.Norm()) {
		t.Fatalf("%f", d)
	}
}

// TestLocalMPOMPS checks that the projector adds weight along a
// reference state: <phi|(H + w |ref><ref|)|phi> grows by
// w <ref|psi>^2 over the bare expectation when phi is the bond tensor.
func TestLocalMPOMPS(t *testing.T) {
	t.Parallel()
	const n, w = 5, 7.5
	ws := mps.Ising(n, 0.6)
	psi := mps.Random(ws, 4)
	ref := mps.Random(ws, 4)
	b := 2
	psi.Position(b)
	ref.Position(1)

	op := NewLocalMPOMPS(ws, []*mps.State{ref}, w)
	op.Position(b, psi)

	phi := psi.Bond(b)
	got := tensor.Dot(phi, op.Apply(phi))
	overlap := mps.InnerProduct(ref, psi)
	want := mps.Expectation(ws, psi) + w*overlap*overlap
	if math.Abs(got-want) > 1e-9*math.Max(1, math.Abs(want)) {
		t.Fatalf("%f %f", got, want)
	}
}

func randBond(shape []int) *tensor.Dense {
	x := tensor.Zeros(shape...)
	data := x.Data()
	for i := range data {
		data[i] = rand.Float64()*2 - 1
	}
	return x
}
