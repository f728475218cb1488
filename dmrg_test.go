package dmrg

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"testing"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/exactdiag"
	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

func testSweeps() *Sweeps {
	return NewSweeps(10).
		SetMaxm(10, 20, 64).
		SetCutoff(1e-12).
		SetNiter(6).
		SetNoise(1e-6, 1e-7, 1e-8, 0)
}

func TestRun(t *testing.T) {
	t.Parallel()
	const n = 6
	for _, h := range []float64{0.5, 1, 2} {
		t.Run(fmt.Sprintf("%f", h), func(t *testing.T) {
			t.Parallel()
			ws := mps.Ising(n, h)
			psi := mps.Random(ws, 10)

			energy, err := Run(psi, ws, testSweeps(), NewOpts().With("Quiet", true))
			if err != nil {
				t.Fatalf("%+v", err)
			}

			vals, vecs := exactdiag.Eigen(exactdiag.TransverseFieldIsing(n, h))
			if math.Abs(energy-vals[0]) > 1e-6*math.Abs(vals[0]) {
				t.Fatalf("%f %f", energy, vals[0])
			}

			// The state is normalized and matches the exact ground state.
			if nrm := mps.InnerProduct(psi, psi); math.Abs(nrm-1) > 1e-8 {
				t.Fatalf("%f", nrm)
			}
			v := stateVector(psi)
			var overlap float64
			for i := range v.Size() {
				overlap += v.Data()[i] * vecs.At(i, 0)
			}
			if math.Abs(overlap) < 1-1e-6 {
				t.Fatalf("%f", overlap)
			}
		})
	}
}

func TestRunSum(t *testing.T) {
	t.Parallel()
	const n, h = 6, 1.2
	psi := mps.Random(mps.Ising(n, h), 10)

	hs := [][]*tensor.Dense{mps.IsingCoupling(n), mps.IsingField(n, h)}
	energy, err := RunSum(psi, hs, testSweeps(), NewOpts().With("Quiet", true))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	vals, _ := exactdiag.Eigen(exactdiag.TransverseFieldIsing(n, h))
	if math.Abs(energy-vals[0]) > 1e-6*math.Abs(vals[0]) {
		t.Fatalf("%f %f", energy, vals[0])
	}
}

func TestRunBoundaries(t *testing.T) {
	t.Parallel()
	const n, h = 5, 0.8
	ws := mps.Ising(n, h)

	// Explicit trivial boundaries behave like no boundaries.
	lh := onesTensor(1, ws[0].Shape()[0], 1)
	rh := onesTensor(1, ws[n-1].Shape()[1], 1)
	psi := mps.Random(ws, 8)
	energy, err := RunBoundaries(psi, ws, lh, rh, testSweeps(), NewOpts().With("Quiet", true))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	vals, _ := exactdiag.Eigen(exactdiag.TransverseFieldIsing(n, h))
	if math.Abs(energy-vals[0]) > 1e-6*math.Abs(vals[0]) {
		t.Fatalf("%f %f", energy, vals[0])
	}
}

func TestRunExcited(t *testing.T) {
	t.Parallel()
	const n, h = 6, 1.5
	ws := mps.Ising(n, h)

	psi0 := mps.Random(ws, 10)
	e0, err := Run(psi0, ws, testSweeps(), NewOpts().With("Quiet", true))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	psi1 := mps.Random(ws, 10)
	e1, err := RunExcited(psi1, ws, []*mps.State{psi0}, testSweeps(),
		NewOpts().With("Quiet", true).With("Weight", 20.0))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	vals, _ := exactdiag.Eigen(exactdiag.TransverseFieldIsing(n, h))
	if math.Abs(e0-vals[0]) > 1e-6*math.Abs(vals[0]) {
		t.Fatalf("%f %f", e0, vals[0])
	}
	if math.Abs(e1-vals[1]) > 1e-4*math.Abs(vals[1]) {
		t.Fatalf("%f %f", e1, vals[1])
	}
	if overlap := mps.InnerProduct(psi0, psi1); math.Abs(overlap) > 1e-3 {
		t.Fatalf("%f", overlap)
	}
}

func TestZeroSweeps(t *testing.T) {
	t.Parallel()
	ws := mps.Ising(4, 1)
	psi := mps.Random(ws, 4)
	energy, err := Run(psi, ws, NewSweeps(0), NewOpts().With("Quiet", true))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !math.IsNaN(energy) {
		t.Fatalf("%f", energy)
	}
	// The state is canonicalized but otherwise untouched, and no bond
	// was ever truncated.
	if psi.Center() != 1 {
		t.Fatalf("%d", psi.Center())
	}
	for b := 1; b <= psi.N()-1; b++ {
		if _, ok := psi.TruncationResult(b); ok {
			t.Fatalf("%d", b)
		}
	}
}

func TestBadConfig(t *testing.T) {
	t.Parallel()
	ws := mps.Ising(4, 1)

	if _, err := Run(mps.Random(ws, 4), ws, nil); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("%+v", err)
	}
	if _, err := Run(mps.Random(ws, 4), ws, NewSweeps(-1)); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("%+v", err)
	}

	refs := []*mps.State{mps.Random(ws, 4)}
	_, err := RunExcited(mps.Random(ws, 4), ws, refs, NewSweeps(2),
		NewOpts().With("Weight", -1.0))
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("%+v", err)
	}
}

// stopAfter stops a run after a fixed number of sweeps.
type stopAfter struct {
	sweeps int
	checks int
}

func (o *stopAfter) Measure(s Snapshot) {}
func (o *stopAfter) CheckDone(s Snapshot) bool {
	o.checks++
	return s.Sweep >= o.sweeps
}

func TestEarlyStop(t *testing.T) {
	t.Parallel()
	ws := mps.Ising(4, 1)
	psi := mps.Random(ws, 4)
	obs := &stopAfter{sweeps: 2}
	if _, err := RunObserver(psi, ws, NewSweeps(100), obs, NewOpts().With("Quiet", true)); err != nil {
		t.Fatalf("%+v", err)
	}
	// CheckDone runs once per sweep, and the run stopped at the second.
	if obs.checks != 2 {
		t.Fatalf("%d", obs.checks)
	}
}

// energyTrace records the energy at the end of every sweep.
type energyTrace struct {
	energies []float64
}

func (o *energyTrace) Measure(s Snapshot) {
	if s.HalfSweep == 2 && s.Bond == 1 {
		o.energies = append(o.energies, s.Energy)
	}
}
func (o *energyTrace) CheckDone(s Snapshot) bool { return false }

func TestEnergyMonotonic(t *testing.T) {
	t.Parallel()
	const n, h = 8, 1.1
	ws := mps.Ising(n, h)
	psi := mps.Random(ws, 10)

	obs := &energyTrace{}
	if _, err := RunObserver(psi, ws, testSweeps(), obs, NewOpts().With("Quiet", true)); err != nil {
		t.Fatalf("%+v", err)
	}
	if len(obs.energies) != testSweeps().Nsweep() {
		t.Fatalf("%d", len(obs.energies))
	}
	for i := 1; i < len(obs.energies); i++ {
		if obs.energies[i] > obs.energies[i-1]+1e-7 {
			t.Fatalf("%d %v", i, obs.energies)
		}
	}
}

func TestWriteM(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	const n, h = 6, 0.9
	ws := mps.Ising(n, h)
	psi := mps.Random(ws, 10)
	defer psi.Close()

	// The Maxm schedule crosses WriteM at the third sweep, moving tensors
	// to disk mid-run.
	opts := NewOpts().With("Quiet", true).With("WriteM", 30).With("WriteDir", dir)
	energy, err := Run(psi, ws, testSweeps(), opts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !psi.WritesToDisk() {
		t.Fatalf("not on disk")
	}

	vals, _ := exactdiag.Eigen(exactdiag.TransverseFieldIsing(n, h))
	if math.Abs(energy-vals[0]) > 1e-6*math.Abs(vals[0]) {
		t.Fatalf("%f %f", energy, vals[0])
	}
}

// stateVector contracts a state into its full vector representation.
func stateVector(s *mps.State) *tensor.Dense {
	v := s.A(1)
	for i := 2; i <= s.N(); i++ {
		v = tensor.Product(v, s.A(i), [][2]int{{len(v.Shape()) - 1, 0}})
	}
	return v.Reshape(-1).Clone()
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
