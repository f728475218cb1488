package dmrg

import (
	"fmt"
	"iter"
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/mps"
)

// sweepNext advances the (bond, half-sweep) position of a two-site
// sweep over n sites. A full sweep visits bonds 1..n-1 moving right,
// then n-1..1 moving left; half-sweep 3 marks the end.
func sweepNext(b, ha, n int) (int, int) {
	switch ha {
	case 1:
		if b == n-1 {
			return b, 2
		}
		return b + 1, 1
	case 2:
		if b == 1 {
			return 1, 3
		}
		return b - 1, 2
	}
	panic(ha)
}

// sweepBonds yields the (bond, half-sweep) positions of one full sweep.
func sweepBonds(n int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for b, ha := 1, 1; ha <= 2; b, ha = sweepNext(b, ha, n) {
			if !yield(b, ha) {
				return
			}
		}
	}
}

// runWorker drives the sweep loop: it walks the bonds of psi, solves
// the effective eigenproblem projected by ph at each bond, truncates,
// and reports every step to obs. It returns the last energy found.
func runWorker(psi *mps.State, ph LocalOp, sweeps *Sweeps, obs Observer, opts Opts) (float64, error) {
	if sweeps == nil || sweeps.Nsweep() < 0 {
		return math.NaN(), errors.Wrap(ErrBadConfig, "bad sweep schedule")
	}
	debug := 1
	if opts.Bool("Quiet", false) {
		debug = 0
	}
	debug = opts.Int("DebugLevel", debug)

	psi.Position(1)
	if sweeps.Nsweep() == 0 {
		return math.NaN(), nil
	}

	opts = opts.With("DebugLevel", debug)
	opts = opts.With("DoNormalize", true)

	n := psi.N()
	energy := math.NaN()
	for sw := 1; sw <= sweeps.Nsweep(); sw++ {
		swOpts := opts.
			With("Sweep", sw).
			With("Cutoff", sweeps.Cutoff(sw)).
			With("Minm", sweeps.Minm(sw)).
			With("Maxm", sweeps.Maxm(sw)).
			With("Noise", sweeps.Noise(sw)).
			With("MaxIter", sweeps.Niter(sw))

		// Move tensors to disk once the bond dimension schedule crosses
		// the WriteM threshold. The move is one-way.
		if !ph.WritesToDisk() && opts.Defined("WriteM") && sweeps.Maxm(sw) >= opts.Int("WriteM", 0) {
			dir := opts.String("WriteDir", "./")
			if debug > 0 {
				log.Printf("sweep %d: moving tensors to disk under %s", sw, dir)
			}
			if err := psi.WriteToDisk(dir); err != nil {
				return energy, errors.Wrap(err, "")
			}
			if err := ph.WriteToDisk(dir); err != nil {
				return energy, errors.Wrap(err, "")
			}
		}

		var last Snapshot
		for b, ha := range sweepBonds(n) {
			if debug >= 2 {
				log.Printf("sweep %d half-sweep %d bond (%d, %d)", sw, ha, b, b+1)
			}
			ph.Position(b, psi)
			phi := psi.Bond(b)

			var converged bool
			var err error
			energy, converged, err = davidson(ph, phi, sweeps.Niter(sw))
			if err != nil {
				return energy, errors.Wrap(err, fmt.Sprintf("sweep %d bond %d", sw, b))
			}

			dir := mps.Fromleft
			if ha == 2 {
				dir = mps.Fromright
			}
			spec, err := psi.SVDBond(b, phi, dir, ph, mps.TruncOpts{
				Cutoff:    sweeps.Cutoff(sw),
				Minm:      sweeps.Minm(sw),
				Maxm:      sweeps.Maxm(sw),
				Noise:     sweeps.Noise(sw),
				Normalize: opts.Bool("DoNormalize", true),
			})
			if err != nil {
				return energy, errors.Wrap(err, "")
			}

			last = Snapshot{
				N:               n,
				Sweep:           sw,
				HalfSweep:       ha,
				Bond:            b,
				Energy:          energy,
				Spectrum:        spec,
				Cutoff:          sweeps.Cutoff(sw),
				Minm:            sweeps.Minm(sw),
				Maxm:            sweeps.Maxm(sw),
				SolverConverged: converged,
				Opts: swOpts.
					With("AtBond", b).
					With("HalfSweep", ha).
					With("Energy", energy),
			}
			obs.Measure(last)
		}

		if obs.CheckDone(last) {
			break
		}
	}

	if err := psi.Normalize(); err != nil {
		return energy, errors.Wrap(err, "")
	}
	return energy, nil
}
