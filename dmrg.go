// Package dmrg finds extremal eigenstates of one dimensional lattice
// Hamiltonians by the density matrix renormalization group, working on
// matrix product states and operators.
// For the algorithm, see section 6.3, Schollwoeck, The density-matrix
// renormalization group in the age of matrix product states,
// https://arxiv.org/abs/1008.3477.
package dmrg

import (
	"github.com/pkg/errors"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

var (
	// ErrNonFinite is returned when an energy or a norm becomes NaN or
	// infinite during a run.
	ErrNonFinite = errors.New("non-finite value")
	// ErrBadConfig is returned for unusable inputs, such as a nil sweep
	// schedule or a non-positive excited state weight.
	ErrBadConfig = errors.New("bad configuration")
)

// Run optimizes psi towards the ground state of the Hamiltonian given
// by the MPO site tensors ws, following the sweep schedule. It returns
// the last energy found. psi is updated in place.
func Run(psi *mps.State, ws []*tensor.Dense, sweeps *Sweeps, opts ...Opts) (float64, error) {
	o := optsArg(opts)
	ph := NewLocalMPO(ws)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, NewEnergyObserver(o), o)
}

// RunObserver is Run with a caller supplied Observer.
func RunObserver(psi *mps.State, ws []*tensor.Dense, sweeps *Sweeps, obs Observer, opts ...Opts) (float64, error) {
	ph := NewLocalMPO(ws)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, obs, optsArg(opts))
}

// RunBoundaries is Run with fixed left and right boundary environment
// tensors lh and rh, for open systems embedded in a larger one.
// Either may be nil, in which case a trivial boundary is used.
func RunBoundaries(psi *mps.State, ws []*tensor.Dense, lh, rh *tensor.Dense, sweeps *Sweeps, opts ...Opts) (float64, error) {
	o := optsArg(opts)
	ph := NewLocalMPOBoundaries(ws, lh, rh)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, NewEnergyObserver(o), o)
}

// RunBoundariesObserver is RunBoundaries with a caller supplied Observer.
func RunBoundariesObserver(psi *mps.State, ws []*tensor.Dense, lh, rh *tensor.Dense, sweeps *Sweeps, obs Observer, opts ...Opts) (float64, error) {
	ph := NewLocalMPOBoundaries(ws, lh, rh)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, obs, optsArg(opts))
}

// RunSum optimizes psi against the Hamiltonian that is the implicit sum
// of the MPOs hs, without ever forming the summed MPO.
func RunSum(psi *mps.State, hs [][]*tensor.Dense, sweeps *Sweeps, opts ...Opts) (float64, error) {
	o := optsArg(opts)
	ph := NewLocalMPOSet(hs)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, NewEnergyObserver(o), o)
}

// RunSumObserver is RunSum with a caller supplied Observer.
func RunSumObserver(psi *mps.State, hs [][]*tensor.Dense, sweeps *Sweeps, obs Observer, opts ...Opts) (float64, error) {
	ph := NewLocalMPOSet(hs)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, obs, optsArg(opts))
}

// RunExcited optimizes psi towards the lowest eigenstate orthogonal to
// the states in refs, by penalizing overlap with each of them. The
// penalty weight is set by the Weight option, default 1, and must
// exceed the gap to the targeted state.
func RunExcited(psi *mps.State, ws []*tensor.Dense, refs []*mps.State, sweeps *Sweeps, opts ...Opts) (float64, error) {
	o := optsArg(opts)
	w := o.Real("Weight", 1)
	if w <= 0 {
		return 0, errors.Wrapf(ErrBadConfig, "weight %f", w)
	}
	ph := NewLocalMPOMPS(ws, refs, w)
	defer ph.Close()
	return runWorker(psi, ph, sweeps, NewEnergyObserver(o), o)
}

func optsArg(opts []Opts) Opts {
	if len(opts) == 0 {
		return NewOpts()
	}
	return opts[0]
}
