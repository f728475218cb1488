package dmrg

import (
	"log"
	"math"
	"os"

	"github.com/fumin/dmrg/mps"
)

// stopFile requests a graceful stop at the end of the current sweep
// when present in the working directory.
const stopFile = "STOP_DMRG"

// A Snapshot describes the state of a run right after one bond update.
type Snapshot struct {
	// N is the number of lattice sites.
	N int
	// Sweep is the 1-based index of the current sweep.
	Sweep int
	// HalfSweep is 1 while moving right and 2 while moving left.
	HalfSweep int
	// Bond is the bond that was just updated, from 1 to N-1.
	Bond int
	// Energy is the eigenvalue found at this bond.
	Energy float64
	// Spectrum is the truncation result at this bond.
	Spectrum mps.Spectrum
	// Cutoff, Minm and Maxm are the truncation controls in effect.
	Cutoff     float64
	Minm, Maxm int
	// SolverConverged is false when the local eigensolver stopped at
	// its iteration cap before reaching its residual goal.
	SolverConverged bool
	// Opts carries the per-bond extended options.
	Opts Opts
}

// An Observer receives a Snapshot after every bond update and decides
// when a run is done.
type Observer interface {
	Measure(s Snapshot)
	// CheckDone is consulted once at the end of each sweep, with the
	// Snapshot of that sweep's last bond.
	CheckDone(s Snapshot) bool
}

// EnergyObserver is the default Observer. It logs per-sweep summaries
// and stops early when the energy change over two consecutive sweeps
// falls below an error goal, or when a file named STOP_DMRG appears in
// the working directory.
type EnergyObserver struct {
	errGoal   float64
	printEigs bool
	quiet     bool

	lastEnergy  float64
	maxEigs     int
	maxTruncErr float64
}

// NewEnergyObserver returns an EnergyObserver configured from opts.
// Recognized keys are EnergyErrgoal, PrintEigs and Quiet.
func NewEnergyObserver(opts Opts) *EnergyObserver {
	return &EnergyObserver{
		errGoal:     opts.Real("EnergyErrgoal", -1),
		printEigs:   opts.Bool("PrintEigs", true),
		quiet:       opts.Bool("Quiet", false),
		lastEnergy:  1000,
		maxTruncErr: -1,
	}
}

func (o *EnergyObserver) Measure(s Snapshot) {
	o.maxEigs = max(o.maxEigs, s.Spectrum.M)
	o.maxTruncErr = math.Max(o.maxTruncErr, s.Spectrum.TruncErr)

	debug := s.Opts.Int("DebugLevel", 0)
	if !s.SolverConverged && debug >= 2 {
		log.Printf("eigensolver hit iteration cap at sweep %d bond %d", s.Sweep, s.Bond)
	}

	if o.printEigs && !o.quiet && s.HalfSweep == 2 && s.Bond == s.N/2 {
		log.Printf("entanglement entropy at center bond %d: %f", s.Bond, vonNeumann(s.Spectrum.Eigs))
	}

	// End of sweep.
	if s.HalfSweep == 2 && s.Bond == 1 {
		if !o.quiet {
			log.Printf("sweep %d energy %.12f maxEigs %d maxTruncErr %.3E",
				s.Sweep, s.Energy, o.maxEigs, o.maxTruncErr)
		}
		o.maxEigs, o.maxTruncErr = 0, -1
	}
}

func (o *EnergyObserver) CheckDone(s Snapshot) bool {
	if _, err := os.Stat(stopFile); err == nil {
		os.Remove(stopFile)
		if !o.quiet {
			log.Printf("stopping: found file %s", stopFile)
		}
		return true
	}

	if o.errGoal > 0 && s.Sweep%2 == 0 {
		dE := math.Abs(s.Energy - o.lastEnergy)
		o.lastEnergy = s.Energy
		if dE < o.errGoal {
			if !o.quiet {
				log.Printf("energy change %.3E below goal %.3E after sweep %d", dE, o.errGoal, s.Sweep)
			}
			return true
		}
	}
	return false
}

// vonNeumann is the entanglement entropy of a density matrix spectrum.
func vonNeumann(eigs []float64) float64 {
	var s float64
	for _, p := range eigs {
		if p > 1e-14 {
			s -= p * math.Log(p)
		}
	}
	return s
}
