package dmrg

import (
	"fmt"
)

// Sweeps is the schedule of accuracy parameters across sweeps. Setter
// arguments ramp: when fewer values than sweeps are given, the last value
// repeats for the remaining sweeps. The schedule is read-only once a run
// starts.
type Sweeps struct {
	nsweep int
	cutoff []float64
	minm   []int
	maxm   []int
	noise  []float64
	niter  []int
}

// NewSweeps returns a schedule of nsweep sweeps with defaults
// cutoff 1e-8, minm 1, maxm 500, noise 0 and 4 solver iterations.
// Negative nsweep is rejected at run entry, not here.
func NewSweeps(nsweep int) *Sweeps {
	s := &Sweeps{nsweep: nsweep}
	if nsweep <= 0 {
		return s
	}
	s.cutoff = ramp(nsweep, 1e-8)
	s.minm = rampInt(nsweep, 1)
	s.maxm = rampInt(nsweep, 500)
	s.noise = ramp(nsweep, 0)
	s.niter = rampInt(nsweep, 4)
	return s
}

// Nsweep returns the number of scheduled sweeps.
func (s *Sweeps) Nsweep() int { return s.nsweep }

// SetCutoff sets the per-sweep truncation cutoffs, ramping.
func (s *Sweeps) SetCutoff(vals ...float64) *Sweeps {
	setRamp(s.cutoff, vals)
	return s
}

// SetMinm sets the per-sweep minimum kept bond dimensions, ramping.
func (s *Sweeps) SetMinm(vals ...int) *Sweeps {
	setRamp(s.minm, vals)
	return s
}

// SetMaxm sets the per-sweep maximum kept bond dimensions, ramping.
func (s *Sweeps) SetMaxm(vals ...int) *Sweeps {
	setRamp(s.maxm, vals)
	return s
}

// SetNoise sets the per-sweep noise amplitudes, ramping.
func (s *Sweeps) SetNoise(vals ...float64) *Sweeps {
	setRamp(s.noise, vals)
	return s
}

// SetNiter sets the per-sweep eigensolver iteration caps, ramping.
func (s *Sweeps) SetNiter(vals ...int) *Sweeps {
	setRamp(s.niter, vals)
	return s
}

// Cutoff returns the cutoff of the 1-based sweep sw.
func (s *Sweeps) Cutoff(sw int) float64 { return s.cutoff[s.index(sw)] }

// Minm returns the minimum kept dimension of sweep sw.
func (s *Sweeps) Minm(sw int) int { return s.minm[s.index(sw)] }

// Maxm returns the maximum kept dimension of sweep sw.
func (s *Sweeps) Maxm(sw int) int { return s.maxm[s.index(sw)] }

// Noise returns the noise amplitude of sweep sw.
func (s *Sweeps) Noise(sw int) float64 { return s.noise[s.index(sw)] }

// Niter returns the eigensolver iteration cap of sweep sw.
func (s *Sweeps) Niter(sw int) int { return s.niter[s.index(sw)] }

func (s *Sweeps) index(sw int) int {
	if sw < 1 || sw > s.Nsweep() {
		panic(fmt.Sprintf("%d %d", sw, s.Nsweep()))
	}
	return sw - 1
}

func ramp(n int, def float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = def
	}
	return vals
}

func rampInt(n int, def int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = def
	}
	return vals
}

func setRamp[T any](dst []T, vals []T) {
	if len(vals) == 0 {
		return
	}
	cur := vals[0]
	for i := range dst {
		if i < len(vals) {
			cur = vals[i]
		}
		dst[i] = cur
	}
}
