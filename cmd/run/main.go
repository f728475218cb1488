// Command run computes ground and excited state energies of the
// transverse field Ising chain over a grid of sizes and fields, and
// plots the sweep convergence of each run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"

	"github.com/fumin/dmrg"
	"github.com/fumin/dmrg/mps"
)

const (
	fnameResult = "result.json"
	fnameDone   = "done.txt"
	fnamePlot   = "convergence.png"
)

var (
	configPath = flag.String("c", "config.yaml", "config file")
	runDir     = flag.String("d", filepath.Join("runs", "ising"), "run directory")
)

type Config struct {
	Sites   []int     `yaml:"sites"`
	Fields  []float64 `yaml:"fields"`
	Excited int       `yaml:"excited"`
	Sweeps  struct {
		N      int       `yaml:"n"`
		Cutoff []float64 `yaml:"cutoff"`
		Minm   []int     `yaml:"minm"`
		Maxm   []int     `yaml:"maxm"`
		Noise  []float64 `yaml:"noise"`
		Niter  []int     `yaml:"niter"`
	} `yaml:"sweeps"`
	EnergyErrgoal float64 `yaml:"energyErrgoal"`
	Weight        float64 `yaml:"weight"`
}

func readConfig(fpath string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(fpath)
	if err != nil {
		return cfg, errors.Wrap(err, "")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "")
	}
	if cfg.Sweeps.N <= 0 {
		return cfg, errors.Errorf("sweeps.n %d", cfg.Sweeps.N)
	}
	if cfg.Weight == 0 {
		cfg.Weight = 10
	}
	return cfg, nil
}

func (cfg Config) schedule() *dmrg.Sweeps {
	sweeps := dmrg.NewSweeps(cfg.Sweeps.N)
	if len(cfg.Sweeps.Cutoff) > 0 {
		sweeps.SetCutoff(cfg.Sweeps.Cutoff...)
	}
	if len(cfg.Sweeps.Minm) > 0 {
		sweeps.SetMinm(cfg.Sweeps.Minm...)
	}
	if len(cfg.Sweeps.Maxm) > 0 {
		sweeps.SetMaxm(cfg.Sweeps.Maxm...)
	}
	if len(cfg.Sweeps.Noise) > 0 {
		sweeps.SetNoise(cfg.Sweeps.Noise...)
	}
	if len(cfg.Sweeps.Niter) > 0 {
		sweeps.SetNiter(cfg.Sweeps.Niter...)
	}
	return sweeps
}

type Result struct {
	N int
	H float64
	// Energies are the eigenvalues found, ground state first.
	Energies []float64
	// Magnetization is <psi|Sz|psi>/N of the ground state.
	Magnetization float64
	// SweepEnergies is the per-sweep energy of each run, for plotting.
	SweepEnergies [][]float64
}

// sweepRecorder wraps an Observer and keeps the energy at the end of
// every sweep.
type sweepRecorder struct {
	inner    dmrg.Observer
	energies []float64
}

func (r *sweepRecorder) Measure(s dmrg.Snapshot) {
	r.inner.Measure(s)
	if s.HalfSweep == 2 && s.Bond == 1 {
		r.energies = append(r.energies, s.Energy)
	}
}

func (r *sweepRecorder) CheckDone(s dmrg.Snapshot) bool { return r.inner.CheckDone(s) }

func solve(dir string, cfg Config, n int, h float64) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	ws := mps.Ising(n, h)
	sweeps := cfg.schedule()
	opts := dmrg.NewOpts().
		With("Quiet", true).
		With("EnergyErrgoal", cfg.EnergyErrgoal).
		With("Weight", cfg.Weight)

	res := Result{N: n, H: h}

	psi := mps.Random(ws, sweeps.Maxm(1))
	rec := &sweepRecorder{inner: dmrg.NewEnergyObserver(opts)}
	energy, err := dmrg.RunObserver(psi, ws, sweeps, rec, opts)
	if err != nil {
		return errors.Wrap(err, "")
	}
	res.Energies = append(res.Energies, energy)
	res.SweepEnergies = append(res.SweepEnergies, rec.energies)
	res.Magnetization = mps.Expectation(mps.MagnetizationZ(n), psi) / float64(n)

	refs := []*mps.State{psi}
	for range cfg.Excited {
		phi := mps.Random(ws, sweeps.Maxm(1))
		energy, err := dmrg.RunExcited(phi, ws, refs, sweeps, opts)
		if err != nil {
			return errors.Wrap(err, "")
		}
		res.Energies = append(res.Energies, energy)
		refs = append(refs, phi)
	}

	b, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameResult), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	if err := plotConvergence(filepath.Join(dir, fnamePlot), res); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func plotConvergence(fpath string, res Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("n=%d h=%f", res.N, res.H)
	p.X.Label.Text = "sweep"
	p.Y.Label.Text = "energy"

	for i, energies := range res.SweepEnergies {
		pts := make(plotter.XYs, len(energies))
		for j, e := range energies {
			pts[j] = plotter.XY{X: float64(j + 1), Y: e}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(err, "")
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("level %d", i), line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, fpath); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string, cfg Config) ([]Result, error) {
	results := make([]Result, 0)
	for _, n := range cfg.Sites {
		for _, h := range cfg.Fields {
			rdir := filepath.Join(dir, fmt.Sprintf("%d", n), fmt.Sprintf("%f", h))
			b, err := os.ReadFile(filepath.Join(rdir, fnameResult))
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%d %f", n, h))
			}
			var res Result
			if err := json.Unmarshal(b, &res); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%d %f", n, h))
			}
			results = append(results, res)
		}
	}
	return results, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	cfg, err := readConfig(*configPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	for _, n := range cfg.Sites {
		for _, h := range cfg.Fields {
			dir := filepath.Join(*runDir, fmt.Sprintf("%d", n), fmt.Sprintf("%f", h))
			if err := solve(dir, cfg, n, h); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%d %f", n, h))
			}
			log.Printf("%d %f", n, h)
		}
	}

	results, err := gather(*runDir, cfg)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("n,h,e0,e1,gap,m\n")
	for _, res := range results {
		e1, gap := 0.0, 0.0
		if len(res.Energies) > 1 {
			e1 = res.Energies[1]
			gap = e1 - res.Energies[0]
		}
		fmt.Printf("%d,%f,%f,%f,%f,%f\n", res.N, res.H, res.Energies[0], e1, gap, res.Magnetization)
	}
	return nil
}
