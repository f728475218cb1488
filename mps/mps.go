// Package mps implements matrix product states with an explicit
// orthogonality center.
//
// References:
//   - The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock
package mps

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/tensor"
)

const (
	// mpsLeftAxis is the axis of a_{l-1} in Figure 6, Ulrich Schollwock.
	mpsLeftAxis  = 0
	mpsUpAxis    = 1
	mpsRightAxis = 2
	// mpoLeftAxis is the axis of b_{l-1} in Figure 35, Ulrich Schollwock.
	mpoLeftAxis  = 0
	mpoRightAxis = 1
	mpoUpAxis    = 2
	mpoDownAxis  = 3
)

// Direction is the half-sweep direction of a two-site update.
type Direction int

const (
	// Fromleft grows the left-canonical region; the center moves right.
	Fromleft Direction = iota
	// Fromright grows the right-canonical region; the center moves left.
	Fromright
)

// Spectrum records the outcome of a single bond truncation.
type Spectrum struct {
	// Eigs are the kept density-matrix eigenvalues, descending and
	// normalized to the pre-truncation weight.
	Eigs []float64
	// TruncErr is the discarded weight. It may exceed the configured
	// cutoff when the Minm floor or the Maxm cap forces it.
	TruncErr float64
	// M is the kept bond dimension.
	M int
}

// TruncOpts control a bond truncation.
type TruncOpts struct {
	Cutoff float64
	Minm   int
	Maxm   int
	Noise  float64
	// Normalize rescales the kept singular values to unit weight.
	Normalize bool
}

// An Applier applies an effective operator to a merged two-site tensor.
type Applier interface {
	Apply(phi *tensor.Dense) *tensor.Dense
}

// State is a matrix product state of N sites, numbered 1..N.
// Site tensors have axes {left bond, physical, right bond}.
type State struct {
	sites   []*tensor.Dense
	center  int // 1-based orthogonality center; 0 before the first Position
	spectra []Spectrum
	hasSpec []bool

	write bool
	store *tensor.Store
}

// New creates a State from site tensors.
// Bond dimensions must permit canonicalization, that is every tensor's
// right dimension is at most left*phys and its left dimension at most
// phys*right.
func New(sites []*tensor.Dense) *State {
	if len(sites) < 2 {
		panic(fmt.Sprintf("%d", len(sites)))
	}
	for i, m := range sites {
		s := m.Shape()
		if len(s) != 3 {
			panic(fmt.Sprintf("%d %#v", i, s))
		}
		if i == 0 && s[mpsLeftAxis] != 1 {
			panic(fmt.Sprintf("%#v", s))
		}
		if i == len(sites)-1 && s[mpsRightAxis] != 1 {
			panic(fmt.Sprintf("%#v", s))
		}
		if i > 0 && sites[i-1].Shape()[mpsRightAxis] != s[mpsLeftAxis] {
			panic(fmt.Sprintf("%d %#v %#v", i, sites[i-1].Shape(), s))
		}
		if s[mpsRightAxis] > s[mpsLeftAxis]*s[mpsUpAxis] || s[mpsLeftAxis] > s[mpsUpAxis]*s[mpsRightAxis] {
			panic(fmt.Sprintf("%d %#v", i, s))
		}
	}
	cloned := make([]*tensor.Dense, 0, len(sites))
	for _, m := range sites {
		cloned = append(cloned, m.Clone())
	}
	return &State{
		sites:   cloned,
		spectra: make([]Spectrum, len(sites)-1),
		hasSpec: make([]bool, len(sites)-1),
	}
}

// Random creates a random state compatible with mpo.
// maxD is the maximum bond dimension, which is D in the discussion below
// equation 71 in section 4.1.4, Ulrich Schollwock.
func Random(mpo []*tensor.Dense, maxD int) *State {
	n := len(mpo)
	sites := make([]*tensor.Dense, 0, n)

	// First site.
	physD := mpo[0].Shape()[mpoDownAxis]
	leftD := physD
	sites = append(sites, randTensor(1, physD, min(physD, maxD)))

	for i := 1; i <= n-2; i++ {
		physD := mpo[i].Shape()[mpoDownAxis]
		var rightD int
		switch {
		case i < n/2:
			rightD = leftD * physD
		case i > n/2:
			rightD = leftD / physD
		case n%2 == 0:
			rightD = leftD / physD
		default:
			rightD = leftD
		}
		leftD = rightD

		si1 := sites[i-1].Shape()
		sites = append(sites, randTensor(si1[mpsRightAxis], physD, min(rightD, maxD)))
	}

	// Last site.
	physD = mpo[n-1].Shape()[mpoDownAxis]
	si1 := sites[n-2].Shape()
	sites = append(sites, randTensor(si1[mpsRightAxis], physD, 1))

	return New(sites)
}

// N returns the number of sites.
func (s *State) N() int { return len(s.sites) }

// Center returns the orthogonality center, or 0 if the state has not been
// canonicalized yet.
func (s *State) Center() int { return s.center }

// A returns the site tensor at site i. The returned tensor must not be
// modified.
func (s *State) A(i int) *tensor.Dense {
	m := s.sites[i-1]
	if m == nil {
		var err error
		if m, err = s.store.Get(siteKey(i)); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
		s.sites[i-1] = m
	}
	return m
}

func (s *State) setA(i int, m *tensor.Dense) {
	s.sites[i-1] = m
	if s.write {
		if err := s.store.Put(siteKey(i), m); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
	}
}

func siteKey(i int) string { return fmt.Sprintf("psi/%d", i) }

// Position moves the orthogonality center to site i.
// Tensors left of i become left-canonical, tensors right of i
// right-canonical.
func (s *State) Position(i int) {
	if i < 1 || i > s.N() {
		panic(fmt.Sprintf("%d %d", i, s.N()))
	}
	if s.center == 0 {
		for j := s.N(); j >= 2; j-- {
			s.rightNormalize(j)
		}
		s.center = 1
	}
	for s.center < i {
		s.leftNormalize(s.center)
		s.center++
	}
	for s.center > i {
		s.rightNormalize(s.center)
		s.center--
	}
}

// leftNormalize makes A(j) left-canonical, pushing the residual into A(j+1).
// See Section 4.4.1 Generation of a left-canonical MPS, Ulrich Schollwock.
func (s *State) leftNormalize(j int) {
	shape := s.A(j).Shape()
	l, d := shape[mpsLeftAxis], shape[mpsUpAxis]
	q, r := tensor.QR(s.A(j).Reshape(l*d, shape[mpsRightAxis]))
	s.setA(j, q.Reshape(l, d, -1))
	s.setA(j+1, tensor.Product(r, s.A(j+1), [][2]int{{1, mpsLeftAxis}}))
}

// rightNormalize makes A(j) right-canonical, pushing the residual into A(j-1).
// See Section 4.4.2 Generation of a right-canonical MPS, Ulrich Schollwock.
func (s *State) rightNormalize(j int) {
	shape := s.A(j).Shape()
	d, r := shape[mpsUpAxis], shape[mpsRightAxis]
	lt, q := tensor.LQ(s.A(j).Reshape(shape[mpsLeftAxis], d*r))
	s.setA(j, q.Reshape(-1, d, r))
	s.setA(j-1, tensor.Product(s.A(j-1), lt, [][2]int{{mpsRightAxis, 0}}))
}

// Bond merges the site tensors at sites b and b+1 into a two-site tensor
// with axes {left bond, phys b, phys b+1, right bond}.
func (s *State) Bond(b int) *tensor.Dense {
	return tensor.Product(s.A(b), s.A(b+1), [][2]int{{mpsRightAxis, mpsLeftAxis}})
}

// SVDBond splits the two-site tensor phi back into the site tensors at
// b and b+1, truncating per opts, and moves the orthogonality center to
// b+1 (Fromleft) or b (Fromright). The effective operator h seeds the
// noise expansion when opts.Noise > 0; it may be nil.
//
// The Minm floor always wins over the cutoff: the reported truncation
// error is the true discarded weight even when it exceeds opts.Cutoff.
func (s *State) SVDBond(b int, phi *tensor.Dense, dir Direction, h Applier, opts TruncOpts) (Spectrum, error) {
	if b < 1 || b > s.N()-1 {
		panic(fmt.Sprintf("%d %d", b, s.N()))
	}
	if s.center != b && s.center != b+1 {
		panic(fmt.Sprintf("%d %d", s.center, b))
	}

	if opts.Noise > 0 && h != nil {
		kick := h.Apply(phi)
		if nrm := kick.Norm(); nrm > 0 {
			phi = phi.Clone().AddScaled(opts.Noise*phi.Norm()/nrm, kick)
		}
	}

	shape := phi.Shape()
	l, d1, d2, r := shape[0], shape[1], shape[2], shape[3]
	u, sv, vt := tensor.SVD(phi.Reshape(l*d1, d2*r))

	// suffix[k] is the weight discarded when keeping k values.
	suffix := make([]float64, len(sv)+1)
	for i := len(sv) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + sv[i]*sv[i]
	}
	total := suffix[0]
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Spectrum{}, errors.Errorf("bond %d: degenerate spectrum %f", b, total)
	}

	maxKeep := len(sv)
	if opts.Maxm > 0 {
		maxKeep = min(maxKeep, opts.Maxm)
	}
	minKeep := min(max(1, opts.Minm), maxKeep)
	keep := minKeep
	for keep < maxKeep && suffix[keep] > opts.Cutoff*total {
		keep++
	}

	spec := Spectrum{
		Eigs:     make([]float64, 0, keep),
		TruncErr: suffix[keep] / total,
		M:        keep,
	}
	for _, v := range sv[:keep] {
		spec.Eigs = append(spec.Eigs, v*v/total)
	}

	sk := make([]float64, keep)
	copy(sk, sv[:keep])
	if opts.Normalize {
		kept := math.Sqrt(total - suffix[keep])
		for i := range sk {
			sk[i] /= kept
		}
	}

	uk := u.Slice([][2]int{{0, l * d1}, {0, keep}})
	vtk := vt.Slice([][2]int{{0, keep}, {0, d2 * r}})
	switch dir {
	case Fromleft:
		s.setA(b, uk.Reshape(l, d1, keep))
		s.setA(b+1, scaleRows(vtk, sk).Reshape(keep, d2, r))
		s.center = b + 1
	default:
		s.setA(b, scaleCols(uk, sk).Reshape(l, d1, keep))
		s.setA(b+1, vtk.Reshape(keep, d2, r))
		s.center = b
	}

	s.spectra[b-1] = spec
	s.hasSpec[b-1] = true
	return spec, nil
}

func scaleRows(a *tensor.Dense, s []float64) *tensor.Dense {
	shape := a.Shape()
	data := a.Data()
	for i := range shape[0] {
		for j := range shape[1] {
			data[i*shape[1]+j] *= s[i]
		}
	}
	return a
}

func scaleCols(a *tensor.Dense, s []float64) *tensor.Dense {
	shape := a.Shape()
	data := a.Data()
	for i := range shape[0] {
		for j := range shape[1] {
			data[i*shape[1]+j] *= s[j]
		}
	}
	return a
}

// TruncationResult returns the spectrum recorded at bond b by the most
// recent SVDBond there, if any.
func (s *State) TruncationResult(b int) (Spectrum, bool) {
	return s.spectra[b-1], s.hasSpec[b-1]
}

// Normalize rescales the state to unit norm.
func (s *State) Normalize() error {
	if s.center == 0 {
		panic("no orthogonality center")
	}
	nrm := s.A(s.center).Norm()
	if nrm <= 0 || math.IsNaN(nrm) || math.IsInf(nrm, 0) {
		return errors.Errorf("norm %f", nrm)
	}
	s.setA(s.center, s.A(s.center).Scale(1/nrm))
	return nil
}

// WritesToDisk reports whether disk backing is active.
func (s *State) WritesToDisk() bool { return s.write }

// WriteToDisk mirrors all site tensors into a sqlite store under dir.
// The switch is one-way for the remainder of the state's life.
func (s *State) WriteToDisk(dir string) error {
	if s.write {
		return nil
	}
	f, err := os.CreateTemp(dir, "psi-*.db")
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	if s.store, err = tensor.NewStore(f.Name()); err != nil {
		return errors.Wrap(err, "")
	}
	s.write = true
	for i := 1; i <= s.N(); i++ {
		if err := s.store.Put(siteKey(i), s.A(i)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// Close releases the disk store, if any.
func (s *State) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// InnerProduct computes the overlap <x|y>.
// See Section 4.2.1 Efficient evaluation of contractions, Ulrich Schollwock.
func InnerProduct(x, y *State) float64 {
	if x.N() != y.N() {
		panic(fmt.Sprintf("%d %d", x.N(), y.N()))
	}

	f := ones(1, 1)
	const fTopAxis, fBottomAxis = 0, 1
	for i := 1; i <= x.N(); i++ {
		fyi := tensor.Product(f, y.A(i), [][2]int{{fBottomAxis, mpsLeftAxis}})
		f = tensor.Product(x.A(i), fyi, [][2]int{{mpsLeftAxis, fTopAxis}, {mpsUpAxis, 1}})
	}
	return f.At(0, 0)
}

// Expectation computes the unnormalized expectation value <x|W|x> of the
// operator given as the MPO ws.
// See Equation 192, Section 6.2, Ulrich Schollwock.
func Expectation(ws []*tensor.Dense, x *State) float64 {
	if len(ws) != x.N() {
		panic(fmt.Sprintf("%d %d", len(ws), x.N()))
	}

	env := ones(1, 1, 1)
	for i := 1; i <= x.N(); i++ {
		env = GrowLeft(env, ws[i-1], x.A(i))
	}
	return env.At(0, 0, 0)
}

// GrowLeft absorbs one site into a left environment of shape
// {bra bond, mpo bond, ket bond}.
// See Figure 38 and Equation 192, Ulrich Schollwock.
func GrowLeft(env, w, m *tensor.Dense) *tensor.Dense {
	// fm is of shape {top, mid, up, right}.
	fm := tensor.Product(env, m, [][2]int{{2, mpsLeftAxis}})
	// wfm is of shape {mpoRight, mpoUp, top, right}.
	wfm := tensor.Product(w, fm, [][2]int{{mpoDownAxis, 2}, {mpoLeftAxis, 1}})
	// The result is of shape {right.bra, mpoRight, right}.
	return tensor.Product(m, wfm, [][2]int{{mpsLeftAxis, 2}, {mpsUpAxis, 1}})
}

// GrowRight absorbs one site into a right environment of shape
// {bra bond, mpo bond, ket bond}.
// See Figure 38 and Equation 193, Ulrich Schollwock.
func GrowRight(env, w, m *tensor.Dense) *tensor.Dense {
	// fm is of shape {top, mid, left, up}.
	fm := tensor.Product(env, m, [][2]int{{2, mpsRightAxis}})
	// wfm is of shape {mpoLeft, mpoUp, top, left}.
	wfm := tensor.Product(w, fm, [][2]int{{mpoDownAxis, 3}, {mpoRightAxis, 1}})
	// The result is of shape {left.bra, mpoLeft, left}.
	return tensor.Product(m, wfm, [][2]int{{mpsRightAxis, 2}, {mpsUpAxis, 1}})
}

// ApplyTwoSite applies the effective operator defined by the environments
// l, r and the site operators w1, w2 to the merged two-site tensor phi.
// See Equation 210, Section 6.3 Iterative ground state search, Ulrich Schollwock.
func ApplyTwoSite(l, w1, w2, r, phi *tensor.Dense) *tensor.Dense {
	// x1 is of shape {lTop, lMid, up1, up2, pRight}.
	x1 := tensor.Product(l, phi, [][2]int{{2, 0}})
	// x2 is of shape {w1Right, w1Up, lTop, up2, pRight}.
	x2 := tensor.Product(w1, x1, [][2]int{{mpoDownAxis, 2}, {mpoLeftAxis, 1}})
	// x3 is of shape {w2Right, w2Up, w1Up, lTop, pRight}.
	x3 := tensor.Product(w2, x2, [][2]int{{mpoDownAxis, 3}, {mpoLeftAxis, 0}})
	// x4 is of shape {w2Up, w1Up, lTop, rTop}.
	x4 := tensor.Product(x3, r, [][2]int{{0, 1}, {4, 2}})
	return x4.Transpose(2, 1, 0, 3)
}

// GrowLeftOverlap absorbs one site into a left overlap environment of
// shape {ref bond, ket bond}.
func GrowLeftOverlap(env, refM, m *tensor.Dense) *tensor.Dense {
	// t is of shape {ref, up, right}.
	t := tensor.Product(env, m, [][2]int{{1, mpsLeftAxis}})
	// The result is of shape {refRight, right}.
	return tensor.Product(refM, t, [][2]int{{mpsLeftAxis, 0}, {mpsUpAxis, 1}})
}

// GrowRightOverlap absorbs one site into a right overlap environment of
// shape {ref bond, ket bond}.
func GrowRightOverlap(env, refM, m *tensor.Dense) *tensor.Dense {
	// t is of shape {ref, left, up}.
	t := tensor.Product(env, m, [][2]int{{1, mpsRightAxis}})
	// The result is of shape {refLeft, left}.
	return tensor.Product(refM, t, [][2]int{{mpsRightAxis, 0}, {mpsUpAxis, 2}})
}

func ones(shape ...int) *tensor.Dense {
	t := tensor.Zeros(shape...)
	data := t.Data()
	for i := range data {
		data[i] = 1
	}
	return t
}

func randTensor(shape ...int) *tensor.Dense {
	t := tensor.Zeros(shape...)
	data := t.Data()
	for i := range data {
		data[i] = rand.Float64()*2 - 1
	}
	return t
}
