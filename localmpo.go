package dmrg

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

// A LocalOp projects a global operator onto the two-site subspace around a
// bond, caching boundary environments. Position must be called before
// Apply; environments touching the two active sites are rebuilt at every
// Position so stale caches cannot survive a center move.
type LocalOp interface {
	Position(b int, psi *mps.State)
	Apply(phi *tensor.Dense) *tensor.Dense
	WritesToDisk() bool
	WriteToDisk(dir string) error
	Close() error
}

// LocalMPO is the projection of a single MPO onto a two-site subspace.
// The zero bond means not positioned yet.
//
// Environment validity is tracked by watermarks: envL[0..lLim] and
// envR[rLim..N+1] hold environments consistent with the current state.
// Both are clamped at every Position because the caller is about to
// replace the site tensors at b and b+1.
type LocalMPO struct {
	ws   []*tensor.Dense
	envL []*tensor.Dense // 0..N+1; envL[i] includes sites 1..i
	envR []*tensor.Dense // 0..N+1; envR[i] includes sites i..N
	lLim int
	rLim int
	b    int

	write bool
	store *tensor.Store
}

// NewLocalMPO creates the effective operator of the MPO ws.
func NewLocalMPO(ws []*tensor.Dense) *LocalMPO {
	return NewLocalMPOBoundaries(ws, nil, nil)
}

// NewLocalMPOBoundaries creates the effective operator of the MPO ws with
// pre-supplied boundary environments lh and rh of shape
// {bra bond, mpo bond, ket bond}. Nil boundaries are trivial, for a chain
// that is a complete system rather than a sub-segment of a larger one.
func NewLocalMPOBoundaries(ws []*tensor.Dense, lh, rh *tensor.Dense) *LocalMPO {
	n := len(ws)
	if n < 2 {
		panic(fmt.Sprintf("%d", n))
	}
	l := &LocalMPO{
		ws:   ws,
		envL: make([]*tensor.Dense, n+2),
		envR: make([]*tensor.Dense, n+2),
		lLim: 0,
		rLim: n + 1,
	}
	if lh == nil {
		lh = onesTensor(1, 1, 1)
	}
	if rh == nil {
		rh = onesTensor(1, 1, 1)
	}
	l.envL[0] = lh
	l.envR[n+1] = rh
	return l
}

// Position rebuilds and advances the environment caches for bond b of psi.
func (l *LocalMPO) Position(b int, psi *mps.State) {
	n := len(l.ws)
	if b < 1 || b > n-1 {
		panic(fmt.Sprintf("%d %d", b, n))
	}
	for l.lLim < b-1 {
		i := l.lLim + 1
		l.setEnvL(i, mps.GrowLeft(l.envLAt(i-1), l.ws[i-1], psi.A(i)))
		l.lLim = i
	}
	for l.rLim > b+2 {
		i := l.rLim - 1
		l.setEnvR(i, mps.GrowRight(l.envRAt(i+1), l.ws[i-1], psi.A(i)))
		l.rLim = i
	}
	// The caller is about to replace sites b and b+1.
	l.lLim = min(l.lLim, b-1)
	l.rLim = max(l.rLim, b+2)
	l.b = b
}

// Apply computes the effective operator applied to the merged two-site
// tensor phi at the current bond.
func (l *LocalMPO) Apply(phi *tensor.Dense) *tensor.Dense {
	if l.b == 0 {
		panic("not positioned")
	}
	b := l.b
	return mps.ApplyTwoSite(l.envLAt(b-1), l.ws[b-1], l.ws[b], l.envRAt(b+2), phi)
}

func (l *LocalMPO) envLAt(i int) *tensor.Dense {
	t := l.envL[i]
	if t == nil {
		var err error
		if t, err = l.store.Get(envKey("L", i)); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
		l.envL[i] = t
	}
	return t
}

func (l *LocalMPO) envRAt(i int) *tensor.Dense {
	t := l.envR[i]
	if t == nil {
		var err error
		if t, err = l.store.Get(envKey("R", i)); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
		l.envR[i] = t
	}
	return t
}

func (l *LocalMPO) setEnvL(i int, t *tensor.Dense) {
	l.envL[i] = t
	if l.write {
		if err := l.store.Put(envKey("L", i), t); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
	}
}

func (l *LocalMPO) setEnvR(i int, t *tensor.Dense) {
	l.envR[i] = t
	if l.write {
		if err := l.store.Put(envKey("R", i), t); err != nil {
			panic(fmt.Sprintf("%+v", err))
		}
	}
}

func envKey(side string, i int) string { return fmt.Sprintf("env%s/%d", side, i) }

// WritesToDisk reports whether disk backing is active.
func (l *LocalMPO) WritesToDisk() bool { return l.write }

// WriteToDisk mirrors the environment caches into a sqlite store under
// dir. The switch is one-way.
func (l *LocalMPO) WriteToDisk(dir string) error {
	if l.write {
		return nil
	}
	f, err := os.CreateTemp(dir, "localmpo-*.db")
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	if l.store, err = tensor.NewStore(f.Name()); err != nil {
		return errors.Wrap(err, "")
	}
	l.write = true
	for i, t := range l.envL {
		if t != nil {
			if err := l.store.Put(envKey("L", i), t); err != nil {
				return errors.Wrap(err, "")
			}
		}
	}
	for i, t := range l.envR {
		if t != nil {
			if err := l.store.Put(envKey("R", i), t); err != nil {
				return errors.Wrap(err, "")
			}
		}
	}
	return nil
}

// Close releases the disk store, if any.
func (l *LocalMPO) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

func onesTensor(shape ...int) *tensor.Dense {
	t := tensor.Zeros(shape...)
	data := t.Data()
	for i := range data {
		data[i] = 1
	}
	return t
}
