package dmrg

import (
	"fmt"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

// LocalMPOMPS is the effective operator of an MPO plus weighted rank-one
// projectors onto a set of reference states,
//
//	H + w * (|ref0><ref0| + |ref1><ref1| + ...),
//
// which penalizes overlap with the references and drives the optimization
// toward a state orthogonal to all of them. It is used to target excited
// states once the states below them are known.
type LocalMPOMPS struct {
	op     *LocalMPO
	refs   []*mps.State
	weight float64

	// Per-reference overlap environments of shape {ref bond, ket bond},
	// indexed 0..N+1 like LocalMPO's, with shared watermarks since all
	// references advance in lockstep.
	lo   [][]*tensor.Dense
	ro   [][]*tensor.Dense
	lLim int
	rLim int
	b    int
}

// NewLocalMPOMPS creates the effective operator of the MPO ws plus
// projectors onto refs with weight w. The caller must ensure w > 0.
func NewLocalMPOMPS(ws []*tensor.Dense, refs []*mps.State, w float64) *LocalMPOMPS {
	n := len(ws)
	for i, ref := range refs {
		if ref.N() != n {
			panic(fmt.Sprintf("%d %d %d", i, ref.N(), n))
		}
	}
	l := &LocalMPOMPS{
		op:     NewLocalMPO(ws),
		refs:   refs,
		weight: w,
		lo:     make([][]*tensor.Dense, len(refs)),
		ro:     make([][]*tensor.Dense, len(refs)),
		lLim:   0,
		rLim:   n + 1,
	}
	for k := range refs {
		l.lo[k] = make([]*tensor.Dense, n+2)
		l.ro[k] = make([]*tensor.Dense, n+2)
		l.lo[k][0] = onesTensor(1, 1)
		l.ro[k][n+1] = onesTensor(1, 1)
	}
	return l
}

// Position repositions the MPO part and the overlap environments at bond b.
func (l *LocalMPOMPS) Position(b int, psi *mps.State) {
	l.op.Position(b, psi)

	for l.lLim < b-1 {
		i := l.lLim + 1
		for k, ref := range l.refs {
			l.lo[k][i] = mps.GrowLeftOverlap(l.lo[k][i-1], ref.A(i), psi.A(i))
		}
		l.lLim = i
	}
	for l.rLim > b+2 {
		i := l.rLim - 1
		for k, ref := range l.refs {
			l.ro[k][i] = mps.GrowRightOverlap(l.ro[k][i+1], ref.A(i), psi.A(i))
		}
		l.rLim = i
	}
	l.lLim = min(l.lLim, b-1)
	l.rLim = max(l.rLim, b+2)
	l.b = b
}

// Apply computes (H + w sum |ref><ref|) phi at the current bond.
func (l *LocalMPOMPS) Apply(phi *tensor.Dense) *tensor.Dense {
	if l.b == 0 {
		panic("not positioned")
	}
	b := l.b
	out := l.op.Apply(phi)
	for k, ref := range l.refs {
		// v is the reference's two-site block expressed in the local
		// basis of phi, so that <ref|psi(phi)> = Dot(v, phi).
		rphi := ref.Bond(b)
		v := tensor.Product(l.lo[k][b-1], rphi, [][2]int{{0, 0}})
		v = tensor.Product(v, l.ro[k][b+2], [][2]int{{3, 0}})
		out.AddScaled(l.weight*tensor.Dot(v, phi), v)
	}
	return out
}

// WritesToDisk reports whether disk backing is active on the MPO part.
func (l *LocalMPOMPS) WritesToDisk() bool { return l.op.WritesToDisk() }

// WriteToDisk switches the MPO part to disk backing. The overlap
// environments are bond-dimension sized and stay in memory.
func (l *LocalMPOMPS) WriteToDisk(dir string) error {
	return l.op.WriteToDisk(dir)
}

// Close releases the disk store, if any.
func (l *LocalMPOMPS) Close() error { return l.op.Close() }
