package dmrg

import (
	"fmt"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

// LocalMPOSet is the effective operator of a set of MPOs summed lazily:
// each MPO keeps its own environments and applications are summed, which
// avoids forming the MPO of the sum with its multiplied bond dimension.
type LocalMPOSet struct {
	ops []*LocalMPO
}

// NewLocalMPOSet creates the effective operator of the operator sum
// hs[0] + hs[1] + ...
func NewLocalMPOSet(hs [][]*tensor.Dense) *LocalMPOSet {
	if len(hs) == 0 {
		panic("empty set")
	}
	for i, h := range hs {
		if len(h) != len(hs[0]) {
			panic(fmt.Sprintf("%d %d %d", i, len(h), len(hs[0])))
		}
	}
	ops := make([]*LocalMPO, 0, len(hs))
	for _, h := range hs {
		ops = append(ops, NewLocalMPO(h))
	}
	return &LocalMPOSet{ops: ops}
}

// Position repositions every summand at bond b.
func (l *LocalMPOSet) Position(b int, psi *mps.State) {
	for _, op := range l.ops {
		op.Position(b, psi)
	}
}

// Apply sums the applications of all summands.
func (l *LocalMPOSet) Apply(phi *tensor.Dense) *tensor.Dense {
	out := l.ops[0].Apply(phi)
	for _, op := range l.ops[1:] {
		out.AddScaled(1, op.Apply(phi))
	}
	return out
}

// WritesToDisk reports whether disk backing is active.
func (l *LocalMPOSet) WritesToDisk() bool { return l.ops[0].WritesToDisk() }

// WriteToDisk switches every summand to disk backing. One-way.
func (l *LocalMPOSet) WriteToDisk(dir string) error {
	for _, op := range l.ops {
		if err := op.WriteToDisk(dir); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the disk stores, if any.
func (l *LocalMPOSet) Close() error {
	var err error
	for _, op := range l.ops {
		if err1 := op.Close(); err1 != nil && err == nil {
			err = err1
		}
	}
	return err
}
