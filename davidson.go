package dmrg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/fumin/dmrg/mps"
	"github.com/fumin/dmrg/tensor"
)

// eigTol is the relative residual goal of the local eigensolver.
const eigTol = 1e-9

// davidson finds the lowest eigenpair of the effective operator h by a
// Davidson iteration with identity preconditioner: Rayleigh-Ritz over a
// subspace grown by orthogonalized residuals. phi is the initial guess
// and is overwritten with the normalized improved eigenvector.
//
// converged is false when the iteration cap is reached before the
// residual goal; the best pair found so far is still returned. A
// non-finite Ritz value returns ErrNonFinite.
func davidson(h mps.Applier, phi *tensor.Dense, maxIter int) (energy float64, converged bool, err error) {
	nrm := phi.Norm()
	if nrm <= 0 || math.IsNaN(nrm) || math.IsInf(nrm, 0) {
		return math.NaN(), false, errors.Wrapf(ErrNonFinite, "initial norm %f", nrm)
	}
	dim := phi.Size()
	maxDim := min(max(maxIter, 1), dim)

	vs := []*tensor.Dense{phi.Clone().Scale(1 / nrm)}
	hvs := []*tensor.Dense{h.Apply(vs[0])}

	x := vs[0].Clone()
	for {
		k := len(vs)

		// Rayleigh-Ritz on the subspace spanned by vs.
		sub := mat.NewSymDense(k, nil)
		for i := range k {
			for j := i; j < k; j++ {
				v := (tensor.Dot(vs[i], hvs[j]) + tensor.Dot(vs[j], hvs[i])) / 2
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return math.NaN(), false, errors.Wrapf(ErrNonFinite, "subspace %d %d", i, j)
				}
				sub.SetSym(i, j, v)
			}
		}
		var es mat.EigenSym
		if ok := es.Factorize(sub, true); !ok {
			return math.NaN(), false, errors.Errorf("subspace factorization, k=%d", k)
		}
		var vecs mat.Dense
		es.VectorsTo(&vecs)
		energy = es.Values(nil)[0]
		if math.IsNaN(energy) || math.IsInf(energy, 0) {
			return energy, false, errors.Wrapf(ErrNonFinite, "energy %f", energy)
		}

		zero(x)
		hx := x.Clone()
		for i := range k {
			ci := vecs.At(i, 0)
			x.AddScaled(ci, vs[i])
			hx.AddScaled(ci, hvs[i])
		}

		// r = (H - energy) x.
		r := hx.AddScaled(-energy, x)
		if r.Norm() < eigTol*math.Max(1, math.Abs(energy)) {
			converged = true
			break
		}
		if k >= maxDim {
			break
		}

		// Orthogonalize the residual against the subspace, twice for
		// numerical safety.
		for range 2 {
			for _, v := range vs {
				r.AddScaled(-tensor.Dot(v, r), v)
			}
		}
		rnrm := r.Norm()
		if rnrm < 1e-13 {
			converged = true
			break
		}
		r.Scale(1 / rnrm)
		vs = append(vs, r)
		hvs = append(hvs, h.Apply(r))
	}

	copy(phi.Data(), x.Data())
	return energy, converged, nil
}

func zero(t *tensor.Dense) {
	data := t.Data()
	for i := range data {
		data[i] = 0
	}
}
