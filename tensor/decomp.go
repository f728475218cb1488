package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// QR computes the thin QR decomposition a = q @ r of a rank 2 tensor with
// at least as many rows as columns. q is m x n with orthonormal columns and
// r is n x n upper triangular.
func QR(a *Dense) (q, r *Dense) {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("%#v", a.shape))
	}
	m, n := a.shape[0], a.shape[1]
	if m < n {
		panic(fmt.Sprintf("%d %d", m, n))
	}

	var qr mat.QR
	qr.Factorize(mat.NewDense(m, n, a.data))
	var qFull, rFull mat.Dense
	qr.QTo(&qFull)
	qr.RTo(&rFull)

	q = Zeros(m, n)
	for i := range m {
		for j := range n {
			q.data[i*n+j] = qFull.At(i, j)
		}
	}
	r = Zeros(n, n)
	for i := range n {
		for j := range n {
			r.data[i*n+j] = rFull.At(i, j)
		}
	}
	return q, r
}

// LQ computes the thin LQ decomposition a = l @ q of a rank 2 tensor with
// at least as many columns as rows. l is m x m lower triangular and q is
// m x n with orthonormal rows.
func LQ(a *Dense) (l, q *Dense) {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("%#v", a.shape))
	}
	m, n := a.shape[0], a.shape[1]
	if n < m {
		panic(fmt.Sprintf("%d %d", m, n))
	}

	qt, lt := QR(a.Transpose(1, 0))
	return lt.Transpose(1, 0), qt.Transpose(1, 0)
}

// SVD computes the thin singular value decomposition a = u @ diag(s) @ vt
// of a rank 2 tensor. s is in descending order and has min(m, n) entries.
func SVD(a *Dense) (u *Dense, s []float64, vt *Dense) {
	if len(a.shape) != 2 {
		panic(fmt.Sprintf("%#v", a.shape))
	}
	m, n := a.shape[0], a.shape[1]

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(m, n, a.data), mat.SVDThin); !ok {
		panic(fmt.Sprintf("%d %d", m, n))
	}
	s = svd.Values(nil)
	k := len(s)

	var um, vm mat.Dense
	svd.UTo(&um)
	svd.VTo(&vm)

	u = Zeros(m, k)
	for i := range m {
		for j := range k {
			u.data[i*k+j] = um.At(i, j)
		}
	}
	vt = Zeros(k, n)
	for i := range k {
		for j := range n {
			vt.data[i*n+j] = vm.At(j, i)
		}
	}
	return u, s, vt
}
