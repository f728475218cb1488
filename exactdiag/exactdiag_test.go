package exactdiag

import (
	"flag"
	"fmt"
	"log"
	"math"
	"testing"
)

func TestTransverseFieldIsing(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n      int
		h      float64
		ground float64
	}{
		// At h=0 the ground state is ferromagnetic with energy -(n-1).
		{n: 4, h: 0, ground: -3},
		{n: 6, h: 0, ground: -5},
		// Two sites: the ground energy of -ZZ - h(XI + IX) is -sqrt(1+4h^2).
		{n: 2, h: 1, ground: -math.Sqrt(5)},
		{n: 2, h: 0.3, ground: -math.Sqrt(1 + 4*0.3*0.3)},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %f", test.n, test.h), func(t *testing.T) {
			t.Parallel()
			vals, vecs := Eigen(TransverseFieldIsing(test.n, test.h))
			if math.Abs(vals[0]-test.ground) > 1e-10 {
				t.Fatalf("%f %f", vals[0], test.ground)
			}
			for i := 1; i < len(vals); i++ {
				if vals[i] < vals[i-1] {
					t.Fatalf("%v", vals)
				}
			}
			r, c := vecs.Dims()
			if r != 1<<test.n || c != 1<<test.n {
				t.Fatalf("%d %d", r, c)
			}
		})
	}
}

func TestHeisenberg(t *testing.T) {
	t.Parallel()
	// Two spins: the singlet at -3j/4 and the triplet at j/4.
	j := 1.7
	vals, _ := Eigen(Heisenberg(2, j))
	want := []float64{-3 * j / 4, j / 4, j / 4, j / 4}
	for i, v := range want {
		if math.Abs(vals[i]-v) > 1e-10 {
			t.Fatalf("%d %v %v", i, vals, want)
		}
	}
}

func TestMagnetizationZ(t *testing.T) {
	t.Parallel()
	vals, _ := Eigen(MagnetizationZ(3))
	want := []float64{-3, -1, -1, -1, 1, 1, 1, 3}
	for i, v := range want {
		if math.Abs(vals[i]-v) > 1e-10 {
			t.Fatalf("%d %v %v", i, vals, want)
		}
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
