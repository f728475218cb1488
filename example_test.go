package dmrg_test

import (
	"fmt"
	"log"

	"github.com/fumin/dmrg"
	"github.com/fumin/dmrg/mps"
)

// Example finds the ground state of a small transverse field Ising
// chain deep in the ferromagnetic phase, where the energy is close to
// the classical value -(n-1) with a -1.5h^2 field correction.
func Example() {
	const n, h = 4, 0.031623

	ws := mps.Ising(n, h)
	psi := mps.Random(ws, 8)
	sweeps := dmrg.NewSweeps(8).SetMaxm(8).SetCutoff(1e-12).SetNiter(6)

	energy, err := dmrg.Run(psi, ws, sweeps, dmrg.NewOpts().With("Quiet", true))
	if err != nil {
		log.Fatalf("%+v", err)
	}

	fmt.Printf("Ground energy %.4f\n", energy)
	// Output:
	// Ground energy -3.0015
}
