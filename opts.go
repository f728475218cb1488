package dmrg

import (
	"fmt"
	"maps"
)

// Opts is an immutable bag of named options. With returns an extended
// copy, so values flowing down the call chain are never shared mutable
// state.
//
// Options recognized by the sweep worker: Quiet (bool), DebugLevel (int),
// DoNormalize (bool), WriteM (int), WriteDir (string), Weight (float64),
// EnergyErrgoal (float64) and PrintEigs (bool). The worker itself extends
// the bag with Sweep, HalfSweep, AtBond, Cutoff, Minm, Maxm, Noise,
// MaxIter and Energy before handing it to observers.
type Opts struct {
	m map[string]any
}

// NewOpts returns an empty option bag.
func NewOpts() Opts { return Opts{} }

// With returns a copy of o with name set to v.
func (o Opts) With(name string, v any) Opts {
	m := make(map[string]any, len(o.m)+1)
	maps.Copy(m, o.m)
	m[name] = v
	return Opts{m: m}
}

// Defined reports whether name is set.
func (o Opts) Defined(name string) bool {
	_, ok := o.m[name]
	return ok
}

// Bool returns the named bool, or def if unset.
func (o Opts) Bool(name string, def bool) bool {
	v, ok := o.m[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("%s %#v", name, v))
	}
	return b
}

// Int returns the named int, or def if unset.
func (o Opts) Int(name string, def int) int {
	v, ok := o.m[name]
	if !ok {
		return def
	}
	i, ok := v.(int)
	if !ok {
		panic(fmt.Sprintf("%s %#v", name, v))
	}
	return i
}

// Real returns the named float64, or def if unset. Ints are widened.
func (o Opts) Real(name string, def float64) float64 {
	v, ok := o.m[name]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		panic(fmt.Sprintf("%s %#v", name, v))
	}
}

// String returns the named string, or def if unset.
func (o Opts) String(name, def string) string {
	v, ok := o.m[name]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		panic(fmt.Sprintf("%s %#v", name, v))
	}
	return s
}
