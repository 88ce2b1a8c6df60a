// Package rand is the random source for reconnect jitter. It is seeded once
// from crypto/rand so that clients restarted together do not reconnect in
// lockstep.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"
)

const bytesInUint64 = 8

var defaultSource = newSource()

type source struct {
	mut sync.Mutex
	rng *rand.Rand
}

func newSource() *source {
	seed := make([]byte, bytesInUint64*2)

	if _, err := cryptorand.Read(seed); err != nil {
		panic("unreachable")
	}

	return &source{
		//nolint:gosec // no security required
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
}

func (s *source) float64() float64 {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.rng.Float64()
}

// Float64 returns a number in [0.0, 1.0).
func Float64() float64 {
	return defaultSource.float64()
}

// Jitter moves d by up to factor*d in either direction. A factor outside
// (0, 1] leaves d unchanged.
func Jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || factor > 1 {
		return d
	}
	return d + time.Duration(float64(d)*factor*(2*Float64()-1))
}
