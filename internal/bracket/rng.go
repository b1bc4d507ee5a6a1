package bracket

import (
	"math/rand/v2"
	"time"
)

// Streams hands out the random stream for one trial. Implementations must be
// deterministic in i and safe for concurrent use.
type Streams interface {
	Trial(i uint64) *rand.Rand
}

// PCGStreams derives an independent PCG stream per trial from a master seed,
// so results depend only on Seed and never on how trials are spread across
// workers.
type PCGStreams struct {
	Seed uint64
}

func (s PCGStreams) Trial(i uint64) *rand.Rand {
	return rand.New(rand.NewPCG(s.Seed, splitmix64(i)))
}

// NewSeed returns a time based master seed for runs that did not ask for one
func NewSeed() uint64 {
	return splitmix64(uint64(time.Now().UnixNano()))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
