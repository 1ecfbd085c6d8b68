package driver

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// pcgStream selects the PCG stream derived from a seed.
const pcgStream = 0x9e3779b97f4a7c15

// source is the random source shared by every distribution in a run.
type source struct {
	pcg *rand.PCG
}

func newSource(seed uint64) *source {
	return &source{pcg: rand.NewPCG(seed, seed^pcgStream)}
}

func (s *source) Uint64() uint64 { return s.pcg.Uint64() }

// Seed resets the source to the stream for seed.
func (s *source) Seed(seed uint64) { s.pcg.Seed(seed, seed^pcgStream) }

// NewSeed generates a non-zero seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		if s := binary.LittleEndian.Uint64(b[:]); s != 0 {
			return s, nil
		}
	}
}
