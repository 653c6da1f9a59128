package crash

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Source supplies uniform randomness for crash-point generation.
type Source interface {
	Float64() float64 // [0, 1)
}

// cryptoSource draws 53 bits from crypto/rand per call. Falls back to
// math/rand/v2 on read failure.
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// DefaultSource returns the CSPRNG-backed source used in production.
func DefaultSource() Source { return cryptoSource{} }

type seededSource struct{ r *rand.Rand }

// NewSeededSource returns a reproducible PCG source for tests and
// distribution sampling.
func NewSeededSource(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 { return s.r.Float64() }
