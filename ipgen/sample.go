package ipgen

import (
	"fmt"
	"math/rand/v2"

	"lukechampine.com/uint128"
)

// Mode selects how IPv6 addresses are drawn. IPv4 draws are the same in
// every mode.
type Mode int

const (
	// ModePerOctet draws each IPv6 octet independently and uniformly within
	// its own bound. The result is not uniform over the 128-bit range.
	ModePerOctet Mode = iota
	// ModeUniform draws one uniform 128-bit integer in [low, high].
	ModeUniform
)

// ParseMode maps "per-octet" or "uniform" onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "per-octet", "":
		return ModePerOctet, nil
	case "uniform":
		return ModeUniform, nil
	}
	return 0, fmt.Errorf("ipgen: unknown sampling mode %q", s)
}

func (m Mode) String() string {
	if m == ModeUniform {
		return "uniform"
	}
	return "per-octet"
}

// Sampler draws addresses from Bounds using the generator it was given.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng  *rand.Rand
	mode Mode
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMode sets the IPv6 sampling mode.
func WithMode(m Mode) Option { return func(s *Sampler) { s.mode = m } }

// NewSampler returns a Sampler drawing from rng.
func NewSampler(rng *rand.Rand, opts ...Option) *Sampler {
	s := &Sampler{rng: rng}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSeededSampler returns a Sampler over a PCG source seeded with seed, so
// that runs with the same seed produce the same addresses.
func NewSeededSampler(seed uint64, opts ...Option) *Sampler {
	return NewSampler(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Mode returns the IPv6 sampling mode.
func (s *Sampler) Mode() Mode { return s.mode }

// Draw returns one address inside b.
func (s *Sampler) Draw(b Bounds) Address {
	if b.Family == V4 {
		lo, hi := b.Low.n, b.High.n
		return FromUint32(lo + uint32(s.rng.Uint64N(uint64(hi-lo)+1)))
	}
	if s.mode == ModeUniform {
		return s.drawUniform128(b)
	}
	out := make([]byte, octetsV6)
	for i := range out {
		lo, hi := b.Low.octets[i], b.High.octets[i]
		out[i] = lo + uint8(s.rng.UintN(uint(hi-lo)+1))
	}
	return Address{fam: V6, octets: out}
}

// drawUniform128 rejection-samples an offset no larger than the span.
func (s *Sampler) drawUniform128(b Bounds) Address {
	low := b.Low.Uint128()
	span := b.Span()
	n := span.Len()
	if n == 0 {
		return fromUint128(low)
	}
	mask := uint128.Max.Rsh(uint(128 - n))
	for {
		v := uint128.New(s.rng.Uint64(), s.rng.Uint64()).And(mask)
		if v.Cmp(span) <= 0 {
			return fromUint128(low.Add(v))
		}
	}
}

// Sample eagerly draws count addresses from b, with replacement.
func (s *Sampler) Sample(b Bounds, count int) ([]Address, error) {
	it, err := s.Iterator(b, count)
	if err != nil {
		return nil, err
	}
	res := make([]Address, 0, count)
	for a, ok := it.Next(); ok; a, ok = it.Next() {
		res = append(res, a)
	}
	return res, nil
}

// SampleIterator streams a fixed number of draws without allocating them all.
type SampleIterator struct {
	s         *Sampler
	bounds    Bounds
	remaining int
}

// Iterator returns an iterator yielding count draws from b.
func (s *Sampler) Iterator(b Bounds, count int) (*SampleIterator, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if !b.Low.Valid() || !b.High.Valid() || b.Low.fam != b.Family || b.High.fam != b.Family {
		return nil, fmt.Errorf("%w: malformed bounds", ErrInvalidPrefix)
	}
	return &SampleIterator{s: s, bounds: b, remaining: count}, nil
}

// Next returns the next address and true, or zero value and false when done.
func (it *SampleIterator) Next() (Address, bool) {
	if it.remaining == 0 {
		return Address{}, false
	}
	it.remaining--
	return it.s.Draw(it.bounds), true
}

// Remaining reports how many draws are left.
func (it *SampleIterator) Remaining() int { return it.remaining }
