// Package ipgen builds synthetic IPv4 and IPv6 address sets: it computes the
// numeric bounds implied by a prefix length, samples addresses inside them and
// renders the values as text.
package ipgen

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
	"lukechampine.com/uint128"
)

// Sentinel errors
var (
	ErrInvalidFamily = errors.New("ipgen: invalid address family")
	ErrInvalidPrefix = errors.New("ipgen: invalid prefix length")
	ErrInvalidCount  = errors.New("ipgen: invalid sample count")
)

// Sentinel is returned by Format for values that do not have the shape of
// their family.
const Sentinel = "0000:::::::"

// Family is the IP address family, numbered by IP version.
type Family int

const (
	V4 Family = 4
	V6 Family = 6
)

const octetsV6 = 16

// ParseFamily maps an IP version number onto a Family.
func ParseFamily(version int) (Family, error) {
	switch Family(version) {
	case V4, V6:
		return Family(version), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidFamily, version)
}

// Bits returns the address width of the family, or 0 when unknown.
func (f Family) Bits() int {
	switch f {
	case V4:
		return 32
	case V6:
		return 128
	}
	return 0
}

func (f Family) String() string {
	switch f {
	case V4:
		return "IPv4"
	case V6:
		return "IPv6"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Address is a numeric address value. IPv4 values are a single uint32, IPv6
// values are octets ordered most-significant first.
type Address struct {
	fam    Family
	n      uint32
	octets []byte
}

// FromUint32 returns an IPv4 Address.
func FromUint32(n uint32) Address { return Address{fam: V4, n: n} }

// FromOctets returns an IPv6 Address. The length is not checked here; Format
// renders malformed values as Sentinel.
func FromOctets(b []byte) Address {
	return Address{fam: V6, octets: append([]byte(nil), b...)}
}

// Family returns the address family.
func (a Address) Family() Family { return a.fam }

// Uint32 returns the IPv4 value, or 0 for IPv6 addresses.
func (a Address) Uint32() uint32 { return a.n }

// Octets returns a copy of the IPv6 octets, or nil for IPv4 addresses.
func (a Address) Octets() []byte {
	if a.fam != V6 {
		return nil
	}
	return append([]byte(nil), a.octets...)
}

// Valid reports whether the value has the shape its family requires.
func (a Address) Valid() bool {
	switch a.fam {
	case V4:
		return true
	case V6:
		return len(a.octets) == octetsV6
	}
	return false
}

// Uint128 widens the address to a 128-bit integer. Malformed IPv6 values
// return zero.
func (a Address) Uint128() uint128.Uint128 {
	if a.fam == V4 {
		return uint128.From64(uint64(a.n))
	}
	hi, lo := a.hiLo()
	return uint128.New(lo, hi)
}

func (a Address) hiLo() (hi, lo uint64) {
	if len(a.octets) != octetsV6 {
		return 0, 0
	}
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(a.octets[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(a.octets[i])
	}
	return
}

func fromUint128(v uint128.Uint128) Address {
	b := make([]byte, octetsV6)
	hi, lo := v.Hi, v.Lo
	for i := 7; i >= 0; i-- {
		b[i] = byte(hi)
		hi >>= 8
	}
	for i := 15; i >= 8; i-- {
		b[i] = byte(lo)
		lo >>= 8
	}
	return Address{fam: V6, octets: b}
}

// Addr converts the value to a netip.Addr; ok is false when it is malformed.
func (a Address) Addr() (addr netip.Addr, ok bool) {
	switch {
	case a.fam == V4:
		return netip.AddrFrom4([4]byte{byte(a.n >> 24), byte(a.n >> 16), byte(a.n >> 8), byte(a.n)}), true
	case a.Valid():
		return netip.AddrFrom16([16]byte(a.octets)), true
	}
	return netip.Addr{}, false
}

// String returns Format(a).
func (a Address) String() string { return Format(a) }

// MaskBits returns the value whose top prefix bits are set and whose
// remaining bits are clear. For IPv6 the prefix is spread over the octets
// from the most-significant one, at most 8 bits per octet.
func MaskBits(prefix int, f Family) (Address, error) {
	if f.Bits() == 0 {
		return Address{}, fmt.Errorf("%w: %d", ErrInvalidFamily, int(f))
	}
	if prefix < 0 || prefix > f.Bits() {
		return Address{}, fmt.Errorf("%w: %d for %s", ErrInvalidPrefix, prefix, f)
	}
	if f == V4 {
		// shifting a uint32 by 32 yields 0, which covers prefix 0
		return FromUint32(^uint32(0) << uint(32-prefix)), nil
	}
	b := make([]byte, octetsV6)
	remaining := prefix
	for i := range b {
		shift := min(8, remaining)
		remaining -= shift
		b[i] = ^byte(0) << uint(8-shift)
	}
	return Address{fam: V6, octets: b}, nil
}

// Bounds is the inclusive numeric span sampled for a prefix length.
type Bounds struct {
	Family Family
	Prefix int
	Low    Address
	High   Address
}

// RangeBounds computes the bounds for prefix in family f. Low is MaskBits for
// prefix and High is MaskBits for the full family width.
func RangeBounds(f Family, prefix int) (Bounds, error) {
	low, err := MaskBits(prefix, f)
	if err != nil {
		return Bounds{}, err
	}
	high, err := MaskBits(f.Bits(), f)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Family: f, Prefix: prefix, Low: low, High: high}, nil
}

// String renders the bounds as "low - high".
func (b Bounds) String() string { return fmt.Sprintf("%s - %s", b.Low, b.High) }

// Span returns High-Low.
func (b Bounds) Span() uint128.Uint128 { return b.High.Uint128().Sub(b.Low.Uint128()) }

// Range returns the bounds as an IP range.
func (b Bounds) Range() netipx.IPRange {
	lo, _ := b.Low.Addr()
	hi, _ := b.High.Addr()
	return netipx.IPRangeFrom(lo, hi)
}

// Prefixes returns the minimal set of CIDR prefixes covering the bounds.
func (b Bounds) Prefixes() []netip.Prefix { return b.Range().Prefixes() }

// Contains reports whether a lies inside the bounds. IPv6 values are checked
// octet by octet.
func (b Bounds) Contains(a Address) bool {
	if a.fam != b.Family || !a.Valid() || !b.Low.Valid() || !b.High.Valid() {
		return false
	}
	if a.fam == V4 {
		return b.Low.n <= a.n && a.n <= b.High.n
	}
	for i, o := range a.octets {
		if o < b.Low.octets[i] || o > b.High.octets[i] {
			return false
		}
	}
	return true
}

// Format renders a as text: dotted decimal for IPv4, and for IPv6 eight
// uncompressed groups of two zero-padded hex octets. Malformed values yield
// Sentinel.
func Format(a Address) string {
	switch a.fam {
	case V4:
		return formatV4(a.n)
	case V6:
		return formatV6(a.octets)
	}
	return Sentinel
}

func formatV4(n uint32) string {
	var g [4]uint32
	for i := 3; i >= 0; i-- {
		g[i] = n & 0xff
		n >>= 8
	}
	return fmt.Sprintf("%d.%d.%d.%d", g[0], g[1], g[2], g[3])
}

func formatV6(b []byte) string {
	if len(b) != octetsV6 {
		return Sentinel
	}
	parts := make([]string, 8)
	for i := 0; i < 8; i++ {
		parts[i] = fmt.Sprintf("%02x%02x", b[2*i], b[2*i+1])
	}
	return strings.Join(parts, ":")
}
