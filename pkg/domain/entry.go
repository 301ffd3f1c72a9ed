package domain

import (
	"blocklist/pkg/serrors"
	"net/netip"
	"strings"
)

// Entry is a normalized CIDR block. A bare address is represented as a host
// block (/32 or /128). Host bits beyond the prefix are always cleared, so two
// entries are equal exactly when their canonical textual forms are equal.
type Entry struct {
	prefix netip.Prefix
}

// ParseEntry parses an address or CIDR block and returns its canonical entry.
// Host bits are masked ("10.0.0.7/24" becomes "10.0.0.0/24"). Zoned IPv6
// addresses, non-numeric and out of range prefix lengths are rejected with
// serrors.ErrParse.
func ParseEntry(raw string) (Entry, error) {
	addrPart, bitsPart, hasBits := strings.Cut(raw, "/")

	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return Entry{}, serrors.Wrap(serrors.ErrParse, err, "invalid address %q", raw)
	}
	if addr.Zone() != "" {
		return Entry{}, serrors.With(serrors.ErrParse, "zoned address %q is not allowed", raw)
	}

	if !hasBits {
		return Entry{prefix: netip.PrefixFrom(addr, addr.BitLen())}, nil
	}

	p, err := netip.ParsePrefix(addr.String() + "/" + bitsPart)
	if err != nil {
		return Entry{}, serrors.Wrap(serrors.ErrParse, err, "invalid prefix length %q", raw)
	}

	return Entry{prefix: p.Masked()}, nil
}

// MustParseEntry is like ParseEntry but panics on error. It is meant for
// constants and tests.
func MustParseEntry(raw string) Entry {
	e, err := ParseEntry(raw)
	if err != nil {
		panic(err)
	}

	return e
}

// EntryFromPrefix returns the entry for p with host bits cleared.
func EntryFromPrefix(p netip.Prefix) Entry {
	return Entry{prefix: p.Masked()}
}

// Prefix returns the underlying network prefix.
func (e Entry) Prefix() netip.Prefix { return e.prefix }

// Addr returns the network address, i.e. the bare address without the prefix length.
func (e Entry) Addr() netip.Addr { return e.prefix.Addr() }

// Bits returns the prefix length.
func (e Entry) Bits() int { return e.prefix.Bits() }

// Is4 reports whether the entry is an IPv4 block.
func (e Entry) Is4() bool { return e.prefix.Addr().Is4() }

// IsHost reports whether the entry matches exactly one address.
func (e Entry) IsHost() bool { return e.prefix.Bits() == e.prefix.Addr().BitLen() }

// IsValid reports whether the entry holds a parsed prefix.
func (e Entry) IsValid() bool { return e.prefix.IsValid() }

// String returns the canonical textual form, e.g. "192.0.2.1/32".
func (e Entry) String() string { return e.prefix.String() }

// Compare orders entries by prefix length (broader first) and then by network
// address. IPv4 addresses sort before IPv6 addresses of the same prefix length.
func (e Entry) Compare(other Entry) int {
	if d := e.prefix.Bits() - other.prefix.Bits(); d != 0 {
		if d < 0 {
			return -1
		}

		return 1
	}

	return e.prefix.Addr().Compare(other.prefix.Addr())
}
