package blocklist

import (
	"blocklist/pkg/domain"
	"net/netip"

	"github.com/gaissmai/bart"
)

// ipv4GroupBits is the prefix length IPv4 hosts are grouped by.
const ipv4GroupBits = 24

// AggregateOptions control Aggregate.
type AggregateOptions struct {
	// Threshold is the minimum number of hosts in one group that are replaced
	// by the group's prefix.
	Threshold int
	// IPv6GroupBits is the prefix length IPv6 hosts are grouped by. Zero leaves
	// IPv6 hosts alone.
	IPv6GroupBits int
}

// AggregateStats describe what Aggregate did.
type AggregateStats struct {
	// Collapsed is the number of groups replaced by a single prefix.
	Collapsed int
	// Subsumed is the number of hosts dropped because a block overlaps their group.
	Subsumed int
}

// Aggregate collapses dense groups of host entries into their group prefix
// (/24 for IPv4).
//
// Block entries are kept as supplied. Hosts whose group overlaps any block
// entry are dropped entirely: the block was curated on purpose and a
// synthesized prefix must never override it. Remaining groups with at least
// Threshold members are replaced by the group prefix; smaller groups stay
// individual hosts.
func Aggregate(set domain.Set, opts AggregateOptions) (domain.Set, AggregateStats) {
	var (
		stats  AggregateStats
		blocks bart.Table[struct{}]
		groups = make(map[netip.Prefix][]domain.Entry)
		out    = make(domain.Set, len(set))
	)

	for e := range set {
		if !e.IsHost() {
			blocks.Insert(e.Prefix(), struct{}{})
			out.Add(e)

			continue
		}

		bits := ipv4GroupBits
		if !e.Is4() {
			bits = opts.IPv6GroupBits
		}
		if bits == 0 {
			out.Add(e)

			continue
		}

		group, err := e.Addr().Prefix(bits)
		if err != nil {
			out.Add(e)

			continue
		}
		groups[group] = append(groups[group], e)
	}

	for group, hosts := range groups {
		switch {
		case blocks.OverlapsPrefix(group):
			stats.Subsumed += len(hosts)
		case len(hosts) >= opts.Threshold:
			out.Add(domain.EntryFromPrefix(group))
			stats.Collapsed++
		default:
			for _, h := range hosts {
				out.Add(h)
			}
		}
	}

	return out, stats
}
