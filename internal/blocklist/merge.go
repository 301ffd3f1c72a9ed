package blocklist

import (
	"blocklist/pkg/domain"
	"slices"
)

// Merged is the outcome of reconciling the current entries with the
// published list.
type Merged struct {
	// Entries holds exactly the current entries, with annotations carried
	// forward from the published list where available.
	Entries domain.EntrySet
	// Pending lists the entries not in the published list, in entry order.
	// Each needs exactly one enrichment lookup.
	Pending []domain.Entry
	// Added is the number of entries not in the published list.
	Added int
	// Removed is the number of published entries no longer current.
	Removed int
}

// Merge reconciles current with the previously published list. Published
// entries that are no longer current are counted and dropped.
func Merge(current domain.Set, previous domain.EntrySet) Merged {
	m := Merged{Entries: make(domain.EntrySet, len(current))}
	for e := range current {
		if annotation, ok := previous[e]; ok {
			m.Entries[e] = annotation

			continue
		}
		m.Entries[e] = ""
		m.Pending = append(m.Pending, e)
	}

	for e := range previous {
		if !current.Has(e) {
			m.Removed++
		}
	}

	m.Added = len(m.Pending)
	slices.SortFunc(m.Pending, domain.Entry.Compare)

	return m
}

// Order returns the entries sorted by prefix length, then network address.
func Order(entries domain.EntrySet) []domain.AnnotatedEntry {
	out := make([]domain.AnnotatedEntry, 0, len(entries))
	for e, annotation := range entries {
		out = append(out, domain.AnnotatedEntry{Entry: e, Annotation: annotation})
	}
	slices.SortFunc(out, func(a, b domain.AnnotatedEntry) int {
		return a.Entry.Compare(b.Entry)
	})

	return out
}
