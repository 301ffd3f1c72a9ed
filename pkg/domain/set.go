package domain

// Set is an unordered collection of distinct entries. Iteration order is
// unspecified; callers that need a stable order must sort explicitly.
type Set map[Entry]struct{}

// NewSet returns a set holding the given entries.
func NewSet(entries ...Entry) Set {
	s := make(Set, len(entries))
	for _, e := range entries {
		s[e] = struct{}{}
	}

	return s
}

// Add inserts e and reports whether it was not present yet.
func (s Set) Add(e Entry) bool {
	if _, ok := s[e]; ok {
		return false
	}
	s[e] = struct{}{}

	return true
}

// Has reports whether e is in the set.
func (s Set) Has(e Entry) bool {
	_, ok := s[e]

	return ok
}

// AnnotatedEntry pairs an entry with its optional annotation.
type AnnotatedEntry struct {
	Entry      Entry
	Annotation string
}

// EntrySet maps entries to their annotation. An empty annotation means the
// entry is not annotated. Like Set, it is unordered.
type EntrySet map[Entry]string

// Keys returns the entries of the set as a Set.
func (s EntrySet) Keys() Set {
	keys := make(Set, len(s))
	for e := range s {
		keys[e] = struct{}{}
	}

	return keys
}
