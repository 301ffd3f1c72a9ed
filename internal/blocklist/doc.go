// Package blocklist consolidates raw address lists into published blocklists.
//
// A run over one input goes through these stages:
//
//	raw lines -> Validate -> Deduplicate -> Aggregate -> Merge (against the
//	published list) -> Enrich (new entries only) -> Order -> WriteEntries
//
// Validation normalizes every entry to its canonical CIDR form, so
// deduplication and diffing compare canonical entries only. Stages before
// Order work on unordered sets; Order establishes the only ordering the output
// depends on, which makes repeated runs over the same input byte-identical.
//
// A new list is staged and only committed over the published one after the
// entry count and the byte size were checked, so a rejected or interrupted run
// leaves the previous list untouched.
package blocklist
