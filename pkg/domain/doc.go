// Package domain contains the blocklist entities shared across packages:
// normalized address entries, the unordered sets the pipeline works on and
// the annotated entries that end up in a published list.
package domain
