// Package geoip provides an offline enricher.Client backed by MaxMind
// GeoLite2 / GeoIP2 databases.
package geoip

import (
	"blocklist/pkg/enricher"
	"blocklist/pkg/serrors"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Reader annotates addresses with their country and autonomous system. Either
// database may be absent; at least one must be configured.
type Reader struct {
	country *geoip2.Reader
	asn     *geoip2.Reader
}

// Open opens the country and ASN databases at the given paths. An empty path
// skips that database.
func Open(countryPath, asnPath string) (*Reader, error) {
	if countryPath == "" && asnPath == "" {
		return nil, serrors.With(serrors.ErrBadRequest, "no geoip database configured")
	}

	r := &Reader{}
	if countryPath != "" {
		db, err := geoip2.Open(countryPath)
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrIO, err, "could not open country database")
		}
		r.country = db
	}
	if asnPath != "" {
		db, err := geoip2.Open(asnPath)
		if err != nil {
			_ = r.Close()

			return nil, serrors.Wrap(serrors.ErrIO, err, "could not open asn database")
		}
		r.asn = db
	}

	return r, nil
}

// Lookup returns "<country> | AS<number> <organization>", leaving out parts
// the databases do not know.
func (r *Reader) Lookup(_ context.Context, addr string) (string, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", serrors.With(serrors.ErrParse, "invalid address %q", addr)
	}

	var country, as string
	if r.country != nil {
		rec, err := r.country.Country(ip)
		if err != nil {
			return "", serrors.Wrap(serrors.ErrEnrichment, err, "country lookup of %s", addr)
		}
		country = rec.Country.Names["en"]
		if country == "" {
			country = rec.Country.IsoCode
		}
	}
	if r.asn != nil {
		rec, err := r.asn.ASN(ip)
		if err != nil {
			return "", serrors.Wrap(serrors.ErrEnrichment, err, "asn lookup of %s", addr)
		}
		as = FormatASN(rec.AutonomousSystemNumber, rec.AutonomousSystemOrganization)
	}

	annotation := Join(country, as)
	if annotation == "" {
		return "", serrors.With(serrors.ErrEnrichment, "no geoip data for %s", addr)
	}

	return annotation, nil
}

// FormatASN renders an autonomous system as "AS<number> <organization>".
func FormatASN(number uint, org string) string {
	if number == 0 {
		return strings.TrimSpace(org)
	}

	return strings.TrimSpace(fmt.Sprintf("AS%d %s", number, org))
}

// Join concatenates the non-empty parts with " | ".
func Join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, " | ")
}

// Close releases both databases.
func (r *Reader) Close() error {
	var errs []error
	if r.country != nil {
		errs = append(errs, r.country.Close())
	}
	if r.asn != nil {
		errs = append(errs, r.asn.Close())
	}

	return errors.Join(errs...)
}

// Ensure Reader conforms to the enricher.Client interface at compile time.
var _ enricher.Client = (*Reader)(nil)
