// Package ipwhois provides an enricher.Client implementation backed by the
// public ipwho.is geolocation API.
package ipwhois

import (
	"blocklist/pkg/enricher"
	"blocklist/pkg/serrors"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/jx"
)

// DefaultBaseURL is the public ipwho.is endpoint.
const DefaultBaseURL = "http://ipwho.is"

// fields limits the reply to what the annotation needs.
const fields = "success,message,country,region,connection.isp"

// Client talks to the ipwho.is API and fulfills the enricher.Client
// interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to ipwho.is
	baseURL    string       // baseURL is the API root, without a trailing slash
}

// Reply is the subset of the ipwho.is response used for annotations.
type Reply struct {
	Success bool
	Message string
	Country string
	Region  string
	ISP     string
}

// Annotation renders the reply as "<country> | <region> | <isp>", leaving out
// empty parts.
func (r Reply) Annotation() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Country, r.Region, r.ISP} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, " | ")
}

// DecodeReply parses an ipwho.is JSON body. A missing "success" field is
// treated as success because older deployments omit it when fields are
// filtered.
func DecodeReply(b []byte) (Reply, error) {
	r := Reply{Success: true}
	str := func(d *jx.Decoder) (string, error) {
		if d.Next() == jx.Null {
			return "", d.Null()
		}

		return d.Str()
	}

	err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "success":
			r.Success, err = d.Bool()
		case "message":
			r.Message, err = str(d)
		case "country":
			r.Country, err = str(d)
		case "region":
			r.Region, err = str(d)
		case "connection":
			err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "isp" {
					return d.Skip()
				}
				var err error
				r.ISP, err = str(d)

				return err
			})
		default:
			err = d.Skip()
		}

		return err
	})
	if err != nil {
		return Reply{}, fmt.Errorf("could not decode reply: %w", err)
	}

	return r, nil
}

// Lookup fetches the geolocation of addr and renders it as an annotation.
// It returns ErrRateLimited on HTTP 429, ErrUnavailable on other non-2xx
// replies and ErrEnrichment when the service reports the lookup as failed or
// returns nothing usable.
func (c *Client) Lookup(ctx context.Context, addr string) (string, error) {
	u := c.baseURL + "/" + url.PathEscape(addr) + "?fields=" + fields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", serrors.With(serrors.ErrRateLimited, "rate limited: %s", strings.TrimSpace(string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", serrors.With(serrors.ErrUnavailable, "lookup failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	reply, err := DecodeReply(b)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrEnrichment, err, "malformed reply for %s", addr)
	}
	if !reply.Success {
		return "", serrors.With(serrors.ErrEnrichment, "lookup of %s failed: %s", addr, reply.Message)
	}

	annotation := reply.Annotation()
	if annotation == "" {
		return "", serrors.With(serrors.ErrEnrichment, "empty reply for %s", addr)
	}

	return annotation, nil
}

// Ensure Client conforms to the enricher.Client interface at compile time.
var _ enricher.Client = (*Client)(nil)

// New constructs a Client that uses the provided http.Client. An empty
// baseURL selects DefaultBaseURL.
func New(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}
