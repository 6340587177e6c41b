// Package release queries GitHub for the newest published battdash release.
package release

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Owner and Repo locate the project repository releases are published from.
const (
	Owner = "battlab"
	Repo  = "battdash"
)

// Info is the outcome of an update check.
type Info struct {
	Current  string `json:"current"`
	Latest   string `json:"latest,omitempty"`
	URL      string `json:"url,omitempty"`
	Outdated bool   `json:"outdated"`
}

type Client struct {
	Client *github.Client
}

type options struct {
	httpClient *http.Client
}

type Option func(*options)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func NewClient(opts ...Option) *Client {
	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	return &Client{Client: github.NewClient(o.httpClient)}
}

// Latest returns the tag and URL of the newest published release.
func (c *Client) Latest(ctx context.Context) (tag, url string, err error) {
	rel, _, err := c.Client.Repositories.GetLatestRelease(ctx, Owner, Repo)
	if err != nil {
		return "", "", fmt.Errorf("latest release for %s/%s: %w", Owner, Repo, err)
	}
	return rel.GetTagName(), rel.GetHTMLURL(), nil
}

// Check compares the running version against the newest release. Callers
// treat a lookup error as "unknown", never as a hard failure.
func (c *Client) Check(ctx context.Context, current string) (Info, error) {
	tag, url, err := c.Latest(ctx)
	if err != nil {
		return Info{Current: current}, err
	}
	return Info{
		Current:  current,
		Latest:   tag,
		URL:      url,
		Outdated: IsNewer(tag, current),
	}, nil
}

// IsNewer reports whether latest names a strictly newer version than current.
// Both sides tolerate a leading v; dev and unparseable builds never count as
// outdated.
func IsNewer(latest, current string) bool {
	l := versionParts(latest)
	c := versionParts(current)
	if l == nil || c == nil {
		return false
	}
	for i := 0; i < len(l) || i < len(c); i++ {
		var li, ci int
		if i < len(l) {
			li = l[i]
		}
		if i < len(c) {
			ci = c[i]
		}
		if li != ci {
			return li > ci
		}
	}
	return false
}

// versionParts parses "v1.2.3" style strings; nil means not a comparable
// version (dev builds, empty, garbage).
func versionParts(v string) []int {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")
	if v == "" || v == "dev" || v == "unknown" {
		return nil
	}
	// Prerelease and build suffixes do not take part in the comparison.
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil
	}
	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		parts = append(parts, n)
	}
	return parts
}
