// Package registry implements a NuGet V3 registry client.
//
// The client resolves the registry's service index once to discover the
// search, flat-container and registration endpoints, then serves
// searches, version lists and metadata lookups from them. Transient
// failures (network errors, 5xx, rate limits) are retried with
// exponential backoff before surfacing.
//
// All methods are safe for concurrent use by multiple goroutines.
package registry

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/httputil"
	"github.com/depscout/depscout/pkg/observability"
	"github.com/depscout/depscout/pkg/version"
)

// DefaultTake is the search page size when the caller does not specify one.
const DefaultTake = 20

// Service-index resource types, matched by prefix so versioned variants
// (e.g. "SearchQueryService/3.5.0") resolve too.
const (
	resourceSearch        = "SearchQueryService"
	resourcePackageBase   = "PackageBaseAddress"
	resourceRegistrations = "RegistrationsBaseUrl"
)

// Client queries a NuGet V3 package registry.
type Client struct {
	http     *httputil.Client
	indexURL string

	mu  sync.Mutex
	eps *endpoints
}

// endpoints holds the service URLs discovered from the service index.
type endpoints struct {
	search        string
	packageBase   string
	registrations string
}

// New creates a Client for the registry whose service index lives at
// indexURL. Empty credentials disable basic auth. The service index is
// resolved lazily on first use and cached for the client's lifetime.
func New(indexURL, username, password string) *Client {
	return &Client{
		http:     httputil.NewClient(username, password),
		indexURL: indexURL,
	}
}

// Search queries the registry search service. An empty term is valid
// and returns the registry's default ranking. skip below zero is
// clamped; take below one falls back to DefaultTake.
func (c *Client) Search(ctx context.Context, term string, includePrerelease bool, skip, take int) ([]SearchResult, error) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = DefaultTake
	}

	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("q", term)
	q.Set("skip", strconv.Itoa(skip))
	q.Set("take", strconv.Itoa(take))
	q.Set("prerelease", strconv.FormatBool(includePrerelease))
	q.Set("semVerLevel", "2.0.0")

	var resp searchResponse
	err = c.call(ctx, "search", term, eps.search+"?"+q.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListVersions returns every published version of the package in
// normalized form, prereleases included. The order is the registry's;
// callers needing precedence order sort the result themselves.
func (c *Client) ListVersions(ctx context.Context, id string) ([]string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidPackage, "package id must not be empty")
	}

	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}

	var resp flatContainerIndex
	u := eps.packageBase + strings.ToLower(id) + "/index.json"
	if err := c.call(ctx, "versions", id, u, &resp); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrCodePackageNotFound, err, "package %s not found", id)
		}
		return nil, err
	}

	versions := make([]string, 0, len(resp.Versions))
	for _, raw := range resp.Versions {
		normalized, err := version.Normalize(raw)
		if err != nil {
			// Registry entries that do not parse are dropped rather
			// than failing the whole list.
			continue
		}
		versions = append(versions, normalized)
	}
	return versions, nil
}

// GetMetadata returns the catalog metadata for one exact package
// version, or a PACKAGE_NOT_FOUND error when the package or version
// does not exist.
func (c *Client) GetMetadata(ctx context.Context, id, ver string) (*PackageMetadata, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidPackage, "package id must not be empty")
	}
	target, err := version.Parse(ver)
	if err != nil {
		return nil, err
	}

	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}

	var index registrationIndex
	u := eps.registrations + strings.ToLower(id) + "/index.json"
	if err := c.call(ctx, "metadata", id, u, &index); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrCodePackageNotFound, err, "package %s not found", id)
		}
		return nil, err
	}

	for _, page := range index.Items {
		if !page.mayContain(target) {
			continue
		}
		items := page.Items
		if len(items) == 0 {
			// Large registrations externalize their pages.
			var full registrationPage
			if err := c.call(ctx, "metadata", id, page.ID, &full); err != nil {
				return nil, err
			}
			items = full.Items
		}
		for _, leaf := range items {
			got, err := version.Parse(leaf.CatalogEntry.Version)
			if err != nil {
				continue
			}
			if got.Compare(target) == 0 {
				return leaf.CatalogEntry.metadata(), nil
			}
		}
	}
	return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "version %s of %s not found", target, id)
}

// GetLatestMetadata returns the metadata of the newest version admitted
// by the filter.
func (c *Client) GetLatestMetadata(ctx context.Context, id string, filter version.Filter) (*PackageMetadata, error) {
	versions, err := c.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	latest, ok := version.Latest(versions, filter)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "no matching version of %s found", id)
	}
	return c.GetMetadata(ctx, id, latest)
}

// call performs one retried, instrumented JSON GET.
func (c *Client) call(ctx context.Context, op, subject, url string, v any) error {
	start := time.Now()
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.http.GetJSON(ctx, url, v)
	})
	observability.Registry().OnCall(ctx, op, subject, time.Since(start), err)
	return err
}

// endpoints resolves the service index on first use. A failed
// resolution is not cached, so a transient index outage heals on the
// next call.
func (c *Client) endpoints(ctx context.Context) (endpoints, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eps != nil {
		return *c.eps, nil
	}

	var index serviceIndex
	if err := c.call(ctx, "service-index", c.indexURL, c.indexURL, &index); err != nil {
		return endpoints{}, err
	}

	eps := endpoints{
		search:        index.resource(resourceSearch),
		packageBase:   index.resource(resourcePackageBase),
		registrations: index.resource(resourceRegistrations),
	}
	if eps.search == "" || eps.packageBase == "" || eps.registrations == "" {
		return endpoints{}, apperrors.New(apperrors.ErrCodeNetwork,
			"service index %s is missing required resources", c.indexURL)
	}
	eps.packageBase = ensureSlash(eps.packageBase)
	eps.registrations = ensureSlash(eps.registrations)

	c.eps = &eps
	return eps, nil
}

func ensureSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// serviceIndex is the registry's entry document listing its services.
type serviceIndex struct {
	Resources []serviceResource `json:"resources"`
}

type serviceResource struct {
	ID   string `json:"@id"`
	Type string `json:"@type"`
}

// resource returns the first resource whose type matches want exactly
// or as a versioned variant ("want/x.y.z").
func (s serviceIndex) resource(want string) string {
	for _, r := range s.Resources {
		if r.Type == want || strings.HasPrefix(r.Type, want+"/") {
			return r.ID
		}
	}
	return ""
}

type searchResponse struct {
	TotalHits int64          `json:"totalHits"`
	Data      []SearchResult `json:"data"`
}

type flatContainerIndex struct {
	Versions []string `json:"versions"`
}

type registrationIndex struct {
	Items []registrationPage `json:"items"`
}

type registrationPage struct {
	ID    string             `json:"@id"`
	Lower string             `json:"lower"`
	Upper string             `json:"upper"`
	Items []registrationLeaf `json:"items"`
}

// mayContain reports whether target can fall inside the page's
// version bounds. Unparseable bounds err on the side of scanning.
func (p registrationPage) mayContain(target *version.Version) bool {
	if p.Lower != "" {
		if lower, err := version.Parse(p.Lower); err == nil && target.Compare(lower) < 0 {
			return false
		}
	}
	if p.Upper != "" {
		if upper, err := version.Parse(p.Upper); err == nil && target.Compare(upper) > 0 {
			return false
		}
	}
	return true
}

type registrationLeaf struct {
	CatalogEntry catalogEntry `json:"catalogEntry"`
}

type catalogEntry struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Authors     string    `json:"authors"`
	ProjectURL  string    `json:"projectUrl"`
	LicenseURL  string    `json:"licenseUrl"`
	Published   time.Time `json:"published"`
	Tags        any       `json:"tags"`
}

// metadata converts a catalog entry to the exported shape.
func (e catalogEntry) metadata() *PackageMetadata {
	m := &PackageMetadata{
		ID:          e.ID,
		Version:     e.Version,
		Description: e.Description,
		Authors:     e.Authors,
		ProjectURL:  e.ProjectURL,
		LicenseURL:  e.LicenseURL,
		Published:   e.Published,
		Tags:        normalizeTags(e.Tags),
	}
	if v, err := version.Parse(e.Version); err == nil {
		m.Version = v.String()
		m.IsPrerelease = v.IsPrerelease()
	}
	return m
}

// normalizeTags flattens the registry's tag field, which is a string
// for old packages and an array for new ones.
func normalizeTags(tags any) []string {
	switch v := tags.(type) {
	case string:
		if v == "" {
			return nil
		}
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
