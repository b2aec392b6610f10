package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PackagistURL is the public composer repository.
const PackagistURL = "https://repo.packagist.org"

// Packagist reads composer v2 metadata (/p2/<vendor>/<name>.json) from
// packagist.org or any composer repository serving the same layout.
type Packagist struct {
	name    string
	baseURL string
	client  *Client
}

// NewPackagist creates a composer repository source. An empty baseURL
// means packagist.org.
func NewPackagist(baseURL string, client *Client) *Packagist {
	if baseURL == "" {
		baseURL = PackagistURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	name := "packagist"
	if baseURL != PackagistURL {
		name = hostOf(baseURL)
	}
	return &Packagist{name: name, baseURL: baseURL, client: client}
}

func (p *Packagist) Name() string {
	return p.name
}

type packagistResponse struct {
	Packages map[string][]struct {
		Version string `json:"version"`
	} `json:"packages"`
}

func (p *Packagist) Versions(ctx context.Context, pkg string) ([]Release, error) {
	url := fmt.Sprintf("%s/p2/%s.json", p.baseURL, strings.ToLower(pkg))

	var resp packagistResponse
	if err := p.client.GetJSON(ctx, url, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Source: p.name, Package: pkg}
		}
		return nil, err
	}

	entries, ok := resp.Packages[strings.ToLower(pkg)]
	if !ok {
		entries, ok = resp.Packages[pkg]
	}
	if !ok {
		return nil, &NotFoundError{Source: p.name, Package: pkg}
	}

	releases := make([]Release, 0, len(entries))
	for _, e := range entries {
		if e.Version == "" {
			continue
		}
		releases = append(releases, Release{
			Version: e.Version,
			Link:    fmt.Sprintf("%s/packages/%s#%s", p.linkBase(), pkg, e.Version),
		})
	}
	return releases, nil
}

// linkBase maps the metadata host to its web host.
func (p *Packagist) linkBase() string {
	if p.baseURL == PackagistURL {
		return "https://packagist.org"
	}
	return p.baseURL
}
