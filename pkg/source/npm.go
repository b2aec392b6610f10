package source

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// NpmURL is the public npm registry.
const NpmURL = "https://registry.npmjs.org"

// Npm reads package documents from an npm registry.
type Npm struct {
	baseURL string
	client  *Client
}

// NewNpm creates an npm registry source. An empty baseURL means
// registry.npmjs.org.
func NewNpm(baseURL string, client *Client) *Npm {
	if baseURL == "" {
		baseURL = NpmURL
	}
	return &Npm{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (n *Npm) Name() string {
	return "npm"
}

type npmResponse struct {
	Versions map[string]struct {
		Deprecated any `json:"deprecated"`
	} `json:"versions"`
}

func (n *Npm) Versions(ctx context.Context, pkg string) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/%s", n.baseURL, escapeNpmName(pkg))

	var resp npmResponse
	if err := n.client.GetJSON(ctx, endpoint, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Source: n.Name(), Package: pkg}
		}
		return nil, err
	}

	// map order is random; keep the snapshot deterministic
	releases := make([]Release, 0, len(resp.Versions))
	for _, v := range slices.Sorted(maps.Keys(resp.Versions)) {
		if msg, _ := resp.Versions[v].Deprecated.(string); msg != "" {
			continue
		}
		releases = append(releases, Release{
			Version: v,
			Link:    fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", pkg, v),
		})
	}
	return releases, nil
}

// escapeNpmName keeps the scope's "@" but escapes the slash, as the
// registry expects.
func escapeNpmName(name string) string {
	if strings.HasPrefix(name, "@") {
		return "@" + url.PathEscape(name[1:])
	}
	return url.PathEscape(name)
}
