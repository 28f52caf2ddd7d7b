package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/samber/oops"
)

// maxManifestBytes caps the manifest body.
const maxManifestBytes = 1 << 20

// HTTPSource fetches the manifest over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTP source. A nil client uses
// http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, oops.With("url", s.url).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, oops.With("url", s.url).Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, oops.With("url", s.url).With("status", resp.StatusCode).
			Wrap(fmt.Errorf("remote manifest returned %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, oops.With("url", s.url).Wrap(err)
	}
	return body, nil
}
