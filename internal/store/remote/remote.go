// Package remote reads profiles from the WeCollab backend over HTTP.
package remote

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/profile"
	"github.com/wecollab/matchmaker/internal/store"
)

const (
	userAgent       = "wecollab/matchmaker"
	contentType     = "application/json"
	contentEncoding = "gzip"
	// Max value for profiles per page.
	perPage = 100
	// maxPages bounds pagination against a misbehaving server.
	maxPages = 1000
)

// page is one page of the profile listing.
type page struct {
	Items   []profile.Record `json:"items"`
	Found   int              `json:"found"`
	Pages   int              `json:"pages"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(baseURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:   token,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// ListActiveProfiles walks every page of GET /profiles?active=true.
func (c *Client) ListActiveProfiles(ctx context.Context) ([]*profile.UserProfile, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("per_page", strconv.Itoa(perPage))

	var records []profile.Record
	for n := 0; n < maxPages; n++ {
		q.Set("page", strconv.Itoa(n))

		var resp page
		if err := c.getJSON(ctx, c.BaseURL+"/profiles", q, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Items...)

		if n == 0 {
			c.logger.Debug("got response from profile service", zap.Int("pages", resp.Pages), zap.Int("found", resp.Found))
		}
		if resp.Page >= resp.Pages-1 {
			break
		}
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", resp.Page+1, resp.Pages),
		))
	}

	return profile.NewAll(records)
}

func (c *Client) GetProfile(ctx context.Context, id string) (*profile.UserProfile, error) {
	var rec profile.Record
	if err := c.getJSON(ctx, c.BaseURL+"/profiles/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return profile.New(rec)
}

func (c *Client) UpsertProfiles(context.Context, []*profile.UserProfile) error {
	return store.ErrReadOnly
}

func (c *Client) Deactivate(context.Context, string) error {
	return store.ErrReadOnly
}

func (c *Client) Close() error {
	c.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", profile.ErrNotFound, req.URL.Path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
}
