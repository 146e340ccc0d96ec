// Package catalog is a client for the Google Books volumes API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"
	searchPageSize = 20
)

// ErrNotFound is returned by Get when the catalog does not answer 2xx.
var ErrNotFound = errors.New("catalog: volume not found")

// Volume is a catalog entry reduced to the fields bookhub displays.
type Volume struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
}

// AuthorLine joins the authors into the display string stored locally.
func (v Volume) AuthorLine() string {
	return strings.Join(v.Authors, ", ")
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	// Timeout bounds a shared Get, which outlives any single caller.
	Timeout time.Duration

	limiter *rate.Limiter
	group   singleflight.Group
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		HTTP:    newHTTPClient(cfg.Timeout),
		Timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          25,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 2 {
				return fmt.Errorf("attempted redirect to %s", req.URL)
			}
			return nil
		},
	}
}

type apiVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		ImageLinks  *struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (a apiVolume) volume() Volume {
	v := Volume{
		ID:          a.ID,
		Title:       a.VolumeInfo.Title,
		Authors:     a.VolumeInfo.Authors,
		Description: a.VolumeInfo.Description,
	}
	if v.Authors == nil {
		v.Authors = []string{}
	}
	if links := a.VolumeInfo.ImageLinks; links != nil {
		v.Thumbnail = links.Thumbnail
		if v.Thumbnail == "" {
			v.Thumbnail = links.SmallThumbnail
		}
	}
	return v
}

// Search runs a free-text query and returns at most one page of volumes.
func (c *Client) Search(ctx context.Context, query string) ([]Volume, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", fmt.Sprintf("%d", searchPageSize))

	var res struct {
		TotalItems int         `json:"totalItems"`
		Items      []apiVolume `json:"items"`
	}
	status, err := c.getJSON(ctx, c.BaseURL, q, &res)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("catalog: search: status %d", status)
	}

	out := make([]Volume, 0, len(res.Items))
	for _, item := range res.Items {
		if item.ID == "" {
			continue
		}
		out = append(out, item.volume())
	}
	return out, nil
}

// Get fetches one volume. Concurrent calls for the same id share a request,
// and a caller that gives up does not cancel it for the others.
func (c *Client) Get(ctx context.Context, id string) (*Volume, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	ch := c.group.DoChan(id, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedTimeout())
		defer cancel()

		var item apiVolume
		status, err := c.getJSON(shared, c.BaseURL+"/"+url.PathEscape(id), url.Values{}, &item)
		if err != nil {
			return nil, err
		}
		if status/100 != 2 || item.ID == "" {
			return nil, ErrNotFound
		}
		vol := item.volume()
		return &vol, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Volume), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog: get: %w", ctx.Err())
	}
}

func (c *Client) sharedTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

// getJSON decodes a 2xx body into dst and reports the status either way.
func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, dst any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("catalog: rate limit: %w", err)
	}

	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}
	u := endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("catalog: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("catalog: decode: %w", err)
	}
	return resp.StatusCode, nil
}
