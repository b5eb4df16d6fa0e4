// Package coupang wraps the Coupang Partners open API: product search,
// best-category listings, and affiliate deep link generation. Every
// request is signed with the CEA HMAC scheme.
package coupang

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/linkmill/partners-cli/internal/model"
)

const (
	defaultBaseURL = "https://api-gateway.coupang.com"
	apiPrefix      = "/v2/providers/affiliate_open_api/apis/openapi/v1"

	// signedDateLayout is the CEA signature timestamp format.
	signedDateLayout = "060102T150405Z"
)

// Client defines the Coupang Partners operations used by this application.
// Search and BestCategory return the raw response payload; callers
// normalize it themselves because the listing schema drifts between
// endpoints.
type Client interface {
	Search(ctx context.Context, keyword string, limit int) ([]byte, error)
	BestCategory(ctx context.Context, categoryID string, limit int) ([]byte, error)
	DeepLink(ctx context.Context, urls []string) ([]model.DeepLink, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API gateway URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithSubID tags generated deep links with an affiliate sub ID.
func WithSubID(subID string) Option {
	return func(c *httpClient) {
		c.subID = subID
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request throttle (10 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	accessKey string
	secretKey string
	subID     string
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewClient creates a Coupang Partners API client.
func NewClient(accessKey, secretKey string, opts ...Option) Client {
	c := &httpClient{
		accessKey: accessKey,
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 10),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// authorization builds the CEA HMAC-SHA256 header for one request. The
// signed message is date + method + path + rawQuery (no "?").
func (c *httpClient) authorization(method, path, rawQuery string) string {
	signedDate := c.now().UTC().Format(signedDateLayout)

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(signedDate + method + path + rawQuery))
	signature := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf(
		"CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s",
		c.accessKey, signedDate, signature,
	)
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "coupang: rate limit")
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "coupang: marshal request")
		}
		reqBody = bytes.NewReader(payload)
	}

	rawQuery := query.Encode()
	u := c.baseURL + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "coupang: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization(method, path, rawQuery))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "coupang: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "coupang: read response")
	}
	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(respBody, "message").String(); msg != "" {
			return nil, eris.Errorf("coupang: status %d: %s", resp.StatusCode, msg)
		}
		return nil, eris.Errorf("coupang: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Search returns raw search results for a keyword.
func (c *httpClient) Search(ctx context.Context, keyword string, limit int) ([]byte, error) {
	if keyword == "" {
		return nil, eris.New("coupang: keyword is required")
	}
	query := url.Values{}
	query.Set("keyword", keyword)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if c.subID != "" {
		query.Set("subId", c.subID)
	}

	body, err := c.do(ctx, http.MethodGet, apiPrefix+"/products/search", query, nil)
	if err != nil {
		return nil, err
	}
	// Search nests listings one level deeper than the category endpoint.
	if products := gjson.GetBytes(body, "data.productData"); products.Exists() {
		return []byte(products.Raw), nil
	}
	return body, nil
}

// BestCategory returns raw best-product listings for a category.
func (c *httpClient) BestCategory(ctx context.Context, categoryID string, limit int) ([]byte, error) {
	if categoryID == "" {
		return nil, eris.New("coupang: category ID is required")
	}
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if c.subID != "" {
		query.Set("subId", c.subID)
	}

	return c.do(ctx, http.MethodGet, apiPrefix+"/products/bestcategories/"+categoryID, query, nil)
}

// DeepLink converts product URLs into tracked affiliate links.
func (c *httpClient) DeepLink(ctx context.Context, urls []string) ([]model.DeepLink, error) {
	if len(urls) == 0 {
		return nil, eris.New("coupang: at least one URL is required")
	}

	req := map[string]any{"coupangUrls": urls}
	if c.subID != "" {
		req["subId"] = c.subID
	}

	body, err := c.do(ctx, http.MethodPost, apiPrefix+"/deeplink", nil, req)
	if err != nil {
		return nil, err
	}

	var links []model.DeepLink
	for _, item := range gjson.GetBytes(body, "data").Array() {
		links = append(links, model.DeepLink{
			OriginalURL: item.Get("originalUrl").String(),
			ShortenURL:  item.Get("shortenUrl").String(),
			LandingURL:  item.Get("landingUrl").String(),
		})
	}
	if len(links) == 0 {
		return nil, eris.New("coupang: deeplink response contained no links")
	}
	return links, nil
}
