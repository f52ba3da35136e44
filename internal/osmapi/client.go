package osmapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/osmsandbox/internal/model"
)

// Fixed API endpoints. These are constants on purpose: deletion must never
// be pointed anywhere but the sandbox, so neither flags nor config files
// can influence which server a client talks to.
const (
	// ProductionBaseURL is the read-only source of real map data.
	ProductionBaseURL = "https://api.openstreetmap.org/api/0.6/"

	// SandboxBaseURL is the public editing sandbox that gets cleared and
	// refilled. This is the only server the tool ever mutates.
	SandboxBaseURL = "https://master.apis.dev.openstreetmap.org/api/0.6/"
)

const (
	// defaultRateLimit allows a small burst of calls and then paces the
	// per-element upload traffic. The OSM API has no hard published rate
	// limit, but a copy run issues hundreds of sequential calls and
	// should not monopolize the server.
	defaultRateLimit = rate.Limit(10)
	defaultRateBurst = 10

	// maxMapSplits bounds the recursive quadrant splitting of map
	// requests that the server rejects as too large. Five levels divide
	// the original box into up to 1024 pieces, far beyond anything the
	// area guard lets through.
	maxMapSplits = 5

	// maxErrorBody limits how much of an error response body is kept for
	// the error message.
	maxErrorBody = 2048

	// defaultChangesetLimit is assumed when the capabilities document
	// cannot be parsed. It matches the documented openstreetmap.org value.
	defaultChangesetLimit = 10000
)

// Client talks to one OSM API server.
//
// Design decision: We use a struct holding the http.Client rather than
// package-level functions because the two servers need independent
// credentials and rate limiters, and tests need to swap the transport.
type Client struct {
	// baseURL is the API base including the version prefix, with a
	// trailing slash.
	baseURL string

	// httpClient performs all requests.
	httpClient *http.Client

	// limiter paces requests to the server.
	limiter *rate.Limiter

	// userAgent is sent with every request per the OSM API usage policy.
	userAgent string

	// creds is the Basic Auth identity for mutating calls. Zero for
	// read-only clients.
	creds model.Credentials

	// logger is used for structured debug logging.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCredentials sets the Basic Auth credentials used on every request.
// The map endpoint ignores them; user/details, changeset, and element
// calls require them.
func WithCredentials(creds model.Credentials) Option {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client.
// This exists for tests that need a custom transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewProduction creates a client for the read-only production API.
func NewProduction(opts ...Option) *Client {
	return newClient(ProductionBaseURL, opts...)
}

// NewSandbox creates a client for the editing sandbox.
func NewSandbox(opts ...Option) *Client {
	return newClient(SandboxBaseURL, opts...)
}

// newClient builds a client for the given base URL. It is unexported so
// the only reachable endpoints outside this package's tests are the two
// fixed constants above.
func newClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(defaultRateLimit, defaultRateBurst),
		userAgent: "osmsandbox",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Map fetches all elements inside the bounding box via the map endpoint.
//
// When the server answers HTTP 400 the requested area is too large for a
// single call; the box is then split into four quadrants which are fetched
// recursively and merged, deduplicating elements that straddle quadrant
// borders. HTTP 509 means the client has been blocked for downloading too
// much and is reported as ErrBlocked.
func (c *Client) Map(ctx context.Context, bbox model.BoundingBox) ([]*model.Element, error) {
	seen := make(map[string]*model.Element)
	if err := c.mapInto(ctx, bbox, seen, 0); err != nil {
		return nil, err
	}

	elements := make([]*model.Element, 0, len(seen))
	for _, el := range seen {
		elements = append(elements, el)
	}
	return elements, nil
}

// mapInto fetches one bounding box and merges the result into seen,
// splitting recursively when the server rejects the area as too large.
func (c *Client) mapInto(ctx context.Context, bbox model.BoundingBox, seen map[string]*model.Element, depth int) error {
	endpoint := "map?bbox=" + url.QueryEscape(bbox.String())

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		if IsStatus(err, http.StatusBadRequest) && depth < maxMapSplits {
			c.logger.Debug("map area too large, splitting bounding box",
				"bbox", bbox.String(), "depth", depth)
			for _, quadrant := range bbox.Split() {
				if err := c.mapInto(ctx, quadrant, seen, depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		if IsStatus(err, 509) {
			return fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return err
	}
	defer resp.Body.Close()

	var doc osmDocument
	if err := decodeOSM(resp.Body, &doc); err != nil {
		return err
	}

	for _, el := range elementsFromDocument(&doc) {
		seen[el.SID()] = el
	}

	c.logger.Debug("map fetch complete",
		"endpoint", c.baseURL, "bbox", bbox.String(), "elements", len(seen))
	return nil
}

// UserDetails verifies the client's credentials against the server.
// It returns ErrAuthRejected when the server answers HTTP 401.
func (c *Client) UserDetails(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "user/details", nil)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			return ErrAuthRejected
		}
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// ChangesetLimit returns the server's maximum number of elements per
// changeset from the capabilities document. When the document cannot be
// fetched or parsed, the documented openstreetmap.org default is returned
// along with the error so callers can log and continue.
func (c *Client) ChangesetLimit(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, "capabilities", nil)
	if err != nil {
		return defaultChangesetLimit, err
	}
	defer resp.Body.Close()

	var caps osmCapabilities
	if err := decodeOSM(resp.Body, &caps); err != nil {
		return defaultChangesetLimit, err
	}
	if caps.API.Changesets.MaximumElements <= 0 {
		return defaultChangesetLimit, fmt.Errorf("%w: capabilities document has no changeset limit", ErrParsePayload)
	}

	return caps.API.Changesets.MaximumElements, nil
}

// CreateChangeset opens a changeset with the given comment and returns
// its ID. The response body is the numeric ID in plain text.
func (c *Client) CreateChangeset(ctx context.Context, comment, createdBy string) (int64, error) {
	body, err := changesetPayload(comment, createdBy)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(ctx, http.MethodPut, "changeset/create", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	id, err := readInt64(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: changeset/create returned a non-numeric body: %v", ErrParsePayload, err)
	}

	c.logger.Debug("changeset opened", "changeset", id)
	return id, nil
}

// CloseChangeset closes the changeset with the given ID.
func (c *Client) CloseChangeset(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("changeset/%d/close", id)

	resp, err := c.do(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return err
	}

	c.logger.Debug("changeset closed", "changeset", id)
	return nil
}

// CreateElement creates the element under the given changeset and returns
// the server-assigned ID. References inside the element must already be
// remapped to IDs valid on this server.
func (c *Client) CreateElement(ctx context.Context, el *model.Element, changesetID int64) (int64, error) {
	body, err := createPayload(el, changesetID)
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/create", el.Type)

	resp, err := c.do(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	newID, err := readInt64(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %s returned a non-numeric body: %v", ErrParsePayload, endpoint, err)
	}

	return newID, nil
}

// DeleteElement deletes the element under the given changeset. The element
// must carry the server-assigned ID and version from a sandbox fetch.
func (c *Client) DeleteElement(ctx context.Context, el *model.Element, changesetID int64) error {
	body, err := deletePayload(el, changesetID)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%d", el.Type, el.ID)

	resp, err := c.do(ctx, http.MethodDelete, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// do performs one rate-limited request against the API. A non-2xx status
// is returned as an *APIError carrying the endpoint and status code; the
// caller owns the response body otherwise.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	if !c.creds.IsZero() {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	return resp, nil
}

// readInt64 parses a plain-text numeric response body, as returned by
// changeset/create and the element create calls.
func readInt64(r io.Reader) (int64, error) {
	data, err := io.ReadAll(io.LimitReader(r, 64))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
