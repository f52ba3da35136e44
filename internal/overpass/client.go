package overpass

import (
	"context"
	"errors"
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
	"github.com/nao1215/osmsandbox/internal/osmapi"
)

// ErrRateLimited is returned when the Overpass instance refuses the query
// because the client has exceeded its quota. Overpass enforces per-IP
// slot limits on the public instances.
var ErrRateLimited = errors.New("rate limited by the Overpass API")

// queryTimeout is the server-side timeout requested in every query.
// 300 seconds matches what the public instance allows for anonymous use.
const queryTimeout = 300

// Client downloads bounded extracts from one Overpass API instance.
type Client struct {
	// baseURL is the instance base, e.g. "https://overpass-api.de/api".
	baseURL string

	// httpClient performs all requests.
	httpClient *http.Client

	// limiter paces requests. The public instances ask clients to stay
	// around one request per second.
	limiter *rate.Limiter

	// userAgent is sent with every request.
	userAgent string

	// logger is used for structured debug logging.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the client-side per-request timeout.
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

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the Overpass instance at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// The server may legitimately take the full query timeout
			// before the first byte arrives.
			Timeout: (queryTimeout + 30) * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		userAgent: "osmsandbox",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch downloads every node, way, and relation inside the bounding box,
// including the nodes referenced by ways that cross the box boundary, so
// the result is closed under way references.
func (c *Client) Fetch(ctx context.Context, bbox model.BoundingBox) ([]*model.Element, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := buildQuery(bbox)

	reqURL := c.baseURL + "/interpreter?data=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if strings.Contains(string(detail), "rate_limited") {
			return nil, ErrRateLimited
		}
		return nil, &osmapi.APIError{
			Endpoint:   "interpreter",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	elements, err := osmapi.DecodeElements(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("overpass fetch complete", "bbox", bbox.String(), "elements", len(elements))
	return elements, nil
}

// buildQuery assembles the Overpass QL query for a bounding box extract.
// Overpass expects the box as south,west,north,east. The recursion step
// `(_.;>;)` pulls in the nodes of every matched way so ways that cross
// the box boundary stay complete.
func buildQuery(bbox model.BoundingBox) string {
	boxParam := fmt.Sprintf("%s,%s,%s,%s",
		trimFloat(bbox.MinLat), trimFloat(bbox.MinLon),
		trimFloat(bbox.MaxLat), trimFloat(bbox.MaxLon))

	return fmt.Sprintf("[timeout:%d][bbox:%s];(nwr;);(_.;>;);out meta qt;", queryTimeout, boxParam)
}

// trimFloat formats a coordinate with the shortest round-tripping form.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
