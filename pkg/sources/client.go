package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gridpulse/gridpulse/pkg/common"
	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/levenlabs/go-lflag"
	"github.com/sony/gobreaker"
)

// upstream names, used for breakers, errors, and logs
const (
	upstreamElexon   = "elexon"
	upstreamNESO     = "neso"
	upstreamCarbon   = "carbon"
	upstreamWarnings = "warnings"
)

// Client fetches every external dataset. One instance is shared by the whole
// process; all methods are safe for concurrent use.
type Client struct {
	elexonURL      string
	nesoURL        string
	carbonURL      string
	warningsURL    string
	carbonAPIKey   string
	carbonRegionID int

	// elexon and carbon answer quickly, the NESO datastore and the warnings
	// feed are slower
	fastClient *http.Client
	slowClient *http.Client

	breakers map[string]*gobreaker.CircuitBreaker
}

// Configured sets up flags for the source client and returns the instance.
func Configured() *Client {
	c := &Client{
		fastClient: common.HTTPClient(10 * time.Second),
		slowClient: common.HTTPClient(20 * time.Second),
	}

	elexonURL := lflag.String("elexon-api-url", "https://data.elexon.co.uk/bmrs/api/v1", "base URL for the Elexon BMRS API")
	nesoURL := lflag.String("neso-api-url", "https://api.neso.energy", "base URL for the NESO open data API")
	carbonURL := lflag.String("carbon-api-url", "https://api.carbonintensity.org.uk", "base URL for the Carbon Intensity API")
	warningsURL := lflag.String("warnings-api-url", "https://systemwarnings.nationalgrid.co.uk/api/warnings", "URL for the system warnings feed")
	carbonKey := lflag.String("carbon-api-key", "", "API key for the Carbon Intensity API (optional)")
	carbonRegion := lflag.Int("carbon-region-id", 0, "Carbon Intensity region ID for regional figures (optional)")
	breakerEnabled := lflag.Bool("source-breaker-enabled", true, "short-circuit upstreams that keep failing")

	lflag.Do(func() {
		c.elexonURL = *elexonURL
		c.nesoURL = *nesoURL
		c.carbonURL = *carbonURL
		c.warningsURL = *warningsURL
		c.carbonAPIKey = *carbonKey
		c.carbonRegionID = *carbonRegion
		if *breakerEnabled {
			c.initBreakers()
		}
	})

	return c
}

// NewClient returns a client pointed at explicit base URLs. This is primarily
// used for testing.
func NewClient(elexonURL, nesoURL, carbonURL, warningsURL string) *Client {
	c := &Client{
		elexonURL:   elexonURL,
		nesoURL:     nesoURL,
		carbonURL:   carbonURL,
		warningsURL: warningsURL,
		fastClient:  common.HTTPClient(10 * time.Second),
		slowClient:  common.HTTPClient(20 * time.Second),
	}
	return c
}

// SetCarbonCredentials sets the optional carbon API key and region ID. This is
// primarily used for testing.
func (c *Client) SetCarbonCredentials(apiKey string, regionID int) {
	c.carbonAPIKey = apiKey
	c.carbonRegionID = regionID
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	for name, raw := range map[string]string{
		"elexon-api-url":   c.elexonURL,
		"neso-api-url":     c.nesoURL,
		"carbon-api-url":   c.carbonURL,
		"warnings-api-url": c.warningsURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("failed to parse %s (%s): %w", name, raw, err)
		}
	}
	if c.carbonRegionID < 0 {
		return fmt.Errorf("carbon-region-id must be positive")
	}
	return nil
}

func (c *Client) initBreakers() {
	c.breakers = make(map[string]*gobreaker.CircuitBreaker)
	for _, name := range []string{upstreamElexon, upstreamNESO, upstreamCarbon, upstreamWarnings} {
		c.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
}

type response struct {
	status int
	body   []byte
}

// get performs a GET against an upstream through its circuit breaker. A
// non-2xx status is returned as a response, not an error, so the caller can
// classify it; only transport failures and 5xx answers count against the
// breaker.
func (c *Client) get(ctx context.Context, hc *http.Client, upstream, rawurl string, header http.Header) (*response, error) {
	fetch := func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", rawurl, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		log.Ctx(ctx).DebugContext(ctx, "fetching from upstream",
			slog.String("upstream", upstream),
			slog.String("url", rawurl),
		)

		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch from %s: %w", upstream, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", upstream, err)
		}
		if resp.StatusCode >= 500 {
			return &response{status: resp.StatusCode, body: body},
				&UnexpectedStatusCodeError{Source: upstream, StatusCode: resp.StatusCode}
		}
		return &response{status: resp.StatusCode, body: body}, nil
	}

	cb := c.breakers[upstream]
	if cb == nil {
		res, err := fetch()
		if res == nil {
			return nil, err
		}
		return res.(*response), err
	}

	res, err := cb.Execute(fetch)
	if err != nil {
		if res != nil {
			return res.(*response), err
		}
		return nil, err
	}
	return res.(*response), nil
}

// checkStatus converts a non-200 response into the taxonomy error for the
// given upstream.
func checkStatus(upstream string, res *response, authed bool) error {
	if res.status == http.StatusOK {
		return nil
	}
	if authed && (res.status == http.StatusUnauthorized || res.status == http.StatusForbidden) {
		return &InvalidAuthError{Source: upstream}
	}
	return &UnexpectedStatusCodeError{Source: upstream, StatusCode: res.status}
}
