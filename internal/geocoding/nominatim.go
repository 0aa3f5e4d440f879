package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const httpTimeout = 10 * time.Second

// Client queries a Nominatim-compatible geocoding service.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

const nominatimDefaultURL = "https://nominatim.openstreetmap.org/search"

// NewClient constructs a Client against the public Nominatim instance.
// Nominatim's usage policy requires an identifying User-Agent.
func NewClient(userAgent string) *Client {
	return &Client{
		baseURL:   nominatimDefaultURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: "roadbook-test",
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// rawResult mirrors one entry of a Nominatim search response.
type rawResult struct {
	Lat         string     `json:"lat"`
	Lon         string     `json:"lon"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Class       string     `json:"class"`
	Type        string     `json:"type"`
	Importance  float64    `json:"importance"`
	Address     rawAddress `json:"address"`
}

type rawAddress struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
	County        string `json:"county"`
	State         string `json:"state"`
	Postcode      string `json:"postcode"`
	Country       string `json:"country"`
	CountryCode   string `json:"country_code"`
}

// Search issues one search request with the given query parameters.
func (c *Client) Search(ctx context.Context, params url.Values) ([]rawResult, error) {
	endpoint := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var results []rawResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}

	return results, nil
}
