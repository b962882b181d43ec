package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	octopusAPIBase = "https://api.octopus.energy/v1"
	// Current Agile product code - update as needed
	defaultAgileProduct = "AGILE-24-10-01"
)

var ErrNoRates = errors.New("no unit rates returned")

// OctopusClient fetches electricity unit rates from Octopus Energy
type OctopusClient struct {
	httpClient *http.Client
	baseURL    string
	product    string
	region     string
}

// NewOctopusClient creates a new client for a product in a region (A-P).
// An empty product selects the Agile tariff.
func NewOctopusClient(product, region string) *OctopusClient {
	if product == "" {
		product = defaultAgileProduct
	}
	return &OctopusClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    octopusAPIBase,
		product:    product,
		region:     region,
	}
}

// WithBaseURL points the client at a different API root
func (c *OctopusClient) WithBaseURL(base string) *OctopusClient {
	c.baseURL = base
	return c
}

// octopusResponse represents the API response structure
type octopusResponse struct {
	Count   int          `json:"count"`
	Next    *string      `json:"next"`
	Results []resultItem `json:"results"`
}

type resultItem struct {
	ValueExcVAT float64   `json:"value_exc_vat"`
	ValueIncVAT float64   `json:"value_inc_vat"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidTo     time.Time `json:"valid_to"`
}

// AveragePerKWh returns the time-weighted mean unit rate, VAT included, in
// pounds per kWh over [from, to)
func (c *OctopusClient) AveragePerKWh(ctx context.Context, from, to time.Time) (float64, error) {
	// Construct tariff code: E-1R-{PRODUCT}-{REGION}
	tariffCode := fmt.Sprintf("E-1R-%s-%s", c.product, c.region)
	endpoint := fmt.Sprintf("%s/products/%s/electricity-tariffs/%s/standard-unit-rates/",
		c.baseURL, c.product, tariffCode)

	params := url.Values{}
	params.Add("period_from", from.UTC().Format(time.RFC3339))
	params.Add("period_to", to.UTC().Format(time.RFC3339))
	params.Add("page_size", "1500")

	next := fmt.Sprintf("%s?%s", endpoint, params.Encode())
	var weighted, minutes float64

	for next != "" {
		page, err := c.fetch(ctx, next)
		if err != nil {
			return 0, err
		}
		for _, r := range page.Results {
			start, end := clamp(r.ValidFrom, r.ValidTo, from, to)
			d := end.Sub(start).Minutes()
			if d <= 0 {
				continue
			}
			weighted += r.ValueIncVAT * d
			minutes += d
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	if minutes == 0 {
		return 0, ErrNoRates
	}
	// API values are pence per kWh
	return weighted / minutes / 100, nil
}

func (c *OctopusClient) fetch(ctx context.Context, fullURL string) (*octopusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var octResp octopusResponse
	if err := json.NewDecoder(resp.Body).Decode(&octResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &octResp, nil
}

// clamp limits a rate's validity to the requested window. Open-ended rates
// (zero valid_to) run to the end of the window.
func clamp(validFrom, validTo, from, to time.Time) (time.Time, time.Time) {
	if validTo.IsZero() || validTo.After(to) {
		validTo = to
	}
	if validFrom.Before(from) {
		validFrom = from
	}
	return validFrom, validTo
}
