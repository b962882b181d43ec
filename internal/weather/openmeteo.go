package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/awaistahir/offgrid/internal/engine"
)

const openMeteoArchiveBase = "https://archive-api.open-meteo.com/v1/archive"

var ErrNoIrradiance = errors.New("no irradiance samples returned")

// OpenMeteoClient fetches historical solar radiation from the Open-Meteo archive
type OpenMeteoClient struct {
	httpClient *http.Client
	baseURL    string
	latitude   float64
	longitude  float64
}

// NewOpenMeteoClient creates a new Open-Meteo archive client for a site
func NewOpenMeteoClient(lat, lon float64) *OpenMeteoClient {
	return &OpenMeteoClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    openMeteoArchiveBase,
		latitude:   lat,
		longitude:  lon,
	}
}

// WithBaseURL points the client at a different archive endpoint
func (c *OpenMeteoClient) WithBaseURL(base string) *OpenMeteoClient {
	c.baseURL = base
	return c
}

// archiveResponse represents the API response
type archiveResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Hourly    struct {
		Time               []string   `json:"time"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
	} `json:"hourly"`
}

// Curve builds an hour-of-day irradiance curve by averaging the shortwave
// radiation (W/m²) recorded at each local hour between start and end
func (c *OpenMeteoClient) Curve(ctx context.Context, start, end time.Time) (engine.IrradianceCurve, error) {
	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%.4f", c.latitude))
	params.Add("longitude", fmt.Sprintf("%.4f", c.longitude))
	params.Add("start_date", start.Format("2006-01-02"))
	params.Add("end_date", end.Format("2006-01-02"))
	params.Add("hourly", "shortwave_radiation")
	params.Add("timezone", "auto")

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching irradiance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return averageByHour(archive.Hourly.Time, archive.Hourly.ShortwaveRadiation)
}

// averageByHour folds timestamped samples into a 24-point mean curve.
// Missing samples are skipped.
func averageByHour(times []string, values []*float64) (engine.IrradianceCurve, error) {
	var sum [24]float64
	var count [24]int

	for i := range times {
		if i >= len(values) || values[i] == nil {
			continue
		}
		t, err := time.Parse("2006-01-02T15:04", times[i])
		if err != nil {
			continue
		}
		h := t.Hour()
		sum[h] += *values[i]
		count[h]++
	}

	curve := make(engine.IrradianceCurve, 24)
	samples := 0
	for h := 0; h < 24; h++ {
		samples += count[h]
		curve[h] = 0
		if count[h] > 0 {
			curve[h] = sum[h] / float64(count[h])
		}
	}
	if samples == 0 {
		return nil, ErrNoIrradiance
	}
	return curve, nil
}

// LastYear returns the twelve full months before now, the default span
// averaged into a site curve
func LastYear(now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	start := time.Date(end.Year()-1, end.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}
