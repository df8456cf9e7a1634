// Package weather looks up current conditions from the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cropsense/internal/common"
	"cropsense/internal/metrics"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrDisabled is returned without any network call when no usable API key is configured.
	ErrDisabled = errors.New("weather lookups are disabled")

	// ErrNoData is returned when the API answers without a "main" observation.
	ErrNoData = errors.New("weather response has no observation")
)

// Metrics is the subset of the metrics wrapper the client reports to.
type Metrics interface {
	WeatherRequestObserve(outcome string, seconds float64)
}

// Observation is the part of a current-weather response the advisor uses.
// A nil field was absent from the response.
type Observation struct {
	Location    string
	Temperature *float64 // degrees Celsius
	Humidity    *float64 // percent
}

// Client fetches current conditions over HTTP. It is safe for concurrent use.
type Client struct {
	apiKey, base string
	rest         *resty.Client
	metrics      Metrics
}

// New builds a client for base (for example https://api.openweathermap.org/data/2.5).
// metrics may be nil.
func New(apiKey, base string, timeout time.Duration, m Metrics) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(common.DefaultWeatherTimeout)
	}
	return &Client{
		apiKey:  apiKey,
		base:    strings.TrimRight(base, "/"),
		rest:    r,
		metrics: m,
	}
}

// Enabled reports whether lookups will reach the network.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.apiKey != common.PlaceholderWeatherKey
}

type currentResponse struct {
	Main map[string]json.RawMessage `json:"main"`
}

// Current fetches the current conditions for a free-text location.
func (c *Client) Current(ctx context.Context, location string) (Observation, error) {
	if !c.Enabled() {
		c.observe(metrics.WeatherDisabled, time.Time{})
		return Observation{}, ErrDisabled
	}

	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     location,
			"appid": c.apiKey,
			"units": "metric",
		}).
		Get(c.base + "/weather")
	if err != nil {
		c.observe(metrics.WeatherError, start)
		return Observation{}, fmt.Errorf("weather request failed: %w", err)
	}

	if resp.IsError() {
		c.observe(metrics.WeatherError, start)
		return Observation{}, fmt.Errorf("weather API error: status %d", resp.StatusCode())
	}

	var body currentResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.observe(metrics.WeatherError, start)
		return Observation{}, fmt.Errorf("decode weather response: %w", err)
	}
	if len(body.Main) == 0 {
		c.observe(metrics.WeatherNoData, start)
		return Observation{}, ErrNoData
	}

	obs := Observation{
		Location:    location,
		Temperature: numberField(body.Main, "temp"),
		Humidity:    numberField(body.Main, "humidity"),
	}
	c.observe(metrics.WeatherOK, start)
	return obs, nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c == nil || c.metrics == nil {
		return
	}
	var elapsed float64
	if !start.IsZero() {
		elapsed = time.Since(start).Seconds()
	}
	c.metrics.WeatherRequestObserve(outcome, elapsed)
}

// numberField returns the numeric value of key, or nil when it is missing or not a number.
func numberField(fields map[string]json.RawMessage, key string) *float64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
