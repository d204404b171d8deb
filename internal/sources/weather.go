package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
)

type openMeteoResponse struct {
	Current struct {
		Time          string  `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Precipitation float64 `json:"precipitation"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// FetchWeather returns current conditions at a point, or nil when the
// forecast service cannot be reached.
func (c *Client) FetchWeather(ctx context.Context, lat, lon float64) *models.Weather {
	if c.config.WeatherURL == "" || !(models.Location{Lat: lat, Lon: lon}).Valid() {
		return nil
	}
	start := c.clock.Now()

	w, err := c.fetchWeather(ctx, lat, lon)
	if err != nil {
		c.logger.Warn().Err(err).Str("source", SourceWeather).Msg("Weather fetch failed")
		c.metrics.RecordUpstreamFetch(SourceWeather, string(models.ProvenanceFallback), c.clock.Since(start))
		return nil
	}
	c.metrics.RecordUpstreamFetch(SourceWeather, string(models.ProvenanceLive), c.clock.Since(start))
	return w
}

func (c *Client) fetchWeather(ctx context.Context, lat, lon float64) (*models.Weather, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m,weather_code")
	q.Set("timezone", "auto")
	rawURL := c.config.WeatherURL + "?" + q.Encode()

	ctx, span := tracing.StartFetchSpan(ctx, SourceWeather, "primary", redactURL(rawURL))
	defer span.End()

	body, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer body.Close()

	var resp openMeteoResponse
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&resp); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	tracing.SetSpanOK(span)

	observed, err := time.Parse("2006-01-02T15:04", resp.Current.Time)
	if err != nil {
		observed = c.clock.Now()
	}
	return &models.Weather{
		Temperature:   resp.Current.Temperature,
		Humidity:      resp.Current.Humidity,
		Precipitation: resp.Current.Precipitation,
		WindSpeed:     resp.Current.WindSpeed,
		WeatherCode:   resp.Current.WeatherCode,
		Description:   models.DescribeWeatherCode(resp.Current.WeatherCode),
		ObservedAt:    observed,
	}, nil
}
