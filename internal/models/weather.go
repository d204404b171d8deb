package models

import "time"

// Location is a point given by the client, usually the farmer's plot.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are within range.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// Weather is a current-conditions snapshot for a location.
type Weather struct {
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	WindSpeed     float64   `json:"wind_speed"`
	WeatherCode   int       `json:"weather_code"`
	Description   string    `json:"description"`
	ObservedAt    time.Time `json:"observed_at"`
}

// DescribeWeatherCode returns a short text for a WMO weather interpretation code.
func DescribeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}

// PromptContext is the live data gathered for one chat request.
type PromptContext struct {
	Weather              *Weather              `json:"weather"`
	Market               []MarketPrice         `json:"market"`
	PestAlerts           []PestAlert           `json:"pest_alerts"`
	GovernmentAdvisories []GovernmentAdvisory  `json:"government_advisories"`
	Provenance           map[string]Provenance `json:"provenance,omitempty"`
}
