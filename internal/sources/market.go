package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

const priceUnit = "₹/quintal"

// MarketFilter narrows a market price request.
type MarketFilter struct {
	Crop string
}

// FetchMarketPrices returns mandi prices, filtered by crop when given.
func (c *Client) FetchMarketPrices(ctx context.Context, filter MarketFilter) models.Dataset[models.MarketPrice] {
	rows, provenance := c.tiered(ctx, SourceMarket,
		func(ctx context.Context) ([]record, error) {
			return c.getJSONRecords(ctx, SourceMarket, c.marketURL(filter))
		},
		func(ctx context.Context) ([]record, error) {
			return c.getCSVRecords(ctx, SourceMarket, c.config.Market.CSVURL)
		},
	)

	if provenance == models.ProvenanceFallback {
		return models.Dataset[models.MarketPrice]{
			Items:      c.fallbackMarketPrices(filter),
			Provenance: provenance,
		}
	}

	source := "agmarknet"
	if provenance == models.ProvenanceSecondary {
		source = "csv"
	}
	prices := make([]models.MarketPrice, 0, len(rows))
	for _, row := range rows {
		p, ok := normalizeMarketPrice(row, source)
		if !ok || !matchesCrop(p.Crop, filter.Crop) {
			continue
		}
		prices = append(prices, p)
	}
	return models.Dataset[models.MarketPrice]{Items: prices, Provenance: provenance}
}

// marketURL builds the Agmarknet resource query. It is empty when the API
// key or resource id is missing.
func (c *Client) marketURL(filter MarketFilter) string {
	cfg := c.config.Market
	if cfg.APIKey == "" || cfg.ResourceID == "" || cfg.BaseURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("api-key", cfg.APIKey)
	q.Set("format", "json")
	q.Set("limit", "100")
	if cfg.State != "" {
		q.Set("filters[state]", cfg.State)
	}
	if filter.Crop != "" {
		q.Set("filters[commodity]", filter.Crop)
	}
	return strings.TrimRight(cfg.BaseURL, "/") + "/" + url.PathEscape(cfg.ResourceID) + "?" + q.Encode()
}

func normalizeMarketPrice(row record, source string) (models.MarketPrice, bool) {
	crop := row.get("commodity", "crop", "crop_name")
	if crop == "" {
		return models.MarketPrice{}, false
	}
	p := models.MarketPrice{
		Crop:       crop,
		CropLabel:  models.MalayalamLabel(crop),
		Variety:    row.get("variety"),
		Market:     row.get("market", "mandi", "market_name"),
		District:   row.get("district"),
		State:      row.get("state"),
		MinPrice:   parsePrice(row.get("min_price", "min_x0020_price")),
		MaxPrice:   parsePrice(row.get("max_price", "max_x0020_price")),
		ModalPrice: parsePrice(row.get("modal_price", "modal_x0020_price", "price")),
		Unit:       priceUnit,
		Trend:      parseTrend(row.get("trend")),
		Date:       normalizeDate(row.get("arrival_date", "date", "reported_date")),
		Source:     source,
	}
	if p.ModalPrice == 0 {
		p.ModalPrice = (p.MinPrice + p.MaxPrice) / 2
	}
	return p, true
}

func parsePrice(s string) float64 {
	s = strings.NewReplacer(",", "", "₹", "", "Rs.", "", "Rs", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseTrend(s string) models.PriceTrend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "rising", "increase":
		return models.TrendUp
	case "down", "falling", "decrease":
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

func matchesCrop(crop, want string) bool {
	return want == "" || models.EqualFold(crop, want)
}
