package sources

import (
	"github.com/google/uuid"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// Built-in rows served when every upstream tier fails. Filters are applied
// to them like live data, but a filter that matches nothing returns the
// whole list so callers always get something to show.

type fallbackPrice struct {
	crop, market, district string
	min, max, modal        float64
	trend                  models.PriceTrend
}

var fallbackPrices = []fallbackPrice{
	{"Rice", "Palakkad", "Palakkad", 2800, 3200, 3000, models.TrendStable},
	{"Coconut", "Kozhikode", "Kozhikode", 2500, 3100, 2850, models.TrendUp},
	{"Banana", "Thrissur", "Thrissur", 2200, 2900, 2600, models.TrendStable},
	{"Pepper", "Kalpetta", "Wayanad", 48000, 52000, 50500, models.TrendDown},
	{"Rubber", "Kottayam", "Kottayam", 16500, 17500, 17000, models.TrendStable},
	{"Cardamom", "Kumily", "Idukki", 120000, 140000, 132000, models.TrendUp},
}

type fallbackPest struct {
	pest, crop, district string
	severity             models.Severity
	description, action  string
}

var fallbackPests = []fallbackPest{
	{
		"Brown plant hopper", "Rice", "Palakkad", models.SeverityHigh,
		"Hopper build-up reported at the base of tillers after humid spells.",
		"Drain standing water for 3-4 days, avoid excess nitrogen and use recommended insecticides only above the economic threshold.",
	},
	{
		"Rhinoceros beetle", "Coconut", "Kozhikode", models.SeverityMedium,
		"Adults bore into the crown and damage emerging fronds.",
		"Hook out beetles from crowns, fill leaf axils with neem cake and sand, and keep manure pits clean.",
	},
	{
		"Pseudostem weevil", "Banana", "Thrissur", models.SeverityMedium,
		"Grubs tunnel inside the pseudostem causing gummy exudation.",
		"Remove and destroy affected plants, keep the field clean and apply entomopathogenic nematodes.",
	},
	{
		"Quick wilt", "Pepper", "Wayanad", models.SeverityHigh,
		"Phytophthora foot rot spreads quickly through waterlogged basins during the monsoon.",
		"Improve drainage, apply Trichoderma enriched manure and spray 1% Bordeaux mixture on the vines.",
	},
}

type fallbackAdvisory struct {
	scheme, schemeType string
	crops              []string
	priority           models.Priority
	description        string
	action             string
}

var fallbackAdvisories = []fallbackAdvisory{
	{
		"PM-KISAN", "income_support", nil, models.PriorityHigh,
		"Income support of Rs 6000 per year paid in three instalments to eligible farmer families.",
		"Complete e-KYC and link Aadhaar to your bank account to keep receiving instalments.",
	},
	{
		"Pradhan Mantri Fasal Bima Yojana", "insurance", []string{"Rice", "Banana", "Pepper"}, models.PriorityHigh,
		"Crop insurance against yield loss from natural calamities, pests and diseases.",
		"Enrol through your bank or the nearest Krishi Bhavan before the seasonal cut-off date.",
	},
	{
		"Soil Health Card", "soil_health", nil, models.PriorityMedium,
		"Free soil testing with crop-wise nutrient recommendations.",
		"Submit a soil sample at the Krishi Bhavan and follow the card's fertilizer advice.",
	},
	{
		"Kerala Coconut Development Subsidy", "subsidy", []string{"Coconut"}, models.PriorityMedium,
		"State assistance for replanting, intercropping and pest management in coconut gardens.",
		"Apply through the Krishi Bhavan with land records and a bank passbook copy.",
	},
}

func fallbackID(kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		name += "/" + p
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("krishi:"+name)).String()
}

func (c *Client) fallbackMarketPrices(filter MarketFilter) []models.MarketPrice {
	date := c.today()
	all := make([]models.MarketPrice, 0, len(fallbackPrices))
	for _, f := range fallbackPrices {
		all = append(all, models.MarketPrice{
			Crop:       f.crop,
			CropLabel:  models.MalayalamLabel(f.crop),
			Market:     f.market,
			District:   f.district,
			State:      "Kerala",
			MinPrice:   f.min,
			MaxPrice:   f.max,
			ModalPrice: f.modal,
			Unit:       priceUnit,
			Trend:      f.trend,
			Date:       date,
			Source:     "fallback",
		})
	}
	return nonEmpty(all, func(p models.MarketPrice) bool {
		return matchesCrop(p.Crop, filter.Crop)
	})
}

func (c *Client) fallbackPestAlerts(filter PestFilter) []models.PestAlert {
	date := c.today()
	all := make([]models.PestAlert, 0, len(fallbackPests))
	for _, f := range fallbackPests {
		all = append(all, models.PestAlert{
			ID:                fallbackID("pest", f.pest, f.crop, f.district),
			Pest:              f.pest,
			PestLabel:         models.MalayalamLabel(f.pest),
			Crop:              f.crop,
			CropLabel:         models.MalayalamLabel(f.crop),
			District:          f.district,
			Severity:          f.severity,
			Description:       f.description,
			RecommendedAction: f.action,
			Date:              date,
			Source:            "fallback",
		})
	}
	sortPestAlerts(all)
	return nonEmpty(all, filter.matches)
}

func (c *Client) fallbackAdvisories(filter AdvisoryFilter) []models.GovernmentAdvisory {
	date := c.today()
	all := make([]models.GovernmentAdvisory, 0, len(fallbackAdvisories))
	for _, f := range fallbackAdvisories {
		all = append(all, models.GovernmentAdvisory{
			ID:                fallbackID("scheme", f.scheme),
			Scheme:            f.scheme,
			SchemeLabel:       models.MalayalamLabel(f.scheme),
			SchemeType:        f.schemeType,
			Crops:             f.crops,
			Priority:          f.priority,
			Description:       f.description,
			RecommendedAction: f.action,
			Date:              date,
			Source:            "fallback",
		})
	}
	sortAdvisories(all)
	return nonEmpty(all, filter.matches)
}

// nonEmpty filters items, returning all of them when nothing matches.
func nonEmpty[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return items
	}
	return out
}
