package models

// PriceTrend is the direction of the modal price against the previous report.
type PriceTrend string

const (
	TrendUp     PriceTrend = "up"
	TrendDown   PriceTrend = "down"
	TrendStable PriceTrend = "stable"
)

// MarketPrice is one mandi price report for a commodity.
type MarketPrice struct {
	Crop       string     `json:"crop"`
	CropLabel  string     `json:"crop_label"`
	Variety    string     `json:"variety,omitempty"`
	Market     string     `json:"market"`
	District   string     `json:"district,omitempty"`
	State      string     `json:"state,omitempty"`
	MinPrice   float64    `json:"min_price"`
	MaxPrice   float64    `json:"max_price"`
	ModalPrice float64    `json:"modal_price"`
	Unit       string     `json:"unit"`
	Trend      PriceTrend `json:"trend"`
	Date       string     `json:"date"`
	Source     string     `json:"source"`
}
