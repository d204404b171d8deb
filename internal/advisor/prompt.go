package advisor

import (
	"fmt"
	"strings"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// Limits on how much of each dataset goes into the prompt.
const (
	maxPromptMarket     = 3
	maxPromptPests      = 2
	maxPromptAdvisories = 2
)

const basePrompt = `You are Krishi Sakhi, a friendly farming assistant for smallholder farmers in Kerala, India.
Give practical, specific and safe advice on crops, pests, weather, markets and government schemes.
Prefer locally available inputs and integrated pest management. Keep answers short and easy to follow.
If you are unsure, say so and suggest contacting the nearest Krishi Bhavan.`

// BuildSystemPrompt renders the system prompt for a chat request from the
// gathered context.
func BuildSystemPrompt(pc models.PromptContext, lang models.Language) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n")

	if w := pc.Weather; w != nil {
		fmt.Fprintf(&b, "\nCurrent weather: %.1f°C, humidity %.0f%%, precipitation %.1f mm, wind %.1f km/h, %s.\n",
			w.Temperature, w.Humidity, w.Precipitation, w.WindSpeed, w.Description)
	}

	if market := head(pc.Market, maxPromptMarket); len(market) > 0 {
		b.WriteString("\nMarket prices:\n")
		for _, p := range market {
			fmt.Fprintf(&b, "- %s at %s: %.0f %s (min %.0f, max %.0f), trend %s, %s\n",
				p.Crop, p.Market, p.ModalPrice, p.Unit, p.MinPrice, p.MaxPrice, p.Trend, p.Date)
		}
	}

	if pests := head(pc.PestAlerts, maxPromptPests); len(pests) > 0 {
		b.WriteString("\nPest alerts:\n")
		for _, a := range pests {
			fmt.Fprintf(&b, "- %s on %s in %s (%s severity): %s\n",
				a.Pest, a.Crop, a.District, a.Severity, a.RecommendedAction)
		}
	}

	if advisories := head(pc.GovernmentAdvisories, maxPromptAdvisories); len(advisories) > 0 {
		b.WriteString("\nGovernment advisories:\n")
		for _, a := range advisories {
			fmt.Fprintf(&b, "- %s: %s %s\n", a.Scheme, a.Description, a.RecommendedAction)
		}
	}

	b.WriteString("\n")
	b.WriteString(languageInstruction(lang))
	return b.String()
}

func languageInstruction(lang models.Language) string {
	if lang == models.LanguageMalayalam {
		return "Respond in Malayalam (മലയാളം) using simple words a farmer would use."
	}
	return "Respond in English."
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
