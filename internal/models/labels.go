package models

import "strings"

// Language selects the reply language for chat.
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageMalayalam Language = "malayalam"
)

// ParseLanguage accepts "english", "malayalam" and their ISO codes.
// Anything else is English.
func ParseLanguage(s string) Language {
	switch normalizeEnum(s) {
	case "malayalam", "ml", "mal":
		return LanguageMalayalam
	default:
		return LanguageEnglish
	}
}

// Malayalam names for crops, pests and schemes that upstream feeds return
// in English.
var malayalamLabels = map[string]string{
	"rice":               "നെല്ല്",
	"paddy":              "നെല്ല്",
	"coconut":            "തെങ്ങ്",
	"banana":             "വാഴ",
	"pepper":             "കുരുമുളക്",
	"black pepper":       "കുരുമുളക്",
	"rubber":             "റബ്ബർ",
	"cardamom":           "ഏലം",
	"tapioca":            "മരച്ചീനി",
	"ginger":             "ഇഞ്ചി",
	"turmeric":           "മഞ്ഞൾ",
	"arecanut":           "അടയ്ക്ക",
	"cashew":             "കശുമാവ്",
	"tea":                "തേയില",
	"coffee":             "കാപ്പി",
	"vegetables":         "പച്ചക്കറികൾ",
	"brown plant hopper": "തവിട്ടു ചാഴി",
	"rhinoceros beetle":  "കൊമ്പൻ ചെല്ലി",
	"red palm weevil":    "ചെമ്പൻ ചെല്ലി",
	"pseudostem weevil":  "തടതുരപ്പൻ പുഴു",
	"quick wilt":         "ദ്രുതവാട്ടം",
	"leaf folder":        "ഓലചുരുട്ടി പുഴു",
	"blast":              "കുലവാട്ടം",
	"pm-kisan":           "പിഎം-കിസാൻ",
	"crop insurance":     "വിള ഇൻഷുറൻസ്",
	"soil health card":   "മണ്ണ് ആരോഗ്യ കാർഡ്",
	"subsidy":            "സബ്സിഡി",
}

// MalayalamLabel returns the Malayalam name for an English term, or the
// term itself when no translation is known.
func MalayalamLabel(term string) string {
	if label, ok := malayalamLabels[normalizeEnum(term)]; ok {
		return label
	}
	return term
}

// EqualFold compares two user-supplied names ignoring case and padding.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
