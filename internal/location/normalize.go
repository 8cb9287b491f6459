package location

import "strings"

// cityAliases maps spelling variants to the canonical city name.
var cityAliases = map[string]string{
	"tel aviv":         "Tel Aviv",
	"tel-aviv":         "Tel Aviv",
	"tel aviv-yafo":    "Tel Aviv",
	"tel aviv yafo":    "Tel Aviv",
	"telaviv":          "Tel Aviv",
	"tlv":              "Tel Aviv",
	"jerusalem":        "Jerusalem",
	"haifa":            "Haifa",
	"herzliya":         "Herzliya",
	"herzelia":         "Herzliya",
	"herzliya pituach": "Herzliya",
	"raanana":          "Ra'anana",
	"ra'anana":         "Ra'anana",
	"netanya":          "Netanya",
	"petah tikva":      "Petah Tikva",
	"petach tikva":     "Petah Tikva",
	"petah tikvah":     "Petah Tikva",
	"ramat gan":        "Ramat Gan",
	"rehovot":          "Rehovot",
	"beer sheva":       "Be'er Sheva",
	"be'er sheva":      "Be'er Sheva",
	"beersheba":        "Be'er Sheva",
	"kfar saba":        "Kfar Saba",
	"yokneam":          "Yokneam",
	"yoqneam":          "Yokneam",
	"caesarea":         "Caesarea",
	"rishon lezion":    "Rishon LeZion",
	"rishon le zion":   "Rishon LeZion",
	"holon":            "Holon",
	"bnei brak":        "Bnei Brak",
	"or yehuda":        "Or Yehuda",
	"hod hasharon":     "Hod HaSharon",
	"rosh haayin":      "Rosh HaAyin",
	"rosh ha'ayin":     "Rosh HaAyin",
}

// Normalize maps a free-form location string to a canonical
// "City, Israel" form when a known city is found in it. Unknown
// locations are returned trimmed but otherwise untouched.
func Normalize(location string) string {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return trimmed
	}
	lower := strings.ToLower(trimmed)
	if city, ok := cityAliases[lower]; ok {
		return city + ", Israel"
	}
	// Match a known city inside a longer string, e.g. "Tel Aviv, IL"
	// or "Israel - Herzliya". The longest alias wins so "tel aviv-yafo"
	// beats its own substrings.
	if city := CanonicalCity(trimmed); city != "" {
		return city + ", Israel"
	}
	if strings.Contains(lower, "israel") {
		return "Israel"
	}
	return trimmed
}

// CanonicalCity returns the canonical city for a location, or empty
// when no known city is present. Used by the deduplication service to
// treat spelling variants of the same city as identical.
func CanonicalCity(location string) string {
	lower := strings.ToLower(strings.TrimSpace(location))
	if lower == "" {
		return ""
	}
	var best, bestCity string
	for alias, city := range cityAliases {
		if strings.Contains(lower, alias) && len(alias) > len(best) {
			best, bestCity = alias, city
		}
	}
	return bestCity
}
