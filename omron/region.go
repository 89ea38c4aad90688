package omron

import (
	"strings"
)

// Per-region API endpoints. Asia/Pacific accounts still live on the
// query/response servers; the others moved to the incremental sync API.
var regionServers = map[string]string{
	"ASIA/PACIFIC":  "https://data-sg.omronconnect.com",
	"EUROPE":        "https://oi-api.ohiomron.eu",
	"NORTH AMERICA": "https://oi-api.ohiomron.com",
}

var regionCountries = map[string][]string{
	"ASIA/PACIFIC": {
		"AF", "AU", "BD", "BN", "BT", "KH", "CN", "FJ", "HK", "IN", "ID",
		"KR", "LA", "MY", "MN", "MM", "NP", "NZ", "PK", "PG", "PH", "SG",
		"LK", "TW", "TH", "TL", "VN",
	},
	"EUROPE": {
		"AL", "AD", "AT", "BY", "BE", "BA", "BG", "HR", "CZ", "DK", "EE",
		"FI", "FR", "DE", "GR", "HU", "IS", "IE", "IT", "LV", "LI", "LT",
		"LU", "MT", "MC", "ME", "NL", "MK", "NO", "PL", "PT", "RO", "RU",
		"SM", "RS", "SK", "SI", "ES", "SE", "CH", "UA", "GB", "VA",
	},
	"NORTH AMERICA": {
		"CA", "MX", "US", "BZ", "CR", "SV", "GT", "HN", "NI", "PA",
	},
	"SOUTH AMERICA": {
		"AR", "BO", "BR", "CL", "CO", "EC", "GY", "PY", "PE", "SR", "UY", "VE",
	},
	"AFRICA": {
		"DZ", "AO", "BJ", "BW", "BF", "BI", "CM", "CV", "CF", "TD", "KM",
		"CI", "CD", "DJ", "EG", "GQ", "ER", "ET", "GA", "GM", "GH", "GN",
		"GW", "KE", "LS", "LR", "LY", "MG", "MW", "ML", "MR", "MA", "MZ",
		"NA", "NE", "NG", "RW", "SN", "SC", "SL", "SO", "ZA", "SS", "SD",
		"SZ", "TZ", "TG", "TN", "UG", "ZM", "ZW",
	},
	"MIDDLE EAST": {
		"BH", "CY", "IR", "IQ", "IL", "JO", "KW", "LB", "OM", "PS", "QA",
		"SA", "SY", "TR", "AE", "YE",
	},
}

// ServerForRegion returns the API endpoint serving a region, or "" for an
// unknown region.
func ServerForRegion(region string) string {
	return regionServers[strings.ToUpper(region)]
}

// ServerForCountryCode returns the API endpoint serving an ISO 3166-1
// alpha-2 country code, or "" when no server covers the country. Japan has
// its own endpoint.
func ServerForCountryCode(countryCode string) string {
	countryCode = strings.ToUpper(countryCode)
	if countryCode == "JP" {
		return "https://oi-api.ohiomron.jp"
	}

	for region, codes := range regionCountries {
		for _, code := range codes {
			if code == countryCode {
				return ServerForRegion(region)
			}
		}
	}

	return ""
}
