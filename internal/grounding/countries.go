package grounding

import "strings"

type country struct {
	iso3 string
	m49  string
}

// countries maps lowercase names onto World Bank (ISO3) and Comtrade (M49) codes.
var countries = map[string]country{
	"algeria":              {"DZA", "12"},
	"argentina":            {"ARG", "32"},
	"australia":            {"AUS", "36"},
	"bangladesh":           {"BGD", "50"},
	"brazil":               {"BRA", "76"},
	"canada":               {"CAN", "124"},
	"chile":                {"CHL", "152"},
	"china":                {"CHN", "156"},
	"colombia":             {"COL", "170"},
	"egypt":                {"EGY", "818"},
	"ethiopia":             {"ETH", "231"},
	"france":               {"FRA", "251"},
	"germany":              {"DEU", "276"},
	"ghana":                {"GHA", "288"},
	"india":                {"IND", "699"},
	"indonesia":            {"IDN", "360"},
	"israel":               {"ISR", "376"},
	"italy":                {"ITA", "381"},
	"japan":                {"JPN", "392"},
	"jordan":               {"JOR", "400"},
	"kenya":                {"KEN", "404"},
	"korea":                {"KOR", "410"},
	"south korea":          {"KOR", "410"},
	"malaysia":             {"MYS", "458"},
	"mexico":               {"MEX", "484"},
	"morocco":              {"MAR", "504"},
	"netherlands":          {"NLD", "528"},
	"new zealand":          {"NZL", "554"},
	"nigeria":              {"NGA", "566"},
	"pakistan":             {"PAK", "586"},
	"peru":                 {"PER", "604"},
	"philippines":          {"PHL", "608"},
	"poland":               {"POL", "616"},
	"saudi arabia":         {"SAU", "682"},
	"singapore":            {"SGP", "702"},
	"south africa":         {"ZAF", "710"},
	"spain":                {"ESP", "724"},
	"sri lanka":            {"LKA", "144"},
	"sweden":               {"SWE", "752"},
	"tanzania":             {"TZA", "834"},
	"thailand":             {"THA", "764"},
	"turkey":               {"TUR", "792"},
	"turkiye":              {"TUR", "792"},
	"uganda":               {"UGA", "800"},
	"united arab emirates": {"ARE", "784"},
	"uae":                  {"ARE", "784"},
	"united kingdom":       {"GBR", "826"},
	"uk":                   {"GBR", "826"},
	"united states":        {"USA", "842"},
	"usa":                  {"USA", "842"},
	"vietnam":              {"VNM", "704"},
	"viet nam":             {"VNM", "704"},
}

// CountryFromRegion takes the last comma separated part of a region such as
// "Davao City, Philippines". A region without commas is returned as is.
func CountryFromRegion(region string) string {
	parts := strings.Split(region, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

func lookupCountry(name string) (country, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if c, ok := countries[n]; ok {
		return c, true
	}
	for _, c := range countries {
		if strings.EqualFold(c.iso3, n) {
			return c, true
		}
	}
	return country{}, false
}

// ISO3 resolves a country name or ISO3 code.
func ISO3(name string) (string, bool) {
	c, ok := lookupCountry(name)
	return c.iso3, ok
}
