package types

// TradeFlow is one commodity line from a trade statistics source.
type TradeFlow struct {
	Commodity  string  `json:"commodity"`
	Code       string  `json:"commodityCode"`
	TradeValue float64 `json:"tradeValue"`
	Year       string  `json:"year"`
}

// GroundingData is auxiliary factual data attached to a report request.
// Any part may be missing; Incomplete is set when a source failed.
type GroundingData struct {
	Country    string      `json:"country"`
	GDP        *Indicator  `json:"gdp,omitempty"`
	TopExports []TradeFlow `json:"topExports,omitempty"`
	Incomplete bool        `json:"incomplete,omitempty"`
}

// Empty reports whether there is nothing usable to render.
func (g *GroundingData) Empty() bool {
	return g == nil || (g.GDP == nil && len(g.TopExports) == 0)
}
