package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"nexus/internal/types"
)

const DefaultWorldBankURL = "https://api.worldbank.org/v2"

// World Bank indicator codes.
const (
	IndicatorGDP        = "NY.GDP.MKTP.CD"
	IndicatorPopulation = "SP.POP.TOTL"
	IndicatorInflation  = "FP.CPI.TOTL.ZG"
	IndicatorFDI        = "BX.KLT.DINV.CD.WD"
)

// StatusError is a non-2xx answer from a data source.
type StatusError struct {
	Source string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Source, e.Status, e.Body)
}

type WorldBank struct {
	client  *http.Client
	baseURL string
	// DateRange is the observation window, e.g. "2020:2023".
	DateRange string
}

func NewWorldBank(baseURL string) *WorldBank {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultWorldBankURL
	}
	return &WorldBank{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   base,
		DateRange: "2020:2023",
	}
}

type wbObservation struct {
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
}

// Series returns the non-null observations for indicator, newest first.
func (w *WorldBank) Series(ctx context.Context, iso3, indicator string) ([]types.Indicator, error) {
	u := fmt.Sprintf("%s/country/%s/indicator/%s?date=%s&format=json&per_page=1000",
		w.baseURL, url.PathEscape(iso3), url.PathEscape(indicator), url.QueryEscape(w.DateRange))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: "worldbank", Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// The body is [metadata, observations]; observations is null when there is no data.
	var envelope []json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("worldbank: decode: %w", err)
	}
	if len(envelope) < 2 {
		return nil, nil
	}
	var obs []wbObservation
	if err := json.Unmarshal(envelope[1], &obs); err != nil {
		return nil, fmt.Errorf("worldbank: decode observations: %w", err)
	}
	out := make([]types.Indicator, 0, len(obs))
	for _, o := range obs {
		if o.Value == nil {
			continue
		}
		out = append(out, types.Indicator{Value: *o.Value, Year: o.Date})
	}
	sort.SliceStable(out, func(i, j int) bool { return year(out[i].Year) > year(out[j].Year) })
	return out, nil
}

// Latest returns the newest observation, or nil when there is none.
func (w *WorldBank) Latest(ctx context.Context, iso3, indicator string) (*types.Indicator, error) {
	series, err := w.Series(ctx, iso3, indicator)
	if err != nil || len(series) == 0 {
		return nil, err
	}
	latest := series[0]
	return &latest, nil
}

func year(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
