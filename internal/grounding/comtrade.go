package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"nexus/internal/types"
)

const DefaultComtradeURL = "https://comtradeapi.un.org/data/v1/get"

// Comtrade queries annual HS trade flows.
type Comtrade struct {
	client  *http.Client
	baseURL string
	key     string
	// Period is the reporting year.
	Period string
}

func NewComtrade(baseURL, subscriptionKey string) *Comtrade {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultComtradeURL
	}
	return &Comtrade{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: base,
		key:     subscriptionKey,
		Period:  "2022",
	}
}

type comtradeRow struct {
	CmdDescE     string   `json:"cmdDescE"`
	CmdCode      string   `json:"cmdCode"`
	PrimaryValue *float64 `json:"primaryValue"`
	Period       any      `json:"period"`
}

// TopExports returns the reporter's exports to the world, largest first.
func (c *Comtrade) TopExports(ctx context.Context, m49 string, limit int) ([]types.TradeFlow, error) {
	q := url.Values{}
	q.Set("reporterCode", m49)
	q.Set("partnerCode", "0")
	q.Set("flowCode", "X")
	q.Set("period", c.Period)
	q.Set("cmdCode", "AG2")
	u := c.baseURL + "/C/A/HS?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: "comtrade", Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed struct {
		Data []comtradeRow `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("comtrade: decode: %w", err)
	}
	out := make([]types.TradeFlow, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		if row.PrimaryValue == nil {
			continue
		}
		out = append(out, types.TradeFlow{
			Commodity:  row.CmdDescE,
			Code:       row.CmdCode,
			TradeValue: *row.PrimaryValue,
			Year:       fmt.Sprint(row.Period),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TradeValue > out[j].TradeValue })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
