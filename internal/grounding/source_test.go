package grounding

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func worldBankServer(t *testing.T, failIndicator string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// country/{code}/indicator/{id}
		if len(parts) != 4 {
			http.NotFound(w, r)
			return
		}
		indicator := parts[3]
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if indicator == failIndicator {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `[{"page":1},[{"value":null,"date":"2023"},{"value":100,"date":"2021"},{"value":%d,"date":"2022"}]]`, len(indicator))
	}))
}

func comtradeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "608", r.URL.Query().Get("reporterCode"))
		assert.Equal(t, "X", r.URL.Query().Get("flowCode"))
		_, _ = w.Write([]byte(`{"data":[
			{"cmdDescE":"Fruit","cmdCode":"08","primaryValue":3000,"period":2022},
			{"cmdDescE":"Electrical machinery","cmdCode":"85","primaryValue":40000,"period":2022},
			{"cmdDescE":"Unknown","cmdCode":"99","primaryValue":null,"period":2022}
		]}`))
	}))
}

func TestCountryFromRegion(t *testing.T) {
	assert.Equal(t, "Philippines", CountryFromRegion("Davao City, Mindanao, Philippines"))
	assert.Equal(t, "Kenya", CountryFromRegion(" Kenya "))
	assert.Equal(t, "", CountryFromRegion(""))

	code, ok := ISO3("philippines")
	require.True(t, ok)
	assert.Equal(t, "PHL", code)
	code, ok = ISO3("phl")
	require.True(t, ok)
	assert.Equal(t, "PHL", code)
	_, ok = ISO3("Atlantis")
	assert.False(t, ok)
}

func TestWorldBankLatestSkipsNulls(t *testing.T) {
	srv := worldBankServer(t, "", nil)
	defer srv.Close()

	wb := NewWorldBank(srv.URL)
	got, err := wb.Latest(context.Background(), "PHL", IndicatorGDP)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2022", got.Year)
	assert.Equal(t, float64(len(IndicatorGDP)), got.Value)
}

func TestWorldBankNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"message":"no data"},null]`))
	}))
	defer srv.Close()

	got, err := NewWorldBank(srv.URL).Latest(context.Background(), "PHL", IndicatorGDP)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWorldBankStatusError(t *testing.T) {
	srv := worldBankServer(t, IndicatorGDP, nil)
	defer srv.Close()

	_, err := NewWorldBank(srv.URL).Latest(context.Background(), "PHL", IndicatorGDP)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestComtradeTopExportsSorted(t *testing.T) {
	srv := comtradeServer(t)
	defer srv.Close()

	flows, err := NewComtrade(srv.URL, "").TopExports(context.Background(), "608", 5)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "Electrical machinery", flows[0].Commodity)
	assert.Equal(t, "2022", flows[0].Year)
}

func TestGroundingAllSettled(t *testing.T) {
	wb := worldBankServer(t, "", nil)
	defer wb.Close()
	ct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer ct.Close()

	var logs bytes.Buffer
	f := NewFetcher(NewWorldBank(wb.URL), NewComtrade(ct.URL, "k"), log.New(&logs, "", 0))
	g, err := f.Grounding(context.Background(), "Davao City, Philippines")
	require.NoError(t, err)
	require.NotNil(t, g.GDP, "the surviving source still contributes")
	assert.Empty(t, g.TopExports)
	assert.True(t, g.Incomplete)
	assert.Contains(t, logs.String(), "grounding exports for PHL failed")
}

func TestGroundingUnknownCountry(t *testing.T) {
	f := NewFetcher(NewWorldBank("http://127.0.0.1:0"), nil, log.New(&bytes.Buffer{}, "", 0))
	_, err := f.Grounding(context.Background(), "Gotham, Atlantis")
	var uc *UnknownCountryError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "Atlantis", uc.Name)
}

func TestEconomicDataPartialAndCached(t *testing.T) {
	var hits atomic.Int32
	srv := worldBankServer(t, IndicatorInflation, &hits)
	defer srv.Close()

	f := NewFetcher(NewWorldBank(srv.URL), nil, log.New(&bytes.Buffer{}, "", 0))
	e, err := f.EconomicData(context.Background(), "Kenya")
	require.NoError(t, err)
	assert.NotNil(t, e.GDP)
	assert.NotNil(t, e.Population)
	assert.NotNil(t, e.FDI)
	assert.Nil(t, e.Inflation)
	assert.True(t, e.Incomplete)
	assert.EqualValues(t, 4, hits.Load())

	// Incomplete results are not cached.
	_, err = f.EconomicData(context.Background(), "Kenya")
	require.NoError(t, err)
	assert.EqualValues(t, 8, hits.Load())
}

func TestEconomicDataCachesCompleteResults(t *testing.T) {
	var hits atomic.Int32
	srv := worldBankServer(t, "", &hits)
	defer srv.Close()

	f := NewFetcher(NewWorldBank(srv.URL), nil, log.New(&bytes.Buffer{}, "", 0))
	first, err := f.EconomicData(context.Background(), "KEN")
	require.NoError(t, err)
	second, err := f.EconomicData(context.Background(), "kenya")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 4, hits.Load())
}
