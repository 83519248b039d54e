package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cgs-earth/hydrosync/internal/cache"
)

// errorMarker is embedded in an otherwise-200 response body when the
// download service fails server-side. The misspelling is upstream's.
const errorMarker = "An Error Has Occured"

// SeriesFetcher retrieves raw time-series responses for one (station,
// parameter, window) at a time, going through the response cache so that
// immutable historical windows are downloaded once.
type SeriesFetcher struct {
	baseURL string
	cache   *cache.Cache
	table   []Parameter
	codes   map[string]string
}

// NewSeriesFetcher creates a fetcher against the download endpoint using the
// given parameter table.
func NewSeriesFetcher(baseURL string, c *cache.Cache, table []Parameter) *SeriesFetcher {
	codes := make(map[string]string, len(table))
	for _, p := range table {
		codes[p.Key] = p.Code
	}
	return &SeriesFetcher{baseURL: baseURL, cache: c, table: table, codes: codes}
}

// RequestURL builds the canonical download URL for a (parameter, station,
// window) triple. url.Values encodes keys in sorted order, so the same
// inputs always produce the same URL and therefore the same cache key.
func (f *SeriesFetcher) RequestURL(parameterKey, stationNbr, startDate, endDate string) (string, error) {
	code, ok := f.codes[parameterKey]
	if !ok {
		return "", fmt.Errorf("unknown parameter %q", parameterKey)
	}

	params := url.Values{}
	params.Set("station_nbr", stationNbr)
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)
	params.Set("dataset", code)
	params.Set("format", "tsv")
	// The download endpoint 404s without a units parameter, even an empty one.
	params.Set("units", "")

	return f.baseURL + "?" + params.Encode(), nil
}

// Fetch retrieves the raw response for a window through the cache.
//
// An empty startDate with any endDate yields a non-empty body whose parsed
// series has zero rows; the service requires an explicit start to return
// data. An empty endDate returns data through "now" at fetch time, which is
// not reproducible across calendar days: callers needing reproducible (and
// cacheable) results must always pass an explicit end date.
func (f *SeriesFetcher) Fetch(ctx context.Context, parameterKey, stationNbr, startDate, endDate string, forceFetch bool) ([]byte, error) {
	if err := ValidateUpstreamTime(startDate); err != nil {
		return nil, err
	}
	if err := ValidateUpstreamTime(endDate); err != nil {
		return nil, err
	}

	requestURL, err := f.RequestURL(parameterKey, stationNbr, startDate, endDate)
	if err != nil {
		return nil, err
	}

	body, status, err := f.cache.GetOrFetch(ctx, requestURL, forceFetch)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &RetrievalError{URL: requestURL, StatusCode: status, Reason: "non-success status"}
	}
	if strings.Contains(string(body), errorMarker) {
		return nil, &RetrievalError{URL: requestURL, StatusCode: status, Reason: "upstream error marker in response body"}
	}
	return body, nil
}

// FetchSeries fetches and parses a window in one step.
func (f *SeriesFetcher) FetchSeries(ctx context.Context, parameterKey, stationNbr, startDate, endDate string, forceFetch bool) (Series, error) {
	raw, err := f.Fetch(ctx, parameterKey, stationNbr, startDate, endDate, forceFetch)
	if err != nil {
		return Series{}, err
	}
	return ParseSeries(raw)
}
