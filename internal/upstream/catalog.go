package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// CatalogClient queries the station metadata service. The service rejects
// queries listing too many stations at once, so identifier lists are split
// into sub-batches and the results concatenated.
type CatalogClient struct {
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	maxBatch int
}

// NewCatalogClient creates a catalog client. maxBatch caps how many station
// identifiers go into a single query.
func NewCatalogClient(baseURL string, client *http.Client, maxBatch int) *CatalogClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if maxBatch <= 0 {
		maxBatch = 70
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "station-catalog",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &CatalogClient{baseURL: baseURL, client: client, breaker: cb, maxBatch: maxBatch}
}

// FetchStations returns one attribute record per requested identifier, in
// upstream order. Postcondition: len(result) == len(ids); any shortfall is a
// RetrievalError rather than a silently partial catalog.
func (c *CatalogClient) FetchStations(ctx context.Context, ids []int) ([]StationRecord, error) {
	var records []StationRecord

	for start := 0; start < len(ids); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(ids) {
			end = len(ids)
		}

		batch, err := c.fetchBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}

	if len(records) != len(ids) {
		return nil, &RetrievalError{
			URL:        c.baseURL,
			StatusCode: http.StatusOK,
			Reason:     fmt.Sprintf("requested %d stations but catalog returned %d", len(ids), len(records)),
		}
	}
	return records, nil
}

func (c *CatalogClient) fetchBatch(ctx context.Context, ids []int) ([]StationRecord, error) {
	params := url.Values{}
	params.Set("where", whereClause(ids))
	params.Set("outFields", "*")
	params.Set("f", "json")
	requestURL := c.baseURL + "?" + params.Encode()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return fetchedBatch{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog %s: %w", requestURL, err)
	}

	fetched := result.(fetchedBatch)
	if fetched.status != http.StatusOK {
		return nil, &RetrievalError{URL: requestURL, StatusCode: fetched.status, Reason: "non-success status"}
	}

	var payload catalogResponse
	if err := json.Unmarshal(fetched.body, &payload); err != nil {
		return nil, &RetrievalError{URL: requestURL, StatusCode: fetched.status, Reason: "undecodable response: " + err.Error()}
	}
	if len(payload.Features) == 0 && len(ids) > 0 {
		return nil, &RetrievalError{URL: requestURL, StatusCode: fetched.status, Reason: "empty feature set for a non-empty request"}
	}
	return payload.Features, nil
}

type fetchedBatch struct {
	body   []byte
	status int
}

// whereClause formats the identifier list the way the metadata service
// expects: station_nbr IN ('a' , 'b').
func whereClause(ids []int) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("'%d'", id)
	}
	return fmt.Sprintf("station_nbr IN (%s)", strings.Join(quoted, " , "))
}
