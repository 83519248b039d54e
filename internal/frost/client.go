// Package frost talks to the downstream SensorThings observation store:
// Thing upserts, bulk observation batches, and collection registration on
// the serving API.
package frost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cgs-earth/hydrosync/internal/sta"
)

// ThingsCollection is the collection the station Thing documents live in.
const ThingsCollection = "Things"

// UploadError reports a non-success response from the store, carrying the
// response body for diagnosis.
type UploadError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %s failed (status %d): %s", e.URL, e.StatusCode, e.Body)
}

// Client is an HTTP client for the observation store.
type Client struct {
	backendURL string
	client     *http.Client
}

// NewClient creates a client against the store's root URL.
func NewClient(backendURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{backendURL: trimSlash(backendURL), client: client}
}

func trimSlash(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}

// UpsertThing inserts or replaces a station's Thing document, including its
// embedded Locations and Datastreams. It must be issued before the
// observation batch that references the datastreams, or the batch's foreign
// keys will not resolve.
func (c *Client) UpsertThing(ctx context.Context, thing sta.Thing) error {
	return c.post(ctx, c.backendURL+"/"+ThingsCollection, thing)
}

// batchItem is one entry of a $batch document.
type batchItem struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   sta.Observation `json:"body"`
}

type batchDocument struct {
	Requests []batchItem `json:"requests"`
}

// PostObservations submits one station's observations as a single bulk
// transaction against the store's $batch endpoint. A status outside
// {200, 201} is a hard failure for the whole batch.
func (c *Client) PostObservations(ctx context.Context, observations []sta.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	doc := batchDocument{Requests: make([]batchItem, 0, len(observations))}
	for _, obs := range observations {
		doc.Requests = append(doc.Requests, batchItem{
			ID:     strconv.FormatInt(obs.Datastream.ID, 10),
			Method: "post",
			URL:    "Observations",
			Body:   obs,
		})
	}

	return c.post(ctx, c.backendURL+"/$batch", doc)
}

func (c *Client) post(ctx context.Context, url string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return &UploadError{URL: url, StatusCode: resp.StatusCode, Body: respBody}
	}
	return nil
}
