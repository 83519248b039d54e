package frost

import (
	"context"
	"fmt"
	"net/http"
)

// CollectionMeta describes a logical collection registered with the serving
// API so the stored entities are queryable.
type CollectionMeta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Links       []string  `json:"links"`
	BBox        []float64 `json:"bbox"`
	IDField     string    `json:"id_field"`
	TitleField  string    `json:"title_field,omitempty"`
	TimeField   string    `json:"time_field,omitempty"`
}

var worldBBox = []float64{-180, -90, 180, 90}

// ThingCollectionMeta describes the station collection.
var ThingCollectionMeta = CollectionMeta{
	ID:          ThingsCollection,
	Title:       ThingsCollection,
	Description: "Oregon Water Resource SensorThings",
	Keywords:    []string{"thing", "oregon"},
	Links: []string{
		"https://gis.wrd.state.or.us/server/rest/services",
		"https://gis.wrd.state.or.us/server/sdk/rest/index.html#/02ss00000029000000",
	},
	BBox:       worldBBox,
	IDField:    "@iot.id",
	TitleField: "name",
}

// DatastreamCollectionMeta describes the datastream collection.
var DatastreamCollectionMeta = CollectionMeta{
	ID:          "Datastreams",
	Title:       "Datastreams",
	Description: "SensorThings API Datastreams",
	Keywords:    []string{"datastream", "dam"},
	Links: []string{
		"https://gis.wrd.state.or.us/server/rest/services",
		"https://gis.wrd.state.or.us/server/sdk/rest/index.html#/02ss00000029000000",
	},
	BBox:       worldBBox,
	IDField:    "@iot.id",
	TitleField: "name",
}

// ObservationCollectionMeta describes the observation collection.
var ObservationCollectionMeta = CollectionMeta{
	ID:          "Observations",
	Title:       "Observations",
	Description: "SensorThings API Observations",
	Keywords:    []string{"observation", "dam"},
	Links:       []string{"https://gis.wrd.state.or.us/server/rest/services"},
	BBox:        worldBBox,
	IDField:     "@iot.id",
	TimeField:   "resultTime",
}

// AdminClient registers and removes collections on the serving API's
// configuration endpoint.
type AdminClient struct {
	adminURL string
	client   *http.Client
}

// NewAdminClient creates a client against the serving API configuration URL.
func NewAdminClient(adminURL string, client *http.Client) *AdminClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &AdminClient{adminURL: trimSlash(adminURL), client: client}
}

// RegisterCollection adds or replaces a collection definition.
func (c *AdminClient) RegisterCollection(ctx context.Context, meta CollectionMeta) error {
	frostClient := &Client{backendURL: c.adminURL, client: c.client}
	if err := frostClient.post(ctx, c.adminURL+"/collections", meta); err != nil {
		return fmt.Errorf("register collection %s: %w", meta.ID, err)
	}
	return nil
}

// RemoveCollection deletes a collection definition and its items.
func (c *AdminClient) RemoveCollection(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.adminURL+"/collections/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remove collection %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return &UploadError{URL: c.adminURL + "/collections/" + id, StatusCode: resp.StatusCode}
	}
	return nil
}
