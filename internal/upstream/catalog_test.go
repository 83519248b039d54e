package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func catalogPayload(stationNbrs []string) string {
	features := make([]string, len(stationNbrs))
	for i, nbr := range stationNbrs {
		features[i] = fmt.Sprintf(`{
			"attributes": {
				"station_nbr": %q,
				"station_name": "STATION %s",
				"longitude_dec": -118.32,
				"latitude_dec": 45.72,
				"elevation": 1894,
				"county_name": "Umatilla",
				"mean_daily_flow_available": 1,
				"water_temp_mean_available": 0
			},
			"geometry": {"x": -118.32, "y": 45.72}
		}`, nbr, nbr)
	}
	return `{"features": [` + strings.Join(features, ",") + `]}`
}

// extractStations pulls the quoted station numbers back out of a where
// clause like station_nbr IN ('a' , 'b').
func extractStations(where string) []string {
	var out []string
	for _, part := range strings.Split(where, "'") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "station_nbr") || part == "," || strings.HasSuffix(part, ")") {
			continue
		}
		out = append(out, part)
	}
	return out
}

func TestFetchStations(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("f") != "json" || r.URL.Query().Get("outFields") != "*" {
			t.Errorf("missing query params in %s", r.URL.RawQuery)
		}
		stations := extractStations(r.URL.Query().Get("where"))
		fmt.Fprint(w, catalogPayload(stations))
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 70)
	records, err := client.FetchStations(context.Background(), []int{14026000, 10371500})
	if err != nil {
		t.Fatalf("FetchStations failed: %v", err)
	}

	if requests != 1 {
		t.Errorf("made %d requests, want 1", requests)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Attributes.StationNbr != "14026000" {
		t.Errorf("stationNbr = %q", records[0].Attributes.StationNbr)
	}
	if !records[0].Attributes.HasParameter("mean_daily_flow_available") {
		t.Error("mean_daily_flow_available flag not set")
	}
	if records[0].Attributes.HasParameter("water_temp_mean_available") {
		t.Error("water_temp_mean_available flag set, want unset")
	}
}

func TestFetchStationsSplitsOversizedRequests(t *testing.T) {
	var batches [][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stations := extractStations(r.URL.Query().Get("where"))
		batches = append(batches, stations)
		fmt.Fprint(w, catalogPayload(stations))
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 2)
	records, err := client.FetchStations(context.Background(), []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("FetchStations failed: %v", err)
	}

	if len(batches) != 3 {
		t.Fatalf("made %d requests, want 3", len(batches))
	}
	for i, batch := range batches[:2] {
		if len(batch) != 2 {
			t.Errorf("batch %d has %d stations, want 2", i, len(batch))
		}
	}
	if len(batches[2]) != 1 {
		t.Errorf("last batch has %d stations, want 1", len(batches[2]))
	}
	// Postcondition: one record per requested identifier.
	if len(records) != 5 {
		t.Errorf("got %d records, want 5", len(records))
	}
}

func TestFetchStationsEmptyFeatureSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features": []}`)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 70)
	_, err := client.FetchStations(context.Background(), []int{14026000})
	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("got %v, want RetrievalError", err)
	}
	if !strings.Contains(retrievalErr.URL, "where=") {
		t.Errorf("error does not carry the request URL: %q", retrievalErr.URL)
	}
}

func TestFetchStationsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogPayload([]string{"14026000"}))
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 70)
	_, err := client.FetchStations(context.Background(), []int{14026000, 10371500})
	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("got %v, want RetrievalError", err)
	}
}

func TestFetchStationsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 70)
	_, err := client.FetchStations(context.Background(), []int{14026000})
	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("got %v, want RetrievalError", err)
	}
	if retrievalErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", retrievalErr.StatusCode)
	}
}

func TestWhereClause(t *testing.T) {
	got := whereClause([]int{14026000, 10371500})
	want := "station_nbr IN ('14026000' , '10371500')"
	if got != want {
		t.Errorf("whereClause = %q, want %q", got, want)
	}
}

func TestAvailableParametersOrderAndStability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features": [{
			"attributes": {
				"station_nbr": "14026000",
				"station_name": "X",
				"longitude_dec": 0, "latitude_dec": 0, "elevation": 0,
				"mean_daily_flow_available": 1,
				"stage_instantaneous_available": "1",
				"measured_flow_available": 0
			},
			"geometry": {}
		}]}`)
	}))
	defer server.Close()

	client := NewCatalogClient(server.URL, server.Client(), 70)
	records, err := client.FetchStations(context.Background(), []int{14026000})
	if err != nil {
		t.Fatalf("FetchStations failed: %v", err)
	}

	available := records[0].Attributes.AvailableParameters(DefaultParameters())
	if len(available) != 2 {
		t.Fatalf("got %d available parameters, want 2", len(available))
	}
	// Table order, not attribute order: stage comes before mean daily flow.
	if available[0].Key != "stage_instantaneous_available" || available[1].Key != "mean_daily_flow_available" {
		t.Errorf("order = [%s, %s]", available[0].Key, available[1].Key)
	}
}
