package frost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cgs-earth/hydrosync/internal/sta"
)

func TestPostObservationsBatchShape(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/$batch" {
			t.Errorf("posted to %s, want /$batch", r.URL.Path)
		}
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	value := 100.5
	observations := []sta.Observation{
		{ResultTime: "2023-01-01T00:00:00Z", Result: &value, Datastream: sta.DatastreamRef{ID: 140260000}},
		{ResultTime: "2023-01-02T00:00:00Z", Result: nil, Datastream: sta.DatastreamRef{ID: 140260000}},
	}

	client := NewClient(srv.URL, nil)
	if err := client.PostObservations(context.Background(), observations); err != nil {
		t.Fatalf("PostObservations failed: %v", err)
	}

	var doc struct {
		Requests []struct {
			ID     string          `json:"id"`
			Method string          `json:"method"`
			URL    string          `json:"url"`
			Body   json.RawMessage `json:"body"`
		} `json:"requests"`
	}
	if err := json.Unmarshal(captured, &doc); err != nil {
		t.Fatalf("decode batch document: %v", err)
	}

	if len(doc.Requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(doc.Requests))
	}
	for i, req := range doc.Requests {
		if req.ID != "140260000" {
			t.Errorf("request %d id = %q", i, req.ID)
		}
		if req.Method != "post" || req.URL != "Observations" {
			t.Errorf("request %d = %s %s", i, req.Method, req.URL)
		}
	}

	var second struct {
		Result *float64 `json:"result"`
	}
	if err := json.Unmarshal(doc.Requests[1].Body, &second); err != nil {
		t.Fatalf("decode observation body: %v", err)
	}
	if second.Result != nil {
		t.Errorf("gap value = %v, want null", *second.Result)
	}
}

func TestPostObservationsEmptySkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty batch still hit the store")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.PostObservations(context.Background(), nil); err != nil {
		t.Fatalf("PostObservations failed: %v", err)
	}
}

func TestUpsertThingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "constraint violation", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.UpsertThing(context.Background(), sta.Thing{ID: 14026000})

	var uerr *UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UploadError", err)
	}
	if uerr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", uerr.StatusCode)
	}
	if len(uerr.Body) == 0 {
		t.Error("error response body not retained")
	}
}
