package ga4mp

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInit_RequiresCredentials(t *testing.T) {
	c := NewClient("", "", "", "")
	if err := c.Init(context.Background()); err == nil {
		t.Error("expected error for missing measurement id and api secret")
	}

	c = NewClient("G-TEST", "secret", "", "")
	if err := c.Init(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInit_Idempotent(t *testing.T) {
	c := NewClient("G-TEST", "secret", "", "")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := c.Init(ctx); err != nil {
			t.Fatalf("Init call %d failed: %v", i+1, err)
		}
	}
}

func TestRecord(t *testing.T) {
	var gotQuery string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("G-TEST", "s3cret", srv.URL, "client-1")
	err := c.Record(context.Background(), "view_item", map[string]any{"value": 19.99})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if gotQuery != "measurement_id=G-TEST&api_secret=s3cret" {
		t.Errorf("query = %q", gotQuery)
	}

	var req struct {
		ClientID string `json:"client_id"`
		Events   []struct {
			Name   string         `json:"name"`
			Params map[string]any `json:"params"`
		} `json:"events"`
	}
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if req.ClientID != "client-1" {
		t.Errorf("client_id = %q, want client-1", req.ClientID)
	}
	if len(req.Events) != 1 || req.Events[0].Name != "view_item" {
		t.Fatalf("events = %+v, want single view_item", req.Events)
	}
	if req.Events[0].Params["value"] != 19.99 {
		t.Errorf("params.value = %v, want 19.99", req.Events[0].Params["value"])
	}
}

func TestRecord_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("G-TEST", "secret", srv.URL, "")
	if err := c.Record(context.Background(), "view_item", nil); err == nil {
		t.Error("expected error for rejected status")
	}
}

func TestRecord_NaNParamsFailEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should never be sent when encoding fails")
	}))
	defer srv.Close()

	c := NewClient("G-TEST", "secret", srv.URL, "")
	// A malformed source amount propagates NaN into the payload; JSON
	// cannot carry it, so the delivery fails and the dispatcher drops
	// the single event.
	err := c.Record(context.Background(), "add_to_cart", map[string]any{"value": math.NaN()})
	if err == nil {
		t.Error("expected encoding error for NaN value")
	}
}
