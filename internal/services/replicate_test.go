package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func replicateServer(t *testing.T, handler http.HandlerFunc) *ReplicateClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewReplicateClient("r8_test")
	c.baseURL = srv.URL
	return c
}

func TestCreatePredictionSetsWaitHeader(t *testing.T) {
	c := replicateServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/black-forest-labs/flux-2-pro/predictions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Prefer"); got != "wait=60" {
			t.Errorf("Prefer = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer r8_test" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "p1",
			"status": "succeeded",
			"output": "https://cdn/out.png",
		})
	})

	pred, err := c.CreatePrediction(context.Background(), "black-forest-labs/flux-2-pro", map[string]interface{}{"prompt": "x"}, true)
	if err != nil {
		t.Fatalf("CreatePrediction: %v", err)
	}
	if !pred.Terminal() {
		t.Error("succeeded prediction should be terminal")
	}
	if urls := pred.OutputURLs(); len(urls) != 1 || urls[0] != "https://cdn/out.png" {
		t.Errorf("OutputURLs = %v", urls)
	}
}

func TestOutputURLsArrayForm(t *testing.T) {
	raw, _ := json.Marshal([]string{"https://cdn/1.png", "https://cdn/2.png"})
	pred := &Prediction{Status: "succeeded", Output: raw}

	urls := pred.OutputURLs()
	if len(urls) != 2 || urls[1] != "https://cdn/2.png" {
		t.Errorf("OutputURLs = %v", urls)
	}
}

func TestPredictionTerminalStatuses(t *testing.T) {
	for status, want := range map[string]bool{
		"starting":   false,
		"processing": false,
		"succeeded":  true,
		"failed":     true,
		"canceled":   true,
	} {
		p := &Prediction{Status: status}
		if p.Terminal() != want {
			t.Errorf("Terminal(%q) = %v, want %v", status, p.Terminal(), want)
		}
	}
}

func TestReplicateErrorMapping(t *testing.T) {
	c := replicateServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"detail": "slow down"})
	})

	_, err := c.GetPrediction(context.Background(), "p1")
	if _, ok := err.(*RateLimitError); !ok {
		t.Errorf("expected *RateLimitError, got %T: %v", err, err)
	}
}
