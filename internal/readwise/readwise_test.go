package readwise_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/readwise"
)

func TestSaveToReader(t *testing.T) {
	var auth string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	client := readwise.NewClientWith(srv.Client(), srv.URL, "secret-token")
	err := client.SaveToReader(context.Background(),
		"https://example.com", "Example", "a summary", []string{"go"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if auth != "Token secret-token" {
		t.Errorf("wrong auth header: %q", auth)
	}
	if payload["url"] != "https://example.com" || payload["title"] != "Example" {
		t.Errorf("wrong payload: %v", payload)
	}
	if payload["location"] != "later" {
		t.Errorf("saves should land in the later list, got %v", payload["location"])
	}
	if payload["summary"] != "a summary" {
		t.Errorf("summary missing: %v", payload)
	}
}

func TestSaveToReaderOmitsEmptyOptionals(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	client := readwise.NewClientWith(srv.Client(), srv.URL, "secret-token")
	if err := client.SaveToReader(context.Background(),
		"https://example.com", "Example", "", nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, ok := payload["summary"]; ok {
		t.Error("empty summary should be omitted")
	}
	if _, ok := payload["tags"]; ok {
		t.Error("empty tag list should be omitted")
	}
}

func TestSaveToReaderReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid token"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := readwise.NewClientWith(srv.Client(), srv.URL, "bad-token")
	err := client.SaveToReader(context.Background(), "https://example.com", "X", "", nil)
	if err == nil {
		t.Fatal("expected an error for a 401 answer")
	}
}
