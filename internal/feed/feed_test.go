package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "k-123" {
			t.Errorf("x-api-key = %q, want %q", got, "k-123")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"header": {"timestamp": 1700000000},
			"entity": [
				{"id": "mta:1", "alert": {"header_text": {"translation": [{"language": "en", "text": "Delays on A"}]}, "transit_realtime.mercury_alert": {"created_at": 1700000000}}},
				{"id": "mta:2"}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k-123")
	entities, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("len(entities) = %d, want 2", len(entities))
	}
	if entities[0].ID != "mta:1" {
		t.Errorf("entities[0].ID = %q, want %q", entities[0].ID, "mta:1")
	}
	if entities[0].Alert == nil || entities[0].Alert.MercuryAlert == nil {
		t.Fatal("entities[0] alert payload not decoded")
	}
	if entities[0].Alert.MercuryAlert.CreatedAt != 1700000000 {
		t.Errorf("created_at = %d, want 1700000000", entities[0].Alert.MercuryAlert.CreatedAt)
	}
	if entities[1].Alert != nil {
		t.Error("entities[1].Alert should be nil for a partial record")
	}
}

func TestFetch_EmptyEntityList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entity": []}`))
	}))
	defer srv.Close()

	entities, err := New(srv.URL, "k").Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("len(entities) = %d, want 0", len(entities))
	}
}

func TestFetch_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if !strings.Contains(err.Error(), "feed returned 500") {
		t.Errorf("error = %q, want substring %q", err, "feed returned 500")
	}
}

func TestFetch_MissingEntityList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"header": {"timestamp": 1}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for payload without entity list")
	}
	if !strings.Contains(err.Error(), "no entity list") {
		t.Errorf("error = %q, want substring %q", err, "no entity list")
	}
}

func TestFetch_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{entity`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for closed server")
	}
}
