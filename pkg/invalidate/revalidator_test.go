package invalidate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPRevalidator_PostsTags(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotPayload map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reval, err := NewHTTPRevalidator(server.URL, "reval-secret", 0)
	if err != nil {
		t.Fatalf("NewHTTPRevalidator failed: %v", err)
	}

	tags := []string{"entity-car-123", "collection-cars"}
	if err := reval.Revalidate(context.Background(), tags); err != nil {
		t.Fatalf("Revalidate failed: %v", err)
	}

	if gotPath != "/api/revalidate" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer reval-secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if len(gotPayload["tags"]) != 2 || gotPayload["tags"][0] != "entity-car-123" {
		t.Errorf("payload tags = %v", gotPayload["tags"])
	}
}

func TestHTTPRevalidator_TrimsTrailingSlash(t *testing.T) {
	reval, err := NewHTTPRevalidator("https://www.calderamotors.example/", "s", 0)
	if err != nil {
		t.Fatalf("NewHTTPRevalidator failed: %v", err)
	}
	if reval.endpoint != "https://www.calderamotors.example/api/revalidate" {
		t.Errorf("endpoint = %q", reval.endpoint)
	}
}

func TestHTTPRevalidator_OriginError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revalidation unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	reval, err := NewHTTPRevalidator(server.URL, "s", 0)
	if err != nil {
		t.Fatalf("NewHTTPRevalidator failed: %v", err)
	}
	if err := reval.Revalidate(context.Background(), []string{"all-lists"}); err == nil {
		t.Error("expected error on origin 500")
	}
}

func TestNewHTTPRevalidator_RequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPRevalidator("", "s", 0); err == nil {
		t.Error("expected error without base url")
	}
}
