package tms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
	"github.com/symphonia/tms-sync/internal/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func testConnection(apiURL string) *models.TMSConnection {
	return &models.TMSConnection{
		TMSType:  "dashdoc",
		IsActive: true,
		Credentials: models.Credentials{
			APIToken: "test-token",
			APIURL:   apiURL,
		},
		SyncConfig: models.DefaultSyncConfig(),
	}
}

func TestClient_FetchPage(t *testing.T) {
	var gotAuth, gotPath, gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"count": 250,
			"next": "https://example.test/api/v4/companies/?page=2",
			"results": [
				{"pk": 101, "remote_id": "T9981", "name": "Transports Durand", "trade_number": "12345678900011"},
				{"pk": 102, "remote_id": "C12", "name": "Client SARL"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, secrets.NewMemoryResolver(), testLogger())

	page, err := client.FetchPage(context.Background(), testConnection(server.URL), 1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Token test-token" {
		t.Errorf("expected Token auth header, got %q", gotAuth)
	}
	if gotPath != "/companies/" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	for _, param := range []string{"is_carrier=true", "is_shipper=false", "limit=100", "page=1"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query %q missing %q", gotQuery, param)
		}
	}

	if page.TotalCount != 250 {
		t.Errorf("expected count 250, got %d", page.TotalCount)
	}
	if !page.HasNext {
		t.Error("expected HasNext=true from next pointer")
	}
	if len(page.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(page.Results))
	}
	if page.Results[0].ExternalID() != "101" {
		t.Errorf("expected external id 101, got %s", page.Results[0].ExternalID())
	}
	if len(page.Results[0].Raw) == 0 {
		t.Error("expected raw payload to be retained")
	}
}

func TestClient_FetchPage_LastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 1, "next": null, "results": [{"pk": 7, "name": "Solo"}]}`)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, secrets.NewMemoryResolver(), testLogger())

	page, err := client.FetchPage(context.Background(), testConnection(server.URL), 1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.HasNext {
		t.Error("expected HasNext=false when next is null")
	}
}

func TestClient_FetchPage_RemoteUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, secrets.NewMemoryResolver(), testLogger())

	_, err := client.FetchPage(context.Background(), testConnection(server.URL), 1, 100)

	var remoteErr *RemoteUnavailableError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
	if remoteErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", remoteErr.StatusCode)
	}
}

func TestClient_FetchPage_AuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, secrets.NewMemoryResolver(), testLogger())

	_, err := client.FetchPage(context.Background(), testConnection(server.URL), 1, 100)

	var authErr *AuthRejectedError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthRejectedError, got %v", err)
	}
}

func TestClient_FetchPage_NetworkError(t *testing.T) {
	client := NewClient(time.Second, secrets.NewMemoryResolver(), testLogger())

	// Unreachable address.
	_, err := client.FetchPage(context.Background(), testConnection("http://127.0.0.1:1"), 1, 100)

	var remoteErr *RemoteUnavailableError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
}

func TestClient_FetchPage_SecretReference(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"count": 0, "next": null, "results": []}`)
	}))
	defer server.Close()

	resolver := secrets.NewMemoryResolver()
	resolver.Store("env://DASHDOC_TOKEN", "resolved-token")

	conn := testConnection(server.URL)
	conn.Credentials.APIToken = ""
	conn.Credentials.APITokenRef = "env://DASHDOC_TOKEN"

	client := NewClient(5*time.Second, resolver, testLogger())
	if _, err := client.FetchPage(context.Background(), conn, 1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Token resolved-token" {
		t.Errorf("expected resolved token in auth header, got %q", gotAuth)
	}
}
