package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/table"
)

func testExtractConfig() config.ExtractConfig {
	return config.ExtractConfig{APITimeout: 5 * time.Second, APIMaxBytes: 1 << 20}
}

func TestAPI_FetchSendsHeadersAndParams(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"id": 1, "user": {"name": "Ann"}}, {"id": 2, "user": {"name": "Bo"}}]}`))
	}))
	defer srv.Close()

	api := NewAPI(testExtractConfig(), srv.Client())
	got, err := api.Fetch(context.Background(), APIRequest{
		URL:     srv.URL + "/users?page=1",
		Headers: map[string]string{"Authorization": "Bearer abc"},
		Params:  map[string]string{"limit": "2"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer abc")
	}
	if gotQuery != "limit=2&page=1" {
		t.Errorf("query = %q, want %q", gotQuery, "limit=2&page=1")
	}
	if want := []string{"id", "user.name"}; !reflect.DeepEqual(got.ColumnNames(), want) {
		t.Errorf("columns = %v, want %v", got.ColumnNames(), want)
	}
	col, _ := got.Column("id")
	if col.Kind != table.KindInteger {
		t.Errorf("id kind = %v, want integer", col.Kind)
	}
}

func TestAPI_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.Write([]byte(`[]`))
		case "/big":
			w.Write([]byte(`[{"a": "` + strings.Repeat("x", 256) + `"}]`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`[{"a": 1}]`))
		}
	}))
	defer srv.Close()

	api := NewAPI(testExtractConfig(), srv.Client())
	ctx := context.Background()

	_, err := api.Fetch(ctx, APIRequest{URL: srv.URL + "/missing"})
	var statusErr *APIStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("missing: error = %v, want APIStatusError 404", err)
	}

	_, err = api.Fetch(ctx, APIRequest{URL: srv.URL + "/empty"})
	if !errors.Is(err, table.ErrEmptyJSON) {
		t.Errorf("empty: error = %v, want ErrEmptyJSON", err)
	}

	small := NewAPI(config.ExtractConfig{APITimeout: time.Second, APIMaxBytes: 64}, srv.Client())
	_, err = small.Fetch(ctx, APIRequest{URL: srv.URL + "/big"})
	if err == nil || !strings.Contains(err.Error(), "api response exceeds 64 bytes") {
		t.Errorf("big: error = %v, want size cap error", err)
	}

	cfg := testExtractConfig()
	cfg.APITimeout = 50 * time.Millisecond
	slow := NewAPI(cfg, nil)
	_, err = slow.Fetch(ctx, APIRequest{URL: srv.URL + "/slow"})
	if err == nil {
		t.Error("slow: expected timeout error")
	}
}

func TestAPI_ResolveRejectsBadURLs(t *testing.T) {
	cfg := testExtractConfig()
	cfg.AllowedHosts = []string{"api.example.com"}
	api := NewAPI(cfg, nil)

	tests := []struct {
		url  string
		want string
	}{
		{"ftp://api.example.com/data", "url scheme must be http or https"},
		{"https:///data", "url has no host"},
		{"https://evil.example.net/data", "api host not allowed"},
	}
	for _, tt := range tests {
		_, err := api.resolve(APIRequest{URL: tt.url})
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("resolve(%q) error = %v, want %q", tt.url, err, tt.want)
		}
	}

	u, err := api.resolve(APIRequest{URL: "https://API.example.com/data"})
	if err != nil {
		t.Fatalf("resolve() error = %v", err)
	}
	if u.Host != "API.example.com" {
		t.Errorf("Host = %q, want %q", u.Host, "API.example.com")
	}
}
