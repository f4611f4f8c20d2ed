package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/copomatas/internal/cache"
	"github.com/ppiankov/copomatas/internal/logger"
	"github.com/ppiankov/copomatas/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:   5 * time.Second,
		UserAgent: "copomatas-test/1.0",
	}
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"conteudo":[{"Titulo":"254ª reunião"}]}`)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())

	var body struct {
		Conteudo []map[string]string `json:"conteudo"`
	}
	if err := fetcher.GetJSON(context.Background(), server.URL, &body); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(body.Conteudo) != 1 || body.Conteudo[0]["Titulo"] != "254ª reunião" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())

	var body map[string]any
	err := fetcher.GetJSON(context.Background(), server.URL, &body)
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if model.IsNetwork(err) {
		t.Errorf("Decode failure should not be a network error: %v", err)
	}
}

func TestGetBytes_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())
	body, err := fetcher.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != "%PDF-1.4 body" {
		t.Errorf("Unexpected body: %q", body)
	}
}

func TestGet_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())
	_, err := fetcher.GetBytes(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if !model.IsNetwork(err) {
		t.Fatalf("Expected network error, got %T: %v", err, err)
	}
	if code := model.StatusCode(err); code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", code)
	}
}

func TestGet_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())
	_, err := fetcher.GetBytes(context.Background(), url)
	if !model.IsNetwork(err) {
		t.Fatalf("Expected network error, got %v", err)
	}
	if model.StatusCode(err) != 0 {
		t.Errorf("Transport errors carry no status code")
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "late")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())
	_, err := fetcher.GetBytes(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestGet_Headers(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = fmt.Fprint(w, "{}")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), nil, logger.Nop())
	var body map[string]any
	if err := fetcher.GetJSON(context.Background(), server.URL, &body); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotUA != "copomatas-test/1.0" {
		t.Errorf("Unexpected User-Agent: %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Unexpected Accept: %q", gotAccept)
	}
}

func TestGet_MaxBodyBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 10
	fetcher := NewFetcher(cfg, nil, logger.Nop())

	body, err := fetcher.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(body) != 10 {
		t.Errorf("Expected body truncated to 10 bytes, got %d", len(body))
	}
}

func TestGet_CacheHit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "cached body")
	}))
	defer server.Close()

	respCache := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testHTTPConfig(), respCache, logger.Nop())

	for i := 0; i < 3; i++ {
		body, err := fetcher.GetBytes(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if string(body) != "cached body" {
			t.Errorf("Unexpected body: %q", body)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 upstream request, got %d", hits.Load())
	}
}

func TestGet_ErrorsNotCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	respCache := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testHTTPConfig(), respCache, logger.Nop())

	if _, err := fetcher.GetBytes(context.Background(), server.URL); err == nil {
		t.Fatal("Expected first request to fail")
	}
	body, err := fetcher.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected second request to succeed, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Unexpected body: %q", body)
	}
}

func TestGetJSON_UndecodableBodyEvicted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = fmt.Fprint(w, "<html>manutenção</html>")
			return
		}
		_, _ = fmt.Fprint(w, `{"conteudo":[]}`)
	}))
	defer server.Close()

	respCache := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testHTTPConfig(), respCache, logger.Nop())

	var body map[string]any
	if err := fetcher.GetJSON(context.Background(), server.URL, &body); err == nil {
		t.Fatal("Expected decode error")
	}
	if _, found := respCache.Get(cache.Key(server.URL)); found {
		t.Error("Undecodable body should not stay cached")
	}
	if err := fetcher.GetJSON(context.Background(), server.URL, &body); err != nil {
		t.Fatalf("Expected refetch to succeed, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected 2 upstream requests, got %d", hits.Load())
	}
}

func TestGet_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	fetcher := NewFetcher(cfg, nil, logger.Nop())

	_, err := fetcher.GetBytes(context.Background(), server.URL+"/private/ata.pdf")
	if !errors.Is(err, errRobotsDisallowed) {
		t.Fatalf("Expected robots error, got %v", err)
	}
	if _, err := fetcher.GetBytes(context.Background(), server.URL+"/public/ata.pdf"); err != nil {
		t.Fatalf("Expected allowed path to succeed, got %v", err)
	}
	if pageHits.Load() != 1 {
		t.Errorf("Expected only the allowed page to be requested, got %d", pageHits.Load())
	}
}
