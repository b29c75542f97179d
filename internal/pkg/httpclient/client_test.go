package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
		RateLimit:      rate.Inf,
	}
}

func TestClient_GetJSON(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"name":"ETH / USD"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(), slog.New(slog.DiscardHandler))

	var got struct {
		Name string `json:"name"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.Name != "ETH / USD" {
		t.Errorf("Name = %q, want ETH / USD", got.Name)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestClient_GetJSON_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantHits int32
		check    func(t *testing.T, err error)
	}{
		{
			name:     "not found is not retried",
			status:   http.StatusNotFound,
			wantHits: 1,
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
					t.Errorf("error = %v, want *StatusError 404", err)
				}
			},
		},
		{
			name:     "bad json is not retried",
			status:   http.StatusOK,
			body:     `{not json`,
			wantHits: 1,
		},
		{
			name:     "server errors exhaust retries",
			status:   http.StatusBadGateway,
			wantHits: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(testConfig(), slog.New(slog.DiscardHandler))
			var out map[string]any
			err := client.GetJSON(context.Background(), srv.URL, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if hits.Load() != tt.wantHits {
				t.Errorf("hits = %d, want %d", hits.Load(), tt.wantHits)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}
