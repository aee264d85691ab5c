package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "test-key", false},
		{"empty key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.key, "au")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("expected client, got nil")
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		want       int
		wantErr    bool
	}{
		{
			name: "predictions",
			response: `{"status": "OK", "predictions": [
				{"place_id": "p1", "description": "4D/238 The Esplanade, Burleigh Heads QLD, Australia"},
				{"place_id": "p2", "description": "238 The Esplanade, Surfers Paradise QLD, Australia"}
			]}`,
			statusCode: http.StatusOK,
			want:       2,
		},
		{
			name:       "zero results",
			response:   `{"status": "ZERO_RESULTS", "predictions": []}`,
			statusCode: http.StatusOK,
			want:       0,
		},
		{
			name:       "denied",
			response:   `{"status": "REQUEST_DENIED", "error_message": "bad key"}`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
		{
			name:       "server error",
			response:   `{}`,
			statusCode: http.StatusInternalServerError,
			wantErr:    true,
		},
		{
			name:       "invalid json",
			response:   `{bad`,
			statusCode: http.StatusOK,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("key") != "test-key" {
					t.Errorf("key = %q", q.Get("key"))
				}
				if q.Get("components") != "country:au" {
					t.Errorf("components = %q", q.Get("components"))
				}
				if q.Get("input") != "238 the esp" {
					t.Errorf("input = %q", q.Get("input"))
				}
				w.WriteHeader(tt.statusCode)
				_, _ = fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			c, _ := NewClient("test-key", "au")
			SetTestURLs(c, srv.URL, "")

			got, err := c.Suggest(context.Background(), "238 the esp")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d suggestions, want %d", len(got), tt.want)
			}
			if tt.want > 0 && got[0].PlaceID != "p1" {
				t.Errorf("first place = %q", got[0].PlaceID)
			}
		})
	}
}

func TestSuggestEmptyInput(t *testing.T) {
	c, _ := NewClient("test-key", "")
	SetTestURLs(c, "http://127.0.0.1:0", "")

	got, err := c.Suggest(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d suggestions", len(got))
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "formatted address",
			response: `{"status": "OK", "result": {"formatted_address": "4D/238 The Esplanade, Burleigh Heads QLD 4220, Australia"}}`,
			want:     "4D/238 The Esplanade, Burleigh Heads QLD 4220, Australia",
		},
		{
			name:     "not found",
			response: `{"status": "NOT_FOUND"}`,
			wantErr:  true,
		},
		{
			name:     "blank address",
			response: `{"status": "OK", "result": {}}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("place_id"); got != "p1" {
					t.Errorf("place_id = %q", got)
				}
				_, _ = fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			c, _ := NewClient("test-key", "au")
			SetTestURLs(c, "", srv.URL)

			got, err := c.Resolve(context.Background(), "p1")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRequiresID(t *testing.T) {
	c, _ := NewClient("test-key", "au")
	if _, err := c.Resolve(context.Background(), ""); err == nil {
		t.Fatal("expected error, got nil")
	}
}
