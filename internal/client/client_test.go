package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
)

func writeJSON(t *testing.T, w http.ResponseWriter, code int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents" {
			t.Errorf("path = %q, want /api/agents", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Error("expected Bearer testkey")
		}
		writeJSON(t, w, http.StatusOK, []roster.Agent{{ID: 1, Name: "General Office"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	agents, err := c.ListAgents()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("got %d agents, want 1", len(agents))
	}
	if agents[0].Name != "General Office" {
		t.Errorf("name = %q", agents[0].Name)
	}
}

func TestAddAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/admin/agents" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var a roster.Agent
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			t.Fatalf("decode: %v", err)
		}
		a.ID = 7
		writeJSON(t, w, http.StatusCreated, a)
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	a, err := c.AddAgent(roster.Agent{Name: "Ben Snell", Email: "bens@prdburleighheads.com.au"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if a.ID != 7 || a.Name != "Ben Snell" {
		t.Errorf("agent = %+v", a)
	}
}

func TestDeleteAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" || r.URL.Path != "/api/admin/agents/3" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	if err := c.DeleteAgent(3); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestSaveSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PUT" {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		var p settings.Patch
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.LogoURL == nil || p.Placeholders != nil {
			t.Errorf("patch = %+v", p)
		}
		writeJSON(t, w, http.StatusOK, settings.Settings{LogoURL: *p.LogoURL})
	}))
	defer srv.Close()

	logo := "https://example.com/logo.png"
	c := New(srv.URL, "testkey")
	s, err := c.SaveSettings(settings.Patch{LogoURL: &logo})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.LogoURL != logo {
		t.Errorf("logo = %q", s.LogoURL)
	}
}

func TestCreateLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["agent"] != "Ben Snell" || body["address"] != "12 Smith St" {
			t.Errorf("body = %v", body)
		}
		writeJSON(t, w, http.StatusCreated, admin.Link{URL: "https://offer.example.com/?id=abcde", QRFilename: "QR_12_Smith_St.png"})
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	link, err := c.CreateLink("Ben Snell", "12 Smith St")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if link.QRFilename != "QR_12_Smith_St.png" {
		t.Errorf("qr filename = %q", link.QRFilename)
	}
}

func TestQRCodeReturnsRawBody(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("data") != "https://offer.example.com/?id=abcde" {
			t.Errorf("data = %q", r.URL.Query().Get("data"))
		}
		w.Header().Set("Content-Type", "image/png")
		if _, err := w.Write(png); err != nil {
			t.Fatalf("write: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	got, err := c.QRCode("https://offer.example.com/?id=abcde", "12 Smith St")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if string(got) != string(png) {
		t.Errorf("body = %q", got)
	}
}

func TestSubmitBlockedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/forms/f1/submit" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{
			"result": map[string]any{
				"outcome": "blocked",
				"errors":  []map[string]string{{"field": "agent.name", "message": "Agent is required"}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Submit("f1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Result.Outcome != "blocked" {
		t.Errorf("outcome = %q", resp.Result.Outcome)
	}
	if resp.Result.Errors.Len() != 1 {
		t.Errorf("errors = %v", resp.Result.Errors)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]string{"error": "agent already exists"})
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	_, err := c.AddAgent(roster.Agent{Name: "Ben Snell"})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "agent already exists" {
		t.Errorf("error = %q", err.Error())
	}
	if IsUnauthorized(err) {
		t.Error("409 reported as unauthorized")
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "of_bad")
	_, err := c.SeedAgents()
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if err.Error() != "server error: Unauthorized" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/cli" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login should not send a bearer token")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["passphrase"] != "letmein" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid passphrase"})
			return
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"key":     "of_0123456789abcdef",
			"api_key": map[string]any{"id": 4, "name": body["name"]},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Login("letmein", "laptop")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Key != "of_0123456789abcdef" || resp.APIKey.Name != "laptop" {
		t.Errorf("resp = %+v", resp)
	}

	_, err = c.Login("wrong", "laptop")
	if !IsUnauthorized(err) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

func TestConnectionError(t *testing.T) {
	c := New("http://127.0.0.1:1", "testkey")
	_, err := c.ListAgents()
	if err == nil {
		t.Fatal("expected connection error")
	}
}
