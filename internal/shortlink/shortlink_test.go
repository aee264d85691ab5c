package shortlink

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/offer-form/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})
	return NewStore(d)
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if len(id) != IDLength {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), IDLength)
		}
		if strings.Trim(id, alphabet) != "" {
			t.Fatalf("id %q has characters outside base 36", id)
		}
		seen[id] = true
	}
	if len(seen) < 190 {
		t.Errorf("only %d distinct ids in 200", len(seen))
	}
}

func TestCreateAndResolve(t *testing.T) {
	s := testStore(t)

	l, err := s.Create(" Ben Fields ", "4D/238 The Esplanade")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.Agent != "Ben Fields" {
		t.Errorf("agent = %q", l.Agent)
	}

	got, err := s.Resolve(strings.ToUpper(l.ID))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Address != "4D/238 The Esplanade" || got.Agent != "Ben Fields" {
		t.Errorf("resolve = %+v", got)
	}

	if _, err := s.Resolve("zzzzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name, agent, address string
	}{
		{"no agent", "", "1 Main St"},
		{"no address", "Ben Fields", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(tt.agent, tt.address); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestList(t *testing.T) {
	s := testStore(t)

	for _, addr := range []string{"1 Main St", "2 Main St", "3 Main St"} {
		if _, err := s.Create("Ben Fields", addr); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	links, err := s.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("got %d links, want 2", len(links))
	}
}

func TestURLs(t *testing.T) {
	if got := URL("https://offers.example.com/", "ab12c"); got != "https://offers.example.com/?id=ab12c" {
		t.Errorf("URL = %q", got)
	}

	direct := DirectURL("https://offers.example.com", "Ben Fields", "4D/238 The Esplanade")
	u, err := url.Parse(direct)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := ParseParams(u.Query())
	if p.Agent != "Ben Fields" || p.Address != "4D/238 The Esplanade" {
		t.Errorf("round trip = %+v", p)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		query string
		want  Params
		empty bool
	}{
		{"", Params{}, true},
		{"id=ab12c", Params{ID: "ab12c"}, false},
		{"a=Ben&p=1+Main+St", Params{Agent: "Ben", Address: "1 Main St"}, false},
		{"agent=Alex&a=Ben&address=2+Main+St&p=1+Main+St", Params{Agent: "Alex", Address: "2 Main St"}, false},
		{"a=+&p=", Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := ParseParams(q)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Empty() != tt.empty {
				t.Errorf("Empty() = %v, want %v", got.Empty(), tt.empty)
			}
		})
	}
}
