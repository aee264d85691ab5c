package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/offer-form/internal/offer"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, s.deps.Admin.Hub().Agents.Current(), http.StatusOK)
}

func (s *Server) handleListLogos(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, s.deps.Admin.Hub().Logos.Current(), http.StatusOK)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, s.deps.Admin.Hub().Settings.Current(), http.StatusOK)
}

// handleDeposit computes a deposit from a price and percentage. An
// unusable input yields an empty deposit rather than an error.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price := q.Get("price")
	percent := q.Get("percent")

	apiJSON(w, map[string]string{
		"price":   offer.FormatCurrency(price),
		"percent": strings.TrimSpace(percent),
		"deposit": offer.CalculateDeposit(price, percent),
	}, http.StatusOK)
}

func (s *Server) handleAddressSuggest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Places == nil {
		apiError(w, "address suggestions not configured", http.StatusServiceUnavailable)
		return
	}

	suggestions, err := s.deps.Places.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		internalError(w, "suggesting addresses", err)
		return
	}
	apiJSON(w, suggestions, http.StatusOK)
}

func (s *Server) handleAddressResolve(w http.ResponseWriter, r *http.Request) {
	if s.deps.Places == nil {
		apiError(w, "address suggestions not configured", http.StatusServiceUnavailable)
		return
	}

	placeID := strings.TrimSpace(r.URL.Query().Get("place_id"))
	if placeID == "" {
		apiError(w, "place_id is required", http.StatusBadRequest)
		return
	}

	address, err := s.deps.Places.Resolve(r.Context(), placeID)
	if err != nil {
		internalError(w, "resolving address", err)
		return
	}
	apiJSON(w, map[string]string{"address": address}, http.StatusOK)
}
