package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evcraddock/offer-form/internal/formsvc"
	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/shortlink"
	"github.com/evcraddock/offer-form/internal/submit"
)

const maxRecordBytes = 8 << 20 // signatures travel as data URLs

type fieldUpdate struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type fieldsRequest struct {
	Updates []fieldUpdate `json:"updates"`
}

type submitResponse struct {
	Result submit.Result `json:"result"`
	Form   formsvc.View  `json:"form"`
}

// formError maps form and session errors to HTTP statuses.
func formError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, formsvc.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, offer.ErrUnknownField),
		errors.Is(err, offer.ErrInvalidValue),
		errors.Is(err, offer.ErrBuyerIndex):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, offer.ErrPrefilled), errors.Is(err, offer.ErrLastBuyer):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, offer.ErrSchema):
		apiError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		internalError(w, "updating form", err)
	}
}

// handleStartForm opens a session from the link parameters (?id=, or
// agent/a and address/p) or a saved draft (?draft=).
func (s *Server) handleStartForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := s.deps.Forms.Start(r.Context(), formsvc.Start{
		Link:    shortlink.ParseParams(q),
		DraftID: q.Get("draft"),
	})
	if err != nil {
		internalError(w, "starting form", err)
		return
	}
	apiJSON(w, view, http.StatusCreated)
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Forms.Get(r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleCloseForm(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Forms.Close(r.PathValue("id")); err != nil {
		formError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetFields applies updates in order and stops at the first
// rejected one. Earlier updates stay applied.
func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if !decodeJSON(w, r, maxRecordBytes, &req) {
		return
	}
	if len(req.Updates) == 0 {
		apiError(w, "updates are required", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	var view formsvc.View
	for _, u := range req.Updates {
		var err error
		if view, err = s.deps.Forms.SetField(id, u.Path, u.Value); err != nil {
			formError(w, fmt.Errorf("%s: %w", u.Path, err))
			return
		}
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleSelectAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	view, err := s.deps.Forms.SelectAgent(r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleClearForm(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Forms.Clear(r.Context(), r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

// handleSubmitForm answers 200 on success, 422 when required fields are
// missing and 502 when delivery failed.
func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	res, view, err := s.deps.Forms.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}

	code := http.StatusOK
	switch res.Outcome {
	case submit.OutcomeBlocked:
		code = http.StatusUnprocessableEntity
	case submit.OutcomeError:
		code = http.StatusBadGateway
	}
	apiJSON(w, submitResponse{Result: res, Form: view}, code)
}

func (s *Server) handleReplaceRecord(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r, maxRecordBytes)
	if !ok {
		return
	}

	rec, err := offer.DecodeRecord(data)
	if err != nil {
		if errors.Is(err, offer.ErrSchema) {
			apiError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	view, err := s.deps.Forms.Replace(r.PathValue("id"), rec)
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleValidateForm(w http.ResponseWriter, r *http.Request) {
	errs, err := s.deps.Forms.Validate(r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}
	if errs == nil {
		errs = offer.Errors{}
	}
	apiJSON(w, map[string]any{"valid": errs.Len() == 0, "errors": errs}, http.StatusOK)
}

func (s *Server) handleFormPDF(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.deps.Forms.PDF(r.Context(), r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		internalError(w, "writing pdf", err)
	}
}

func (s *Server) handleAddBuyer(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Forms.AddBuyer(r.PathValue("id"))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleRemoveBuyer(w http.ResponseWriter, r *http.Request) {
	i, err := pathInt(r, "i")
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.deps.Forms.RemoveBuyer(r.PathValue("id"), int(i))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleToggleBuyer(w http.ResponseWriter, r *http.Request) {
	i, err := pathInt(r, "i")
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.deps.Forms.ToggleBuyerEntity(r.PathValue("id"), int(i))
	if err != nil {
		formError(w, err)
		return
	}
	apiJSON(w, view, http.StatusOK)
}

func (s *Server) handleSetBuyerFields(w http.ResponseWriter, r *http.Request) {
	i, err := pathInt(r, "i")
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req fieldsRequest
	if !decodeJSON(w, r, maxRecordBytes, &req) {
		return
	}
	if len(req.Updates) == 0 {
		apiError(w, "updates are required", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	var view formsvc.View
	for _, u := range req.Updates {
		if view, err = s.deps.Forms.SetBuyerField(id, int(i), u.Path, u.Value); err != nil {
			formError(w, fmt.Errorf("%s: %w", u.Path, err))
			return
		}
	}
	apiJSON(w, view, http.StatusOK)
}
