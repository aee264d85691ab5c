package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/blob"
	"github.com/evcraddock/offer-form/internal/qr"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
)

const (
	maxUploadBytes    = 10 << 20
	defaultLinksLimit = 50
)

// adminError maps admin store errors to HTTP statuses.
func adminError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound), errors.Is(err, settings.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, roster.ErrExists):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, roster.ErrNameRequired),
		errors.Is(err, settings.ErrURLRequired),
		errors.Is(err, settings.ErrUnknownPlaceholder),
		errors.Is(err, admin.ErrLinkFields):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, blob.ErrNotImage):
		apiError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, blob.ErrTooLarge):
		apiError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		internalError(w, msg, err)
	}
}

func (s *Server) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	var a roster.Agent
	if !decodeJSON(w, r, maxBodyBytes, &a) {
		return
	}

	out, err := s.deps.Admin.AddAgent(a)
	if err != nil {
		adminError(w, "adding agent", err)
		return
	}
	apiJSON(w, out, http.StatusCreated)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		apiError(w, "invalid agent ID", http.StatusBadRequest)
		return
	}

	var a roster.Agent
	if !decodeJSON(w, r, maxBodyBytes, &a) {
		return
	}

	out, err := s.deps.Admin.UpdateAgent(id, a)
	if err != nil {
		adminError(w, "updating agent", err)
		return
	}
	apiJSON(w, out, http.StatusOK)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		apiError(w, "invalid agent ID", http.StatusBadRequest)
		return
	}

	if err := s.deps.Admin.DeleteAgent(id); err != nil {
		adminError(w, "deleting agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSeedAgents(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Admin.SeedAgents()
	if err != nil {
		adminError(w, "seeding agents", err)
		return
	}
	apiJSON(w, map[string]int{"added": n}, http.StatusOK)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	if !decodeJSON(w, r, maxBodyBytes, &p) {
		return
	}

	out, err := s.deps.Admin.SaveSettings(p)
	if err != nil {
		adminError(w, "saving settings", err)
		return
	}
	apiJSON(w, out, http.StatusOK)
}

// handleUploadLogo accepts a multipart "file" upload, or JSON
// {"name", "url"} for an externally hosted logo.
func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		}
		if !decodeJSON(w, r, maxBodyBytes, &req) {
			return
		}
		logo, err := s.deps.Admin.AddLogoURL(req.Name, req.URL)
		if err != nil {
			adminError(w, "adding logo", err)
			return
		}
		apiJSON(w, logo, http.StatusCreated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		apiError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			fmt.Printf("closing upload: %v\n", cerr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		apiError(w, "reading upload", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}

	logo, err := s.deps.Admin.UploadLogo(r.Context(), name, header.Header.Get("Content-Type"), data)
	if err != nil {
		adminError(w, "uploading logo", err)
		return
	}
	apiJSON(w, logo, http.StatusCreated)
}

func (s *Server) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		apiError(w, "invalid logo ID", http.StatusBadRequest)
		return
	}

	if err := s.deps.Admin.DeleteLogo(id); err != nil {
		adminError(w, "deleting logo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent   string `json:"agent"`
		Address string `json:"address"`
	}
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	link, err := s.deps.Admin.CreateLink(req.Agent, req.Address)
	if err != nil {
		adminError(w, "creating link", err)
		return
	}
	apiJSON(w, link, http.StatusCreated)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	limit := defaultLinksLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apiError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	links, err := s.deps.Admin.ListLinks(limit)
	if err != nil {
		adminError(w, "listing links", err)
		return
	}
	apiJSON(w, links, http.StatusOK)
}

// handleQRCode proxies a QR image for ?data=, named after ?address=.
func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := strings.TrimSpace(q.Get("data"))
	if data == "" {
		apiError(w, "data is required", http.StatusBadRequest)
		return
	}

	png, err := s.deps.Admin.QRCode(r.Context(), data)
	if err != nil {
		zap.L().Warn("fetching qr code", zap.Error(err))
		apiError(w, "generating QR code", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", qr.Filename(q.Get("address"))))
	if _, err := w.Write(png); err != nil {
		zap.L().Warn("writing qr code", zap.Error(err))
	}
}
