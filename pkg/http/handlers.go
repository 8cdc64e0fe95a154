package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"urlstore/pkg/logging"
	"urlstore/pkg/middleware"
	"urlstore/pkg/service"

	"github.com/go-chi/chi/v5"
)

// Banner is served on GET /.
type Banner struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Message string `json:"message"`
}

type Handler struct {
	linkService *service.LinkService
	logger      *logging.Logger
	banner      Banner
}

func NewHandler(linkService *service.LinkService, logger *logging.Logger, banner Banner) *Handler {
	return &Handler{linkService: linkService, logger: logger, banner: banner}
}

type CreateLinkRequest struct {
	URL  string `json:"url"`
	Key  string `json:"key,omitempty"`
	Auth string `json:"auth,omitempty"`
}

type CreateLinkResponse struct {
	Code     string `json:"code"`
	URL      string `json:"url"`
	ShortURL string `json:"short_url"`
}

type ListKeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.banner)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.linkService.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.linkService.ListKeys(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListKeysResponse{Keys: keys, Count: len(keys)})
}

func (h *Handler) ViewDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.linkService.ViewDetail(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateLink accepts the secret either as "auth" in the body or in X-Auth-Key.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	credential := req.Auth
	if credential == "" {
		credential = r.Header.Get(middleware.AuthHeader)
	}
	if err := h.linkService.Authorize(r.Context(), "create", credential); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	link, err := h.linkService.CreateLink(r.Context(), req.URL, req.Key)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateLinkResponse{
		Code:     link.Code,
		URL:      link.Destination,
		ShortURL: h.linkService.ShortURL(link.Code, requestBase(r)),
	})
}

// Redirect counts a view for GET only; HEAD gets the same answer uncounted.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	lookup := h.linkService.Visit
	if r.Method == http.MethodHead {
		lookup = h.linkService.Lookup
	}

	visit, err := lookup(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if visit.Kind == service.KindReservedText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(visit.Text))
		return
	}

	status := http.StatusFound
	if visit.Permanent {
		status = http.StatusMovedPermanently
	}
	http.Redirect(w, r, visit.Location, status)
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.linkService.DeleteLink(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted"})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAuth):
		http.Error(w, "Invalid auth", http.StatusUnauthorized)
	case errors.Is(err, service.ErrForbiddenSelf):
		http.Error(w, "Can you not !?", http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "Hmmmmmmm...", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidKey):
		http.Error(w, "invalid key", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCode):
		http.Error(w, "invalid code", http.StatusBadRequest)
	case errors.Is(err, service.ErrReservedCode):
		http.Error(w, "code is reserved", http.StatusBadRequest)
	case errors.Is(err, service.ErrCodeConflict):
		http.Error(w, "code already exists", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrGenerationExhausted):
		h.logger.Error(r.Context(), "code generation exhausted")
		http.Error(w, "could not allocate a code", http.StatusInternalServerError)
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestBase rebuilds scheme://host of the incoming request.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
