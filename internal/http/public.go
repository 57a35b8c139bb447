package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// Query parameters with a fixed meaning on list reads. Any other parameter
// is treated as an attribute filter.
var reservedListParams = map[string]struct{}{
	"locale":    {},
	"q":         {},
	"page":      {},
	"page_size": {},
	"featured":  {},
	"preview":   {},
}

// PublicAPI registers the visitor-facing endpoints.
type PublicAPI struct {
	basePath   string
	content    content.Service
	contact    contact.Service
	trustProxy bool
	logger     interfaces.Logger
}

// PublicOption mutates the PublicAPI configuration.
type PublicOption func(*PublicAPI)

func NewPublicAPI(opts ...PublicOption) *PublicAPI {
	api := &PublicAPI{basePath: "/api", logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// WithPublicBasePath overrides the base path (defaults to "/api").
func WithPublicBasePath(path string) PublicOption {
	return func(api *PublicAPI) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = trimmed
		}
	}
}

func WithPublicContentService(service content.Service) PublicOption {
	return func(api *PublicAPI) {
		api.content = service
	}
}

func WithContactService(service contact.Service) PublicOption {
	return func(api *PublicAPI) {
		api.contact = service
	}
}

// WithTrustProxy reads the client address from X-Forwarded-For.
func WithTrustProxy(trust bool) PublicOption {
	return func(api *PublicAPI) {
		api.trustProxy = trust
	}
}

func WithPublicLogger(logger interfaces.Logger) PublicOption {
	return func(api *PublicAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// Register attaches the public endpoints to mux.
func (api *PublicAPI) Register(mux *http.ServeMux) error {
	if mux == nil {
		return fmt.Errorf("http: mux is required")
	}
	if api == nil {
		return fmt.Errorf("http: public api is nil")
	}
	base := joinPath(api.basePath, "")
	mux.HandleFunc("POST "+joinPath(base, "contact"), api.handleContactSubmit)
	mux.HandleFunc("GET "+joinPath(base, "{kind}"), api.handleList)
	mux.HandleFunc("GET "+joinPath(base, "{kind}/{slug}"), api.handleGet)
	return nil
}

func (api *PublicAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if api.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	query := r.URL.Query()
	page, okPage := queryInt(r, "page")
	pageSize, okSize := queryInt(r, "page_size")
	if !okPage || !okSize {
		writeBadRequest(w, "page and page_size must be integers")
		return
	}

	req := content.ListRequest{
		Locale:   query.Get("locale"),
		Search:   query.Get("q"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := query.Get("featured"); raw != "" {
		featured := visibility.ParsePreviewFlag(raw)
		req.Featured = &featured
	}
	for key, values := range query {
		if _, reserved := reservedListParams[key]; reserved || len(values) == 0 {
			continue
		}
		if req.Filters == nil {
			req.Filters = map[string]string{}
		}
		req.Filters[key] = values[0]
	}

	result, err := api.content.List(r.Context(), kind, req, readContext(r))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *PublicAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	if api.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	view, err := api.content.GetBySlug(r.Context(), kind, r.PathValue("slug"), r.URL.Query().Get("locale"), readContext(r))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type contactResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (api *PublicAPI) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if api.contact == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	var submission contact.Submission
	if err := decodeJSON(r, &submission); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "malformed json body")
		return
	}
	request, err := api.contact.Submit(r.Context(), submission, api.source(r))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactResponse{ID: request.ID.String(), CreatedAt: request.CreatedAt})
}

func (api *PublicAPI) source(r *http.Request) contact.Source {
	return contact.Source{
		IP:        clientIP(r, api.trustProxy),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}
}

// readContext derives the visibility context from the session and the
// preview query flag.
func readContext(r *http.Request) visibility.Context {
	session := permissions.SessionFromContext(r.Context())
	return visibility.ContextFrom(session, visibility.ParsePreviewFlag(r.URL.Query().Get("preview")))
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
