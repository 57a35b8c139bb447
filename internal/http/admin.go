package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/workflow"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// AdminAPI registers the staff endpoints.
type AdminAPI struct {
	basePath string
	content  content.Service
	workflow workflow.Service
	contact  contact.Service
	logger   interfaces.Logger
}

// AdminOption mutates the AdminAPI configuration.
type AdminOption func(*AdminAPI)

func NewAdminAPI(opts ...AdminOption) *AdminAPI {
	api := &AdminAPI{basePath: "/admin/api", logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

// WithBasePath overrides the base API path (defaults to "/admin/api").
func WithBasePath(path string) AdminOption {
	return func(api *AdminAPI) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.basePath = trimmed
		}
	}
}

// WithContentService wires admin reads.
func WithContentService(service content.Service) AdminOption {
	return func(api *AdminAPI) {
		api.content = service
	}
}

// WithWorkflowService wires admin mutations.
func WithWorkflowService(service workflow.Service) AdminOption {
	return func(api *AdminAPI) {
		api.workflow = service
	}
}

// WithContactRequests wires the contact request inbox.
func WithContactRequests(service contact.Service) AdminOption {
	return func(api *AdminAPI) {
		api.contact = service
	}
}

func WithAdminLogger(logger interfaces.Logger) AdminOption {
	return func(api *AdminAPI) {
		if logger != nil {
			api.logger = logger
		}
	}
}

// Register attaches the admin endpoints to mux behind the staff guard.
func (api *AdminAPI) Register(mux *http.ServeMux) error {
	if mux == nil {
		return fmt.Errorf("http: mux is required")
	}
	if api == nil {
		return fmt.Errorf("http: admin api is nil")
	}
	base := joinPath(api.basePath, "")
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireStaff(fn))
	}

	handle("GET "+joinPath(base, "contact-requests"), api.handleContactList)
	handle("GET "+joinPath(base, "{kind}"), api.handleList)
	handle("POST "+joinPath(base, "{kind}"), api.handleCreate)
	handle("POST "+joinPath(base, "{kind}/reorder"), api.handleReorder)
	handle("GET "+joinPath(base, "{kind}/{id}"), api.handleGet)
	handle("PUT "+joinPath(base, "{kind}/{id}"), api.handleUpdate)
	handle("DELETE "+joinPath(base, "{kind}/{id}"), api.handleDelete)
	handle("POST "+joinPath(base, "{kind}/{id}/status"), api.handleSetStatus)
	return nil
}

func (api *AdminAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if api.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	page, okPage := queryInt(r, "page")
	pageSize, okSize := queryInt(r, "page_size")
	if !okPage || !okSize {
		writeBadRequest(w, "page and page_size must be integers")
		return
	}
	query := r.URL.Query()
	req := content.AdminListRequest{
		Locale:   query.Get("locale"),
		Status:   query.Get("status"),
		Search:   query.Get("q"),
		Page:     page,
		PageSize: pageSize,
	}
	for key, values := range query {
		if key == "status" || len(values) == 0 {
			continue
		}
		if _, reserved := reservedListParams[key]; reserved {
			continue
		}
		if req.Filters == nil {
			req.Filters = map[string]string{}
		}
		req.Filters[key] = values[0]
	}
	result, err := api.content.AdminList(r.Context(), kind, req)
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *AdminAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	if api.content == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return
	}
	item, err := api.content.AdminGet(r.Context(), kind, id)
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (api *AdminAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if api.workflow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	payload := map[string]any{}
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "malformed json body")
		return
	}
	item, err := api.workflow.Create(r.Context(), kind, payload)
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (api *AdminAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if api.workflow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return
	}
	payload := map[string]any{}
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "malformed json body")
		return
	}
	item, err := api.workflow.Update(r.Context(), kind, id, payload)
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type statusPayload struct {
	Status string `json:"status"`
}

func (api *AdminAPI) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	if api.workflow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return
	}
	var payload statusPayload
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "malformed json body")
		return
	}
	item, err := api.workflow.SetStatus(r.Context(), kind, id, domain.Status(strings.TrimSpace(payload.Status)))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (api *AdminAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if api.workflow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	id, err := parseUUID(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return
	}
	if err := api.workflow.Delete(r.Context(), kind, id); err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderPayload struct {
	Items []content.OrderUpdate `json:"items"`
}

func (api *AdminAPI) handleReorder(w http.ResponseWriter, r *http.Request) {
	if api.workflow == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	var payload reorderPayload
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "malformed json body")
		return
	}
	if err := api.workflow.Reorder(r.Context(), kind, payload.Items); err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *AdminAPI) handleContactList(w http.ResponseWriter, r *http.Request) {
	if api.contact == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
		return
	}
	page, okPage := queryInt(r, "page")
	pageSize, okSize := queryInt(r, "page_size")
	if !okPage || !okSize {
		writeBadRequest(w, "page and page_size must be integers")
		return
	}
	result, err := api.contact.List(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, api.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
