package lists

import (
	"encoding/json"
	"net/http"

	"github.com/cds-snc/list-manager/internal/pkg/httputil"
	"github.com/cds-snc/list-manager/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the lists module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new lists handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes that require no authorization.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/lists", h.ListAll)
	r.Get("/lists/{service_id}", h.ListByService)
}

// RegisterProtectedRoutes registers routes guarded by the API token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/lists/{service_id}/subscriber-count", h.SubscriberCounts)
	r.Post("/list", h.Create)
	r.Put("/list/{list_id}", h.Update)
	r.Delete("/list/{list_id}", h.Delete)
}

// CreateRequest is the POST /list payload.
type CreateRequest struct {
	Name      string `json:"name" validate:"required"`
	Language  string `json:"language" validate:"required"`
	ServiceID string `json:"service_id" validate:"required"`

	SubscribeEmailTemplateID   string `json:"subscribe_email_template_id"`
	UnsubscribeEmailTemplateID string `json:"unsubscribe_email_template_id"`
	SubscribePhoneTemplateID   string `json:"subscribe_phone_template_id"`
	UnsubscribePhoneTemplateID string `json:"unsubscribe_phone_template_id"`

	SubscribeRedirectURL   string `json:"subscribe_redirect_url"`
	ConfirmRedirectURL     string `json:"confirm_redirect_url"`
	UnsubscribeRedirectURL string `json:"unsubscribe_redirect_url"`
}

// UpdateRequest is the PUT /list/{list_id} payload. Absent fields are left
// unchanged; an empty string clears an optional field.
type UpdateRequest struct {
	Name      *string `json:"name"`
	Language  *string `json:"language"`
	ServiceID *string `json:"service_id"`

	SubscribeEmailTemplateID   *string `json:"subscribe_email_template_id"`
	UnsubscribeEmailTemplateID *string `json:"unsubscribe_email_template_id"`
	SubscribePhoneTemplateID   *string `json:"subscribe_phone_template_id"`
	UnsubscribePhoneTemplateID *string `json:"unsubscribe_phone_template_id"`

	SubscribeRedirectURL   *string `json:"subscribe_redirect_url"`
	ConfirmRedirectURL     *string `json:"confirm_redirect_url"`
	UnsubscribeRedirectURL *string `json:"unsubscribe_redirect_url"`
}

// ListAll handles GET /lists.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListWithCounts(r.Context(), nil)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// ListByService handles GET /lists/{service_id}.
func (h *Handler) ListByService(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "service_id")

	result, err := h.service.ListWithCounts(r.Context(), &serviceID)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// SubscriberCounts handles GET /lists/{service_id}/subscriber-count.
func (h *Handler) SubscriberCounts(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "service_id")
	unique := r.URL.Query().Get("unique") == "1" || r.URL.Query().Get("unique") == "true"

	counts, err := h.service.SubscriberCounts(r.Context(), serviceID, unique)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, counts)
}

// Create handles POST /list.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	list, err := h.service.Create(r.Context(), CreateInput{
		Name:                       req.Name,
		Language:                   req.Language,
		ServiceID:                  req.ServiceID,
		SubscribeEmailTemplateID:   req.SubscribeEmailTemplateID,
		UnsubscribeEmailTemplateID: req.UnsubscribeEmailTemplateID,
		SubscribePhoneTemplateID:   req.SubscribePhoneTemplateID,
		UnsubscribePhoneTemplateID: req.UnsubscribePhoneTemplateID,
		SubscribeRedirectURL:       req.SubscribeRedirectURL,
		ConfirmRedirectURL:         req.ConfirmRedirectURL,
		UnsubscribeRedirectURL:     req.UnsubscribeRedirectURL,
	})
	if err != nil {
		metrics.ListOperations.WithLabelValues("create", "error").Inc()
		h.handleServiceError(r, w, err)
		return
	}

	metrics.ListOperations.WithLabelValues("create", "success").Inc()
	httputil.JSON(w, http.StatusOK, map[string]string{"id": list.ID})
}

// Update handles PUT /list/{list_id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "list_id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := h.service.Update(r.Context(), listID, UpdateFields{
		Name:                       req.Name,
		Language:                   req.Language,
		ServiceID:                  req.ServiceID,
		SubscribeEmailTemplateID:   req.SubscribeEmailTemplateID,
		UnsubscribeEmailTemplateID: req.UnsubscribeEmailTemplateID,
		SubscribePhoneTemplateID:   req.SubscribePhoneTemplateID,
		UnsubscribePhoneTemplateID: req.UnsubscribePhoneTemplateID,
		SubscribeRedirectURL:       req.SubscribeRedirectURL,
		ConfirmRedirectURL:         req.ConfirmRedirectURL,
		UnsubscribeRedirectURL:     req.UnsubscribeRedirectURL,
	})
	if err != nil {
		metrics.ListOperations.WithLabelValues("update", "error").Inc()
		h.handleServiceError(r, w, err)
		return
	}

	metrics.ListOperations.WithLabelValues("update", "success").Inc()
	httputil.OK(w)
}

// Delete handles DELETE /list/{list_id}. Deleting a list cascades to all of
// its subscriptions.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "list_id")

	if err := h.service.Delete(r.Context(), listID); err != nil {
		metrics.ListOperations.WithLabelValues("delete", "error").Inc()
		h.handleServiceError(r, w, err)
		return
	}

	metrics.ListOperations.WithLabelValues("delete", "success").Inc()
	httputil.OK(w)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrListNotFound, Status: http.StatusNotFound},
		{Error: ErrRedirectNotAllowed, Status: http.StatusBadRequest},
		{Error: ErrInvalidRedirectURL, Status: http.StatusBadRequest},
		{Error: ErrInvalidTemplateID, Status: http.StatusBadRequest},
		{Error: ErrInvalidUpdate, Status: http.StatusBadRequest},
	})
}
