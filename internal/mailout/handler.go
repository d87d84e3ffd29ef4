package mailout

import (
	"encoding/json"
	"net/http"

	"github.com/cds-snc/list-manager/internal/domain"
	"github.com/cds-snc/list-manager/internal/notify"
	"github.com/cds-snc/list-manager/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for bulk sends.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new mailout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterProtectedRoutes registers routes guarded by the API token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/send", h.Send)
}

// SendRequest is the POST /send payload.
type SendRequest struct {
	ListID       string `json:"list_id" validate:"required,uuid"`
	TemplateID   string `json:"template_id" validate:"required,uuid"`
	TemplateType string `json:"template_type" validate:"required"`

	JobName         string                 `json:"job_name"`
	Unique          *bool                  `json:"unique"`
	Personalisation map[string]interface{} `json:"personalisation"`
	ServiceAPIKey   string                 `json:"service_api_key"`
}

// Send handles POST /send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if req.JobName == "" {
		req.JobName = "Bulk email"
	}
	unique := true
	if req.Unique != nil {
		unique = *req.Unique
	}

	sent, err := h.service.Send(r.Context(), SendInput{
		ListID:          req.ListID,
		TemplateID:      req.TemplateID,
		TemplateType:    req.TemplateType,
		JobName:         req.JobName,
		Unique:          unique,
		Personalisation: req.Personalisation,
		APIKey:          req.ServiceAPIKey,
	})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "OK",
		"sent":   sent,
	})
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	if notify.IsDispatchError(err) {
		httputil.Error(w, notify.StatusCode(err, http.StatusBadGateway), "error sending bulk notifications")
		return
	}

	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: domain.ErrInvalidChannel, Status: http.StatusBadRequest},
		{Error: ErrNoConfirmedSubscribers, Status: http.StatusNotFound},
	})
}
