package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cds-snc/list-manager/internal/lists"
	"github.com/cds-snc/list-manager/internal/notify"
	"github.com/cds-snc/list-manager/internal/pkg/ctxlog"
	"github.com/cds-snc/list-manager/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the subscriptions module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new subscriptions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers the subscriber-facing routes. These carry no
// token: they are driven from links in sent messages and public forms.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/subscription", h.Subscribe)
	r.Get("/subscription/{subscription_id}/confirm", h.Confirm)
	r.Delete("/subscription/{subscription_id}", h.Unsubscribe)
	r.Get("/unsubscribe/{subscription_id}", h.Unsubscribe)
}

// RegisterProtectedRoutes registers routes guarded by the API token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Put("/list/{list_id}/reset", h.Reset)
	r.Post("/list/{list_id}/import", h.Import)
	r.Post("/listimport", h.LegacyImport)
}

// SubscribeRequest is the POST /subscription payload.
type SubscribeRequest struct {
	ListID        string  `json:"list_id" validate:"required"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone" validate:"omitempty,min=9,max=15"`
	ServiceAPIKey string  `json:"service_api_key"`
}

// ImportRequest is the POST /list/{list_id}/import payload.
type ImportRequest struct {
	Email []string `json:"email" validate:"omitempty,max=10000,dive,email"`
	Phone []string `json:"phone" validate:"omitempty,max=10000,dive,min=9,max=15"`
}

// LegacyImportRequest is the deprecated POST /listimport payload.
type LegacyImportRequest struct {
	ListID string   `json:"list_id" validate:"required"`
	Emails []string `json:"emails" validate:"required,min=1,max=10000,dive,email"`
}

// Subscribe handles POST /subscription.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.Subscribe(r.Context(), SubscribeInput{
		ListID:        req.ListID,
		Email:         req.Email,
		Phone:         req.Phone,
		ServiceAPIKey: req.ServiceAPIKey,
	})
	if err != nil {
		switch {
		case notify.IsDispatchError(err):
			ctxlog.FromContext(r.Context()).Error("subscription notification failed", "error", err)
			httputil.Error(w, http.StatusBadGateway, "error sending subscription notification")
		case errors.Is(err, ErrBothChannels):
			httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrNoChannel):
			httputil.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, lists.ErrListNotFound):
			httputil.Error(w, http.StatusNotFound, err.Error())
		default:
			ctxlog.FromContext(r.Context()).Error("subscription save failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "error saving subscription")
		}
		return
	}

	if result.RedirectURL != "" {
		http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"id": result.ID})
}

// Confirm handles GET /subscription/{subscription_id}/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subscription_id")

	redirectURL, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.handleLifecycleError(w, r, err, "error confirming subscription")
		return
	}

	if redirectURL != "" {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}
	httputil.OK(w)
}

// Unsubscribe handles DELETE /subscription/{subscription_id} and
// GET /unsubscribe/{subscription_id}.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subscription_id")

	redirectURL, err := h.service.Unsubscribe(r.Context(), id)
	if err != nil {
		if notify.IsDispatchError(err) {
			// The row is already gone; surface the provider's status.
			ctxlog.FromContext(r.Context()).Error("unsubscribe notification failed", "error", err)
			httputil.Error(w, notify.StatusCode(err, http.StatusBadGateway), "error sending unsubscription notification")
			return
		}
		h.handleLifecycleError(w, r, err, "error deleting subscription")
		return
	}

	if redirectURL != "" {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}
	httputil.OK(w)
}

// Reset handles PUT /list/{list_id}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "list_id")

	if err := h.service.Reset(r.Context(), listID); err != nil {
		h.handleLifecycleError(w, r, err, "error resetting list")
		return
	}
	httputil.OK(w)
}

// Import handles POST /list/{list_id}/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "list_id")

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.Import(r.Context(), listID, ImportInput{
		Email: req.Email,
		Phone: req.Phone,
	}); err != nil {
		h.handleImportError(w, r, err)
		return
	}
	httputil.OK(w)
}

// LegacyImport handles the deprecated POST /listimport form, which carries
// the list id in the body and accepts emails only.
func (h *Handler) LegacyImport(w http.ResponseWriter, r *http.Request) {
	var req LegacyImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.Import(r.Context(), req.ListID, ImportInput{Email: req.Emails}); err != nil {
		h.handleImportError(w, r, err)
		return
	}
	httputil.OK(w)
}

func (h *Handler) handleImportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrImportEmpty), errors.Is(err, ErrImportBoth), errors.Is(err, ErrImportTooLarge):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.handleLifecycleError(w, r, err, "error importing list")
	}
}

func (h *Handler) handleLifecycleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lists.ErrListNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	default:
		ctxlog.FromContext(r.Context()).Error(message, "error", err)
		httputil.Error(w, http.StatusInternalServerError, message)
	}
}
