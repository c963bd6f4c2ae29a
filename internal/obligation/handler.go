package obligation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/internal/account"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/middleware"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/response"
)

// Handler handles HTTP requests for obligation operations
type Handler struct {
	service *Service
}

// NewHandler creates a new obligation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for obligation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/payments", h.LogPayment)
	r.Get("/{id}/payments", h.ListPayments)

	return r
}

// Create handles POST /obligations
// @Summary      Create a new obligation
// @Description  Track a debt owed to the user (creance) or by the user (engagement)
// @Tags         obligations
// @Accept       json
// @Produce      json
// @Param        request body CreateObligationRequest true "Obligation creation request"
// @Success      201 {object} response.APIResponse{data=Obligation}
// @Failure      400 {object} response.APIResponse
// @Router       /obligations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req CreateObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	o, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrInvalidType) || errors.Is(err, ErrPersonNameRequired) || errors.Is(err, ErrInvalidAmount) ||
			errors.Is(err, ErrInvalidDate) || errors.Is(err, ErrInvalidConfidence) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create obligation")
		return
	}

	response.JSON(w, http.StatusCreated, o)
}

// List handles GET /obligations
// @Summary      List obligations
// @Description  List the user's obligations, optionally filtered by type and active status
// @Tags         obligations
// @Produce      json
// @Param        type query string false "CREANCE or ENGAGEMENT"
// @Param        active query bool false "Only active and partially paid"
// @Success      200 {object} response.APIResponse{data=[]Obligation}
// @Router       /obligations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	filter := ListFilter{}
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		t := Type(typeParam)
		if t != TypeCreance && t != TypeEngagement {
			response.BadRequest(w, "Invalid type. Must be CREANCE or ENGAGEMENT")
			return
		}
		filter.Type = &t
	}
	filter.ActiveOnly = r.URL.Query().Get("active") == "true"

	obligations, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		response.InternalError(w, "Failed to list obligations")
		return
	}

	response.JSON(w, http.StatusOK, obligations)
}

// GetByID handles GET /obligations/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid obligation ID")
		return
	}

	o, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrObligationNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get obligation")
		return
	}

	response.JSON(w, http.StatusOK, o)
}

// Update handles PUT /obligations/{id}
// @Summary      Update an obligation
// @Description  Edit obligation details. A total amount change shifts the remaining amount by the same delta.
// @Tags         obligations
// @Accept       json
// @Produce      json
// @Param        id path int true "Obligation ID"
// @Param        request body UpdateObligationRequest true "Fields to update"
// @Success      200 {object} response.APIResponse{data=Obligation}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /obligations/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid obligation ID")
		return
	}

	var req UpdateObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	o, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrObligationNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrObligationTerminal):
			response.PolicyViolation(w, err.Error())
		case errors.Is(err, ErrTotalBelowPaid), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrPersonNameRequired),
			errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidConfidence):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to update obligation")
		}
		return
	}

	response.JSON(w, http.StatusOK, o)
}

// Cancel handles POST /obligations/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid obligation ID")
		return
	}

	o, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrObligationNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		if errors.Is(err, ErrObligationTerminal) {
			response.PolicyViolation(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to cancel obligation")
		return
	}

	response.JSON(w, http.StatusOK, o)
}

// LogPayment handles POST /obligations/{id}/payments
// @Summary      Log a payment against an obligation
// @Description  Records the payment, recomputes remaining amount and status, and mirrors a signed transaction into the ledger
// @Tags         obligations
// @Accept       json
// @Produce      json
// @Param        id path int true "Obligation ID"
// @Param        request body LogPaymentRequest true "Payment to log"
// @Success      201 {object} response.APIResponse{data=PaymentResult}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /obligations/{id}/payments [post]
func (h *Handler) LogPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid obligation ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req LogPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.service.LogPayment(r.Context(), userID, id, &req)
	if err != nil {
		var insufficient *account.ErrInsufficientBalance
		switch {
		case errors.Is(err, ErrObligationNotFound), errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrObligationTerminal), errors.As(err, &insufficient):
			response.PolicyViolation(w, err.Error())
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountExceedsRemaining), errors.Is(err, ErrInvalidDate):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to log payment")
		}
		return
	}

	response.JSON(w, http.StatusCreated, result)
}

// ListPayments handles GET /obligations/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid obligation ID")
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrObligationNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list payments")
		return
	}

	response.JSON(w, http.StatusOK, payments)
}
