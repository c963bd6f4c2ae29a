package tontine

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

// Handler handles HTTP requests for tontine operations
type Handler struct {
	service *Service
}

// NewHandler creates a new tontine handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for tontine endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetDetail)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	r.Post("/{id}/contributions", h.LogContribution)
	r.Post("/{id}/payouts", h.ReceivePot)
	r.Get("/{id}/payments", h.ListPayments)

	r.Post("/{id}/members", h.AddMember)
	r.Put("/{id}/members/order", h.ReorderMembers)
	r.Delete("/{id}/members/{memberId}", h.DeleteMember)

	return r
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrMemberNameRequired) ||
		errors.Is(err, ErrTooFewMembers) ||
		errors.Is(err, ErrOneCurrentUser) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidCycle) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMemberListMismatch)
}

// Create handles POST /tontines
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req CreateTontineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	detail, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if isValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create tontine")
		return
	}

	response.JSON(w, http.StatusCreated, detail)
}

// List handles GET /tontines
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	tontines, err := h.service.ListByUserID(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list tontines")
		return
	}

	response.JSON(w, http.StatusOK, tontines)
}

// GetDetail handles GET /tontines/{id}
func (h *Handler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTontineNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get tontine")
		return
	}

	response.JSON(w, http.StatusOK, detail)
}

// Update handles PUT /tontines/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	var req UpdateTontineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrTontineNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		if isValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to update tontine")
		return
	}

	response.JSON(w, http.StatusOK, t)
}

// Delete handles DELETE /tontines/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrTontineNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to delete tontine")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Tontine deleted"})
}

// LogContribution handles POST /tontines/{id}/contributions
func (h *Handler) LogContribution(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req LogContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	payment, err := h.service.LogContribution(r.Context(), userID, id, &req)
	if err != nil {
		var insufficient *account.ErrInsufficientBalance
		switch {
		case errors.Is(err, ErrTontineNotFound), errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, err.Error())
		case errors.As(err, &insufficient):
			response.PolicyViolation(w, err.Error())
		case isValidationError(err):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to log contribution")
		}
		return
	}

	response.JSON(w, http.StatusCreated, payment)
}

// ReceivePot handles POST /tontines/{id}/payouts
func (h *Handler) ReceivePot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req ReceivePotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	payment, err := h.service.ReceivePot(r.Context(), userID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTontineNotFound), errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrPotAlreadyReceived):
			response.PolicyViolation(w, err.Error())
		case isValidationError(err):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to record payout")
		}
		return
	}

	response.JSON(w, http.StatusCreated, payment)
}

// ListPayments handles GET /tontines/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTontineNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list payments")
		return
	}

	response.JSON(w, http.StatusOK, payments)
}

// AddMember handles POST /tontines/{id}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	member, err := h.service.AddMember(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrTontineNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		if isValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to add member")
		return
	}

	response.JSON(w, http.StatusCreated, member)
}

// ReorderMembers handles PUT /tontines/{id}/members/order
func (h *Handler) ReorderMembers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}

	var req ReorderMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	members, err := h.service.ReorderMembers(r.Context(), id, req.MemberIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrTontineNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrLockedPosition):
			response.PolicyViolation(w, err.Error())
		case isValidationError(err):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to reorder members")
		}
		return
	}

	response.JSON(w, http.StatusOK, members)
}

// DeleteMember handles DELETE /tontines/{id}/members/{memberId}
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid tontine ID")
		return
	}
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid member ID")
		return
	}

	if err := h.service.DeleteMember(r.Context(), id, memberID); err != nil {
		switch {
		case errors.Is(err, ErrTontineNotFound), errors.Is(err, ErrMemberNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrMemberLocked):
			response.PolicyViolation(w, err.Error())
		case errors.Is(err, ErrTooFewMembers):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete member")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}
