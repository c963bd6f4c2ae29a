package account

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/middleware"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/response"
)

// Handler handles HTTP requests for account operations
type Handler struct {
	store Store
}

// NewHandler creates a new account handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes returns the router for account endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)

	return r
}

// Create handles POST /accounts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.BadRequest(w, "Account name is required")
		return
	}

	acc, err := h.store.Create(r.Context(), userID, &req)
	if err != nil {
		response.InternalError(w, "Failed to create account")
		return
	}

	response.JSON(w, http.StatusCreated, acc)
}

// List handles GET /accounts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	accounts, err := h.store.ListByUserID(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list accounts")
		return
	}

	response.JSON(w, http.StatusOK, accounts)
}

// GetByID handles GET /accounts/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	acc, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to get account")
		return
	}
	if acc == nil {
		response.NotFound(w, "account not found")
		return
	}

	response.JSON(w, http.StatusOK, acc)
}
