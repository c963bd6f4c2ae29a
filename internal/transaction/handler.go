package transaction

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/middleware"
	"github.com/JeffBoundamas/kuna-cash-flow-sub000/pkg/response"
)

// Handler handles HTTP requests for the transaction ledger
type Handler struct {
	repo *Repository
}

// NewHandler creates a new transaction handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the router for transaction endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)

	return r
}

// List handles GET /transactions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	txns, total, err := h.repo.ListByUserID(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		response.InternalError(w, "Failed to list transactions")
		return
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, txns, meta)
}
