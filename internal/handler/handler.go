package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentvest/rent2own-service/internal/affordability"
	"github.com/rentvest/rent2own-service/internal/equity"
	"github.com/rentvest/rent2own-service/internal/middleware"
	"github.com/rentvest/rent2own-service/internal/models"
	"github.com/rentvest/rent2own-service/internal/payments"
	"github.com/rentvest/rent2own-service/internal/repository"
	"github.com/rentvest/rent2own-service/internal/service"
)

// Handler exposes the service over HTTP
type Handler struct {
	svc *service.Service
}

// NewHandler initializes a new handler
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses: validation problems
// are 400, illegal state transitions 409, missing records 404.
func writeError(w http.ResponseWriter, err error) {
	var vErr *affordability.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrUserExists):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, payments.ErrInvalidTransition),
		errors.Is(err, equity.ErrReversalExceedsEquity),
		errors.Is(err, equity.ErrOverAllocated):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, payments.ErrPaymentNotFound), errors.Is(err, equity.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

type registerRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Mobile   string          `json:"mobile"`
	UserType models.UserType `json:"user_type"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and a password of at least 6 characters are required"})
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name, req.Mobile, req.UserType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Affordability runs the affordability calculator for the submitted profile
func (h *Handler) Affordability(w http.ResponseWriter, r *http.Request) {
	var profile models.FinancialProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.svc.EstimateAffordability(profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundedResult(result))
}

// roundedResult presents whole-currency figures the way the dashboard shows
// them; the engine itself keeps full precision.
func roundedResult(r *models.AffordabilityResult) *models.AffordabilityResult {
	out := *r
	out.EligiblePayment = math.Round(out.EligiblePayment)
	out.MaxLoanAmount = math.Round(out.MaxLoanAmount)
	out.MaxPropertyPrice = math.Round(out.MaxPropertyPrice)
	out.ProcessingFee = math.Round(out.ProcessingFee)
	out.RentComponent = math.Round(out.RentComponent)
	out.EquityComponent = math.Round(out.EquityComponent)
	out.MinBudget = math.Round(out.MinBudget)
	out.MaxBudget = math.Round(out.MaxBudget)
	return &out
}

type createPaymentRequest struct {
	UserID          string               `json:"user_id"`
	PropertyID      string               `json:"property_id"`
	Amount          float64              `json:"amount"`
	PaymentType     models.PaymentType   `json:"payment_type"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	TransactionID   string               `json:"transaction_id"`
	EquityComponent float64              `json:"equity_component"`
	RentComponent   float64              `json:"rent_component"`
}

// CreatePayment records a new pending payment
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" || req.PropertyID == "" || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id, property_id and a positive amount are required"})
		return
	}

	payment, err := h.svc.CreatePayment(r.Context(), service.CreatePaymentRequest{
		UserID:          req.UserID,
		PropertyID:      req.PropertyID,
		Amount:          req.Amount,
		PaymentType:     req.PaymentType,
		PaymentMethod:   req.PaymentMethod,
		TransactionID:   req.TransactionID,
		EquityComponent: req.EquityComponent,
		RentComponent:   req.RentComponent,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type paginatedResponse struct {
	Items interface{} `json:"items"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
	Pages int         `json:"pages"`
}

func paginate(items interface{}, page, limit, total int) paginatedResponse {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	return paginatedResponse{Items: items, Page: page, Limit: limit, Total: total, Pages: pages}
}

// ListPayments returns payments filtered by user, property and status
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PaymentFilter{
		UserID:     q.Get("userId"),
		PropertyID: q.Get("propertyId"),
		Status:     models.PaymentStatus(q.Get("status")),
		Page:       intQuery(q.Get("page"), 1),
		Limit:      intQuery(q.Get("limit"), 10),
	}

	list, total, err := h.svc.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(list, filter.Page, filter.Limit, total))
}

type processPaymentRequest struct {
	PaymentID     string               `json:"payment_id"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
	FailureReason string               `json:"failure_reason"`
	PaidAt        *time.Time           `json:"paid_at"`
}

// ProcessPayment applies a gateway status update to a payment
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.PaymentID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "payment_id is required"})
		return
	}
	switch req.Status {
	case models.PaymentStatusCompleted, models.PaymentStatusFailed, models.PaymentStatusRefunded:
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status must be COMPLETED, FAILED or REFUNDED"})
		return
	}

	payment, err := h.svc.RecordPaymentStatus(r.Context(), payments.StatusUpdate{
		PaymentID:     req.PaymentID,
		Status:        req.Status,
		TransactionID: req.TransactionID,
		FailureReason: req.FailureReason,
		PaidAt:        req.PaidAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// EquityStatus returns the equity record for the authenticated user and the
// property in the URL
func (h *Handler) EquityStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	propertyID := mux.Vars(r)["propertyId"]

	record, err := h.svc.GetEquityStatus(r.Context(), userID, propertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListProperties returns available listings matching the query filters
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PropertyFilter{
		City:      q.Get("city"),
		MinBudget: floatQuery(q.Get("minBudget")),
		MaxBudget: floatQuery(q.Get("maxBudget")),
		BHK:       intQuery(q.Get("bhk"), 0),
		Type:      models.PropertyType(q.Get("propertyType")),
		Page:      intQuery(q.Get("page"), 1),
		Limit:     intQuery(q.Get("limit"), 10),
	}

	list, total, err := h.svc.ListProperties(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(list, filter.Page, filter.Limit, total))
}

// CreateProperty creates a new listing
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var property models.Property
	if err := json.NewDecoder(r.Body).Decode(&property); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if property.Title == "" || property.Rent2OwnPrice <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title and a positive rent2own_price are required"})
		return
	}

	created, err := h.svc.CreateProperty(r.Context(), &property)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func intQuery(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func floatQuery(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
