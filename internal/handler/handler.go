package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dssouza/bank-accounts/internal/middleware"
	"github.com/dssouza/bank-accounts/internal/models"
	"github.com/dssouza/bank-accounts/internal/repository"
	"github.com/dssouza/bank-accounts/internal/service"
)

type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	validate *validator.Validate
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, validate: validator.New()}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createAccountRequest struct {
	Type string `json:"type" validate:"required,oneof=checking savings"`
}

type createCardRequest struct {
	PIN string `json:"pin" validate:"required,numeric,len=4"`
}

type createTransactionRequest struct {
	AccountID int64   `json:"accountId" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=transfer payment"`
	Amount    float64 `json:"amount" validate:"required,gte=1"`
	Receiver  string  `json:"receiver" validate:"required"`
	Category  string  `json:"category"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateAccount handles account creation for the authenticated user
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthenticated"))
		return
	}

	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), userID, req.Type)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount handles retrieval of a single account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListAccounts handles listing the authenticated user's accounts. A user
// with no accounts gets an empty list, not a not-found error.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthenticated"))
		return
	}

	accounts, err := h.svc.ListAccounts(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreateCard handles card issuance on an account
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req createCardRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.svc.IssueCard(r.Context(), accountID, req.PIN)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteCard handles card revocation on an account
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cardID := mux.Vars(r)["cardId"]

	account, err := h.svc.RevokeCard(r.Context(), accountID, cardID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount handles account deletion
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), accountID); err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// CreateTransaction handles recording a transaction entry
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx := &models.Transaction{
		AccountID: req.AccountID,
		Type:      req.Type,
		Amount:    req.Amount,
		Receiver:  req.Receiver,
		Category:  req.Category,
	}
	recorded, err := h.svc.RecordTransaction(r.Context(), tx)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recorded)
}

// ListTransactions handles listing an account's transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	transactions, err := h.svc.ListTransactions(r.Context(), accountID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// decode parses and validates a JSON request body, answering 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("validation failed: "+err.Error()))
		return false
	}
	return true
}

// respondError maps service errors to HTTP statuses without leaking
// internals
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("Account not found"))
	case errors.Is(err, repository.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("User not found"))
	default:
		h.log.Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
