package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dssouza/bank-accounts/internal/config"
	"github.com/dssouza/bank-accounts/internal/middleware"
	"github.com/dssouza/bank-accounts/internal/models"
	"github.com/dssouza/bank-accounts/internal/repository"
	"github.com/dssouza/bank-accounts/internal/service"
)

var accountColumns = []string{"id", "user_id", "account_number", "type", "cards", "created_at", "updated_at"}

const testUserID int64 = 3

// newTestRouter wires the real handler/service/repository stack over a
// sqlmock database, with the authenticated user injected directly.
func newTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost}
	svc := service.NewService(repository.NewRepository(db), log, cfg, nil)
	h := NewHandler(svc, log)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.ContextWithUserID(req.Context(), testUserID)))
		})
	})
	r.HandleFunc("/account", h.CreateAccount).Methods("POST")
	r.HandleFunc("/account", h.ListAccounts).Methods("GET")
	r.HandleFunc("/account/{id}", h.GetAccount).Methods("GET")
	r.HandleFunc("/account/{id}", h.DeleteAccount).Methods("DELETE")
	r.HandleFunc("/account/{id}/create-card", h.CreateCard).Methods("PUT")
	r.HandleFunc("/account/{id}/delete-card/{cardId}", h.DeleteCard).Methods("PUT")
	r.HandleFunc("/account/{id}/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transaction", h.CreateTransaction).Methods("POST")
	return r, mock
}

func doRequest(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAccountCreated(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO bank.counters`).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO bank.accounts`).
		WithArgs(testUserID, int64(1), models.AccountTypeSavings).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(10, now, now))

	rec := doRequest(r, "POST", "/account", `{"type":"savings"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var account models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, int64(1), account.AccountNumber)
	assert.Equal(t, models.AccountTypeSavings, account.Type)
	assert.NotNil(t, account.Cards)
}

func TestCreateAccountInvalidType(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "POST", "/account", `{"type":"offshore"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestListAccountsEmptyIsSuccess(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT id, user_id, account_number, type, cards, created_at, updated_at`).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	rec := doRequest(r, "GET", "/account", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetAccountNotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT id, user_id, account_number, type, cards, created_at, updated_at`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	rec := doRequest(r, "GET", "/account/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account not found")
}

func TestCreateCardReturnsAccountWithoutPin(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	stored := `[{"id":"card-1","pin":"$2a$04$secret","number":"1111222233334444","validThru":"08/31","securityCode":"321","createdAt":"2026-08-29T00:00:00Z"}]`
	mock.ExpectQuery(`UPDATE bank.accounts`).
		WithArgs(int64(10), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(10, testUserID, 1, models.AccountTypeChecking, []byte(stored), now, now))

	rec := doRequest(r, "PUT", "/account/10/create-card", `{"pin":"1234"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The hashed pin survives in storage but never reaches the response
	assert.NotContains(t, rec.Body.String(), "pin")
	assert.NotContains(t, rec.Body.String(), "$2a$")
	assert.Contains(t, rec.Body.String(), "card-1")
}

func TestCreateCardAccountMissing(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`UPDATE bank.accounts`).
		WithArgs(int64(99), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	rec := doRequest(r, "PUT", "/account/99/create-card", `{"pin":"1234"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCardInvalidPin(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "PUT", "/account/10/create-card", `{"pin":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCardNoOpSuccess(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE bank.accounts`).
		WithArgs(int64(10), "no-such-card").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(10, testUserID, 1, models.AccountTypeChecking, []byte(`[]`), now, now))

	rec := doRequest(r, "PUT", "/account/10/delete-card/no-such-card", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteAccountOK(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectExec(`DELETE FROM bank.accounts`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(r, "DELETE", "/account/10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestDeleteAccountNotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectExec(`DELETE FROM bank.accounts`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := doRequest(r, "DELETE", "/account/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransactionBelowMinimumAmount(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "POST", "/transaction", `{"accountId":10,"type":"payment","amount":0.5,"receiver":"shop"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransactionInvalidType(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "POST", "/transaction", `{"accountId":10,"type":"wire","amount":10,"receiver":"shop"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransactionCreated(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, account_number, type, cards, created_at, updated_at`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(10, testUserID, 1, models.AccountTypeChecking, []byte(`[]`), now, now))
	mock.ExpectQuery(`INSERT INTO bank.transactions`).
		WithArgs(int64(10), models.TransactionTypePayment, 10.0, "shop", models.DefaultTransactionCategory).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	rec := doRequest(r, "POST", "/transaction", `{"accountId":10,"type":"payment","amount":10,"receiver":"shop"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, models.DefaultTransactionCategory, tx.Category)
}

func TestListTransactions(t *testing.T) {
	r, mock := newTestRouter(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, account_number, type, cards, created_at, updated_at`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(10, testUserID, 1, models.AccountTypeChecking, []byte(`[]`), now, now))
	mock.ExpectQuery(`SELECT id, account_id, type, amount, receiver, category`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "type", "amount", "receiver", "category", "created_at", "updated_at"}).
			AddRow(1, 10, models.TransactionTypePayment, 10.0, "shop", "Other", now, now))

	rec := doRequest(r, "GET", "/account/10/transactions", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var txs []models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "shop", txs[0].Receiver)
}

func TestGetAccountInvalidID(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, "GET", "/account/not-a-number", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
