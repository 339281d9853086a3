package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dssouza/bank-accounts/internal/models"
)

// Sentinel errors returned by store operations. Callers match with errors.Is
// and map them to HTTP statuses at the boundary.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// storedCard is the JSONB representation of a card inside an account row.
// Unlike models.Card it carries the pin hash, which must never appear in
// API serialization but has to survive round trips through the store.
type storedCard struct {
	ID           string    `json:"id"`
	PIN          string    `json:"pin"`
	Number       string    `json:"number"`
	ValidThru    string    `json:"validThru"`
	SecurityCode string    `json:"securityCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toStoredCard(c models.Card) storedCard {
	return storedCard{
		ID:           c.ID,
		PIN:          c.PINHash,
		Number:       c.Number,
		ValidThru:    c.ValidThru,
		SecurityCode: c.SecurityCode,
		CreatedAt:    c.CreatedAt,
	}
}

func fromStoredCards(raw []byte) ([]models.Card, error) {
	var stored []storedCard
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}
	cards := make([]models.Card, 0, len(stored))
	for _, s := range stored {
		cards = append(cards, models.Card{
			ID:           s.ID,
			PINHash:      s.PIN,
			Number:       s.Number,
			ValidThru:    s.ValidThru,
			SecurityCode: s.SecurityCode,
			CreatedAt:    s.CreatedAt,
		})
	}
	return cards, nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO bank.users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM bank.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by primary key
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM bank.users
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// NextAccountNumber atomically increments and returns the shared account
// number counter. The upsert is a single statement, so concurrent account
// creations can never observe the same value.
func (r *Repository) NextAccountNumber(ctx context.Context) (int64, error) {
	query := `
		INSERT INTO bank.counters (name, value)
		VALUES ('account_number', 1)
		ON CONFLICT (name) DO UPDATE SET value = bank.counters.value + 1
		RETURNING value`
	var number int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&number); err != nil {
		return 0, fmt.Errorf("failed to allocate account number: %w", err)
	}
	return number, nil
}

// CreateAccount creates a new account with an empty card list
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO bank.accounts (user_id, account_number, type, cards, created_at, updated_at)
		VALUES ($1, $2, $3, '[]'::jsonb, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, account.UserID, account.AccountNumber, account.Type).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	account.Cards = []models.Card{}
	return nil
}

func (r *Repository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var rawCards []byte
	err := row.Scan(&account.ID, &account.UserID, &account.AccountNumber,
		&account.Type, &rawCards, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	account.Cards, err = fromStoredCards(rawCards)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindAccountByID retrieves a single account
func (r *Repository) FindAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, user_id, account_number, type, cards, created_at, updated_at
		FROM bank.accounts
		WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// FindAccountsByUserID retrieves all accounts owned by a user. Zero accounts
// is a valid result and yields an empty slice, not an error.
func (r *Repository) FindAccountsByUserID(ctx context.Context, userID int64) ([]models.Account, error) {
	query := `
		SELECT id, user_id, account_number, type, cards, created_at, updated_at
		FROM bank.accounts
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account := models.Account{}
		var rawCards []byte
		if err := rows.Scan(&account.ID, &account.UserID, &account.AccountNumber,
			&account.Type, &rawCards, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Cards, err = fromStoredCards(rawCards)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// AppendCard appends a card to the account's card list in a single UPDATE.
// The row lock taken by the statement makes concurrent appends on the same
// account serialize without losing either card.
func (r *Repository) AppendCard(ctx context.Context, accountID int64, card models.Card) (*models.Account, error) {
	payload, err := json.Marshal(toStoredCard(card))
	if err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	query := `
		UPDATE bank.accounts
		SET cards = cards || $2::jsonb, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, user_id, account_number, type, cards, created_at, updated_at`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, accountID, payload))
}

// RemoveCard removes the card with the given id from the account's card
// list. Removing an absent card is a no-op on an existing account; only a
// missing account is an error.
func (r *Repository) RemoveCard(ctx context.Context, accountID int64, cardID string) (*models.Account, error) {
	query := `
		UPDATE bank.accounts
		SET cards = (
			SELECT COALESCE(jsonb_agg(c), '[]'::jsonb)
			FROM jsonb_array_elements(cards) AS c
			WHERE c->>'id' <> $2
		), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, user_id, account_number, type, cards, created_at, updated_at`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, accountID, cardID))
}

// DeleteAccount deletes an account row together with its embedded cards
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bank.accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreateTransaction records a transaction against an account
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO bank.transactions (account_id, type, amount, receiver, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, tx.AccountID, tx.Type, tx.Amount, tx.Receiver, tx.Category).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindTransactionsByAccountID lists an account's transactions, newest first
func (r *Repository) FindTransactionsByAccountID(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, type, amount, receiver, category, created_at, updated_at
		FROM bank.transactions
		WHERE account_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx := models.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &tx.Amount,
			&tx.Receiver, &tx.Category, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// ExpiringCard pairs a card that is about to expire with its owner's
// contact details, for the reminder job.
type ExpiringCard struct {
	Email      string
	Username   string
	AccountID  int64
	CardNumber string
	ValidThru  string
}

// FindExpiringCards returns every card whose validThru equals the given
// MM/YY value, joined with the owning user.
func (r *Repository) FindExpiringCards(ctx context.Context, validThru string) ([]ExpiringCard, error) {
	query := `
		SELECT u.email, u.username, a.id, c->>'number', c->>'validThru'
		FROM bank.accounts a
		JOIN bank.users u ON u.id = a.user_id,
		jsonb_array_elements(a.cards) AS c
		WHERE c->>'validThru' = $1`
	rows, err := r.db.QueryContext(ctx, query, validThru)
	if err != nil {
		return nil, fmt.Errorf("failed to find expiring cards: %w", err)
	}
	defer rows.Close()

	cards := []ExpiringCard{}
	for rows.Next() {
		ec := ExpiringCard{}
		if err := rows.Scan(&ec.Email, &ec.Username, &ec.AccountID, &ec.CardNumber, &ec.ValidThru); err != nil {
			return nil, fmt.Errorf("failed to scan expiring card: %w", err)
		}
		cards = append(cards, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find expiring cards: %w", err)
	}
	return cards, nil
}
