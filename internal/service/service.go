package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/dssouza/bank-accounts/internal/config"
	"github.com/dssouza/bank-accounts/internal/models"
	"github.com/dssouza/bank-accounts/internal/repository"
	"github.com/dssouza/bank-accounts/internal/utils"
)

const cardNumberLength = 16

// Mailer sends account notifications. The SMTP implementation lives in
// internal/utils/email; tests substitute a fake.
type Mailer interface {
	SendCardIssued(to, username string, accountNumber int64, lastFour string) error
	SendCardExpiring(to, username, cardNumber, validThru string) error
}

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	log    *logrus.Logger
	config *config.Config
	mailer Mailer
	now    func() time.Time
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, mailer Mailer) *Service {
	return &Service{repo: repo, log: log, config: cfg, mailer: mailer, now: time.Now}
}

// SetClock overrides the service clock, for tests
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// CreateAccount creates a new account for the given user. The account number
// comes from the atomic store counter, so sequential creations produce the
// run 1..N with no duplicates even under concurrent requests.
func (s *Service) CreateAccount(ctx context.Context, userID int64, accountType string) (*models.Account, error) {
	number, err := s.repo.NextAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UserID:        userID,
		AccountNumber: number,
		Type:          accountType,
	}

	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.Infof("Account %d created for user %d (%s)", account.AccountNumber, userID, accountType)
	return account, nil
}

// GetAccount retrieves a single account by id
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// ListAccounts retrieves all accounts owned by the user. An empty list is a
// successful result, not an error.
func (s *Service) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	return s.repo.FindAccountsByUserID(ctx, userID)
}

// DeleteAccount deletes an account and, with it, every embedded card
func (s *Service) DeleteAccount(ctx context.Context, accountID int64) error {
	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.log.Infof("Account %d deleted", accountID)
	return nil
}

// IssueCard creates a new card on the account and returns the updated
// account. The PIN is bcrypt-hashed before it is handed to the store; the
// plaintext never leaves this method.
func (s *Service) IssueCard(ctx context.Context, accountID int64, pin string) (*models.Account, error) {
	pinHash, err := utils.HashPIN(pin, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	number, err := utils.GenerateCardNumber("", cardNumberLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}

	securityCode, err := utils.GenerateSecurityCode()
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	card := models.Card{
		ID:           uuid.NewString(),
		PINHash:      pinHash,
		Number:       number,
		ValidThru:    utils.ValidThru(issuedAt),
		SecurityCode: securityCode,
		CreatedAt:    issuedAt,
	}

	account, err := s.repo.AppendCard(ctx, accountID, card)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Card issued on account %d", accountID)
	s.notifyCardIssued(account, card)
	return account, nil
}

// notifyCardIssued emails the account owner in the background. A failed
// notification never fails the issuance.
func (s *Service) notifyCardIssued(account *models.Account, card models.Card) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		user, err := s.repo.FindUserByID(ctx, account.UserID)
		if err != nil {
			s.log.Errorf("Failed to resolve owner of account %d: %v", account.ID, err)
			return
		}
		lastFour := card.Number[len(card.Number)-4:]
		if err := s.mailer.SendCardIssued(user.Email, user.Username, account.AccountNumber, lastFour); err != nil {
			s.log.Errorf("Failed to send card issued notification: %v", err)
		}
	}()
}

// RevokeCard removes a card from the account. Revoking a card that is
// already gone succeeds as a no-op; only a missing account is an error.
func (s *Service) RevokeCard(ctx context.Context, accountID int64, cardID string) (*models.Account, error) {
	account, err := s.repo.RemoveCard(ctx, accountID, cardID)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Card %s revoked on account %d", cardID, accountID)
	return account, nil
}

// RecordTransaction stores a transaction entry against an existing account.
// No balance is computed from it.
func (s *Service) RecordTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if _, err := s.repo.FindAccountByID(ctx, tx.AccountID); err != nil {
		return nil, err
	}
	if tx.Category == "" {
		tx.Category = models.DefaultTransactionCategory
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	s.log.Infof("Transaction recorded on account %d: %s %.2f", tx.AccountID, tx.Type, tx.Amount)
	return tx, nil
}

// ListTransactions lists the transactions recorded against an account
func (s *Service) ListTransactions(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.FindTransactionsByAccountID(ctx, accountID)
}

// SendExpiryReminders emails the owner of every card expiring next month.
// Invoked by the daily scheduler job.
func (s *Service) SendExpiryReminders(ctx context.Context) error {
	nextMonth := s.now().AddDate(0, 1, 0)
	validThru := fmt.Sprintf("%02d/%02d", nextMonth.Month(), nextMonth.Year()%100)

	cards, err := s.repo.FindExpiringCards(ctx, validThru)
	if err != nil {
		return err
	}

	for _, ec := range cards {
		if s.mailer == nil {
			continue
		}
		if err := s.mailer.SendCardExpiring(ec.Email, ec.Username, ec.CardNumber, ec.ValidThru); err != nil {
			s.log.Errorf("Failed to send expiry reminder to %s: %v", ec.Email, err)
		}
	}

	s.log.Infof("Expiry reminder run complete: %d cards expiring %s", len(cards), validThru)
	return nil
}
