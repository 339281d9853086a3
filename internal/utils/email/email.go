package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/dssouza/bank-accounts/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendCardIssued notifies the account owner that a new card was issued
func (s *Sender) SendCardIssued(to, username string, accountNumber int64, lastFour string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "New Card Issued"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A new card ending in %s has been issued on your account %d.\n"+
			"If you did not request this card, contact support immediately.\n"+
			"\nBest regards,\nBank Service",
		username, lastFour, accountNumber,
	)
	e.Text = []byte(body)

	return s.send(e)
}

// SendCardExpiring reminds the account owner that a card expires soon
func (s *Sender) SendCardExpiring(to, username, cardNumber, validThru string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Card Expiring Soon"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your card ending in %s expires %s.\n"+
			"A replacement card can be requested from your account page.\n"+
			"\nBest regards,\nBank Service",
		username, maskCardNumber(cardNumber), validThru,
	)
	e.Text = []byte(body)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}

// maskCardNumber keeps only the last four digits visible
func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
